package chat

import (
	"testing"

	"go.minekube.com/common/minecraft/color"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONRendersTextContent(t *testing.T) {
	c := Text("hello world")
	b, err := JSON(c)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello world")
}

func TestPlainRendersWithoutMarkup(t *testing.T) {
	c := RedText("warning")
	s := Plain(c)
	assert.Equal(t, "warning", s)
}

func TestLegacyActionBarWrapsInTextObject(t *testing.T) {
	c := Text("action bar message")
	b, err := LegacyActionBar(c)
	require.NoError(t, err)
	assert.Contains(t, string(b), "action bar message")
	assert.Contains(t, string(b), `"text"`)
}

func TestRedTextSetsColor(t *testing.T) {
	c := RedText("danger")
	assert.Equal(t, "danger", c.Content)
	assert.Equal(t, color.Red, c.S.Color)
}
