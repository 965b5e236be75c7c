package command

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name   string
	replies []string
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) SendReply(text string) { f.replies = append(f.replies, text) }

type echoCommand struct {
	names []string
}

func (c *echoCommand) Names() []string { return c.names }
func (c *echoCommand) Execute(src Source, args []string) {
	src.SendReply(fmt.Sprintf("ran with %d args", len(args)))
}

func TestRegistryDispatchRunsRegisteredCommand(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoCommand{names: []string{"server", "srv"}})

	src := &fakeSource{name: "Alice"}
	ok := r.Dispatch(src, "server lobby extra")
	require.True(t, ok)
	require.Len(t, src.replies, 1)
	assert.Equal(t, "ran with 2 args", src.replies[0])
}

func TestRegistryDispatchAliasesShareTheSameCommand(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoCommand{names: []string{"server", "srv"}})

	src := &fakeSource{}
	ok := r.Dispatch(src, "srv")
	require.True(t, ok)
	assert.Equal(t, "ran with 0 args", src.replies[0])
}

func TestRegistryDispatchUnknownCommandReturnsFalse(t *testing.T) {
	r := NewRegistry()
	src := &fakeSource{}
	ok := r.Dispatch(src, "nonexistent foo")
	assert.False(t, ok)
	assert.Empty(t, src.replies)
}

func TestRegistryNamesReturnsEveryLiteralSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoCommand{names: []string{"server", "srv"}})
	r.Register(&echoCommand{names: []string{"about"}})

	assert.Equal(t, []string{"about", "server", "srv"}, r.Names())
}

func TestRegistrySuggestMatchesByPrefixCaseInsensitively(t *testing.T) {
	r := NewRegistry()
	r.Register(&echoCommand{names: []string{"server", "srv", "about"}})

	assert.Equal(t, []string{"srv"}, r.Suggest("sr"))
	assert.Equal(t, []string{"srv"}, r.Suggest("SR"))
	assert.Equal(t, []string{"about", "server", "srv"}, r.Suggest(""))
	assert.Empty(t, r.Suggest("zzz"))
}

func TestSplitCommandHandlesWhitespaceVariants(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		wantArgs []string
	}{
		{"server lobby", "server", []string{"lobby"}},
		{"server   lobby   two", "server", []string{"lobby", "two"}},
		{"server", "server", nil},
		{"", "", nil},
		{"  server lobby", "server", []string{"lobby"}},
	}
	for _, tt := range tests {
		name, args := splitCommand(tt.line)
		assert.Equal(t, tt.wantName, name, tt.line)
		assert.Equal(t, tt.wantArgs, args, tt.line)
	}
}
