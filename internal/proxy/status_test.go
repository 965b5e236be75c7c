package proxy

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/crust-proxy/crust/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStatusResponseSupportedVersion(t *testing.T) {
	resp := buildStatusResponse(version.R1_21, "Welcome", 100, 5, "")
	assert.Equal(t, int32(version.R1_21), resp.Version.Protocol)
	assert.Equal(t, 100, resp.Players.Max)
	assert.Equal(t, 5, resp.Players.Online)
	assert.Equal(t, "Welcome", resp.Description)
}

func TestBuildStatusResponseUnsupportedVersion(t *testing.T) {
	resp := buildStatusResponse(version.R1_8, "Welcome", 100, 0, "")
	assert.Equal(t, int32(-1), resp.Version.Protocol)
}

func writeTestPNG(t *testing.T, path string, size int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadFaviconEmptyPathReturnsEmptyString(t *testing.T) {
	s, err := loadFavicon("")
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestLoadFaviconResizesToSixtyFour(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server-icon.png")
	writeTestPNG(t, path, 128)

	uri, err := loadFavicon(path)
	require.NoError(t, err)
	assert.Contains(t, uri, "data:image/png;base64,")
}

func TestLoadFaviconAlreadyCorrectSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server-icon.png")
	writeTestPNG(t, path, 64)

	uri, err := loadFavicon(path)
	require.NoError(t, err)
	assert.Contains(t, uri, "data:image/png;base64,")
}

func TestLoadFaviconMissingFile(t *testing.T) {
	_, err := loadFavicon("/nonexistent/path/icon.png")
	assert.Error(t, err)
}
