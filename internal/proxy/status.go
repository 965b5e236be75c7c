package proxy

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/crust-proxy/crust/internal/version"
	"github.com/nfnt/resize"
)

// statusResponse is the JSON body for the Status state's server-list ping
// response, grounded on original_source/src/server/status.rs::StatusResponse.
type statusResponse struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int32  `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int  `json:"max"`
		Online int  `json:"online"`
		Sample []struct {
			Name string `json:"name"`
			ID   string `json:"id"`
		} `json:"sample"`
	} `json:"players"`
	Description string `json:"description"`
	Favicon     string `json:"favicon,omitempty"`
}

// buildStatusResponse assembles the status body for a client announcing
// clientVersion; protocol is -1 when unsupported, the Notchian convention
// get_status_response follows.
func buildStatusResponse(clientVersion version.Protocol, motd string, maxPlayers, online int, favicon string) statusResponse {
	var resp statusResponse
	resp.Version.Name = fmt.Sprintf("Crust %s", version.Range())
	if version.IsSupported(clientVersion) {
		resp.Version.Protocol = int32(clientVersion)
	} else {
		resp.Version.Protocol = -1
	}
	resp.Players.Max = maxPlayers
	resp.Players.Online = online
	resp.Description = motd
	resp.Favicon = favicon
	return resp
}

// loadFavicon reads an image file, resizes it to 64x64 with a high-quality
// Lanczos filter if it isn't already that size, and returns it as a
// data:image/png;base64 URI, matching run_server's favicon handling in
// original_source/src/server/mod.rs. Uses the teacher's own nfnt/resize
// dependency rather than a hand-rolled resampler.
func loadFavicon(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening favicon: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decoding favicon: %w", err)
	}

	b := img.Bounds()
	if b.Dx() != 64 || b.Dy() != 64 {
		img = resize.Resize(64, 64, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding favicon: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
