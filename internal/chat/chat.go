// Package chat is a thin wrapper over go.minekube.com/common's chat
// component model and its (de)serializers. The component format itself (NBT
// tree of text/color/click/hover) is an external collaborator per
// SPEC_FULL.md §1/§6 - this package only adapts it to the shapes the proxy's
// Kick/SystemChatMessage/status packets need, the way the teacher's
// pkg/proxy/player.go does inline.
package chat

import (
	"encoding/json"
	"strings"

	"go.minekube.com/common/minecraft/color"
	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/component/codec"
	"go.minekube.com/common/minecraft/component/codec/legacy"
)

// Plain renders a component as plain, colorless text (for logging).
func Plain(c component.Component) string {
	var b strings.Builder
	if err := (&codec.Plain{}).Marshal(&b, c); err != nil {
		return ""
	}
	return b.String()
}

// JSON renders a component as the JSON text format used by Kick/Disconnect
// and SystemChatMessage payloads below the NBT cutover version.
func JSON(c component.Component) ([]byte, error) {
	var b strings.Builder
	if err := (&codec.Json{}).Marshal(&b, c); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// LegacyActionBar converts a component to a single legacy-formatted string
// wrapped in a {"text":...} JSON object, the workaround pre-1.11 clients need
// for action bar text (there is no dedicated action-bar packet before then),
// matching connectedPlayer.SendMessagePosition in the teacher.
func LegacyActionBar(c component.Component) ([]byte, error) {
	var b strings.Builder
	if err := (&legacy.Legacy{}).Marshal(&b, c); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"text": b.String()})
}

// Text is a convenience constructor for a plain literal message.
func Text(s string) *component.Text {
	return &component.Text{Content: s}
}

// RedText builds a red-colored literal message, used for shutdown/kick
// notices the way cmd/gate/gate.go colors its shutdown message.
func RedText(s string) *component.Text {
	return &component.Text{Content: s, S: component.Style{Color: color.Red}}
}
