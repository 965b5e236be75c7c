package proxy

import (
	"github.com/crust-proxy/crust/internal/chat"
	"github.com/crust-proxy/crust/internal/version"
	"go.minekube.com/common/minecraft/component"
)

// NBTEncoder is the external NBT (de)serializer collaborator (SPEC_FULL.md
// §6): at and above protocol 765 (1.20.3), Kick/Disconnect/SystemChatMessage
// text is NBT-encoded rather than JSON. The NBT codec itself is out of
// scope for this proxy per spec §1, so it is modeled purely as an interface
// the caller supplies; DefaultNBTEncoder below is a placeholder that falls
// back to JSON bytes until a real NBT library is wired in, documented as an
// open point in DESIGN.md rather than silently pretending to be correct NBT.
type NBTEncoder interface {
	EncodeComponent(c component.Component) ([]byte, error)
}

type jsonFallbackEncoder struct{}

func (jsonFallbackEncoder) EncodeComponent(c component.Component) ([]byte, error) {
	return chat.JSON(c)
}

// DefaultNBTEncoder is used when no external NBT collaborator is configured.
var DefaultNBTEncoder NBTEncoder = jsonFallbackEncoder{}

// chatReasonBytes encodes a disconnect/kick reason for the wire, branching on
// the protocol's JSON/NBT cutover the same way
// original_source/src/server/packets.rs's Kick packet does (below R1_20_3:
// JSON; at/above: NBT).
func chatReasonBytes(reason component.Component, pv version.Protocol) ([]byte, error) {
	if pv >= version.R1_20_3 {
		return DefaultNBTEncoder.EncodeComponent(reason)
	}
	return chat.JSON(reason)
}
