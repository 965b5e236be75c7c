package packet

import (
	"testing"

	"github.com/crust-proxy/crust/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLatestSinceWins(t *testing.T) {
	r := NewRegistry()
	r.Register(ServerBound, Play, IDChatMessage, version.R1_17, 0x03)
	r.Register(ServerBound, Play, IDChatMessage, version.R1_19, 0x05)
	r.Register(ServerBound, Play, IDChatMessage, version.R1_20_2, 0x06)
	r.Freeze()

	tests := []struct {
		name string
		pv   version.Protocol
		want byte
	}{
		{"before any registration", version.R1_8, 0},
		{"exactly first since", version.R1_17, 0x03},
		{"between first and second", version.R1_18, 0x03},
		{"exactly second since", version.R1_19, 0x05},
		{"exactly third since", version.R1_20_2, 0x06},
		{"after third since", version.R1_21, 0x06},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, ok := r.WireByte(ServerBound, Play, IDChatMessage, tt.pv)
			if tt.name == "before any registration" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, wire)
		})
	}
}

func TestRegistryLookupRoundTripsWithWireByte(t *testing.T) {
	r := NewRegistry()
	r.Register(ClientBound, Play, IDKeepAlive, version.R1_17, 0x21)
	r.Register(ClientBound, Play, IDKeepAlive, version.R1_20_2, 0x24)
	r.Register(ClientBound, Play, IDDisconnect, version.R1_17, 0x1a)
	r.Freeze()

	pv := version.R1_21
	wire, ok := r.WireByte(ClientBound, Play, IDKeepAlive, pv)
	require.True(t, ok)

	gotID, ok := r.Lookup(ClientBound, Play, pv, wire)
	require.True(t, ok)
	assert.Equal(t, IDKeepAlive, gotID)
}

func TestRegistryLookupUnknownWireByte(t *testing.T) {
	r := NewRegistry()
	r.Register(ServerBound, Handshake, IDHandshake, version.R1_8, 0x00)
	r.Freeze()

	_, ok := r.Lookup(ServerBound, Handshake, version.R1_20_2, 0x7f)
	assert.False(t, ok)
}

func TestRegistryWireByteUnregisteredIDAndState(t *testing.T) {
	r := NewRegistry()
	r.Register(ServerBound, Play, IDChatMessage, version.R1_17, 0x03)
	r.Freeze()

	_, ok := r.WireByte(ServerBound, Configuration, IDChatMessage, version.R1_21)
	assert.False(t, ok, "same ID registered for a different state must not match")

	_, ok = r.WireByte(ClientBound, Play, IDChatMessage, version.R1_21)
	assert.False(t, ok, "same ID registered for a different direction must not match")
}

func TestMustWireBytePanicsWhenUnregistered(t *testing.T) {
	r := NewRegistry()
	r.Freeze()

	assert.Panics(t, func() {
		r.MustWireByte(ServerBound, Play, IDChatMessage, version.R1_21)
	})
}

func TestRegisterOnFrozenRegistryPanics(t *testing.T) {
	r := NewRegistry()
	r.Freeze()

	assert.Panics(t, func() {
		r.Register(ServerBound, Play, IDChatMessage, version.R1_17, 0x03)
	})
}

// TestDefaultRegistryPlayConfigurationAckLadder guards the fix for the
// review finding that IDConfigurationAck in Play state was registered with
// only its newest wire byte - the ladder moves at both the R1_20_5 and
// R1_21_2 boundaries per original_source/src/server/packet_ids.rs.
func TestDefaultRegistryPlayConfigurationAckLadder(t *testing.T) {
	tests := []struct {
		pv   version.Protocol
		want byte
	}{
		{version.R1_20_2, 0x0B},
		{version.R1_20_3, 0x0B},
		{version.R1_20_5, 0x0C},
		{version.R1_21, 0x0C},
		{version.R1_21_2, 0x0E},
		{version.R1_21_4, 0x0E},
	}
	for _, tt := range tests {
		wire, ok := Default.WireByte(ServerBound, Play, IDConfigurationAck, tt.pv)
		require.True(t, ok)
		assert.Equal(t, tt.want, wire, "pv=%d", tt.pv)
	}
}

// TestDefaultRegistryPlaySystemChatMessageLadder guards the fix for the
// review finding that IDSystemChatMessage was registered with only its
// newest wire byte despite the id moving at every one of R1_20_2, R1_20_3,
// R1_20_5, and R1_21_2.
func TestDefaultRegistryPlaySystemChatMessageLadder(t *testing.T) {
	tests := []struct {
		pv   version.Protocol
		want byte
	}{
		{version.R1_20_2, 0x67},
		{version.R1_20_3, 0x69},
		{version.R1_20_5, 0x6C},
		{version.R1_21, 0x6C},
		{version.R1_21_2, 0x73},
		{version.R1_21_4, 0x73},
	}
	for _, tt := range tests {
		wire, ok := Default.WireByte(ClientBound, Play, IDSystemChatMessage, tt.pv)
		require.True(t, ok)
		assert.Equal(t, tt.want, wire, "pv=%d", tt.pv)
	}
}

// TestDefaultRegistryConfigurationPluginMessageLadder guards the fix for the
// review finding that the Configuration-state PluginMessage ids hardcoded
// their post-1.20.5 wire byte with no entry for 764/765, where CookieResponse
// hadn't yet been inserted ahead of them.
func TestDefaultRegistryConfigurationPluginMessageLadder(t *testing.T) {
	wire, ok := Default.WireByte(ServerBound, Configuration, IDPluginMessageServerBound, version.R1_20_2)
	require.True(t, ok)
	assert.Equal(t, byte(0x01), wire)

	wire, ok = Default.WireByte(ServerBound, Configuration, IDPluginMessageServerBound, version.R1_20_5)
	require.True(t, ok)
	assert.Equal(t, byte(0x02), wire)

	wire, ok = Default.WireByte(ClientBound, Configuration, IDPluginMessageClientBound, version.R1_20_2)
	require.True(t, ok)
	assert.Equal(t, byte(0x00), wire)

	wire, ok = Default.WireByte(ClientBound, Configuration, IDPluginMessageClientBound, version.R1_20_5)
	require.True(t, ok)
	assert.Equal(t, byte(0x01), wire)
}

// TestDefaultRegistryHasNoAmbiguousWireBytes guards against two semantic IDs
// sharing a (direction, state, wire byte) at the same protocol version, which
// would make Lookup's map-iteration order decide the outcome non-deterministically.
func TestDefaultRegistryHasNoAmbiguousWireBytes(t *testing.T) {
	for _, dir := range []Direction{ServerBound, ClientBound} {
		for _, st := range []State{Handshake, Status, Login, Configuration, Play} {
			for _, pv := range version.Supported {
				seen := make(map[byte]ID)
				for id := ID(0); id < 2000; id++ {
					wire, ok := Default.WireByte(dir, st, id, pv)
					if !ok {
						continue
					}
					if other, dup := seen[wire]; dup && other != id {
						t.Fatalf("wire byte 0x%02x at dir=%d state=%s pv=%d is ambiguous between id %d and %d",
							wire, dir, st, pv, other, id)
					}
					seen[wire] = id
				}
			}
		}
	}
}
