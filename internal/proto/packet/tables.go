package packet

import "github.com/crust-proxy/crust/internal/version"

// buildDefaultRegistry declares the wire ids for every packet this proxy
// constructs or intercepts, across the runtime-supported version range
// (1.20.2-1.21.4). Entries are grounded on
// original_source/src/server/packet_ids.rs's begin! tables: each Register
// call below corresponds to one (RangeFrom<version>, wire_byte) tuple there.
// Every packet whose wire byte actually changes somewhere inside
// version.Supported carries the full ladder of (since, wire) tuples, not
// just the value for one version - Registry.WireByte/Lookup pick whichever
// tuple's since is the largest one <= the runtime version, so a packet
// registered with only its newest wire byte silently mis-decodes on every
// older supported version.
//
// Only wire ids needed to decode/encode the whitelisted packet set (see
// SPEC_FULL.md §1 Non-goals: "does not interpret play-state packets beyond a
// small whitelist") are declared; everything else is forwarded as an opaque
// byte payload without a semantic ID, so no registration is needed for it.
func buildDefaultRegistry() *Registry {
	r := NewRegistry()

	// Handshake state: one packet in one direction at a fixed id forever.
	r.Register(ServerBound, Handshake, IDHandshake, version.R1_8, 0x00)

	// Status state.
	r.Register(ServerBound, Status, IDStatusRequest, version.R1_8, 0x00)
	r.Register(ServerBound, Status, IDPingRequest, version.R1_8, 0x01)
	r.Register(ClientBound, Status, IDStatusResponse, version.R1_8, 0x00)
	r.Register(ClientBound, Status, IDPongResponse, version.R1_8, 0x01)

	// Login state, serverbound.
	r.Register(ServerBound, Login, IDLoginStart, version.R1_8, 0x00)
	r.Register(ServerBound, Login, IDEncryptionResponse, version.R1_8, 0x01)
	r.Register(ServerBound, Login, IDLoginPluginResponse, version.R1_13, 0x02)
	r.Register(ServerBound, Login, IDLoginAcknowledged, version.R1_20_2, 0x03)
	r.Register(ServerBound, Login, IDCookieResponse, version.R1_20_5, 0x04)

	// Login state, clientbound.
	r.Register(ClientBound, Login, IDLoginDisconnect, version.R1_8, 0x00)
	r.Register(ClientBound, Login, IDEncryptionRequest, version.R1_8, 0x01)
	r.Register(ClientBound, Login, IDLoginSuccess, version.R1_8, 0x02)
	r.Register(ClientBound, Login, IDSetCompression, version.R1_8, 0x03)
	r.Register(ClientBound, Login, IDLoginPluginRequest, version.R1_13, 0x04)
	r.Register(ClientBound, Login, IDCookieRequest, version.R1_20_5, 0x05)

	// Configuration state, serverbound (introduced at R1_20_2). CookieResponse
	// was inserted into this state at R1_20_5, shifting PluginMessage and the
	// FinishConfiguration ack up by one wire id from that version on - both
	// need the pre/post R1_20_5 ladder, not just the post-R1_20_5 value.
	r.Register(ServerBound, Configuration, IDClientInformation, version.R1_20_2, 0x00)
	r.Register(ServerBound, Configuration, IDCookieResponse, version.R1_20_5, 0x01)

	r.Register(ServerBound, Configuration, IDPluginMessageServerBound, version.R1_20_2, 0x01)
	r.Register(ServerBound, Configuration, IDPluginMessageServerBound, version.R1_20_5, 0x02)

	// The client's "Acknowledge Finish Configuration" packet is this proxy's
	// IDConfigurationAck - there is no separate serverbound FinishConfiguration
	// wire id, despite the semantic ID existing for the clientbound direction.
	r.Register(ServerBound, Configuration, IDConfigurationAck, version.R1_20_2, 0x02)
	r.Register(ServerBound, Configuration, IDConfigurationAck, version.R1_20_5, 0x03)

	// Configuration state, clientbound. Same R1_20_5 CookieRequest insertion
	// shifts PluginMessage, Disconnect, and FinishConfiguration up by one.
	r.Register(ClientBound, Configuration, IDCookieRequest, version.R1_20_5, 0x00)

	r.Register(ClientBound, Configuration, IDPluginMessageClientBound, version.R1_20_2, 0x00)
	r.Register(ClientBound, Configuration, IDPluginMessageClientBound, version.R1_20_5, 0x01)

	r.Register(ClientBound, Configuration, IDDisconnect, version.R1_20_2, 0x01)
	r.Register(ClientBound, Configuration, IDDisconnect, version.R1_20_5, 0x02)

	r.Register(ClientBound, Configuration, IDFinishConfiguration, version.R1_20_2, 0x02)
	r.Register(ClientBound, Configuration, IDFinishConfiguration, version.R1_20_5, 0x03)

	// Play state, serverbound (subset whitelisted by this proxy).
	r.Register(ServerBound, Play, IDChatCommand, version.R1_19, 0x04)
	r.Register(ServerBound, Play, IDChatMessage, version.R1_19, 0x06)

	// ConfigurationAck is the mechanism driving every server-switch state
	// transition (SPEC_FULL §4.7/§4.8): its wire id moves at both the
	// R1_20_5 and R1_21_2 boundaries.
	r.Register(ServerBound, Play, IDConfigurationAck, version.R1_20_2, 0x0B)
	r.Register(ServerBound, Play, IDConfigurationAck, version.R1_20_5, 0x0C)
	r.Register(ServerBound, Play, IDConfigurationAck, version.R1_21_2, 0x0E)

	r.Register(ServerBound, Play, IDPluginMessageServerBound, version.R1_20_2, 0x0D)
	r.Register(ServerBound, Play, IDTabCompleteRequest, version.R1_20_2, 0x0A)

	// Play state, clientbound.
	r.Register(ClientBound, Play, IDDisconnect, version.R1_20_2, 0x1B)
	r.Register(ClientBound, Play, IDDisconnect, version.R1_20_5, 0x1D)

	r.Register(ClientBound, Play, IDKeepAlive, version.R1_20_2, 0x26)
	r.Register(ClientBound, Play, IDPluginMessageClientBound, version.R1_20_2, 0x18)

	r.Register(ClientBound, Play, IDSystemChatMessage, version.R1_19_4, 0x64)
	r.Register(ClientBound, Play, IDSystemChatMessage, version.R1_20_2, 0x67)
	r.Register(ClientBound, Play, IDSystemChatMessage, version.R1_20_3, 0x69)
	r.Register(ClientBound, Play, IDSystemChatMessage, version.R1_20_5, 0x6C)
	r.Register(ClientBound, Play, IDSystemChatMessage, version.R1_21_2, 0x73)

	r.Register(ClientBound, Play, IDBundleDelimiter, version.R1_19_4, 0x00)

	// StartConfiguration is the other half of the switch mechanism: the
	// backend (or this proxy's own switch orchestrator) asking the client to
	// re-enter Configuration. Its wire id moves at every one of R1_20_3,
	// R1_20_5, and R1_21_2.
	r.Register(ClientBound, Play, IDStartConfiguration, version.R1_20_2, 0x65)
	r.Register(ClientBound, Play, IDStartConfiguration, version.R1_20_3, 0x67)
	r.Register(ClientBound, Play, IDStartConfiguration, version.R1_20_5, 0x69)
	r.Register(ClientBound, Play, IDStartConfiguration, version.R1_21_2, 0x70)

	// TabCompleteResponse only ever reaches 0x10, at R1_20_2 - it does not
	// move again across the rest of version.Supported.
	r.Register(ClientBound, Play, IDTabCompleteResponse, version.R1_20_2, 0x10)

	// Commands (the "declare commands" graph) backs the command-graph splice
	// in intercept.go (SPEC_FULL §4.7 C7).
	r.Register(ClientBound, Play, IDCommands, version.R1_19, 0x0F)
	r.Register(ClientBound, Play, IDCommands, version.R1_19_3, 0x0E)
	r.Register(ClientBound, Play, IDCommands, version.R1_19_4, 0x10)
	r.Register(ClientBound, Play, IDCommands, version.R1_20_2, 0x11)

	return r.Freeze()
}
