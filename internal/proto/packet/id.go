package packet

// ID is a semantic packet identifier, stable across protocol versions even
// though the wire byte for the same logical packet changes release to
// release. This mirrors original_source/src/server/packet_ids.rs's
// ServerPacketType/ClientPacketType enums: the registry maps (direction,
// state, ID) plus a protocol version to the wire byte that version actually
// uses, rather than hard-coding per-version numbers at every call site.
type ID uint16

// ServerBound (client -> proxy) semantic packet IDs, the closed set this
// proxy ever needs to construct or fully decode.
const (
	IDHandshake ID = iota
	IDStatusRequest
	IDPingRequest
	IDLoginStart
	IDEncryptionResponse
	IDLoginPluginResponse
	IDLoginAcknowledged
	IDCookieResponse
	IDClientInformation // ClientSettings
	IDPluginMessageServerBound
	IDChatCommand // UnsignedClientCommand
	IDChatMessage
	IDConfigurationAck
	IDTabCompleteRequest
	IDFinishConfiguration
)

// ClientBound (backend/proxy -> client) semantic packet IDs.
const (
	IDStatusResponse ID = iota + 1000
	IDPongResponse
	IDLoginDisconnect
	IDEncryptionRequest
	IDLoginSuccess
	IDSetCompression
	IDLoginPluginRequest
	IDCookieRequest
	IDPluginMessageClientBound
	IDSystemChatMessage
	IDDisconnect // Kick, Play state
	IDKeepAlive
	IDBundleDelimiter
	IDTabCompleteResponse
	IDStartConfiguration // server -> client prompting return to Configuration
	IDCommands           // the "declare commands" suggestion graph
)
