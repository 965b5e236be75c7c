package packet

import (
	"io"

	"github.com/crust-proxy/crust/internal/version"
	"github.com/google/uuid"
)

// Packet is implemented by every typed packet struct this proxy constructs or
// fully decodes. Packets outside the whitelist are forwarded as opaque
// []byte payloads via the connection pump and never implement this
// interface - see SPEC_FULL.md §1 Non-goals.
type Packet interface {
	Encode(w *Writer, pv version.Protocol) error
	Decode(r *Reader, pv version.Protocol) error
}

// NextState is the handshake packet's requested next state.
type NextState int32

const (
	NextStatus NextState = 1
	NextLogin  NextState = 2
	NextTransfer NextState = 3
)

// Handshake is the first packet of every connection.
type Handshake struct {
	ProtocolVersion version.Protocol
	ServerAddress   string
	ServerPort      uint16
	NextState       NextState
}

func (p *Handshake) Encode(w *Writer, pv version.Protocol) error {
	if err := w.WriteVarInt(int32(p.ProtocolVersion)); err != nil {
		return err
	}
	if err := w.WriteString(p.ServerAddress); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte{byte(p.ServerPort >> 8), byte(p.ServerPort)}); err != nil {
		return err
	}
	return w.WriteVarInt(int32(p.NextState))
}

func (p *Handshake) Decode(r *Reader, pv version.Protocol) error {
	n, err := r.ReadVarInt()
	if err != nil {
		return err
	}
	p.ProtocolVersion = version.Protocol(n)
	if p.ServerAddress, err = r.ReadString(255); err != nil {
		return err
	}
	portBytes, err := r.ReadBytes(2)
	if err != nil {
		return err
	}
	p.ServerPort = uint16(portBytes[0])<<8 | uint16(portBytes[1])
	ns, err := r.ReadVarInt()
	if err != nil {
		return err
	}
	p.NextState = NextState(ns)
	return nil
}

// LoginDisconnect and Disconnect (Play/Configuration Kick) both carry a chat
// reason; below R1_20_3 it is JSON text, at/above it is NBT. NBT encoding is
// an external collaborator (SPEC_FULL.md §E... chat codec) - callers pass in
// the already-encoded reason bytes (JSON string or NBT blob) produced by
// internal/chat, this struct only frames them.
type Disconnect struct {
	Reason []byte // already-encoded JSON or NBT, per protocol version
}

func (p *Disconnect) Encode(w *Writer, pv version.Protocol) error {
	return w.WriteBytes(p.Reason)
}

func (p *Disconnect) Decode(r *Reader, pv version.Protocol) error {
	p.Reason = r.Remaining()
	return nil
}

// SetCompression negotiates the compression threshold.
type SetCompression struct {
	Threshold int32
}

func (p *SetCompression) Encode(w *Writer, pv version.Protocol) error {
	return w.WriteVarInt(p.Threshold)
}

func (p *SetCompression) Decode(r *Reader, pv version.Protocol) error {
	v, err := r.ReadVarInt()
	p.Threshold = v
	return err
}

// LoginAcknowledged is an empty marker packet: client -> proxy after
// receiving LoginSuccess, transitioning both sides into Configuration.
type LoginAcknowledged struct{}

func (p *LoginAcknowledged) Encode(w *Writer, pv version.Protocol) error { return nil }
func (p *LoginAcknowledged) Decode(r *Reader, pv version.Protocol) error { return nil }

// LoginStart is the client's initial login request.
type LoginStart struct {
	Name string
	UUID uuid.UUID
}

func (p *LoginStart) Encode(w *Writer, pv version.Protocol) error {
	if err := w.WriteString(p.Name); err != nil {
		return err
	}
	return w.WriteUUID(p.UUID)
}

func (p *LoginStart) Decode(r *Reader, pv version.Protocol) error {
	var err error
	if p.Name, err = r.ReadString(16); err != nil {
		return err
	}
	p.UUID, err = r.ReadUUID()
	return err
}

// EncryptionRequest is sent by the proxy to start the encryption handshake
// for online-mode sessions.
type EncryptionRequest struct {
	ServerID           string
	PublicKey          []byte
	VerifyToken        []byte
	ShouldAuthenticate bool
}

func (p *EncryptionRequest) Encode(w *Writer, pv version.Protocol) error {
	if err := w.WriteString(p.ServerID); err != nil {
		return err
	}
	if err := w.WriteByteArray(p.PublicKey); err != nil {
		return err
	}
	if err := w.WriteByteArray(p.VerifyToken); err != nil {
		return err
	}
	if pv >= version.R1_20_5 {
		return w.WriteBool(p.ShouldAuthenticate)
	}
	return nil
}

func (p *EncryptionRequest) Decode(r *Reader, pv version.Protocol) error {
	var err error
	if p.ServerID, err = r.ReadString(20); err != nil {
		return err
	}
	if p.PublicKey, err = r.ReadByteArray(256); err != nil {
		return err
	}
	if p.VerifyToken, err = r.ReadByteArray(256); err != nil {
		return err
	}
	if pv >= version.R1_20_5 {
		p.ShouldAuthenticate, err = r.ReadBool()
	}
	return err
}

// EncryptionResponse is the client's reply with the RSA-encrypted shared
// secret and verify token.
type EncryptionResponse struct {
	SharedSecret []byte
	VerifyToken  []byte
}

func (p *EncryptionResponse) Encode(w *Writer, pv version.Protocol) error {
	if err := w.WriteByteArray(p.SharedSecret); err != nil {
		return err
	}
	return w.WriteByteArray(p.VerifyToken)
}

func (p *EncryptionResponse) Decode(r *Reader, pv version.Protocol) error {
	var err error
	if p.SharedSecret, err = r.ReadByteArray(128); err != nil {
		return err
	}
	p.VerifyToken, err = r.ReadByteArray(128)
	return err
}

// LoginSuccess finishes the login sequence with the client's resolved
// GameProfile.
type LoginSuccess struct {
	UUID       uuid.UUID
	Name       string
	Properties []ProfileProperty
}

type ProfileProperty struct {
	Name      string
	Value     string
	Signature string
	HasSignature bool
}

func (p *LoginSuccess) Encode(w *Writer, pv version.Protocol) error {
	if err := w.WriteUUID(p.UUID); err != nil {
		return err
	}
	if err := w.WriteString(p.Name); err != nil {
		return err
	}
	if err := w.WriteVarInt(int32(len(p.Properties))); err != nil {
		return err
	}
	for _, prop := range p.Properties {
		if err := w.WriteString(prop.Name); err != nil {
			return err
		}
		if err := w.WriteString(prop.Value); err != nil {
			return err
		}
		if err := w.WriteBool(prop.HasSignature); err != nil {
			return err
		}
		if prop.HasSignature {
			if err := w.WriteString(prop.Signature); err != nil {
				return err
			}
		}
	}
	if pv >= version.R1_20_5 && pv < version.R1_21_2 {
		return w.WriteBool(true) // "strict error handling" byte, always true here
	}
	return nil
}

func (p *LoginSuccess) Decode(r *Reader, pv version.Protocol) error {
	var err error
	if p.UUID, err = r.ReadUUID(); err != nil {
		return err
	}
	if p.Name, err = r.ReadString(16); err != nil {
		return err
	}
	n, err := r.ReadVarInt()
	if err != nil {
		return err
	}
	p.Properties = make([]ProfileProperty, n)
	for i := range p.Properties {
		prop := &p.Properties[i]
		if prop.Name, err = r.ReadString(255); err != nil {
			return err
		}
		if prop.Value, err = r.ReadString(32767); err != nil {
			return err
		}
		if prop.HasSignature, err = r.ReadBool(); err != nil {
			return err
		}
		if prop.HasSignature {
			if prop.Signature, err = r.ReadString(255); err != nil {
				return err
			}
		}
	}
	return nil
}

// CookieRequest/CookieResponse: opaque client-held key/value storage
// introduced in 1.20.5, used by backends to persist small bits of state
// across sessions. The proxy only needs to frame them through, not interpret
// the payload.
type CookieRequest struct {
	Key string
}

func (p *CookieRequest) Encode(w *Writer, pv version.Protocol) error { return w.WriteString(p.Key) }
func (p *CookieRequest) Decode(r *Reader, pv version.Protocol) error {
	var err error
	p.Key, err = r.ReadString(32767)
	return err
}

type CookieResponse struct {
	Key     string
	Payload []byte
	Present bool
}

func (p *CookieResponse) Encode(w *Writer, pv version.Protocol) error {
	if err := w.WriteString(p.Key); err != nil {
		return err
	}
	if err := w.WriteBool(p.Present); err != nil {
		return err
	}
	if p.Present {
		return w.WriteByteArray(p.Payload)
	}
	return nil
}

func (p *CookieResponse) Decode(r *Reader, pv version.Protocol) error {
	var err error
	if p.Key, err = r.ReadString(32767); err != nil {
		return err
	}
	if p.Present, err = r.ReadBool(); err != nil {
		return err
	}
	if p.Present {
		p.Payload, err = r.ReadByteArray(5120)
	}
	return err
}

// LoginPluginRequest/LoginPluginResponse let a backend ask the client a
// custom login-phase question (e.g. Forge/NeoForge handshake data); the
// proxy frames these through without understanding the payload.
type LoginPluginRequest struct {
	MessageID int32
	Channel   string
	Data      []byte
}

func (p *LoginPluginRequest) Encode(w *Writer, pv version.Protocol) error {
	if err := w.WriteVarInt(p.MessageID); err != nil {
		return err
	}
	if err := w.WriteString(p.Channel); err != nil {
		return err
	}
	return w.WriteBytes(p.Data)
}

func (p *LoginPluginRequest) Decode(r *Reader, pv version.Protocol) error {
	var err error
	if p.MessageID, err = r.ReadVarInt(); err != nil {
		return err
	}
	if p.Channel, err = r.ReadString(255); err != nil {
		return err
	}
	p.Data = r.Remaining()
	return nil
}

type LoginPluginResponse struct {
	MessageID int32
	Present   bool
	Data      []byte
}

func (p *LoginPluginResponse) Encode(w *Writer, pv version.Protocol) error {
	if err := w.WriteVarInt(p.MessageID); err != nil {
		return err
	}
	if err := w.WriteBool(p.Present); err != nil {
		return err
	}
	if p.Present {
		return w.WriteBytes(p.Data)
	}
	return nil
}

func (p *LoginPluginResponse) Decode(r *Reader, pv version.Protocol) error {
	var err error
	if p.MessageID, err = r.ReadVarInt(); err != nil {
		return err
	}
	if p.Present, err = r.ReadBool(); err != nil {
		return err
	}
	if p.Present {
		p.Data = r.Remaining()
	}
	return nil
}

// ClientInformation is ClientSettings, renamed in modern protocol docs.
type ClientInformation struct {
	Locale              string
	ViewDistance        int8
	ChatMode            int32
	ChatColors          bool
	DisplayedSkinParts  byte
	MainHand            int32
	DisableTextFiltering bool
	AllowServerListing  bool
	ParticleStatus      int32
}

func (p *ClientInformation) Encode(w *Writer, pv version.Protocol) error {
	if err := w.WriteString(p.Locale); err != nil {
		return err
	}
	if err := w.WriteByte(byte(p.ViewDistance)); err != nil {
		return err
	}
	if err := w.WriteVarInt(p.ChatMode); err != nil {
		return err
	}
	if err := w.WriteBool(p.ChatColors); err != nil {
		return err
	}
	if err := w.WriteByte(p.DisplayedSkinParts); err != nil {
		return err
	}
	if err := w.WriteVarInt(p.MainHand); err != nil {
		return err
	}
	if err := w.WriteBool(p.DisableTextFiltering); err != nil {
		return err
	}
	if err := w.WriteBool(p.AllowServerListing); err != nil {
		return err
	}
	if pv >= version.R1_21_2 {
		return w.WriteVarInt(p.ParticleStatus)
	}
	return nil
}

func (p *ClientInformation) Decode(r *Reader, pv version.Protocol) error {
	var err error
	if p.Locale, err = r.ReadString(16); err != nil {
		return err
	}
	vb, err := r.ReadByte()
	if err != nil {
		return err
	}
	p.ViewDistance = int8(vb)
	if p.ChatMode, err = r.ReadVarInt(); err != nil {
		return err
	}
	if p.ChatColors, err = r.ReadBool(); err != nil {
		return err
	}
	if p.DisplayedSkinParts, err = r.ReadByte(); err != nil {
		return err
	}
	if p.MainHand, err = r.ReadVarInt(); err != nil {
		return err
	}
	if p.DisableTextFiltering, err = r.ReadBool(); err != nil {
		return err
	}
	if p.AllowServerListing, err = r.ReadBool(); err != nil {
		return err
	}
	if pv >= version.R1_21_2 {
		p.ParticleStatus, err = r.ReadVarInt()
	}
	return err
}

// PluginMessage carries a channel + opaque payload, used both directions.
type PluginMessage struct {
	Channel string
	Data    []byte
}

func (p *PluginMessage) Encode(w *Writer, pv version.Protocol) error {
	if err := w.WriteString(p.Channel); err != nil {
		return err
	}
	return w.WriteBytes(p.Data)
}

func (p *PluginMessage) Decode(r *Reader, pv version.Protocol) error {
	var err error
	if p.Channel, err = r.ReadString(255); err != nil {
		return err
	}
	p.Data = r.Remaining()
	return nil
}

// ChatCommand is an unsigned client-issued command (the "/"-prefixed chat
// message, for versions that split commands from chat).
type ChatCommand struct {
	Command string
}

func (p *ChatCommand) Encode(w *Writer, pv version.Protocol) error { return w.WriteString(p.Command) }
func (p *ChatCommand) Decode(r *Reader, pv version.Protocol) error {
	var err error
	p.Command, err = r.ReadString(256)
	return err
}

// SystemChatMessage is a server-originated chat line with no sender (kick
// messages relayed as chat, command feedback, etc). Content is pre-encoded
// NBT/JSON text produced by internal/chat.
type SystemChatMessage struct {
	Content  []byte
	Overlay  bool
}

func (p *SystemChatMessage) Encode(w *Writer, pv version.Protocol) error {
	if err := w.WriteBytes(p.Content); err != nil {
		return err
	}
	return w.WriteBool(p.Overlay)
}

func (p *SystemChatMessage) Decode(r *Reader, pv version.Protocol) error {
	rest := r.Remaining()
	if len(rest) == 0 {
		return io.ErrUnexpectedEOF
	}
	p.Content = rest[:len(rest)-1]
	p.Overlay = rest[len(rest)-1] != 0
	return nil
}

// KeepAlive pings/pongs to detect a dead connection.
type KeepAlive struct {
	ID int64
}

func (p *KeepAlive) Encode(w *Writer, pv version.Protocol) error { return w.WriteInt64(p.ID) }
func (p *KeepAlive) Decode(r *Reader, pv version.Protocol) error {
	var err error
	p.ID, err = r.ReadInt64()
	return err
}

// ConfigurationAck / FinishConfiguration are empty marker packets exchanged
// at the Configuration<->Play boundary in both directions.
type ConfigurationAck struct{}

func (p *ConfigurationAck) Encode(w *Writer, pv version.Protocol) error { return nil }
func (p *ConfigurationAck) Decode(r *Reader, pv version.Protocol) error { return nil }

type FinishConfiguration struct{}

func (p *FinishConfiguration) Encode(w *Writer, pv version.Protocol) error { return nil }
func (p *FinishConfiguration) Decode(r *Reader, pv version.Protocol) error { return nil }

// StartConfiguration is sent by a backend to ask the client to return to
// Configuration state mid-Play - the trigger for a server switch's
// goto_config sequence.
type StartConfiguration struct{}

func (p *StartConfiguration) Encode(w *Writer, pv version.Protocol) error { return nil }
func (p *StartConfiguration) Decode(r *Reader, pv version.Protocol) error { return nil }

// BundleDelimiter marks the start/end of a bundle of packets that must be
// applied atomically by the client (e.g. an entity's full spawn state).
type BundleDelimiter struct{}

func (p *BundleDelimiter) Encode(w *Writer, pv version.Protocol) error { return nil }
func (p *BundleDelimiter) Decode(r *Reader, pv version.Protocol) error { return nil }

// TabCompleteRequest/TabCompleteResponse: command/chat suggestion round-trip.
// The proxy decodes requests and answers the ones about its own commands
// locally (handleClientTabComplete in internal/proxy); the rest are
// forwarded to the backend.
type TabCompleteRequest struct {
	TransactionID int32
	Text          string
}

func (p *TabCompleteRequest) Encode(w *Writer, pv version.Protocol) error {
	if err := w.WriteVarInt(p.TransactionID); err != nil {
		return err
	}
	return w.WriteString(p.Text)
}

func (p *TabCompleteRequest) Decode(r *Reader, pv version.Protocol) error {
	var err error
	if p.TransactionID, err = r.ReadVarInt(); err != nil {
		return err
	}
	p.Text, err = r.ReadString(32500)
	return err
}

// Commands is the server's command-suggestion graph (the "declare commands"
// packet). Carried as its undifferentiated wire body - only the intercept
// path (internal/proxy/intercept.go, via SpliceCommandGraph) ever needs to
// walk individual nodes, so there is no point modeling the graph's node
// structure as Go fields here.
type Commands struct {
	Raw []byte
}

func (p *Commands) Encode(w *Writer, pv version.Protocol) error { return w.WriteBytes(p.Raw) }
func (p *Commands) Decode(r *Reader, pv version.Protocol) error {
	p.Raw = r.Remaining()
	return nil
}

type TabCompleteResponse struct {
	TransactionID int32
	Raw           []byte // opaque match-list payload, passed through untouched
}

func (p *TabCompleteResponse) Encode(w *Writer, pv version.Protocol) error {
	if err := w.WriteVarInt(p.TransactionID); err != nil {
		return err
	}
	return w.WriteBytes(p.Raw)
}

func (p *TabCompleteResponse) Decode(r *Reader, pv version.Protocol) error {
	var err error
	if p.TransactionID, err = r.ReadVarInt(); err != nil {
		return err
	}
	p.Raw = r.Remaining()
	return nil
}

// BuildTabMatches encodes the match-list body of a TabCompleteResponse:
// the replacement span (start, length) plus each suggestion string with no
// tooltip, matching the post-1.13 wire layout described in
// original_source/src/server/packet_handler.rs's tab-complete forwarding.
func BuildTabMatches(start, length int32, matches []string) ([]byte, error) {
	w := NewWriter()
	if err := w.WriteVarInt(start); err != nil {
		return nil, err
	}
	if err := w.WriteVarInt(length); err != nil {
		return nil, err
	}
	if err := w.WriteVarInt(int32(len(matches))); err != nil {
		return nil, err
	}
	for _, m := range matches {
		if err := w.WriteString(m); err != nil {
			return nil, err
		}
		if err := w.WriteBool(false); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// DecodeBrandString/EncodeBrandString (de)serialize the "minecraft:brand"
// plugin channel's payload, which (unlike most plugin channels this proxy
// treats as opaque) is itself a single Minecraft wire String.
func DecodeBrandString(data []byte) string {
	s, err := NewReader(data).ReadString(256)
	if err != nil {
		return string(data)
	}
	return s
}

func EncodeBrandString(s string) []byte {
	w := NewWriter()
	_ = w.WriteString(s)
	return w.Bytes()
}
