// Package frame implements the wire-level packet transport: a length-prefixed
// frame, optionally zlib-compressed above a threshold, optionally
// AES-128-CFB8 encrypted end to end (length prefix and body alike). This is
// the C1 frame codec, grounded on original_source/src/server/packets.rs's
// read_and_decode_packet/encode_and_send_packet and
// original_source/src/server/compression.rs, wired into the calling shape
// the teacher's pkg/proxy/connection.go expects from a codec.Decoder/Encoder
// pair.
package frame

import (
	"bufio"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"io"

	"github.com/crust-proxy/crust/internal/proto/codec"
	"github.com/crust-proxy/crust/internal/proto/packet"
	"github.com/crust-proxy/crust/internal/version"
)

// MaxFrameLength caps the declared packet length, guarding against a peer
// claiming an absurd frame size before any bytes have even arrived.
const MaxFrameLength = 2 * 1024 * 1024

var (
	ErrFrameTooLarge = errors.New("frame: declared length exceeds maximum")
	ErrUnknownPacket = errors.New("frame: no registered semantic id for wire byte")
)

// Context is one decoded packet: either a known packet (Type/Body set, ready
// for Reader-based field decode) or an unknown one (Raw holds the full
// id+body payload, to be forwarded byte for byte without interpretation).
type Context struct {
	Known bool
	Type  packet.ID
	Body  []byte // packet body, after the leading packet-id VarInt
	Raw   []byte // id VarInt + body, exactly as it should be forwarded/re-sent
}

// Codec is a stateful per-connection-half transport: it knows the current
// protocol state/version (for registry lookups) and the current compression
// threshold and cipher (set once the login handshake negotiates them).
type Codec struct {
	dir      packet.Direction
	registry *packet.Registry

	state    packet.State
	protocol version.Protocol

	compressionThreshold int // -1 means disabled

	encryptReader io.Reader
	encryptWriter io.Writer
}

// New returns a Codec for one connection half that reads packets traveling in
// direction dir and writes packets traveling the opposite way: ServerBound
// for the client-facing half (it reads what the client sends and writes what
// the proxy sends back to it), ClientBound for the backend-facing half (it
// reads what the backend sends and writes what the proxy sends to the
// backend on the client's behalf).
func New(dir packet.Direction, registry *packet.Registry) *Codec {
	return &Codec{
		dir:                  dir,
		registry:             registry,
		state:                packet.Handshake,
		protocol:             version.Protocol(0),
		compressionThreshold: -1,
	}
}

func (c *Codec) SetState(s packet.State)            { c.state = s }
func (c *Codec) SetProtocol(pv version.Protocol)    { c.protocol = pv }
func (c *Codec) SetCompressionThreshold(t int)       { c.compressionThreshold = t }

// EnableEncryption wraps the connection's reader/writer in the protocol's
// AES-128-CFB8 stream cipher, using secret as both key and initial feedback
// register - see internal/proto/codec/cfb8.go for why this can't be the
// stdlib's CFB128.
func (c *Codec) EnableEncryption(r io.Reader, w io.Writer, secret []byte) (io.Reader, io.Writer, error) {
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, nil, err
	}
	decStream := codec.NewCFB8Decrypter(block, secret)
	encStream := codec.NewCFB8Encrypter(block, secret)
	encR := cipher.StreamReader{S: decStream, R: r}
	encW := cipher.StreamWriter{S: encStream, W: w}
	c.encryptReader = encR
	c.encryptWriter = encW
	return encR, encW, nil
}

// ReadPacket reads one full frame from r (length-prefixed, optionally
// decompressed), resolves the leading packet-id VarInt through the registry
// for the codec's current (dir, state, protocol), and returns a Context.
func (c *Codec) ReadPacket(r *bufio.Reader) (*Context, error) {
	length, err := codec.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if length < 0 || int(length) > MaxFrameLength {
		return nil, ErrFrameTooLarge
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}

	body := raw
	if c.compressionThreshold >= 0 {
		br := &byteReader{b: raw}
		uncompressedSize, err := codec.ReadVarInt(br)
		if err != nil {
			return nil, err
		}
		rest := raw[br.off:]
		if uncompressedSize == 0 {
			body = rest // sentinel: packet was below threshold, not compressed
		} else {
			body, err = codec.DecompressPacket(rest, uncompressedSize)
			if err != nil {
				return nil, err
			}
		}
	}

	bodyReader := &byteReader{b: body}
	id, err := codec.ReadVarInt(bodyReader)
	if err != nil {
		return nil, err
	}
	remaining := body[bodyReader.off:]

	semID, ok := c.registry.Lookup(c.dir, c.state, c.protocol, byte(id))
	if !ok {
		return &Context{Known: false, Raw: body}, nil
	}
	return &Context{Known: true, Type: semID, Body: remaining, Raw: body}, nil
}

// WritePacket frames and writes p (a known, typed packet) to w. A Codec
// writes the opposite direction's packets from the one it reads - see
// packet.Direction.Opposite.
func (c *Codec) WritePacket(w *bufio.Writer, id packet.ID, p packet.Packet) error {
	wireByte := c.registry.MustWireByte(c.dir.Opposite(), c.state, id, c.protocol)
	pw := packet.NewWriter()
	if err := pw.WriteByte(wireByte); err != nil {
		return err
	}
	body, err := encodeInto(pw, p, c.protocol)
	if err != nil {
		return err
	}
	return c.writeFrame(w, body)
}

func encodeInto(pw *packet.Writer, p packet.Packet, pv version.Protocol) ([]byte, error) {
	if err := p.Encode(pw, pv); err != nil {
		return nil, err
	}
	return pw.Bytes(), nil
}

// WriteRaw frames and writes an already-encoded id+body payload, used for
// forwarding packets this proxy doesn't interpret.
func (c *Codec) WriteRaw(w *bufio.Writer, raw []byte) error {
	return c.writeFrame(w, raw)
}

func (c *Codec) writeFrame(w *bufio.Writer, body []byte) error {
	if c.compressionThreshold < 0 {
		if err := codec.WriteVarInt(w, int32(len(body))); err != nil {
			return err
		}
		_, err := w.Write(body)
		return err
	}

	compressed, didCompress, err := codec.CompressPacket(body, c.compressionThreshold)
	if err != nil {
		return err
	}
	var frame []byte
	if didCompress {
		prefix := varIntBytes(int32(len(body)))
		frame = append(prefix, compressed...)
	} else {
		frame = append(varIntBytes(0), body...)
	}
	if err := codec.WriteVarInt(w, int32(len(frame))); err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

func varIntBytes(v int32) []byte {
	w := packet.NewWriter()
	_ = w.WriteVarInt(v)
	return w.Bytes()
}

// byteReader adapts a byte slice to io.ByteReader for codec.ReadVarInt,
// tracking how many bytes it has consumed so the caller can slice off the
// remainder.
type byteReader struct {
	b   []byte
	off int
}

func (r *byteReader) ReadByte() (byte, error) {
	if r.off >= len(r.b) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.b[r.off]
	r.off++
	return b, nil
}
