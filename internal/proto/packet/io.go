package packet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/crust-proxy/crust/internal/proto/codec"
	"github.com/google/uuid"
)

// ErrStringTooLong mirrors original_source/src/util.rs's EncodingHelper string
// cap: decoded byte length must not exceed maxLen*3 (max UTF-8 bytes per
// declared rune cap).
var ErrStringTooLong = errors.New("packet: string exceeds declared max length")

// Reader decodes the primitive field types used across the whitelisted
// packet set from a packet's already-decompressed, already-decrypted body.
type Reader struct {
	buf *bytes.Reader
}

// NewReader wraps a packet body for field-by-field decoding.
func NewReader(body []byte) *Reader { return &Reader{buf: bytes.NewReader(body)} }

func (r *Reader) ReadByte() (byte, error) { return r.buf.ReadByte() }

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.buf.ReadByte()
	return b != 0, err
}

func (r *Reader) ReadVarInt() (int32, error) { return codec.ReadVarInt(r.buf) }

func (r *Reader) ReadString(maxLen int) (string, error) {
	n, err := codec.ReadVarInt(r.buf)
	if err != nil {
		return "", err
	}
	if n < 0 || int(n) > maxLen*3 {
		return "", fmt.Errorf("%w: declared %d bytes, max %d", ErrStringTooLong, n, maxLen*3)
	}
	b := make([]byte, n)
	if _, err := r.buf.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := r.buf.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadByteArray reads a VarInt-prefixed byte array, matching
// EncodingHelper::read_byte_array.
func (r *Reader) ReadByteArray(maxLen int) ([]byte, error) {
	n, err := codec.ReadVarInt(r.buf)
	if err != nil {
		return nil, err
	}
	if n < 0 || int(n) > maxLen {
		return nil, fmt.Errorf("packet: byte array length %d exceeds max %d", n, maxLen)
	}
	return r.ReadBytes(int(n))
}

func (r *Reader) ReadUUID() (uuid.UUID, error) {
	b, err := r.ReadBytes(16)
	if err != nil {
		return uuid.UUID{}, err
	}
	var u uuid.UUID
	copy(u[:], b)
	return u, nil
}

func (r *Reader) ReadInt64() (int64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// Remaining returns every byte not yet consumed.
func (r *Reader) Remaining() []byte {
	b, _ := r.ReadBytes(r.buf.Len())
	return b
}

// Len returns the number of unread bytes, without consuming them - used by
// SpliceCommandGraph to recover each node's exact span from the original
// body as it walks the graph.
func (r *Reader) Len() int { return r.buf.Len() }

// Writer encodes the primitive field types used across the whitelisted
// packet set into a packet body buffer.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

func (w *Writer) WriteByte(b byte) error { return w.buf.WriteByte(b) }

func (w *Writer) WriteBool(b bool) error {
	if b {
		return w.buf.WriteByte(1)
	}
	return w.buf.WriteByte(0)
}

func (w *Writer) WriteVarInt(v int32) error { return codec.WriteVarInt(&w.buf, v) }

func (w *Writer) WriteString(s string) error {
	if err := w.WriteVarInt(int32(len(s))); err != nil {
		return err
	}
	_, err := w.buf.WriteString(s)
	return err
}

func (w *Writer) WriteBytes(b []byte) error {
	_, err := w.buf.Write(b)
	return err
}

func (w *Writer) WriteByteArray(b []byte) error {
	if err := w.WriteVarInt(int32(len(b))); err != nil {
		return err
	}
	return w.WriteBytes(b)
}

func (w *Writer) WriteUUID(u uuid.UUID) error {
	return w.WriteBytes(u[:])
}

func (w *Writer) WriteInt64(v int64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return w.WriteBytes(b[:])
}

func (w *Writer) WriteInt32(v int32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return w.WriteBytes(b[:])
}
