package codec

import (
	"bytes"
	"errors"
	"io"

	"github.com/klauspost/compress/zlib"
)

// MaxUncompressedPacketSize caps decompression output, matching the original
// implementation's SizeLimitedReader ceiling, so a malicious or buggy peer
// can't be used to exhaust memory by announcing a huge uncompressed length.
const MaxUncompressedPacketSize = 8 * 1024 * 1024

// ErrUncompressedSizeTooLarge is returned when a peer announces (or produces)
// more than MaxUncompressedPacketSize bytes of decompressed packet data.
var ErrUncompressedSizeTooLarge = errors.New("codec: uncompressed packet size exceeds limit")

// CompressPacket zlib-compresses data if its length is at or above threshold;
// the VarInt(0) sentinel preceding the payload (written by the caller, the
// frame encoder) marks "not compressed" packets below threshold, matching the
// protocol's compressed-packet-format convention.
func CompressPacket(data []byte, threshold int) ([]byte, bool, error) {
	if threshold < 0 || len(data) < threshold {
		return data, false, nil
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, false, err
	}
	if err := w.Close(); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

// DecompressPacket inflates a zlib-compressed payload, enforcing
// uncompressedSize against MaxUncompressedPacketSize both as an up-front
// check and as a hard ceiling on the actual bytes read.
func DecompressPacket(data []byte, uncompressedSize int32) ([]byte, error) {
	if uncompressedSize < 0 || int(uncompressedSize) > MaxUncompressedPacketSize {
		return nil, ErrUncompressedSizeTooLarge
	}
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	limited := io.LimitReader(r, MaxUncompressedPacketSize+1)
	out, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if len(out) > MaxUncompressedPacketSize {
		return nil, ErrUncompressedSizeTooLarge
	}
	return out, nil
}
