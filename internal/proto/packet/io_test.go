package packet

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderWriterPrimitiveRoundTrip(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.WriteByte(0x7f))
	require.NoError(t, w.WriteBool(true))
	require.NoError(t, w.WriteVarInt(25565))
	require.NoError(t, w.WriteString("hello proxy"))
	require.NoError(t, w.WriteByteArray([]byte{1, 2, 3}))
	u := uuid.New()
	require.NoError(t, w.WriteUUID(u))
	require.NoError(t, w.WriteInt64(-42))
	require.NoError(t, w.WriteInt32(1234))

	r := NewReader(w.Bytes())
	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x7f), b)

	boolVal, err := r.ReadBool()
	require.NoError(t, err)
	assert.True(t, boolVal)

	vi, err := r.ReadVarInt()
	require.NoError(t, err)
	assert.Equal(t, int32(25565), vi)

	s, err := r.ReadString(255)
	require.NoError(t, err)
	assert.Equal(t, "hello proxy", s)

	arr, err := r.ReadByteArray(16)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, arr)

	gotUUID, err := r.ReadUUID()
	require.NoError(t, err)
	assert.Equal(t, u, gotUUID)

	i64, err := r.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(-42), i64)

	i32, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(1234), i32)
}

func TestReadStringRejectsOverlongDeclaredLength(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.WriteVarInt(1000)) // declared length, no actual payload follows
	r := NewReader(w.Bytes())
	_, err := r.ReadString(16)
	assert.ErrorIs(t, err, ErrStringTooLong)
}

func TestReadByteArrayRejectsOverlongDeclaredLength(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.WriteVarInt(99999))
	r := NewReader(w.Bytes())
	_, err := r.ReadByteArray(256)
	assert.Error(t, err)
}

func TestRemainingReturnsUnconsumedTail(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.WriteByte(1))
	require.NoError(t, w.WriteBytes([]byte("tail bytes")))

	r := NewReader(w.Bytes())
	_, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, []byte("tail bytes"), r.Remaining())
}
