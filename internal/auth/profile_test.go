package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfflineUUIDKnownVector(t *testing.T) {
	got := OfflineUUID("Alice")
	assert.Equal(t, "10920508-d5d8-3eed-93d2-92f193afe7d7", got.String())
}

func TestOfflineUUIDIsDeterministic(t *testing.T) {
	a := OfflineUUID("Notch")
	b := OfflineUUID("Notch")
	assert.Equal(t, a, b)
}

func TestOfflineUUIDDiffersByName(t *testing.T) {
	a := OfflineUUID("Alice")
	b := OfflineUUID("Bob")
	assert.NotEqual(t, a, b)
}

func TestOfflineUUIDHasVersion3AndRFC4122Variant(t *testing.T) {
	u := OfflineUUID("SomePlayer")
	bytes := u[:]
	assert.Equal(t, byte(0x30), bytes[6]&0xf0, "version nibble must be 3")
	assert.Equal(t, byte(0x80), bytes[8]&0xc0, "variant bits must be RFC4122")
}

func TestIsUsernameValid(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Notch", true},
		{"Alice_123", true},
		{"", false},
		{"this_name_is_way_too_long", false},
		{"has space", false},
		{"has-dash", false},
		{"séñor", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsUsernameValid(tt.name), tt.name)
	}
}

func TestServerHashIsDeterministic(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	secret := []byte("sixteen byte key")

	h1, err := ServerHash("abcdef0123456789", secret, &key.PublicKey)
	require.NoError(t, err)
	h2, err := ServerHash("abcdef0123456789", secret, &key.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestServerHashDiffersBySecret(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	h1, err := ServerHash("serverid", []byte("secret-one-16byt"), &key.PublicKey)
	require.NoError(t, err)
	h2, err := ServerHash("serverid", []byte("secret-two-16byt"), &key.PublicKey)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestSignedHexBigIntKnownSign(t *testing.T) {
	// Leading bit set -> negative, rendered with a "-" prefix.
	negative := []byte{0x80, 0x00, 0x00, 0x00}
	got := signedHexBigInt(negative)
	assert.True(t, got[0] == '-')

	positive := []byte{0x7f, 0xff, 0xff, 0xff}
	got2 := signedHexBigInt(positive)
	assert.NotEqual(t, byte('-'), got2[0])
}
