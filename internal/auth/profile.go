// Package auth resolves a connecting player's GameProfile, either by
// deriving an offline UUID or by verifying the session with Mojang's session
// service, and implements the server-hash algorithm the encryption handshake
// needs. Grounded on original_source/src/auth/mod.rs and src/util.rs.
package auth

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/x509"
	"crypto/rsa"
	"fmt"
	"math/big"
	"regexp"

	"github.com/google/uuid"
)

// GameProfile is the resolved identity of a connecting player.
type GameProfile struct {
	ID         uuid.UUID
	Name       string
	Properties []Property
}

// CloneWithoutProperties mirrors GameProfile::clone_without_properties - used
// when forwarding a profile to a backend that shouldn't see signed skin
// properties (e.g. offline-mode backends).
func (g GameProfile) CloneWithoutProperties() GameProfile {
	return GameProfile{ID: g.ID, Name: g.Name}
}

// Property is a single signed/unsigned game profile property (skin, cape...).
type Property struct {
	Name      string
	Value     string
	Signature string
}

var validUsername = regexp.MustCompile(`^[A-Za-z0-9_]{1,16}$`)

// IsUsernameValid reports whether name is a legal Minecraft username: 1-16
// characters, alphanumeric or underscore.
func IsUsernameValid(name string) bool {
	return validUsername.MatchString(name)
}

// OfflineUUID derives the offline-mode player UUID Notchian servers use when
// online-mode is disabled: an MD5 hash of "OfflinePlayer:"+name, interpreted
// as an RFC 4122 version-3 UUID (version/variant bits forced). Test vector:
// OfflineUUID("Alice") == 10920508-d5d8-3eed-93d2-92f193afe7d7.
func OfflineUUID(name string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = (sum[6] & 0x0f) | 0x30 // version 3
	sum[8] = (sum[8] & 0x3f) | 0x80 // variant RFC4122
	u, _ := uuid.FromBytes(sum[:])
	return u
}

// ServerHash implements the Notchian "hexdigest" server-id hash: SHA1 over
// serverID, the shared secret, and the DER-encoded RSA public key, then the
// digest is reinterpreted as a signed big-endian integer and printed in hex
// (including the leading "-" for a negative result) - a long-standing
// Notchian quirk that Go's math/big reproduces exactly via SetBytes +
// two's-complement correction, matching num_bigint::BigInt::from_signed_bytes_be.
func ServerHash(serverID string, secret []byte, pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	h := sha1.New()
	h.Write([]byte(serverID))
	h.Write(secret)
	h.Write(der)
	digest := h.Sum(nil)
	return signedHexBigInt(digest), nil
}

// signedHexBigInt treats digest as a two's-complement signed big-endian
// integer (as Rust's BigInt::from_signed_bytes_be does) and renders it in
// base 16, matching BigInt::to_str_radix(16).
func signedHexBigInt(digest []byte) string {
	negative := digest[0]&0x80 != 0
	if !negative {
		return new(big.Int).SetBytes(digest).Text(16)
	}
	// Two's complement negate: invert bits and add one, then the magnitude
	// is printed with a leading '-', exactly as BigInt's signed decode does.
	inv := make([]byte, len(digest))
	for i, b := range digest {
		inv[i] = ^b
	}
	mag := new(big.Int).SetBytes(inv)
	mag.Add(mag, big.NewInt(1))
	return "-" + mag.Text(16)
}
