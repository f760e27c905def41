// Package secrets hashes and verifies the master admin password. Stored
// values may be plaintext (dev) or argon2id-hashed (production).
package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/argon2"
)

const prefix = "argon2id:"

const (
	timeCost   = 1
	memoryCost = 64 * 1024
	threads    = 4
	keyLen     = 32
)

// HashPassword derives an argon2id hash with a random salt, in the
// "argon2id:<salt-hex>:<hash-hex>" form Verify understands.
func HashPassword(password string) string {
	var salt [16]byte
	_, _ = rand.Read(salt[:])
	hash := argon2.IDKey([]byte(password), salt[:], timeCost, memoryCost, threads, keyLen)
	return prefix + hex.EncodeToString(salt[:]) + ":" + hex.EncodeToString(hash)
}

// VerifyPassword checks a candidate against the stored value. Hashed values
// are re-derived with the stored salt; anything else is compared as
// plaintext in constant time.
func VerifyPassword(stored, candidate string) bool {
	if stored == "" {
		return false
	}
	if !strings.HasPrefix(stored, prefix) {
		return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
	}
	parts := strings.SplitN(strings.TrimPrefix(stored, prefix), ":", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(candidate), salt, timeCost, memoryCost, threads, keyLen)
	return subtle.ConstantTimeCompare(got, want) == 1
}
