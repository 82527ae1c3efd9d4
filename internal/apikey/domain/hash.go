package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// KeyPrefix starts every issued secret: gl_live_<key id>_<hex secret>.
const KeyPrefix = "gl_live_"

// HashAPIKey returns the digest stored for a raw key. Raw keys are never
// persisted.
func HashAPIKey(raw string) string {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// LooksLikeKey rejects strings that cannot be an issued key before any
// database lookup.
func LooksLikeKey(raw string) bool {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), KeyPrefix)
	if !ok {
		return false
	}
	keyID, secret, ok := strings.Cut(rest, "_")
	if !ok || keyID == "" || secret == "" {
		return false
	}
	_, err := hex.DecodeString(secret)
	return err == nil
}
