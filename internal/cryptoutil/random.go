// Package cryptoutil provides the gateway's crypto primitives: password
// hashing, authenticated encryption, fingerprint chaining, and random
// identifier generation.
package cryptoutil

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// NewID returns a 128-bit random identifier rendered as 32 lowercase hex
// characters.
func NewID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewToken returns a 256-bit random token rendered as 64 lowercase hex
// characters, suitable for session ids and opaque nonces.
func NewToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewBackupCodes returns n single-use backup codes, each 8 uppercase hex
// characters (4 random bytes).
func NewBackupCodes(n int) []string {
	codes := make([]string, n)
	for i := range codes {
		b := make([]byte, 4)
		_, _ = rand.Read(b)
		codes[i] = strings.ToUpper(hex.EncodeToString(b))
	}
	return codes
}
