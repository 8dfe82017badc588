package cryptoutil

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt cost parameters. N is the CPU/memory cost factor, r the block
// size, p the parallelization factor; keyLen and saltLen are in bytes.
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	scryptSalt   = 32
)

// HashPassword derives a password hash in "salt_hex:derived_hex" form.
func HashPassword(password string) (string, error) {
	salt := make([]byte, scryptSalt)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	derived, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(derived), nil
}

// VerifyPassword checks password against a hash produced by HashPassword.
// Mismatching lengths return false immediately; the comparison of equal
// lengths runs in constant time.
func VerifyPassword(password, hash string) bool {
	parts := strings.SplitN(hash, ":", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	wantDerived, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	gotDerived, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return false
	}
	if len(gotDerived) != len(wantDerived) {
		return false
	}
	return subtle.ConstantTimeCompare(gotDerived, wantDerived) == 1
}
