package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// KeySize is the fixed AES-256 key length in bytes.
const KeySize = 32

// ivSize is the GCM nonce length this package always generates and expects.
const ivSize = 16

// KeyFromHex derives a 32-byte key from a hex-encoded environment value,
// padding with zero bytes or truncating as needed.
func KeyFromHex(keyHex string) ([]byte, error) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode key hex: %w", err)
	}
	key := make([]byte, KeySize)
	copy(key, raw)
	return key, nil
}

// Encrypt authenticates and encrypts plaintext under key, returning
// "iv_hex:tag_hex:ciphertext_hex".
func Encrypt(plaintext, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return "", fmt.Errorf("new gcm: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext := sealed[:tagStart]
	tag := sealed[tagStart:]
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt, verifying the authentication tag. A failed
// tag check or malformed envelope returns an error.
func Decrypt(envelope string, key []byte) ([]byte, error) {
	parts := strings.SplitN(envelope, ":", 3)
	if len(parts) != 3 {
		return nil, errors.New("malformed ciphertext envelope")
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode tag: %w", err)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return plaintext, nil
}

