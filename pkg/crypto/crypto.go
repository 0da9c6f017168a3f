// Package crypto seals values kept in client-local storage and derives
// log-safe fingerprints of bearer tokens.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var (
	ErrInvalidCiphertext = errors.New("crypto: invalid ciphertext")
	ErrDecryptionFailed  = errors.New("crypto: decryption failed")
)

// GenerateKey generates a random key of a given size.
func GenerateKey(keysize KeySize) ([]byte, error) {
	key := make([]byte, keysize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return key, nil
}

// Fingerprint returns the first 8 hex chars of the SHA-256 of a token, so
// that logs can correlate sessions without carrying the credential.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:4])
}
