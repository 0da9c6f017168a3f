package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

type KeySize uint32

const (
	AES256KeySize   KeySize = 32
	Chacha20KeySize KeySize = chacha20poly1305.KeySize
)

// Method selects the AEAD used by a Sealer.
type Method int

const (
	XChaCha20Poly1305 Method = iota
	AES256GCM
)

// Sealer encrypts short values with a random nonce prepended to the output.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer for method. The key must be 32 bytes.
func NewSealer(method Method, key []byte) (*Sealer, error) {
	var aead cipher.AEAD
	var err error
	keylength := len(key)
	switch method {
	case XChaCha20Poly1305:
		if keylength != int(Chacha20KeySize) {
			return nil, fmt.Errorf("crypto: invalid xchacha20poly1305 key length: expected %d, got %d", int(Chacha20KeySize), keylength)
		}
		aead, err = chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("crypto: new xchacha20 cipher: %w", err)
		}
	case AES256GCM:
		if keylength != int(AES256KeySize) {
			return nil, fmt.Errorf("crypto: invalid aes256 key length: expected %d, got %d", int(AES256KeySize), keylength)
		}
		aead, err = newAESGCMCipher(key)
	default:
		err = fmt.Errorf("crypto: unknown seal method: %d", method)
	}
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

func newAESGCMCipher(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	return aead, nil
}

// Seal encrypts plaintext, binding it to label (typically the storage key)
// as additional data. Output: nonce | ciphertext | tag.
func (s *Sealer) Seal(label string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, []byte(label)), nil
}

// Open reverses Seal. The label must match the one used to seal.
func (s *Sealer) Open(label string, sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], []byte(label))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
