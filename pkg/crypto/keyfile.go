package crypto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LoadOrCreateKey reads a raw key from path, generating and writing one
// (mode 0600) when the file does not exist yet.
func LoadOrCreateKey(path string, size KeySize) ([]byte, error) {
	key, err := os.ReadFile(path) //nolint:gosec // path from local config
	if err == nil {
		if len(key) != int(size) {
			return nil, fmt.Errorf("crypto: key file %s: expected %d bytes, got %d", path, size, len(key))
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("crypto: read key: %w", err)
	}

	key, err = GenerateKey(size)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("crypto: create key dir: %w", err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("crypto: write key: %w", err)
	}
	return key, nil
}
