package store

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
)

const keyFileName = "payload.key"

// loadOrCreateKey reads the 32-byte payload key next to the database,
// generating one on first run. The key file shares the data directory's
// threat model: whoever can read the database can read the key.
func (s *Store) loadOrCreateKey() error {
	keyPath := filepath.Join(s.dataDir, keyFileName)

	data, err := os.ReadFile(keyPath)
	if err == nil {
		if len(data) != 32 {
			return fmt.Errorf("store: key file %s is corrupt (%d bytes)", keyPath, len(data))
		}
		copy(s.key[:], data)
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("store: failed to read key file: %w", err)
	}

	if _, err := io.ReadFull(rand.Reader, s.key[:]); err != nil {
		return fmt.Errorf("store: failed to generate key: %w", err)
	}
	if err := os.WriteFile(keyPath, s.key[:], 0o600); err != nil {
		return fmt.Errorf("store: failed to write key file: %w", err)
	}
	s.log.Debug("Generated new payload encryption key")
	return nil
}

// seal encrypts a payload with a random nonce prepended to the box.
func (s *Store) seal(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("store: failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// open decrypts a payload produced by seal.
func (s *Store) open(box []byte) ([]byte, error) {
	if len(box) < 24 {
		return nil, fmt.Errorf("store: sealed payload too short")
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	plaintext, ok := secretbox.Open(nil, box[24:], &nonce, &s.key)
	if !ok {
		return nil, fmt.Errorf("store: payload decryption failed (wrong key or corrupt data)")
	}
	return plaintext, nil
}
