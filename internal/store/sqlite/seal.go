package sqlite

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sealed:"

// seal encrypts a value with the machine-local key. Without a key the
// value is stored as-is; Open always supplies one, so plaintext tokens
// only happen in deliberately keyless test setups.
func (s *Store) seal(value string) (string, error) {
	if s.sealKey == nil {
		return value, nil
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("seal nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, s.sealKey)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

func (s *Store) unseal(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		// Legacy plaintext rows read back unchanged.
		return value, nil
	}
	if s.sealKey == nil {
		return "", errors.New("sealed value but no seal key configured")
	}
	raw, err := base64.StdEncoding.DecodeString(value[len(sealedPrefix):])
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	if len(raw) < 24 {
		return "", errors.New("sealed value too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, s.sealKey)
	if !ok {
		return "", errors.New("sealed value failed to open")
	}
	return string(plain), nil
}

// loadOrCreateSealKey reads the key file or creates it with tight
// permissions on first run.
func loadOrCreateSealKey(path string) (*[32]byte, error) {
	var key [32]byte
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) != 32 {
			return nil, fmt.Errorf("seal key file %s is corrupt", path)
		}
		copy(key[:], data)
		return &key, nil
	case errors.Is(err, os.ErrNotExist):
		if _, err := rand.Read(key[:]); err != nil {
			return nil, fmt.Errorf("generate seal key: %w", err)
		}
		if err := os.WriteFile(path, key[:], 0o600); err != nil {
			return nil, fmt.Errorf("write seal key: %w", err)
		}
		return &key, nil
	default:
		return nil, fmt.Errorf("read seal key: %w", err)
	}
}
