package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const jwtSecretLength = 32

// LoadOrCreateJWTSecret reads the signing secret from the data dir, minting
// and persisting a fresh one on first run. Tokens survive restarts; clients
// only need to re-handshake, not re-login.
func LoadOrCreateJWTSecret(dataDir string) ([]byte, error) {
	secretFile := filepath.Join(dataDir, "jwt-secret")

	raw, err := os.ReadFile(secretFile)
	if err == nil {
		decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, err
		}
		if len(decoded) != jwtSecretLength {
			return nil, errors.New("invalid JWT secret length")
		}
		return decoded, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	secret := make([]byte, jwtSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(secretFile, []byte(hex.EncodeToString(secret)+"\n"), 0o600); err != nil {
		return nil, err
	}

	return secret, nil
}
