package identity

import (
	"crypto/rand"
	"encoding/hex"
)

// SaltBytes is the number of random bytes in a shared secret salt (64 hex chars).
const SaltBytes = 32

// NewSaltHex returns a cryptographically random hex-encoded salt.
func NewSaltHex() (string, error) {
	b := make([]byte, SaltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
