package crypto

import (
	"crypto/rand"
)

// GenerateKey returns length cryptographically random bytes.
func GenerateKey(length int) ([]byte, error) {
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
