package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required service key length, 256 bits for AES-256.
	KeySize = 32

	// derivationInfo provides domain separation so a key derived here can
	// never collide with one derived by another service from the same secret.
	derivationInfo = "notifykit-recipient-v1"
)

// ValidateKey checks that the service key has the correct length.
func ValidateKey(key []byte) error {
	if len(key) != KeySize {
		return ErrInvalidKey
	}
	return nil
}

// GenerateKey creates a new random 32-byte service key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// deriveRecipientKey binds the service key to one recipient via HKDF-SHA256.
// Callers clear the returned key once the cipher is constructed.
func deriveRecipientKey(serviceKey []byte, recipientID string) ([]byte, error) {
	reader := hkdf.New(sha256.New, serviceKey, []byte(recipientID), []byte(derivationInfo))

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return key, nil
}

// clearKey zeros key material after use.
func clearKey(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
