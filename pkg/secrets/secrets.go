package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// EncryptForRecipient seals plaintext for one recipient and returns the
// ciphertext base64-encoded for transport.
func EncryptForRecipient(serviceKey []byte, recipientID, plaintext string) (string, error) {
	ciphertext, err := EncryptBytes(serviceKey, recipientID, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptForRecipient opens base64-encoded ciphertext sealed for recipientID.
func DecryptForRecipient(serviceKey []byte, recipientID, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}

	plaintext, err := DecryptBytes(serviceKey, recipientID, raw)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptBytes seals data with a key derived for recipientID.
// The returned ciphertext is nonce + encrypted data + tag.
func EncryptBytes(serviceKey []byte, recipientID string, data []byte) ([]byte, error) {
	aead, err := recipientAEAD(serviceKey, recipientID, ErrEncryptionFailed)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	// Nonce is prepended so the ciphertext is self-contained.
	return aead.Seal(nonce, nonce, data, nil), nil
}

// DecryptBytes opens nonce-prefixed ciphertext sealed for recipientID.
func DecryptBytes(serviceKey []byte, recipientID string, ciphertext []byte) ([]byte, error) {
	aead, err := recipientAEAD(serviceKey, recipientID, ErrDecryptionFailed)
	if err != nil {
		return nil, err
	}

	nonceSize := aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrInvalidCiphertext
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// recipientAEAD validates inputs, derives the recipient key, and builds the
// AES-GCM cipher. The derived key is cleared before returning.
func recipientAEAD(serviceKey []byte, recipientID string, sentinel error) (cipher.AEAD, error) {
	if err := ValidateKey(serviceKey); err != nil {
		return nil, err
	}
	if recipientID == "" {
		return nil, ErrRecipientRequired
	}

	key, err := deriveRecipientKey(serviceKey, recipientID)
	if err != nil {
		return nil, err
	}
	defer clearKey(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(sentinel, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(sentinel, err)
	}
	return aead, nil
}
