package secrets

import "errors"

var (
	// ErrInvalidKey indicates a service key that is not exactly 32 bytes.
	ErrInvalidKey = errors.New("invalid service key: must be 32 bytes")

	// ErrRecipientRequired indicates an empty recipient id, which would break
	// the per-recipient key binding.
	ErrRecipientRequired = errors.New("recipient id is required")

	// ErrEncryptionFailed indicates the seal operation failed.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed indicates the open operation failed, which includes
	// ciphertext sealed for a different recipient or with a different key.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidCiphertext indicates ciphertext too short to carry a nonce or
	// that is not valid base64.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")

	// ErrKeyDerivationFailed indicates HKDF could not produce a recipient key.
	ErrKeyDerivationFailed = errors.New("key derivation failed")
)
