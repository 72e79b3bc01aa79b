// Package secrets encrypts confidential notification content with AES-256-GCM
// using keys derived per recipient.
//
// A single 32-byte service key never encrypts anything directly. For each
// message the package derives a recipient-bound key with HKDF-SHA256 from the
// service key and the recipient id, so ciphertext sealed for one recipient
// cannot be opened with a key derived for another, and rotating the service
// key invalidates everything at once.
//
//	key, err := secrets.GenerateKey() // or load from config
//
//	sealed, err := secrets.EncryptForRecipient(key, "user-123", "code 884213")
//	plain, err := secrets.DecryptForRecipient(key, "user-123", sealed)
//
// The string functions carry ciphertext as base64; the byte variants return
// the raw nonce-prefixed ciphertext for storage. Use errors.Is against the
// package sentinels (ErrDecryptionFailed, ErrInvalidCiphertext, ...) to
// distinguish failure modes.
//
// The sms sender uses this for confidential notification types: the body of a
// security alert is sealed before transmission so it never crosses the
// provider wire in the clear.
package secrets
