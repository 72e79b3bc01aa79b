package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const maxKeyLength = 64

// Key builds a rate limit key from parts joined with ":". Long keys are
// hashed to keep store entries compact, so raw recipient addresses never
// appear verbatim in shared stores.
//
//	ratelimit.Key("email", "user@example.com")      // "email:user@example.com"
//	ratelimit.Key("sms", veryLongRecipientID, ...)  // "sha256:ab12..."
func Key(parts ...string) string {
	key := strings.Join(parts, ":")
	if len(key) <= maxKeyLength {
		return key
	}

	sum := sha256.Sum256([]byte(key))
	return "sha256:" + hex.EncodeToString(sum[:])[:32]
}
