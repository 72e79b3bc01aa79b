package sms

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderRequired is returned when the sender is created without a
	// provider.
	ErrProviderRequired = errors.New("sms provider is required")

	// ErrInvalidConfig is returned for invalid sender or provider
	// configuration.
	ErrInvalidConfig = errors.New("invalid sms configuration")

	// ErrEncryptionKeyRequired is returned when a confidential notification
	// type is sent without an encryption key configured.
	ErrEncryptionKeyRequired = errors.New("encryption key required for confidential sms")

	// ErrSendFailed wraps provider delivery failures.
	ErrSendFailed = errors.New("failed to send sms")
)

// RejectionError is a provider-level rejection with a gateway error code.
// Codes follow the Twilio numbering the service originally ran against.
type RejectionError struct {
	Code   int
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("sms rejected with code %d: %s", e.Code, e.Reason)
}

// permanentRejectionCodes name recipients that will never accept this
// message. Retrying burns money without changing the verdict.
var permanentRejectionCodes = map[int]struct{}{
	21211: {}, // invalid destination number
	21610: {}, // recipient opted out
	21614: {}, // destination is not a mobile number
	30004: {}, // message blocked by carrier
	30005: {}, // unknown destination handset
	30006: {}, // landline or unreachable carrier
}

// throttledRejectionCode marks gateway-side throttling.
const throttledRejectionCode = 20429

// Permanent reports whether the rejection can never succeed on retry.
func (e *RejectionError) Permanent() bool {
	_, ok := permanentRejectionCodes[e.Code]
	return ok
}

// Throttled reports whether the gateway rejected the send for rate reasons.
func (e *RejectionError) Throttled() bool {
	return e.Code == throttledRejectionCode
}
