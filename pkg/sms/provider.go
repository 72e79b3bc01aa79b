package sms

import (
	"context"
	"regexp"
)

// phoneRegex accepts E.164 numbers: a plus, a non-zero country code digit,
// and 7 to 14 further digits.
var phoneRegex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// ValidPhoneNumber reports whether number is a plausible E.164 number.
func ValidPhoneNumber(number string) bool {
	return phoneRegex.MatchString(number)
}

// SendResult is a provider's acknowledgment of one accepted message.
type SendResult struct {
	// MessageID is the provider-side identifier when available.
	MessageID string
}

// Provider submits one SMS to the gateway. Rejections should be returned
// as *RejectionError so the sender can classify them per code; transport
// errors (network, timeout) are returned as-is and treated as transient.
type Provider interface {
	// Name identifies the provider in logs and delivery info.
	Name() string

	// SendSMS delivers body to the E.164 number to.
	SendSMS(ctx context.Context, to, body string) (SendResult, error)
}
