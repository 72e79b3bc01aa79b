package email

import (
	"context"
	"fmt"
	"regexp"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Provider delivers one rendered email. Implementations tag their failures
// with the channel sentinels so the sender can decide on retries and
// fallback.
type Provider interface {
	// Name identifies the provider in logs and delivery info.
	Name() string

	// SendEmail submits the message and returns the provider-side message id
	// when one is available.
	SendEmail(ctx context.Context, msg Message) (string, error)
}

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	BodyHTML string
	// Tag groups messages by notification type in provider dashboards.
	Tag string
}

// Validate rejects messages no provider could deliver.
func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("%w: recipient is required", channel.ErrValidation)
	}
	if !emailRegex.MatchString(m.To) {
		return fmt.Errorf("%w: invalid recipient address %q", channel.ErrValidation, m.To)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", channel.ErrValidation)
	}
	if m.BodyHTML == "" {
		return fmt.Errorf("%w: body is required", channel.ErrValidation)
	}
	return nil
}
