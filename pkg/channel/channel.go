package channel

import (
	"context"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Channel is an alias of the notification channel type so channel selections
// flow between the two packages without conversion.
type Channel = notification.Channel

// Dispatch order is fixed: push, email, sms.
const (
	Push  = notification.ChannelPush
	Email = notification.ChannelEmail
	SMS   = notification.ChannelSMS
)

// Destination carries per-recipient addressing. Each sender reads only the
// fields relevant to its channel and validates them itself.
type Destination struct {
	// Email is the recipient address for the email channel.
	Email string

	// PhoneNumber is the recipient number for the sms channel, E.164.
	PhoneNumber string

	// UserID keys the device registry lookup for the push channel.
	UserID string

	// Locale selects the template catalog used when the orchestrator
	// renders content for this recipient. Empty uses the default locale.
	Locale string

	// RenderedBody optionally carries template-renderer output (HTML for
	// email, plain text for sms). When empty, senders fall back to the
	// notification's own title and message.
	RenderedBody string

	// RenderedSubject optionally carries a rendered subject line for the
	// email channel. When empty, the notification title is used.
	RenderedSubject string
}

// Sender delivers one notification over one channel. Send runs the sender's
// whole policy — validation, admission control, provider calls, retries — and
// reports the result as a classified Outcome instead of an error.
type Sender interface {
	// Channel identifies which channel this sender serves.
	Channel() Channel

	// Send performs the delivery attempt and reports the outcome. It must
	// respect ctx cancellation between retries and never panic on bad input.
	Send(ctx context.Context, n notification.Notification, dest Destination) Outcome
}
