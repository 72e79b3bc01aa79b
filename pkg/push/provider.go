package push

import (
	"context"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/device"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// MaxBatchSize is the largest token batch handed to a provider in one call,
// matching the FCM multicast ceiling.
const MaxBatchSize = 500

// Priority is the provider-side delivery priority.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// MessageOptions carries per-type delivery tuning passed to providers.
type MessageOptions struct {
	Priority Priority
	TTL      time.Duration
}

// OptionsForType returns the delivery options for a notification type.
// Alerts must wake the device and go stale quickly; marketing keeps for a
// day; everything else uses the four-week provider default.
func OptionsForType(t notification.Type) MessageOptions {
	switch t {
	case notification.TypeTransactionAlert, notification.TypeSecurityAlert:
		return MessageOptions{Priority: PriorityHigh, TTL: time.Hour}
	case "2fa": // verification codes, useless after a couple of minutes
		return MessageOptions{Priority: PriorityHigh, TTL: 2 * time.Minute}
	case notification.TypeMarketing:
		return MessageOptions{Priority: PriorityNormal, TTL: 24 * time.Hour}
	default:
		return MessageOptions{Priority: PriorityNormal, TTL: 28 * 24 * time.Hour}
	}
}

// Message is one push payload fanned out to a token batch.
type Message struct {
	Title   string
	Body    string
	Data    map[string]any
	Options MessageOptions
}

// BatchResult is a provider's per-token verdict for one batch call.
// The three slices partition the batch: a token appears in exactly one.
type BatchResult struct {
	// Delivered lists tokens the provider accepted.
	Delivered []string

	// Invalid lists tokens the provider rejected as unregistered or
	// malformed. They are blacklisted and never retried.
	Invalid []string

	// Failed lists tokens that failed for any other reason. They count as
	// failures for this send but stay registered.
	Failed []string
}

// Provider delivers one batch to a single platform. A non-nil error means
// the whole batch call failed (network, provider outage) and no verdict is
// available; per-token failures are reported through BatchResult with a nil
// error. Errors should be tagged with the channel sentinels so the sender
// can decide on retries.
type Provider interface {
	// Platform names the platform this provider serves.
	Platform() device.Platform

	// SendBatch delivers msg to at most MaxBatchSize tokens.
	SendBatch(ctx context.Context, tokens []string, msg Message) (BatchResult, error)
}
