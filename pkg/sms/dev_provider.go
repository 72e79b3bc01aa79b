package sms

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// DevMessage is one message a DevProvider accepted.
type DevMessage struct {
	To   string
	Body string
}

// DevProvider accepts every message and records it, standing in for the
// gateway in development and tests.
type DevProvider struct {
	mu       sync.Mutex
	messages []DevMessage
}

// NewDevProvider creates a recording provider.
func NewDevProvider() *DevProvider {
	return &DevProvider{}
}

// Name implements Provider.
func (d *DevProvider) Name() string { return "dev" }

// SendSMS implements Provider.
func (d *DevProvider) SendSMS(ctx context.Context, to, body string) (SendResult, error) {
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}

	d.mu.Lock()
	d.messages = append(d.messages, DevMessage{To: to, Body: body})
	d.mu.Unlock()

	return SendResult{MessageID: uuid.New().String()}, nil
}

// Messages returns a copy of every recorded message, in send order.
func (d *DevProvider) Messages() []DevMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.messages)
}
