package push

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrymomot/notifykit/pkg/device"
)

// DevProvider accepts every token and records what it was asked to send.
// It stands in for FCM/APNS in development and tests.
type DevProvider struct {
	platform device.Platform

	mu       sync.Mutex
	batches  [][]string
	messages []Message
}

// NewDevProvider creates a recording provider for platform.
func NewDevProvider(platform device.Platform) (*DevProvider, error) {
	if !platform.Valid() {
		return nil, fmt.Errorf("%w: unknown platform %q", ErrProviderRequired, platform)
	}
	return &DevProvider{platform: platform}, nil
}

// Platform implements Provider.
func (d *DevProvider) Platform() device.Platform { return d.platform }

// SendBatch implements Provider. Every token is reported delivered.
func (d *DevProvider) SendBatch(ctx context.Context, tokens []string, msg Message) (BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}

	d.mu.Lock()
	d.batches = append(d.batches, slices.Clone(tokens))
	d.messages = append(d.messages, msg)
	d.mu.Unlock()

	return BatchResult{Delivered: slices.Clone(tokens)}, nil
}

// Batches returns a copy of every recorded token batch, in send order.
func (d *DevProvider) Batches() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([][]string, len(d.batches))
	for i, b := range d.batches {
		out[i] = slices.Clone(b)
	}
	return out
}

// Messages returns a copy of every recorded message, in send order.
func (d *DevProvider) Messages() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.messages)
}
