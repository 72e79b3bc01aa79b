package ratelimit

import (
	"context"
	"time"
)

// SlidingWindow is a rate limiter that admits at most Limit events per key in
// any trailing Window, optionally capped further by a burst guard over a
// shorter trailing sub-window. The check-and-record step is delegated to the
// Store and is atomic per key.
type SlidingWindow struct {
	store  Store
	policy Policy
}

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithBurst adds a burst guard: at most burstLimit events are admitted within
// any trailing burstWindow, even while the main window still has capacity.
// The burst window must be shorter than the main window.
func WithBurst(burstLimit int, burstWindow time.Duration) Option {
	return func(sw *SlidingWindow) {
		sw.policy.BurstLimit = burstLimit
		sw.policy.BurstWindow = burstWindow
	}
}

// NewSlidingWindow creates a sliding window rate limiter that allows limit
// events per window for each key.
func NewSlidingWindow(store Store, limit int, window time.Duration, opts ...Option) (*SlidingWindow, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidInterval
	}

	sw := &SlidingWindow{
		store: store,
		policy: Policy{
			Window: window,
			Limit:  limit,
		},
	}
	for _, opt := range opts {
		opt(sw)
	}

	if sw.policy.BurstLimit != 0 || sw.policy.BurstWindow != 0 {
		if sw.policy.BurstLimit <= 0 || sw.policy.BurstWindow <= 0 || sw.policy.BurstWindow >= window {
			return nil, ErrInvalidBurst
		}
	}

	return sw, nil
}

// Allow checks whether an event for key is admitted right now and records it
// when it is. A denied result carries Allowed=false and a nil error; errors
// are reserved for store failures.
func (sw *SlidingWindow) Allow(ctx context.Context, key string) (Result, error) {
	if key == "" {
		return Result{}, ErrKeyRequired
	}

	now := time.Now()
	allowed, count, err := sw.store.TakeIfAllowed(ctx, key, now, sw.policy)
	if err != nil {
		return Result{}, err
	}

	return sw.result(allowed, count, now), nil
}

// Status returns the current state for key without recording an event.
func (sw *SlidingWindow) Status(ctx context.Context, key string) (Result, error) {
	if key == "" {
		return Result{}, ErrKeyRequired
	}

	now := time.Now()
	count, err := sw.store.CountInWindow(ctx, key, sw.policy.Window)
	if err != nil {
		return Result{}, err
	}

	return sw.result(count < int64(sw.policy.Limit), count, now), nil
}

// Reset clears all recorded events for key.
func (sw *SlidingWindow) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return sw.store.Delete(ctx, key)
}

func (sw *SlidingWindow) result(allowed bool, count int64, now time.Time) Result {
	remaining := sw.policy.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   allowed,
		Limit:     sw.policy.Limit,
		Remaining: remaining,
		ResetAt:   now.Add(sw.policy.Window),
	}
}
