package ratelimit

import (
	"context"
	"time"
)

// Result contains the outcome of a rate limit check.
type Result struct {
	// Allowed reports whether the event was admitted.
	Allowed bool

	// Limit is the maximum number of events permitted in the window.
	Limit int

	// Remaining is the number of events still available in the current window.
	Remaining int

	// ResetAt is when the window observed by this check has fully slid past.
	ResetAt time.Time
}

// RetryAfter returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (r Result) RetryAfter() time.Duration {
	d := time.Until(r.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// Policy describes the admission rule a store evaluates for one key.
// BurstWindow and BurstLimit are zero when no burst guard is configured.
type Policy struct {
	// Window is the main sliding window duration.
	Window time.Duration

	// Limit is the maximum number of events in the main window.
	Limit int

	// BurstWindow is the trailing sub-window guarded against bursts.
	BurstWindow time.Duration

	// BurstLimit is the maximum number of events in the burst window.
	BurstLimit int
}

// burstConfigured reports whether the policy carries a burst guard.
func (p Policy) burstConfigured() bool {
	return p.BurstLimit > 0 && p.BurstWindow > 0
}

// Store persists event timestamps for sliding window rate limiting.
type Store interface {
	// TakeIfAllowed atomically evaluates the policy for key at time now and,
	// when admission is granted, records the event. It returns whether the
	// event was admitted and the number of events in the main window after
	// the call (including the newly recorded event when admitted).
	// Implementations must guarantee that concurrent calls for the same key
	// are serialized so the limit can never be oversubscribed.
	TakeIfAllowed(ctx context.Context, key string, now time.Time, policy Policy) (allowed bool, count int64, err error)

	// CountInWindow returns the number of events recorded for key within the
	// trailing window ending now. It does not record anything.
	CountInWindow(ctx context.Context, key string, window time.Duration) (int64, error)

	// Delete removes all recorded events for key.
	Delete(ctx context.Context, key string) error
}
