package channel

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the delay before a retry. Implementations must be
// safe for concurrent use.
type BackoffStrategy interface {
	// NextInterval returns the delay before retry number attempt.
	// Attempt starts at 1 for the first retry; values below 1 return 0.
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff grows the delay geometrically with jitter so concurrent
// retriers spread out instead of hammering a recovering provider in lockstep.
// Zero fields fall back to 1s initial, 30s cap, multiplier 2. Zero jitter is
// allowed and keeps the delays deterministic.
type ExponentialBackoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// NextInterval returns min(Initial * Multiplier^(attempt-1), Max) with up to
// ±Jitter of random spread.
func (b ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := b.Initial
	if initial == 0 {
		initial = time.Second
	}
	max := b.Max
	if max == 0 {
		max = 30 * time.Second
	}
	multiplier := b.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if b.Jitter > 0 {
		interval *= 1 + (rand.Float64()*2-1)*b.Jitter
	}
	if interval > float64(max) {
		interval = float64(max)
	}

	return time.Duration(interval)
}

// LinearBackoff waits Interval multiplied by the attempt number, capped at
// Max. Zero fields fall back to 1s interval, 30s cap.
type LinearBackoff struct {
	Interval time.Duration
	Max      time.Duration
}

// NextInterval returns min(Interval * attempt, Max).
func (b LinearBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	interval := b.Interval
	if interval == 0 {
		interval = time.Second
	}
	max := b.Max
	if max == 0 {
		max = 30 * time.Second
	}

	delay := interval * time.Duration(attempt)
	if delay > max {
		delay = max
	}

	return delay
}

// FixedBackoff waits the same Interval before every retry.
type FixedBackoff struct {
	Interval time.Duration
}

// NextInterval returns Interval for every attempt at or above 1.
func (b FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return b.Interval
}

// DefaultBackoff returns the exponential strategy the email sender ships
// with: 1s initial, 30s cap, doubling, 10% jitter.
func DefaultBackoff() BackoffStrategy {
	return ExponentialBackoff{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
		Jitter:     0.1,
	}
}
