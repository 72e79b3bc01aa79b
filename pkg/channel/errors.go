package channel

import (
	"context"
	"errors"
)

var (
	// ErrValidation marks input a sender rejected before contacting any
	// provider. Never retried, and the email fallback chain does not run
	// for it.
	ErrValidation = errors.New("validation failed")

	// ErrTransientProvider marks a provider failure worth retrying.
	ErrTransientProvider = errors.New("transient provider failure")

	// ErrPermanentProvider marks a provider failure retrying cannot fix.
	ErrPermanentProvider = errors.New("permanent provider failure")

	// ErrRateLimited marks a send denied by admission control.
	ErrRateLimited = errors.New("rate limited")
)

// Classify maps err to the Classification senders and the orchestrator agree
// on. Errors carrying none of the package sentinels classify as transient, so
// an unrecognized provider failure stays retryable.
func Classify(err error) Classification {
	switch {
	case err == nil:
		return ClassDelivered
	case errors.Is(err, ErrRateLimited):
		return ClassRateLimited
	case errors.Is(err, ErrValidation), errors.Is(err, ErrPermanentProvider):
		return ClassPermanent
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ClassTimeout
	default:
		return ClassTransient
	}
}

// Retryable reports whether a failure with this classification should be
// retried by a sender's backoff loop.
func (c Classification) Retryable() bool {
	return c == ClassTransient
}
