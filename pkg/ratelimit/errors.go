package ratelimit

import "errors"

var (
	// ErrRateLimitExceeded indicates the rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidLimit indicates an invalid limit parameter (must be positive).
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrInvalidInterval indicates an invalid window duration (must be positive).
	ErrInvalidInterval = errors.New("window must be positive")

	// ErrInvalidBurst indicates an invalid burst policy: the burst limit must
	// be positive and the burst window must be shorter than the main window.
	ErrInvalidBurst = errors.New("burst limit must be positive and burst window shorter than the main window")

	// ErrStoreRequired indicates a nil store was passed to the constructor.
	ErrStoreRequired = errors.New("store is required")

	// ErrClientRequired indicates a nil redis client was passed to the store
	// constructor.
	ErrClientRequired = errors.New("redis client is required")

	// ErrKeyRequired indicates an empty key was passed to a limiter operation.
	ErrKeyRequired = errors.New("key is required")
)
