package device

import "errors"

var (
	// ErrUserIDRequired indicates an empty user id.
	ErrUserIDRequired = errors.New("user id is required")

	// ErrTokenRequired indicates an empty device token.
	ErrTokenRequired = errors.New("device token is required")

	// ErrInvalidPlatform indicates a platform other than android or ios.
	ErrInvalidPlatform = errors.New("invalid platform")

	// ErrClientRequired indicates a nil redis client was passed to the
	// registry constructor.
	ErrClientRequired = errors.New("redis client is required")
)
