package email

import "errors"

var (
	// ErrInvalidConfig indicates missing or malformed sender configuration.
	ErrInvalidConfig = errors.New("invalid email config")

	// ErrNoProviders indicates a sender constructed without any provider.
	ErrNoProviders = errors.New("at least one email provider is required")

	// ErrSendFailed wraps provider failures that carry no finer
	// classification.
	ErrSendFailed = errors.New("failed to send email")
)
