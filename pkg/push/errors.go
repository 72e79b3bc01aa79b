package push

import "errors"

var (
	// ErrRegistryRequired is returned when the sender is created without a
	// device registry.
	ErrRegistryRequired = errors.New("device registry is required")

	// ErrProviderRequired is returned when the sender is created without at
	// least one valid platform provider.
	ErrProviderRequired = errors.New("at least one push provider is required")

	// ErrDuplicateProvider is returned when two providers claim the same
	// platform.
	ErrDuplicateProvider = errors.New("duplicate provider for platform")

	// ErrSendFailed wraps provider delivery failures.
	ErrSendFailed = errors.New("failed to send push notification")

	// ErrNoDeviceTokens is returned when the user has no live tokens on any
	// platform a provider covers.
	ErrNoDeviceTokens = errors.New("no device tokens registered")
)
