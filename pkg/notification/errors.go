package notification

import (
	"errors"
	"fmt"
)

var (
	ErrIDRequired      = errors.New("notification id is required")
	ErrUserIDRequired  = errors.New("user id is required")
	ErrUnknownType     = errors.New("unknown notification type")
	ErrTitleRequired   = errors.New("title is required")
	ErrMessageRequired = errors.New("message is required")
	ErrNotFound        = errors.New("notification not found")

	// ErrPreferenceNotFound marks a user without stored preferences. Callers
	// treat it as "all channels enabled", not as a failure.
	ErrPreferenceNotFound = errors.New("notification preferences not found")
	ErrPoolRequired    = errors.New("connection pool is required")
	ErrClientRequired  = errors.New("database client is required")
	ErrStorageFailure  = errors.New("notification storage failure")
)

// InvalidTransitionError reports a rejected status change. The entity is
// guaranteed untouched when this error is returned.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

func NewInvalidTransitionError(from, to Status) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var e *InvalidTransitionError
	return errors.As(err, &e)
}
