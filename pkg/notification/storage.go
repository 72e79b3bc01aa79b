package notification

import (
	"context"
	"time"
)

// Storage persists notification history. Implementations must return
// ErrNotFound for unknown ids and must never hand out references into their
// internal state.
type Storage interface {
	// Create stores a new notification. The id must be unique.
	Create(ctx context.Context, n Notification) error

	// Get retrieves a notification by id.
	Get(ctx context.Context, id string) (*Notification, error)

	// Update persists the current status, timestamps, error message, and
	// delivery info of an already-created notification.
	Update(ctx context.Context, n Notification) error

	// ListByUser returns a user's notifications, newest first.
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)

	// CountByStatus returns how many of the user's notifications are in the
	// given status.
	CountByStatus(ctx context.Context, userID string, status Status) (int, error)
}

// ListOptions filters and paginates ListByUser results.
type ListOptions struct {
	Limit    int        // Maximum number of notifications to return (0 = no limit)
	Offset   int        // Number of notifications to skip
	Statuses []Status   // If set, only these statuses
	Types    []Type     // If set, only these types
	Since    *time.Time // If set, only notifications created after this time
}
