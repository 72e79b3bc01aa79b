package delivery

import "errors"

var (
	// ErrNoSenders is returned when an orchestrator is constructed without
	// any channel sender.
	ErrNoSenders = errors.New("at least one channel sender is required")

	// ErrDuplicateSender is returned when two senders claim the same
	// channel.
	ErrDuplicateSender = errors.New("duplicate sender for channel")

	// ErrNotificationRequired is returned by Deliver for a nil notification.
	ErrNotificationRequired = errors.New("notification is required")

	// ErrNotPending is returned by Deliver when the notification has
	// already left the pending status; redelivering it would either corrupt
	// its history or trip the transition table mid-flight.
	ErrNotPending = errors.New("notification is not pending")
)
