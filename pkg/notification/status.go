package notification

import "time"

// Status is the delivery status of a notification.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// transitions is the closed adjacency table consulted on every status
// mutation. failed has no outgoing edges: once a notification fails it can
// never be resurrected, even if a retried channel later succeeds.
var transitions = map[Status]map[Status]struct{}{
	StatusPending:   {StatusSent: {}, StatusFailed: {}},
	StatusSent:      {StatusDelivered: {}, StatusFailed: {}},
	StatusDelivered: {StatusRead: {}, StatusFailed: {}},
	StatusRead:      {StatusFailed: {}},
	StatusFailed:    {},
}

// ValidateTransition reports whether current -> next is an allowed status
// change. Unknown statuses on either side are never allowed.
func ValidateTransition(current, next Status) bool {
	allowed, ok := transitions[current]
	if !ok {
		return false
	}
	_, ok = allowed[next]
	return ok
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	allowed, ok := transitions[s]
	return ok && len(allowed) == 0
}

// StatusOption carries optional data applied alongside a status change.
type StatusOption func(*statusUpdate)

type statusUpdate struct {
	errorMessage string
	infoPatch    map[string]any
}

// WithError records the failure cause applied on a transition to
// StatusFailed. It is ignored for other target statuses.
func WithError(msg string) StatusOption {
	return func(u *statusUpdate) {
		u.errorMessage = msg
	}
}

// WithDeliveryInfo merges the given patch key-wise into DeliveryInfo after a
// successful transition. Existing keys not present in the patch survive.
func WithDeliveryInfo(patch map[string]any) StatusOption {
	return func(u *statusUpdate) {
		if len(patch) == 0 {
			return
		}
		if u.infoPatch == nil {
			u.infoPatch = make(map[string]any, len(patch))
		}
		for k, v := range patch {
			u.infoPatch[k] = v
		}
	}
}

// UpdateStatus moves the notification to next if the transition table allows
// it, stamping SentAt/DeliveredAt on the corresponding transitions, recording
// the error message on failure, and merging any delivery-info patch.
//
// An invalid transition returns an InvalidTransitionError and leaves the
// notification fully unchanged, including timestamps and DeliveryInfo.
func (n *Notification) UpdateStatus(next Status, opts ...StatusOption) error {
	if !ValidateTransition(n.Status, next) {
		return NewInvalidTransitionError(n.Status, next)
	}

	var u statusUpdate
	for _, opt := range opts {
		opt(&u)
	}

	n.Status = next

	now := time.Now().UTC()
	switch next {
	case StatusSent:
		n.SentAt = &now
	case StatusDelivered:
		n.DeliveredAt = &now
	case StatusFailed:
		n.ErrorMessage = u.errorMessage
	}

	if len(u.infoPatch) > 0 {
		if n.DeliveryInfo == nil {
			n.DeliveryInfo = make(map[string]any, len(u.infoPatch))
		}
		for k, v := range u.infoPatch {
			n.DeliveryInfo[k] = v
		}
	}

	return nil
}

// MarkAsRead transitions the notification to StatusRead, stamping ReadAt and
// recording the read timestamp in DeliveryInfo. Only delivered notifications
// can be marked read.
func (n *Notification) MarkAsRead() error {
	if !ValidateTransition(n.Status, StatusRead) {
		return NewInvalidTransitionError(n.Status, StatusRead)
	}

	now := time.Now().UTC()
	n.Status = StatusRead
	n.ReadAt = &now
	if n.DeliveryInfo == nil {
		n.DeliveryInfo = make(map[string]any, 1)
	}
	n.DeliveryInfo["read_timestamp"] = now.Format(time.RFC3339)

	return nil
}
