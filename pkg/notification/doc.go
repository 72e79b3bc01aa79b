// Package notification defines the core notification entity, its delivery
// status state machine, user delivery preferences, and pluggable history
// storage.
//
// A Notification is created in StatusPending and mutated only through
// UpdateStatus, which consults a fixed transition table on every call:
//
//	pending   -> sent, failed
//	sent      -> delivered, failed
//	delivered -> read, failed
//	read      -> failed
//	failed    -> (terminal)
//
// Invalid transitions return an InvalidTransitionError and leave the entity
// untouched. Valid transitions stamp SentAt/DeliveredAt, record the error
// message on failure, and merge delivery tracking data key-wise into
// DeliveryInfo without ever discarding existing keys.
//
// # Basic Usage
//
//	n, err := notification.New("user-123", notification.TypeSecurityAlert,
//	    "New sign-in", "A new device signed in to your account")
//	if err != nil {
//	    // invalid input
//	}
//
//	err = n.UpdateStatus(notification.StatusSent,
//	    notification.WithDeliveryInfo(map[string]any{"provider": "postmark"}))
//	if notification.IsInvalidTransition(err) {
//	    // ordering bug upstream; entity is unchanged
//	}
//
// # Preferences
//
// Preference captures a user's per-channel master switches, per-type global
// switches, and the type/channel matrix consulted during channel selection.
// NewPreference returns the default set: marketing disabled, SMS off by
// default, everything else on. A nil Preference means "deliver everywhere".
//
// # Storage
//
// Storage abstracts notification history persistence. MemoryStorage backs
// tests and development, PostgresStorage and MongoStorage back production
// deployments. The delivery path only ever creates and updates; deletion is
// an archival concern outside this package.
package notification
