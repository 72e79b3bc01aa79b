package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies the business category of a notification. The category
// drives channel selection, rate-limit policy, and template lookup.
type Type string

const (
	TypeTransactionAlert Type = "transaction_alert"
	TypeSecurityAlert    Type = "security_alert"
	TypeMiningUpdate     Type = "mining_update"
	TypeMarketing        Type = "marketing"
	TypeSystemUpdate     Type = "system_update"
)

// Types lists all supported notification types.
var Types = []Type{
	TypeTransactionAlert,
	TypeSecurityAlert,
	TypeMiningUpdate,
	TypeMarketing,
	TypeSystemUpdate,
}

// Valid reports whether t is one of the supported types.
func (t Type) Valid() bool {
	switch t {
	case TypeTransactionAlert, TypeSecurityAlert, TypeMiningUpdate, TypeMarketing, TypeSystemUpdate:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// Channel is a delivery medium. The declaration order of Channels is the
// fixed dispatch order used during fan-out.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Channels lists all delivery channels in dispatch order.
var Channels = []Channel{ChannelPush, ChannelEmail, ChannelSMS}

// Valid reports whether c is a known delivery channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelPush, ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

func (c Channel) String() string { return string(c) }

// Notification is the core delivery-tracking entity. It is owned by the
// delivery orchestrator and must be mutated only through UpdateStatus and
// MarkAsRead so the transition table is consulted on every status change.
type Notification struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Type         Type           `json:"type"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Status       Status         `json:"status"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	DeliveredAt  *time.Time     `json:"delivered_at,omitempty"`
	ReadAt       *time.Time     `json:"read_at,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	DeliveryInfo map[string]any `json:"delivery_info,omitempty"`
}

// Option configures a notification during construction.
type Option func(*Notification)

// WithID overrides the generated notification id. Useful when the id is
// assigned by an upstream system (e.g. an event stream).
func WithID(id string) Option {
	return func(n *Notification) {
		if id != "" {
			n.ID = id
		}
	}
}

// WithMetadata attaches an arbitrary payload carried alongside the
// notification into templates and provider calls.
func WithMetadata(meta map[string]any) Option {
	return func(n *Notification) {
		if len(meta) > 0 {
			n.Metadata = meta
		}
	}
}

// New creates a pending notification with a generated id.
// It returns a validation error for a missing user id, an unknown type,
// or empty title/message.
func New(userID string, t Type, title, message string, opts ...Option) (*Notification, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if !t.Valid() {
		return nil, ErrUnknownType
	}
	if title == "" {
		return nil, ErrTitleRequired
	}
	if message == "" {
		return nil, ErrMessageRequired
	}

	n := &Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      t,
		Title:     title,
		Message:   message,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n, nil
}

// Clone returns a deep copy. Stored notifications are cloned on read so
// callers can never mutate history behind the orchestrator's back.
func (n *Notification) Clone() *Notification {
	c := *n
	if n.Metadata != nil {
		c.Metadata = make(map[string]any, len(n.Metadata))
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
	}
	if n.DeliveryInfo != nil {
		c.DeliveryInfo = make(map[string]any, len(n.DeliveryInfo))
		for k, v := range n.DeliveryInfo {
			c.DeliveryInfo[k] = v
		}
	}
	if n.SentAt != nil {
		t := *n.SentAt
		c.SentAt = &t
	}
	if n.DeliveredAt != nil {
		t := *n.DeliveredAt
		c.DeliveredAt = &t
	}
	if n.ReadAt != nil {
		t := *n.ReadAt
		c.ReadAt = &t
	}
	return &c
}
