// Package ingest consumes notification events from a Kafka topic and feeds
// them to the delivery orchestrator through a bounded worker pool.
//
// Malformed events are logged and committed so one broken producer cannot
// poison the partition. Offsets are committed in fetch order once a message
// has been handed to the pool; delivery itself is fire-and-forget from the
// stream's point of view.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// fetchRetryDelay spaces out fetch attempts after a broker error.
const fetchRetryDelay = time.Second

// Config describes the Kafka consumer, populated from the environment.
type Config struct {
	Brokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"` // comma-separated broker list
	GroupID string `env:"KAFKA_GROUP_ID" envDefault:"notifyd"`
	Topic   string `env:"KAFKA_TOPIC" envDefault:"notifications"`
	Workers int    `env:"INGEST_WORKERS" envDefault:"4"`
}

// Event is the wire shape of one notification request on the stream.
type Event struct {
	ID          string         `json:"id,omitempty"`
	UserID      string         `json:"user_id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Email       string         `json:"email,omitempty"`
	PhoneNumber string         `json:"phone_number,omitempty"`
	Locale      string         `json:"locale,omitempty"`
}

// Source fetches and commits stream messages. *kafka.Reader satisfies it.
type Source interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Dispatcher runs one notification's delivery end to end.
// *delivery.Orchestrator satisfies it.
type Dispatcher interface {
	Deliver(ctx context.Context, n *notification.Notification, pref *notification.Preference, dest channel.Destination) (*delivery.Report, error)
}

// NewReader builds the kafka-go reader for cfg.
func NewReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(cfg.Brokers, ","),
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
}

// Consumer pulls notification events off the stream and dispatches them.
type Consumer struct {
	source     Source
	dispatcher Dispatcher
	storage    notification.Storage
	prefs      notification.PreferenceStore
	workers    int
	log        *slog.Logger
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithWorkers bounds concurrent dispatches. Default is 4; values below one
// are ignored.
func WithWorkers(n int) Option {
	return func(c *Consumer) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithStorage persists each ingested notification before dispatch.
func WithStorage(s notification.Storage) Option {
	return func(c *Consumer) {
		if s != nil {
			c.storage = s
		}
	}
}

// WithPreferences resolves per-user preferences before dispatch. Without a
// store every channel is enabled.
func WithPreferences(p notification.PreferenceStore) Option {
	return func(c *Consumer) {
		if p != nil {
			c.prefs = p
		}
	}
}

// WithLogger sets the consumer logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Consumer) {
		if log != nil {
			c.log = log
		}
	}
}

// NewConsumer creates a consumer over the given source and dispatcher.
func NewConsumer(source Source, dispatcher Dispatcher, opts ...Option) (*Consumer, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if dispatcher == nil {
		return nil, ErrDispatcherRequired
	}

	c := &Consumer{
		source:     source,
		dispatcher: dispatcher,
		workers:    4,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run consumes until ctx is cancelled, then drains in-flight dispatches and
// returns nil. Fetch errors are retried after a short delay rather than
// propagated, so a broker hiccup never kills the consumer.
func (c *Consumer) Run(ctx context.Context) error {
	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup

	c.log.InfoContext(ctx, "ingest consumer started", slog.Int("workers", c.workers))

	for {
		m, err := c.source.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				wg.Wait()
				c.log.Info("ingest consumer stopped")
				return nil
			}
			c.log.ErrorContext(ctx, "failed to fetch message", slog.Any("error", err))
			time.Sleep(fetchRetryDelay)
			continue
		}

		if ev, ok := c.decode(ctx, m); ok {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(ev Event) {
				defer wg.Done()
				defer func() { <-sem }()
				c.dispatch(ctx, ev)
			}(ev)
		}

		// Committed regardless of outcome: a malformed or failed event is
		// skipped, never replayed into a poison loop.
		if err := c.source.CommitMessages(ctx, m); err != nil {
			c.log.ErrorContext(ctx, "failed to commit offset", slog.Any("error", err))
		}
	}
}

// decode unmarshals one message, reporting whether it is dispatchable.
func (c *Consumer) decode(ctx context.Context, m kafka.Message) (Event, bool) {
	var ev Event
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		c.log.WarnContext(ctx, "skipping malformed event",
			slog.String("topic", m.Topic),
			slog.Int64("offset", m.Offset),
			slog.Any("error", err),
		)
		return Event{}, false
	}
	return ev, true
}

// dispatch turns one event into a notification and runs its delivery.
func (c *Consumer) dispatch(ctx context.Context, ev Event) {
	n, err := notification.New(ev.UserID, notification.Type(ev.Type), ev.Title, ev.Message,
		notification.WithID(ev.ID),
		notification.WithMetadata(ev.Metadata),
	)
	if err != nil {
		c.log.WarnContext(ctx, "skipping invalid event",
			slog.String("user_id", ev.UserID),
			slog.String("type", ev.Type),
			slog.Any("error", err),
		)
		return
	}

	if c.storage != nil {
		if err := c.storage.Create(ctx, *n); err != nil {
			// Delivery is the primary duty; a history write failure is
			// logged and the dispatch continues.
			c.log.ErrorContext(ctx, "failed to store ingested notification",
				slog.String("notification_id", n.ID),
				slog.Any("error", err),
			)
		}
	}

	var pref *notification.Preference
	if c.prefs != nil {
		if p, err := c.prefs.Preference(ctx, ev.UserID); err == nil {
			pref = p
		}
	}

	dest := channel.Destination{
		UserID:      ev.UserID,
		Email:       ev.Email,
		PhoneNumber: ev.PhoneNumber,
		Locale:      ev.Locale,
	}

	if _, err := c.dispatcher.Deliver(ctx, n, pref, dest); err != nil {
		c.log.ErrorContext(ctx, "event dispatch failed",
			slog.String("notification_id", n.ID),
			slog.Any("error", err),
		)
	}
}
