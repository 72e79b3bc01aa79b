package delivery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/async"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

const (
	defaultChannelTimeout = 30 * time.Second

	// awaitGrace pads the join deadline past the per-channel context
	// timeout, so a sender that only notices cancellation at its next
	// retry boundary still gets to report its own outcome instead of
	// being written off by the join.
	awaitGrace = 5 * time.Second
)

// ContentRenderer produces channel-specific content for a notification.
// *template.Renderer satisfies it.
type ContentRenderer interface {
	Render(ctx context.Context, req template.RenderRequest) (string, error)
	Subject(ctx context.Context, req template.RenderRequest) (string, error)
}

// Hook observes completed deliveries, e.g. to record metrics. Hooks run on
// the delivery path after the final status is applied and must not block.
type Hook interface {
	DeliveryCompleted(ctx context.Context, n notification.Notification, outcomes []channel.Outcome)
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx context.Context, n notification.Notification, outcomes []channel.Outcome)

// DeliveryCompleted implements Hook.
func (f HookFunc) DeliveryCompleted(ctx context.Context, n notification.Notification, outcomes []channel.Outcome) {
	f(ctx, n, outcomes)
}

// Report summarizes one delivery run.
type Report struct {
	// NotificationID identifies the delivered notification.
	NotificationID string

	// Status is the final status applied to the notification.
	Status notification.Status

	// Partial is true when some but not all channels accepted the send.
	Partial bool

	// Outcomes holds one entry per dispatched channel, in dispatch order.
	Outcomes []channel.Outcome
}

// Orchestrator fans a notification out to its selected channels and folds
// the outcomes into one final status. Safe for concurrent use.
type Orchestrator struct {
	senders  map[channel.Channel]channel.Sender
	renderer ContentRenderer
	storage  notification.Storage
	hooks    []Hook
	timeout  time.Duration
	log      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithChannelTimeout bounds each channel's whole send attempt, retries
// included. On expiry only that channel's outcome becomes a timeout; the
// siblings keep running. Default is 30s; values at or below zero are ignored.
func WithChannelTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRenderer makes the orchestrator render channel content before each
// send. Without a renderer, senders fall back to the notification's raw
// title and message.
func WithRenderer(r ContentRenderer) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.renderer = r
		}
	}
}

// WithStorage persists the notification after every delivery run.
func WithStorage(s notification.Storage) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.storage = s
		}
	}
}

// WithHooks registers delivery observers, called in registration order.
func WithHooks(hooks ...Hook) Option {
	return func(o *Orchestrator) {
		for _, h := range hooks {
			if h != nil {
				o.hooks = append(o.hooks, h)
			}
		}
	}
}

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// New creates an orchestrator over the given channel senders.
func New(senders []channel.Sender, opts ...Option) (*Orchestrator, error) {
	if len(senders) == 0 {
		return nil, ErrNoSenders
	}

	byChannel := make(map[channel.Channel]channel.Sender, len(senders))
	for _, s := range senders {
		if s == nil {
			return nil, ErrNoSenders
		}
		ch := s.Channel()
		if !ch.Valid() {
			return nil, fmt.Errorf("%w: sender reports unknown channel %q", ErrNoSenders, ch)
		}
		if _, exists := byChannel[ch]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSender, ch)
		}
		byChannel[ch] = s
	}

	o := &Orchestrator{
		senders: byChannel,
		timeout: defaultChannelTimeout,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Deliver fans the pending notification out to every channel its preferences
// enable, waits for all of them, applies the final status through the
// transition table, persists the result, and notifies hooks.
//
// Channel failures never surface as errors: each one is folded into the
// outcome set and the delivery-info breakdown. The returned error is
// reserved for misuse (nil or non-pending notification) and for transition
// violations, which leave the notification untouched.
func (o *Orchestrator) Deliver(ctx context.Context, n *notification.Notification, pref *notification.Preference, dest channel.Destination) (*Report, error) {
	if n == nil {
		return nil, ErrNotificationRequired
	}
	if n.Status != notification.StatusPending {
		return nil, fmt.Errorf("%w: notification %s is %s", ErrNotPending, n.ID, n.Status)
	}

	start := time.Now()
	channels := o.selectChannels(*n, pref)
	outcomes := o.dispatch(ctx, *n, channels, dest)

	status, errMsg, patch := FinalStatus(outcomes)
	patch["initiated_at"] = start.UTC().Format(time.RFC3339)

	statusOpts := []notification.StatusOption{notification.WithDeliveryInfo(patch)}
	if errMsg != "" {
		statusOpts = append(statusOpts, notification.WithError(errMsg))
	}
	if err := n.UpdateStatus(status, statusOpts...); err != nil {
		return nil, err
	}

	o.log.Info("notification delivery completed",
		slog.String("notification_id", n.ID),
		slog.String("user_id", n.UserID),
		slog.String("type", n.Type.String()),
		slog.String("status", status.String()),
		slog.Int("channels", len(outcomes)),
		slog.Duration("duration", time.Since(start)),
	)

	if o.storage != nil {
		// The provider calls already happened; a lost history write must
		// not convert a completed delivery into a caller-facing failure.
		if err := o.storage.Update(ctx, *n); err != nil {
			o.log.Error("failed to persist delivery result",
				slog.String("notification_id", n.ID),
				slog.Any("error", err),
			)
		}
	}

	snapshot := *n.Clone()
	for _, h := range o.hooks {
		h.DeliveryCompleted(ctx, snapshot, outcomes)
	}

	return &Report{
		NotificationID: n.ID,
		Status:         status,
		Partial:        patch["partial"] == true,
		Outcomes:       outcomes,
	}, nil
}

// selectChannels intersects the preference-enabled channels with the ones
// that actually have a sender registered. An enabled channel without a
// sender is a deployment choice, not a delivery failure.
func (o *Orchestrator) selectChannels(n notification.Notification, pref *notification.Preference) []channel.Channel {
	enabled := DetermineChannels(n, pref)
	selected := make([]channel.Channel, 0, len(enabled))
	for _, ch := range enabled {
		if _, ok := o.senders[ch]; !ok {
			o.log.Debug("channel enabled but no sender registered",
				slog.String("channel", ch.String()),
				slog.String("notification_id", n.ID),
			)
			continue
		}
		selected = append(selected, ch)
	}
	return selected
}

// dispatch starts one future per channel and joins all of them. The join
// never races the senders: a channel that blows its padded deadline is
// written off as timed out while its siblings' results are still collected.
func (o *Orchestrator) dispatch(ctx context.Context, n notification.Notification, channels []channel.Channel, dest channel.Destination) []channel.Outcome {
	futures := make([]*async.Future[channel.Outcome], len(channels))
	for i, ch := range channels {
		futures[i] = async.Async(ctx, ch, func(ctx context.Context, ch channel.Channel) (channel.Outcome, error) {
			return o.sendOne(ctx, ch, n, dest), nil
		})
	}

	outcomes := make([]channel.Outcome, len(channels))
	for i, fut := range futures {
		out, err := fut.AwaitWithTimeout(o.timeout + awaitGrace)
		if err != nil {
			// Either the future's goroutine never started because ctx was
			// already cancelled, or the sender ignored its deadline.
			out = channel.TimedOut(channels[i], err)
			o.log.Warn("channel send abandoned",
				slog.String("channel", channels[i].String()),
				slog.String("notification_id", n.ID),
				slog.Any("error", err),
			)
		}
		outcomes[i] = out
	}
	return outcomes
}

// sendOne runs a single channel's render and send under the per-channel
// timeout. A panicking sender is converted into a permanent failure so one
// channel's bug cannot take down the fan-out.
func (o *Orchestrator) sendOne(ctx context.Context, ch channel.Channel, n notification.Notification, dest channel.Destination) (out channel.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("channel sender panicked",
				slog.String("channel", ch.String()),
				slog.String("notification_id", n.ID),
				slog.Any("panic", r),
			)
			out = channel.PermanentFailure(ch, fmt.Errorf("sender panic: %v", r), 0)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if o.renderer != nil && dest.RenderedBody == "" {
		body, subject, err := o.render(ctx, ch, n, dest.Locale)
		if err != nil {
			return channel.PermanentFailure(ch,
				fmt.Errorf("%w: render %s content: %w", channel.ErrValidation, ch, err), 0)
		}
		dest.RenderedBody = body
		dest.RenderedSubject = subject
	}

	return o.senders[ch].Send(ctx, n, dest)
}

func (o *Orchestrator) render(ctx context.Context, ch channel.Channel, n notification.Notification, locale string) (body, subject string, err error) {
	req := template.RenderRequest{
		Type:    n.Type,
		Channel: ch,
		Context: template.NotificationContext(n),
		Locale:  locale,
	}

	if body, err = o.renderer.Render(ctx, req); err != nil {
		return "", "", err
	}
	if ch == channel.Email {
		if subject, err = o.renderer.Subject(ctx, req); err != nil {
			return "", "", err
		}
	}
	return body, subject, nil
}
