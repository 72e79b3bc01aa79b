package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/device"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Sender delivers push notifications through per-platform providers fed by
// the device token registry. It implements channel.Sender.
type Sender struct {
	registry    device.Registry
	providers   map[device.Platform]Provider
	backoff     channel.BackoffStrategy
	maxAttempts int
	batchSize   int
	log         *slog.Logger
}

// Option configures a Sender.
type Option func(*Sender)

// WithBackoff replaces the default linear backoff between batch retries.
func WithBackoff(strategy channel.BackoffStrategy) Option {
	return func(s *Sender) {
		if strategy != nil {
			s.backoff = strategy
		}
	}
}

// WithMaxAttempts sets how many times one batch call is tried, the first
// attempt included. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(s *Sender) {
		if n >= 1 {
			s.maxAttempts = n
		}
	}
}

// WithBatchSize lowers the token batch size, mainly for tests. Values
// outside (0, MaxBatchSize] are ignored.
func WithBatchSize(n int) Option {
	return func(s *Sender) {
		if n >= 1 && n <= MaxBatchSize {
			s.batchSize = n
		}
	}
}

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Sender) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSender creates a push sender over the given providers, one per
// platform.
func NewSender(registry device.Registry, providers []Provider, opts ...Option) (*Sender, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if len(providers) == 0 {
		return nil, ErrProviderRequired
	}

	byPlatform := make(map[device.Platform]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			return nil, ErrProviderRequired
		}
		platform := p.Platform()
		if !platform.Valid() {
			return nil, fmt.Errorf("%w: unknown platform %q", ErrProviderRequired, platform)
		}
		if _, exists := byPlatform[platform]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProvider, platform)
		}
		byPlatform[platform] = p
	}

	s := &Sender{
		registry:    registry,
		providers:   byPlatform,
		backoff:     channel.LinearBackoff{Interval: time.Second},
		maxAttempts: 3,
		batchSize:   MaxBatchSize,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Channel implements channel.Sender.
func (s *Sender) Channel() channel.Channel { return channel.Push }

// tokenGroup is one platform's worth of live tokens.
type tokenGroup struct {
	platform device.Platform
	provider Provider
	tokens   []string
}

// tally aggregates per-token verdicts across platforms and batches.
type tally struct {
	delivered int
	failed    int
	classes   map[channel.Classification]int
	attempts  int
	lastErr   error
}

// Send implements channel.Sender.
func (s *Sender) Send(ctx context.Context, n notification.Notification, dest channel.Destination) channel.Outcome {
	start := time.Now()

	userID := dest.UserID
	if userID == "" {
		userID = n.UserID
	}
	if userID == "" {
		return channel.PermanentFailure(channel.Push,
			fmt.Errorf("%w: user id is required", channel.ErrValidation), 0)
	}

	groups, lookupErr := s.collectTokens(ctx, userID)
	if len(groups) == 0 {
		if lookupErr != nil {
			if ctx.Err() != nil {
				return channel.TimedOut(channel.Push, errors.Join(ctx.Err(), lookupErr))
			}
			return channel.TransientFailure(channel.Push,
				fmt.Errorf("token registry unavailable: %w", lookupErr), 0)
		}
		return channel.PermanentFailure(channel.Push,
			fmt.Errorf("%w for user %s", ErrNoDeviceTokens, userID), 0)
	}

	msg := buildMessage(n, dest)

	t := tally{classes: make(map[channel.Classification]int)}
	for _, g := range groups {
		s.sendGroup(ctx, g, msg, &t)
		if ctx.Err() != nil {
			break
		}
	}

	out := s.aggregate(n, userID, t)
	out.Duration = time.Since(start)
	return out
}

// collectTokens gathers live tokens for every platform a provider covers.
// A failed lookup on one platform does not hide another platform's tokens;
// the last lookup error is returned for the no-tokens diagnosis.
func (s *Sender) collectTokens(ctx context.Context, userID string) ([]tokenGroup, error) {
	var (
		groups  []tokenGroup
		lastErr error
	)
	for _, platform := range device.Platforms {
		provider, ok := s.providers[platform]
		if !ok {
			continue
		}
		tokens, err := s.registry.Tokens(ctx, userID, platform)
		if err != nil {
			s.log.Error("device token lookup failed",
				slog.String("user_id", userID),
				slog.String("platform", platform.String()),
				slog.Any("error", err),
			)
			lastErr = err
			continue
		}
		if len(tokens) > 0 {
			groups = append(groups, tokenGroup{platform: platform, provider: provider, tokens: tokens})
		}
	}
	return groups, lastErr
}

// sendGroup fans one platform's tokens out in batches, retrying each batch
// on transient errors and blacklisting tokens the provider reports invalid.
func (s *Sender) sendGroup(ctx context.Context, g tokenGroup, msg Message, t *tally) {
	for start := 0; start < len(g.tokens); start += s.batchSize {
		end := min(start+s.batchSize, len(g.tokens))
		batch := g.tokens[start:end:end]
		res, attempts, err := s.sendBatch(ctx, g.provider, batch, msg)
		t.attempts = max(t.attempts, attempts)

		if err != nil {
			t.failed += len(batch)
			t.classes[channel.Classify(err)] += len(batch)
			t.lastErr = err
			s.log.Warn("push batch failed",
				slog.String("platform", g.platform.String()),
				slog.Int("tokens", len(batch)),
				slog.Int("attempts", attempts),
				slog.Any("error", err),
			)
			if ctx.Err() != nil {
				return
			}
			continue
		}

		t.delivered += len(res.Delivered)
		t.failed += len(res.Invalid) + len(res.Failed)
		t.classes[channel.ClassPermanent] += len(res.Invalid)
		t.classes[channel.ClassTransient] += len(res.Failed)

		for _, token := range res.Invalid {
			if err := s.registry.Blacklist(ctx, g.platform, token); err != nil {
				s.log.Error("failed to blacklist invalid token",
					slog.String("platform", g.platform.String()),
					slog.Any("error", err),
				)
			}
		}
	}
}

// sendBatch tries one batch call up to maxAttempts times. Only transient
// errors are retried; the returned attempt count feeds the outcome.
func (s *Sender) sendBatch(ctx context.Context, p Provider, tokens []string, msg Message) (BatchResult, int, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		res, err := p.SendBatch(ctx, tokens, msg)
		if err == nil {
			return res, attempt, nil
		}
		lastErr = err

		if !channel.Classify(err).Retryable() || attempt == s.maxAttempts {
			return BatchResult{}, attempt, lastErr
		}

		select {
		case <-ctx.Done():
			return BatchResult{}, attempt, errors.Join(ctx.Err(), lastErr)
		case <-time.After(s.backoff.NextInterval(attempt)):
		}
	}
}

// aggregate folds the tally into one channel outcome. One accepted token
// makes the send a success; a complete miss carries the classification that
// covered the most tokens.
func (s *Sender) aggregate(n notification.Notification, userID string, t tally) channel.Outcome {
	if t.delivered > 0 {
		out := channel.Delivered(channel.Push, "", max(t.attempts, 1))
		out.Partial = t.failed > 0
		s.log.Info("push delivered",
			slog.String("notification_id", n.ID),
			slog.String("user_id", userID),
			slog.Int("delivered", t.delivered),
			slog.Int("failed", t.failed),
		)
		return out
	}

	err := t.lastErr
	if err != nil {
		err = fmt.Errorf("all %d push tokens failed: %w", t.failed, err)
	} else {
		err = fmt.Errorf("%w: all %d push tokens failed", ErrSendFailed, t.failed)
	}

	class := dominantClass(t.classes)
	s.log.Warn("push delivery failed",
		slog.String("notification_id", n.ID),
		slog.String("user_id", userID),
		slog.String("classification", string(class)),
		slog.Int("failed", t.failed),
		slog.Any("error", err),
	)

	switch class {
	case channel.ClassPermanent:
		return channel.PermanentFailure(channel.Push, err, t.attempts)
	case channel.ClassTimeout:
		out := channel.TimedOut(channel.Push, err)
		out.Attempts = t.attempts
		return out
	case channel.ClassRateLimited:
		out := channel.RateLimitedOutcome(channel.Push, err)
		out.Attempts = t.attempts
		return out
	default:
		return channel.TransientFailure(channel.Push, err, t.attempts)
	}
}

// classPrecedence breaks count ties deterministically.
var classPrecedence = []channel.Classification{
	channel.ClassPermanent,
	channel.ClassTransient,
	channel.ClassTimeout,
	channel.ClassRateLimited,
}

func dominantClass(classes map[channel.Classification]int) channel.Classification {
	dominant := channel.ClassTransient
	best := 0
	for _, class := range classPrecedence {
		if classes[class] > best {
			dominant = class
			best = classes[class]
		}
	}
	return dominant
}

// buildMessage maps the notification onto a push payload. The data payload
// always carries the notification id and type so the app can route taps.
func buildMessage(n notification.Notification, dest channel.Destination) Message {
	body := dest.RenderedBody
	if body == "" {
		body = n.Message
	}

	data := make(map[string]any, len(n.Metadata)+2)
	maps.Copy(data, n.Metadata)
	data["notification_id"] = n.ID
	data["type"] = string(n.Type)

	return Message{
		Title:   n.Title,
		Body:    body,
		Data:    data,
		Options: OptionsForType(n.Type),
	}
}
