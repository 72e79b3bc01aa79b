package email

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/ratelimit"
)

// Sender delivers email notifications through an ordered provider chain with
// per-recipient rate limiting and retries. It implements channel.Sender.
//
// Each attempt walks the chain in order and falls back to the next provider
// on failure; a validation error aborts the chain because every provider
// would reject the same message. Only transient failures are retried.
type Sender struct {
	providers   []Provider
	limiter     *ratelimit.SlidingWindow
	backoff     channel.BackoffStrategy
	maxAttempts int
	stats       *statsBook
	log         *slog.Logger
}

// Option configures a Sender.
type Option func(*Sender)

// WithRateLimiter replaces the default per-recipient limiter
// (20 per hour with a burst cap of 5 per minute, in-memory).
func WithRateLimiter(limiter *ratelimit.SlidingWindow) Option {
	return func(s *Sender) {
		if limiter != nil {
			s.limiter = limiter
		}
	}
}

// WithBackoff replaces the default exponential backoff between attempts.
func WithBackoff(strategy channel.BackoffStrategy) Option {
	return func(s *Sender) {
		if strategy != nil {
			s.backoff = strategy
		}
	}
}

// WithMaxAttempts sets the total number of chain walks per send, the first
// attempt included. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(s *Sender) {
		if n >= 1 {
			s.maxAttempts = n
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

// NewSender creates an email sender over the given provider chain. Providers
// are tried in the order given.
func NewSender(providers []Provider, opts ...Option) (*Sender, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	for _, p := range providers {
		if p == nil {
			return nil, ErrNoProviders
		}
	}

	s := &Sender{
		providers:   providers,
		backoff:     channel.DefaultBackoff(),
		maxAttempts: 3,
		stats:       newStatsBook(),
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.limiter == nil {
		limiter, err := ratelimit.NewSlidingWindow(
			ratelimit.NewMemoryStore(), 20, time.Hour,
			ratelimit.WithBurst(5, time.Minute),
		)
		if err != nil {
			return nil, err
		}
		s.limiter = limiter
	}

	return s, nil
}

// Channel implements channel.Sender.
func (s *Sender) Channel() channel.Channel { return channel.Email }

// Stats returns the delivery snapshot for a recipient address. The second
// return is false when the recipient has no recorded outcomes yet.
func (s *Sender) Stats(recipient string) (Stats, bool) {
	return s.stats.snapshot(recipient)
}

// Send implements channel.Sender.
func (s *Sender) Send(ctx context.Context, n notification.Notification, dest channel.Destination) channel.Outcome {
	start := time.Now()

	if dest.Email == "" {
		return channel.PermanentFailure(channel.Email,
			fmt.Errorf("%w: recipient email is required", channel.ErrValidation), 0)
	}
	if !emailRegex.MatchString(dest.Email) {
		s.stats.recordFailure(dest.Email, channel.ClassPermanent)
		return channel.PermanentFailure(channel.Email,
			fmt.Errorf("%w: invalid recipient email %q", channel.ErrValidation, dest.Email), 0)
	}

	res, err := s.limiter.Allow(ctx, ratelimit.Key("email", dest.Email))
	if err != nil {
		// Fail closed: an unreachable limiter store must not open the
		// floodgates. The caller may retry the whole send later.
		s.log.Error("email rate limiter unavailable",
			slog.String("recipient", dest.Email),
			slog.Any("error", err),
		)
		if ctx.Err() != nil {
			return channel.TimedOut(channel.Email, ctx.Err())
		}
		return channel.TransientFailure(channel.Email,
			fmt.Errorf("rate limiter unavailable: %w", err), 0)
	}
	if !res.Allowed {
		return channel.RateLimitedOutcome(channel.Email, errors.Join(
			channel.ErrRateLimited,
			fmt.Errorf("email rate limit reached for %s, retry after %s", dest.Email, res.RetryAfter().Round(time.Second)),
		))
	}

	msg := Message{
		To:       dest.Email,
		Subject:  n.Title,
		BodyHTML: dest.RenderedBody,
		Tag:      string(n.Type),
	}
	if dest.RenderedSubject != "" {
		msg.Subject = dest.RenderedSubject
	}
	if msg.BodyHTML == "" {
		msg.BodyHTML = fallbackBody(n)
	}

	var (
		lastErr  error
		attempts int
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		attempts = attempt

		id, err := s.tryChain(ctx, msg)
		if err == nil {
			s.stats.recordSuccess(dest.Email)
			out := channel.Delivered(channel.Email, id, attempt)
			out.Duration = time.Since(start)
			return out
		}
		lastErr = err

		if !channel.Classify(err).Retryable() || attempt == s.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			s.stats.recordFailure(dest.Email, channel.ClassTimeout)
			out := channel.TimedOut(channel.Email, errors.Join(ctx.Err(), lastErr))
			out.Attempts = attempt
			out.Duration = time.Since(start)
			return out
		case <-time.After(s.backoff.NextInterval(attempt)):
		}
	}

	class := channel.Classify(lastErr)
	s.stats.recordFailure(dest.Email, class)
	s.log.Warn("email delivery failed",
		slog.String("recipient", dest.Email),
		slog.String("notification_id", n.ID),
		slog.String("classification", string(class)),
		slog.Int("attempts", attempts),
		slog.Any("error", lastErr),
	)

	out := channel.Failure(channel.Email, lastErr, attempts)
	out.Duration = time.Since(start)
	return out
}

// tryChain walks the provider chain once, returning the provider message id
// of the first success. Validation errors abort the walk: no provider will
// accept a malformed message, so falling back only wastes quota.
func (s *Sender) tryChain(ctx context.Context, msg Message) (string, error) {
	var lastErr error
	for _, p := range s.providers {
		if ctx.Err() != nil {
			return "", errors.Join(ctx.Err(), lastErr)
		}

		id, err := p.SendEmail(ctx, msg)
		if err == nil {
			return id, nil
		}
		if errors.Is(err, channel.ErrValidation) {
			return "", err
		}

		s.log.Warn("email provider failed, trying next",
			slog.String("provider", p.Name()),
			slog.String("recipient", msg.To),
			slog.Any("error", err),
		)
		lastErr = err
	}
	return "", lastErr
}

// fallbackBody wraps the raw title and message in minimal HTML for sends
// without a rendered template.
func fallbackBody(n notification.Notification) string {
	return fmt.Sprintf("<h2>%s</h2><p>%s</p>",
		html.EscapeString(n.Title), html.EscapeString(n.Message))
}
