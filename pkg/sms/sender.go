package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/ratelimit"
	"github.com/dmitrymomot/notifykit/pkg/secrets"
)

// Sender delivers SMS notifications through a single provider with
// per-type rate limits and optional body encryption. It implements
// channel.Sender.
type Sender struct {
	provider      Provider
	store         ratelimit.Store
	policies      map[notification.Type]ratelimit.Policy
	defaultPolicy ratelimit.Policy
	limiters      map[notification.Type]*ratelimit.SlidingWindow
	fallback      *ratelimit.SlidingWindow
	confidential  map[notification.Type]struct{}
	serviceKey    []byte
	backoff       channel.BackoffStrategy
	maxAttempts   int
	log           *slog.Logger
}

// Option configures a Sender.
type Option func(*Sender)

// WithRateLimitStore replaces the default in-memory rate limit store, e.g.
// with the Redis store when multiple instances share quotas.
func WithRateLimitStore(store ratelimit.Store) Option {
	return func(s *Sender) {
		if store != nil {
			s.store = store
		}
	}
}

// WithTypeLimit overrides the admission rule for one notification type.
func WithTypeLimit(t notification.Type, limit int, window time.Duration) Option {
	return func(s *Sender) {
		s.policies[t] = ratelimit.Policy{Limit: limit, Window: window}
	}
}

// WithDefaultLimit overrides the admission rule for types without their own
// limit.
func WithDefaultLimit(limit int, window time.Duration) Option {
	return func(s *Sender) {
		s.defaultPolicy = ratelimit.Policy{Limit: limit, Window: window}
	}
}

// WithConfidentialTypes replaces the set of types whose body is encrypted
// before transmission. The default set contains security alerts.
func WithConfidentialTypes(types ...notification.Type) Option {
	return func(s *Sender) {
		s.confidential = make(map[notification.Type]struct{}, len(types))
		for _, t := range types {
			s.confidential[t] = struct{}{}
		}
	}
}

// WithEncryptionKey sets the 32-byte service key confidential bodies are
// sealed with. Without a key, sends of confidential types fail permanently.
func WithEncryptionKey(key []byte) Option {
	return func(s *Sender) {
		s.serviceKey = key
	}
}

// WithBackoff replaces the default fixed one-second pause between attempts.
func WithBackoff(strategy channel.BackoffStrategy) Option {
	return func(s *Sender) {
		if strategy != nil {
			s.backoff = strategy
		}
	}
}

// WithMaxAttempts sets the total attempt budget, the first try included.
// Values below 1 are ignored.
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

// NewSender creates an SMS sender over the given provider.
func NewSender(provider Provider, opts ...Option) (*Sender, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}

	s := &Sender{
		provider: provider,
		store:    ratelimit.NewMemoryStore(),
		policies: map[notification.Type]ratelimit.Policy{
			notification.TypeSecurityAlert:    {Limit: 3, Window: 5 * time.Minute},
			notification.TypeTransactionAlert: {Limit: 5, Window: time.Hour},
			notification.TypeMarketing:        {Limit: 2, Window: 24 * time.Hour},
		},
		defaultPolicy: ratelimit.Policy{Limit: 10, Window: time.Hour},
		confidential: map[notification.Type]struct{}{
			notification.TypeSecurityAlert: {},
		},
		backoff:     channel.FixedBackoff{Interval: time.Second},
		maxAttempts: 2,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.serviceKey) > 0 {
		if err := secrets.ValidateKey(s.serviceKey); err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
	}

	s.limiters = make(map[notification.Type]*ratelimit.SlidingWindow, len(s.policies))
	for t, p := range s.policies {
		limiter, err := ratelimit.NewSlidingWindow(s.store, p.Limit, p.Window)
		if err != nil {
			return nil, fmt.Errorf("%w: limit for type %s: %w", ErrInvalidConfig, t, err)
		}
		s.limiters[t] = limiter
	}
	fallback, err := ratelimit.NewSlidingWindow(s.store, s.defaultPolicy.Limit, s.defaultPolicy.Window)
	if err != nil {
		return nil, fmt.Errorf("%w: default limit: %w", ErrInvalidConfig, err)
	}
	s.fallback = fallback

	return s, nil
}

// Channel implements channel.Sender.
func (s *Sender) Channel() channel.Channel { return channel.SMS }

// Send implements channel.Sender.
func (s *Sender) Send(ctx context.Context, n notification.Notification, dest channel.Destination) channel.Outcome {
	start := time.Now()

	to := dest.PhoneNumber
	if to == "" {
		return channel.PermanentFailure(channel.SMS,
			fmt.Errorf("%w: phone number is required", channel.ErrValidation), 0)
	}
	if !ValidPhoneNumber(to) {
		return channel.PermanentFailure(channel.SMS,
			fmt.Errorf("%w: invalid phone number %q", channel.ErrValidation, to), 0)
	}

	res, err := s.limiterFor(n.Type).Allow(ctx, ratelimit.Key("sms", string(n.Type), to))
	if err != nil {
		// Fail closed, same as the other channels: a broken limiter store
		// never opens the floodgates.
		s.log.Error("sms rate limiter unavailable",
			slog.String("recipient", to),
			slog.Any("error", err),
		)
		if ctx.Err() != nil {
			return channel.TimedOut(channel.SMS, ctx.Err())
		}
		return channel.TransientFailure(channel.SMS,
			fmt.Errorf("rate limiter unavailable: %w", err), 0)
	}
	if !res.Allowed {
		return channel.RateLimitedOutcome(channel.SMS, errors.Join(
			channel.ErrRateLimited,
			fmt.Errorf("sms limit for %s reached for %s, retry after %s",
				n.Type, to, res.RetryAfter().Round(time.Second)),
		))
	}

	body := dest.RenderedBody
	if body == "" {
		body = n.Message
	}
	if s.isConfidential(n.Type) {
		sealed, err := s.sealBody(n, body)
		if err != nil {
			return channel.PermanentFailure(channel.SMS, err, 0)
		}
		body = sealed
	}

	var (
		lastErr  error
		attempts int
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		attempts = attempt

		result, err := s.provider.SendSMS(ctx, to, body)
		if err == nil {
			out := channel.Delivered(channel.SMS, result.MessageID, attempt)
			out.Duration = time.Since(start)
			return out
		}
		lastErr = err

		if classify(err) != channel.ClassTransient || attempt == s.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			out := channel.TimedOut(channel.SMS, errors.Join(ctx.Err(), lastErr))
			out.Attempts = attempt
			out.Duration = time.Since(start)
			return out
		case <-time.After(s.backoff.NextInterval(attempt)):
		}
	}

	class := classify(lastErr)
	s.log.Warn("sms delivery failed",
		slog.String("recipient", to),
		slog.String("notification_id", n.ID),
		slog.String("classification", string(class)),
		slog.Int("attempts", attempts),
		slog.Any("error", lastErr),
	)

	var out channel.Outcome
	switch class {
	case channel.ClassPermanent:
		out = channel.PermanentFailure(channel.SMS, lastErr, attempts)
	case channel.ClassRateLimited:
		out = channel.RateLimitedOutcome(channel.SMS, lastErr)
		out.Attempts = attempts
	case channel.ClassTimeout:
		out = channel.TimedOut(channel.SMS, lastErr)
		out.Attempts = attempts
	default:
		out = channel.TransientFailure(channel.SMS, lastErr, attempts)
	}
	out.Duration = time.Since(start)
	return out
}

// sealBody encrypts the body with a key bound to the notification's user.
func (s *Sender) sealBody(n notification.Notification, body string) (string, error) {
	if len(s.serviceKey) == 0 {
		return "", fmt.Errorf("%w: type %s", ErrEncryptionKeyRequired, n.Type)
	}
	sealed, err := secrets.EncryptForRecipient(s.serviceKey, n.UserID, body)
	if err != nil {
		return "", fmt.Errorf("encrypt confidential sms: %w", err)
	}
	return sealed, nil
}

func (s *Sender) limiterFor(t notification.Type) *ratelimit.SlidingWindow {
	if limiter, ok := s.limiters[t]; ok {
		return limiter
	}
	return s.fallback
}

func (s *Sender) isConfidential(t notification.Type) bool {
	_, ok := s.confidential[t]
	return ok
}

// classify buckets a provider error. Rejection codes get per-code
// treatment; everything else falls through to the shared sentinel rules.
func classify(err error) channel.Classification {
	var rej *RejectionError
	if errors.As(err, &rej) {
		switch {
		case rej.Permanent():
			return channel.ClassPermanent
		case rej.Throttled():
			return channel.ClassRateLimited
		default:
			return channel.ClassTransient
		}
	}
	return channel.Classify(err)
}
