// Package email delivers notifications over email through an ordered
// provider chain with bounded retries, per-recipient rate limiting, and
// delivery statistics.
//
// The chain tries the primary provider first (Postmark's transactional API in
// production) and falls through to the next provider (SMTP) only when the
// previous one failed. A validation failure aborts the chain immediately: a
// bad address is bad for every provider.
//
// The whole chain pass is wrapped in a retry loop with jittered exponential
// backoff. Only transient classifications are retried; permanent provider
// rejections and validation failures fail fast.
//
// Before any provider is contacted, the per-recipient sliding-window limiter
// is consulted (20 per hour with a 5 per minute burst guard by default).
// A denial produces a rate-limited outcome without touching the providers or
// the failure counters.
//
//	sender, err := email.NewSender([]email.Provider{postmark, smtp})
//	outcome := sender.Send(ctx, n, channel.Destination{Email: "user@example.com"})
//
// Per-recipient statistics (sent, failed, failure histogram by
// classification) accumulate across the sender's lifetime and are exposed
// through Stats for health reporting.
//
// DevProvider writes rendered emails to a local directory instead of
// sending them, for development and tests.
package email
