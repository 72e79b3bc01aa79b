// Package ratelimit implements sliding-window admission control with an
// optional burst guard, used to gate outbound notification sends per
// recipient.
//
// A SlidingWindow tracks individual event timestamps per key. On every Allow
// call it prunes entries older than the window, denies when the pruned count
// has reached the limit, then (when a burst policy is configured) denies when
// the count inside the shorter trailing burst window has reached the burst
// limit, and only then records the event. The whole check-and-record is a
// single atomic operation per key: concurrent callers on the same key can
// never over-admit, and unrelated keys never contend on a shared lock.
//
//	store := ratelimit.NewMemoryStore()
//	defer store.Close()
//
//	// 20 emails per hour per recipient, at most 5 in any 60s burst.
//	limiter, err := ratelimit.NewSlidingWindow(store, 20, time.Hour,
//	    ratelimit.WithBurst(5, time.Minute))
//
//	res, err := limiter.Allow(ctx, ratelimit.Key("email", recipient))
//	if err != nil {
//	    // store failure
//	}
//	if !res.Allowed {
//	    // denied; res.RetryAfter() hints when to try again
//	}
//
// Two stores ship with the package: MemoryStore for single-process
// deployments and tests, and RedisStore for shared state across instances,
// which keeps timestamps in a sorted set and runs the check-and-record as a
// Lua script so the per-key atomicity guarantee holds across processes.
package ratelimit
