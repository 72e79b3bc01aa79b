package ratelimit

import (
	"context"
	"sync"
	"time"
)

const defaultCleanupInterval = time.Minute

// MemoryStore keeps event timestamps in process memory. Each key owns its own
// lock, so concurrent checks on different keys do not contend. A background
// janitor evicts keys whose events have all slid out of their retention
// horizon; call Close to stop it.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string]*window

	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// window holds the recorded timestamps for one key. retain is the longest
// policy window observed for the key and bounds how far back timestamps are
// kept.
type window struct {
	mu         sync.Mutex
	timestamps []time.Time
	retain     time.Duration
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often idle keys are evicted.
// Default is 1 minute.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.cleanupInterval = interval
		}
	}
}

// NewMemoryStore creates an in-memory sliding window store.
// Call Close when the store is no longer needed.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		windows:         make(map[string]*window),
		cleanupInterval: defaultCleanupInterval,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.janitor()

	return s
}

// TakeIfAllowed implements Store. The policy evaluation and the event append
// happen under the per-key lock, so the admitted count for a key can never
// exceed the limit no matter how many goroutines race on it.
func (s *MemoryStore) TakeIfAllowed(ctx context.Context, key string, now time.Time, policy Policy) (bool, int64, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}

	w := s.getOrCreate(key)

	w.mu.Lock()
	defer w.mu.Unlock()

	if policy.Window > w.retain {
		w.retain = policy.Window
	}
	w.prune(now)

	count := w.countSince(now.Add(-policy.Window))
	if count >= int64(policy.Limit) {
		return false, count, nil
	}

	if policy.burstConfigured() {
		burst := w.countSince(now.Add(-policy.BurstWindow))
		if burst >= int64(policy.BurstLimit) {
			return false, count, nil
		}
	}

	w.timestamps = append(w.timestamps, now)
	return true, count + 1, nil
}

// CountInWindow implements Store.
func (s *MemoryStore) CountInWindow(ctx context.Context, key string, windowDur time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if !ok {
		return 0, nil
	}

	cutoff := time.Now().Add(-windowDur)

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.countSince(cutoff), nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.windows, key)
	s.mu.Unlock()
	return nil
}

// Close stops the background janitor. Safe to call multiple times.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *MemoryStore) getOrCreate(key string) *window {
	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if ok {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.windows[key]; ok {
		return w
	}
	w = &window{}
	s.windows[key] = w
	return w
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.evictIdle(now)
		}
	}
}

// evictIdle drops keys whose timestamps have all aged past their retention
// horizon. Lock order is outer map lock then per-key lock, same as the read
// path, so the two never deadlock.
func (s *MemoryStore) evictIdle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, w := range s.windows {
		w.mu.Lock()
		w.prune(now)
		empty := len(w.timestamps) == 0
		w.mu.Unlock()
		if empty {
			delete(s.windows, key)
		}
	}
}

// prune drops timestamps older than the retention horizon. Timestamps may be
// slightly out of order when goroutines capture now before acquiring the
// lock, so pruning filters instead of assuming sorted input.
func (w *window) prune(now time.Time) {
	if w.retain <= 0 {
		return
	}

	cutoff := now.Add(-w.retain)
	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.timestamps = kept
}

func (w *window) countSince(cutoff time.Time) int64 {
	var n int64
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}
