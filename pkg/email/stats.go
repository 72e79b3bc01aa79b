package email

import (
	"sync"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

// Stats is a per-recipient delivery snapshot.
type Stats struct {
	// Sent counts sends a provider accepted.
	Sent int64 `json:"sent"`

	// Failed counts terminal failures after retries and fallbacks.
	Failed int64 `json:"failed"`

	// LastSuccess is when the most recent send was accepted, UTC.
	LastSuccess time.Time `json:"last_success,omitzero"`

	// LastFailure is when the most recent terminal failure happened, UTC.
	LastFailure time.Time `json:"last_failure,omitzero"`

	// ErrorCounts breaks failures down by classification.
	ErrorCounts map[channel.Classification]int64 `json:"error_counts,omitempty"`
}

// statsBook tracks per-recipient counters. Recipients are recorded lazily on
// their first terminal outcome.
type statsBook struct {
	mu      sync.RWMutex
	entries map[string]*Stats
}

func newStatsBook() *statsBook {
	return &statsBook{entries: make(map[string]*Stats)}
}

func (b *statsBook) recordSuccess(recipient string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.entry(recipient)
	st.Sent++
	st.LastSuccess = time.Now().UTC()
}

func (b *statsBook) recordFailure(recipient string, class channel.Classification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.entry(recipient)
	st.Failed++
	st.LastFailure = time.Now().UTC()
	if st.ErrorCounts == nil {
		st.ErrorCounts = make(map[channel.Classification]int64)
	}
	st.ErrorCounts[class]++
}

// entry must be called with mu held.
func (b *statsBook) entry(recipient string) *Stats {
	st, ok := b.entries[recipient]
	if !ok {
		st = &Stats{}
		b.entries[recipient] = st
	}
	return st
}

// snapshot returns a deep copy so callers cannot mutate live counters.
func (b *statsBook) snapshot(recipient string) (Stats, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st, ok := b.entries[recipient]
	if !ok {
		return Stats{}, false
	}

	out := *st
	if st.ErrorCounts != nil {
		out.ErrorCounts = make(map[channel.Classification]int64, len(st.ErrorCounts))
		for k, v := range st.ErrorCounts {
			out.ErrorCounts[k] = v
		}
	}
	return out, true
}
