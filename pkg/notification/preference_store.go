package notification

import (
	"context"
	"sync"
)

// PreferenceStore persists per-user delivery preferences. Implementations
// return ErrPreferenceNotFound for users without stored preferences; callers
// treat that as "all channels enabled".
type PreferenceStore interface {
	// Preference retrieves a user's stored preferences.
	Preference(ctx context.Context, userID string) (*Preference, error)

	// SavePreference creates or replaces a user's preferences.
	SavePreference(ctx context.Context, p *Preference) error
}

// MemoryPreferenceStore is an in-memory PreferenceStore for development and
// testing. All reads return deep copies.
type MemoryPreferenceStore struct {
	mu     sync.RWMutex
	byUser map[string]*Preference
}

// NewMemoryPreferenceStore creates an empty in-memory preference store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{byUser: make(map[string]*Preference)}
}

func (s *MemoryPreferenceStore) Preference(ctx context.Context, userID string) (*Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byUser[userID]
	if !ok {
		return nil, ErrPreferenceNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryPreferenceStore) SavePreference(ctx context.Context, p *Preference) error {
	if p == nil || p.UserID == "" {
		return ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[p.UserID] = p.Clone()
	return nil
}
