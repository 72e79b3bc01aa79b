package notification

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// MemoryStorage is an in-memory Storage implementation for development and
// testing. All reads return deep copies.
type MemoryStorage struct {
	mu     sync.RWMutex
	byID   map[string]*Notification
	byUser map[string][]string // userID -> notification ids, insertion order
}

// NewMemoryStorage creates an empty in-memory notification store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byID:   make(map[string]*Notification),
		byUser: make(map[string][]string),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return ErrIDRequired
	}
	if n.UserID == "" {
		return ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[n.ID] = n.Clone()
	s.byUser[n.UserID] = append(s.byUser[n.UserID], n.ID)
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n.Clone(), nil
}

func (s *MemoryStorage) Update(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[n.ID]; !ok {
		return ErrNotFound
	}
	s.byID[n.ID] = n.Clone()
	return nil
}

func (s *MemoryStorage) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.byUser[userID]
	if !ok {
		return []Notification{}, nil
	}

	filtered := make([]Notification, 0, len(ids))
	for _, id := range ids {
		n, ok := s.byID[id]
		if !ok {
			continue
		}
		if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, n.Status) {
			continue
		}
		if len(opts.Types) > 0 && !slices.Contains(opts.Types, n.Type) {
			continue
		}
		if opts.Since != nil && n.CreatedAt.Before(*opts.Since) {
			continue
		}
		filtered = append(filtered, *n.Clone())
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	start := opts.Offset
	if start > len(filtered) {
		return []Notification{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(filtered) {
		end = len(filtered)
	}

	return filtered[start:end], nil
}

func (s *MemoryStorage) CountByStatus(ctx context.Context, userID string, status Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.byUser[userID] {
		if n, ok := s.byID[id]; ok && n.Status == status {
			count++
		}
	}
	return count, nil
}
