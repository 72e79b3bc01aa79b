package device

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryRegistry keeps tokens in process memory. Expiry is evaluated lazily
// on read, matching the Redis backend's list TTL behavior.
type MemoryRegistry struct {
	mu        sync.RWMutex
	lists     map[listKey]*tokenList
	blacklist map[Platform]map[string]struct{}
}

type listKey struct {
	userID   string
	platform Platform
}

// tokenList holds one user's tokens for one platform, newest first. The TTL
// covers the whole list, refreshed on Register and Touch.
type tokenList struct {
	tokens    []string
	expiresAt time.Time
}

// NewMemoryRegistry creates an in-memory device token registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		lists:     make(map[listKey]*tokenList),
		blacklist: make(map[Platform]map[string]struct{}),
	}
}

// Register implements Registry.
func (r *MemoryRegistry) Register(ctx context.Context, userID string, platform Platform, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateTokenArgs(userID, platform, token); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := listKey{userID: userID, platform: platform}
	list, ok := r.lists[key]
	if !ok || time.Now().After(list.expiresAt) {
		list = &tokenList{}
		r.lists[key] = list
	}

	list.tokens = slices.DeleteFunc(list.tokens, func(t string) bool { return t == token })
	list.tokens = append([]string{token}, list.tokens...)
	if len(list.tokens) > MaxTokensPerUser {
		list.tokens = list.tokens[:MaxTokensPerUser]
	}
	list.expiresAt = time.Now().Add(platform.TTL())

	return nil
}

// Tokens implements Registry.
func (r *MemoryRegistry) Tokens(ctx context.Context, userID string, platform Platform) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	list, ok := r.lists[listKey{userID: userID, platform: platform}]
	if !ok || time.Now().After(list.expiresAt) {
		return []string{}, nil
	}

	blocked := r.blacklist[platform]
	out := make([]string, 0, len(list.tokens))
	for _, t := range list.tokens {
		if _, bad := blocked[t]; bad {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Touch implements Registry.
func (r *MemoryRegistry) Touch(ctx context.Context, userID string, platform Platform) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if userID == "" {
		return ErrUserIDRequired
	}
	if !platform.Valid() {
		return ErrInvalidPlatform
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.lists[listKey{userID: userID, platform: platform}]
	if !ok || time.Now().After(list.expiresAt) {
		return nil
	}
	list.expiresAt = time.Now().Add(platform.TTL())
	return nil
}

// Remove implements Registry.
func (r *MemoryRegistry) Remove(ctx context.Context, userID string, platform Platform, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateTokenArgs(userID, platform, token); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := listKey{userID: userID, platform: platform}
	list, ok := r.lists[key]
	if !ok {
		return nil
	}
	list.tokens = slices.DeleteFunc(list.tokens, func(t string) bool { return t == token })
	if len(list.tokens) == 0 {
		delete(r.lists, key)
	}
	return nil
}

// Blacklist implements Registry.
func (r *MemoryRegistry) Blacklist(ctx context.Context, platform Platform, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !platform.Valid() {
		return ErrInvalidPlatform
	}
	if token == "" {
		return ErrTokenRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.blacklist[platform]
	if !ok {
		set = make(map[string]struct{})
		r.blacklist[platform] = set
	}
	set[token] = struct{}{}
	return nil
}

// IsBlacklisted implements Registry.
func (r *MemoryRegistry) IsBlacklisted(ctx context.Context, platform Platform, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !platform.Valid() {
		return false, ErrInvalidPlatform
	}
	if token == "" {
		return false, ErrTokenRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.blacklist[platform][token]
	return ok, nil
}
