package device

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "device:"

// RedisRegistry keeps each user's tokens in a Redis list with a TTL on the
// key, and the per-platform blacklist in a set, so every service instance
// sees the same device state.
type RedisRegistry struct {
	client redis.UniversalClient
	prefix string
}

// RedisRegistryOption configures a RedisRegistry.
type RedisRegistryOption func(*RedisRegistry)

// WithRedisKeyPrefix sets the prefix for all registry keys.
// Default is "device:".
func WithRedisKeyPrefix(prefix string) RedisRegistryOption {
	return func(r *RedisRegistry) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// NewRedisRegistry creates a Redis-backed device token registry.
func NewRedisRegistry(client redis.UniversalClient, opts ...RedisRegistryOption) (*RedisRegistry, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	r := &RedisRegistry{
		client: client,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *RedisRegistry) tokensKey(userID string, platform Platform) string {
	return fmt.Sprintf("%stokens:%s:%s", r.prefix, userID, platform)
}

func (r *RedisRegistry) blacklistKey(platform Platform) string {
	return fmt.Sprintf("%sblacklist:%s", r.prefix, platform)
}

// Register implements Registry. Dedupe, prepend, trim, and TTL reset run in
// one pipeline round trip.
func (r *RedisRegistry) Register(ctx context.Context, userID string, platform Platform, token string) error {
	if err := validateTokenArgs(userID, platform, token); err != nil {
		return err
	}

	key := r.tokensKey(userID, platform)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, key, 0, token)
		pipe.LPush(ctx, key, token)
		pipe.LTrim(ctx, key, 0, MaxTokensPerUser-1)
		pipe.Expire(ctx, key, platform.TTL())
		return nil
	})
	return err
}

// Tokens implements Registry. Blacklist membership for the whole list is
// resolved with a single SMISMEMBER call.
func (r *RedisRegistry) Tokens(ctx context.Context, userID string, platform Platform) ([]string, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}

	tokens, err := r.client.LRange(ctx, r.tokensKey(userID, platform), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return []string{}, nil
	}

	members := make([]any, len(tokens))
	for i, t := range tokens {
		members[i] = t
	}
	blocked, err := r.client.SMIsMember(ctx, r.blacklistKey(platform), members...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(tokens))
	for i, t := range tokens {
		if i < len(blocked) && blocked[i] {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Touch implements Registry.
func (r *RedisRegistry) Touch(ctx context.Context, userID string, platform Platform) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	if !platform.Valid() {
		return ErrInvalidPlatform
	}
	return r.client.Expire(ctx, r.tokensKey(userID, platform), platform.TTL()).Err()
}

// Remove implements Registry.
func (r *RedisRegistry) Remove(ctx context.Context, userID string, platform Platform, token string) error {
	if err := validateTokenArgs(userID, platform, token); err != nil {
		return err
	}
	return r.client.LRem(ctx, r.tokensKey(userID, platform), 0, token).Err()
}

// Blacklist implements Registry.
func (r *RedisRegistry) Blacklist(ctx context.Context, platform Platform, token string) error {
	if !platform.Valid() {
		return ErrInvalidPlatform
	}
	if token == "" {
		return ErrTokenRequired
	}
	return r.client.SAdd(ctx, r.blacklistKey(platform), token).Err()
}

// IsBlacklisted implements Registry.
func (r *RedisRegistry) IsBlacklisted(ctx context.Context, platform Platform, token string) (bool, error) {
	if !platform.Valid() {
		return false, ErrInvalidPlatform
	}
	if token == "" {
		return false, ErrTokenRequired
	}
	return r.client.SIsMember(ctx, r.blacklistKey(platform), token).Result()
}
