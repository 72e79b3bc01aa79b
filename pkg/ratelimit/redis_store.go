package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "ratelimit:"

// takeScript prunes aged events, checks the main and burst limits, and
// records the event in a single server-side step. Scores are microsecond
// timestamps; members carry a per-call suffix so two events in the same
// microsecond never collapse into one sorted set entry.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local burst_window = tonumber(ARGV[4])
local burst_limit = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local count = redis.call('ZCARD', key)
if count >= limit then
	return {0, count}
end

if burst_limit > 0 then
	local burst = redis.call('ZCOUNT', key, '(' .. (now - burst_window), '+inf')
	if burst >= burst_limit then
		return {0, count}
	end
end

redis.call('ZADD', key, now, ARGV[1] .. '-' .. ARGV[6])
redis.call('PEXPIRE', key, math.ceil(window / 1000))
return {1, count + 1}
`)

// RedisStore keeps event timestamps in Redis sorted sets so multiple
// instances share one view of each recipient's budget. Lua scripting makes
// the check-and-record atomic per key across processes.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	seq    atomic.Uint64
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix sets the prefix prepended to every stored key.
// Default is "ratelimit:".
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore creates a Redis-backed sliding window store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	s := &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// TakeIfAllowed implements Store.
func (s *RedisStore) TakeIfAllowed(ctx context.Context, key string, now time.Time, policy Policy) (bool, int64, error) {
	args := []any{
		now.UnixMicro(),
		policy.Window.Microseconds(),
		policy.Limit,
		policy.BurstWindow.Microseconds(),
		policy.BurstLimit,
		strconv.FormatUint(s.seq.Add(1), 36),
	}

	raw, err := takeScript.Run(ctx, s.client, []string{s.prefix + key}, args...).Result()
	if err != nil {
		return false, 0, err
	}

	reply, ok := raw.([]any)
	if !ok || len(reply) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit script reply: %T", raw)
	}
	allowed, _ := reply[0].(int64)
	count, _ := reply[1].(int64)

	return allowed == 1, count, nil
}

// CountInWindow implements Store.
func (s *RedisStore) CountInWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	min := time.Now().Add(-window).UnixMicro()
	return s.client.ZCount(ctx, s.prefix+key, "("+strconv.FormatInt(min, 10), "+inf").Result()
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
