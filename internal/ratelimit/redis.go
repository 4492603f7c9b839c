package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript applies the fixed-window rule atomically on a hash holding
// count and reset (unix millis). Returns {allowed, remaining, reset_in_ms}.
var takeScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local state = redis.call('HMGET', KEYS[1], 'count', 'reset')
if not state[1] or now > tonumber(state[2]) then
  redis.call('HSET', KEYS[1], 'count', 1, 'reset', now + window)
  redis.call('PEXPIRE', KEYS[1], window + 1000)
  return {1, max - 1, window}
end
local count = tonumber(state[1])
local reset = tonumber(state[2])
if count >= max then
  return {0, 0, reset - now}
end
count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {1, max - count, reset - now}
`)

// RedisStore keeps window state in Redis so every instance shares it.
// Keys expire with their window, so no sweep is needed.
type RedisStore struct {
	client redis.Scripter
	prefix string
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(client redis.Scripter, keyPrefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: keyPrefix + "ratelimit:",
	}
}

// Key returns the Redis key holding the window for identifier
func (s *RedisStore) Key(identifier string) string {
	return s.prefix + identifier
}

// Take applies the fixed-window rule for key
func (s *RedisStore) Take(ctx context.Context, key string, policy Policy, now time.Time) (Decision, error) {
	res, err := takeScript.Run(ctx, s.client, []string{s.Key(key)},
		now.UnixMilli(), policy.Window.Milliseconds(), policy.MaxRequests,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis take: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("redis take: unexpected reply length %d", len(res))
	}

	return Decision{
		Allowed:   res[0] == 1,
		Remaining: int(res[1]),
		ResetIn:   time.Duration(res[2]) * time.Millisecond,
	}, nil
}
