package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementScript starts the window on the first hit and never extends it
// afterwards, so the key expires exactly when the fixed window closes.
var incrementScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisStore implements Store interface using Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a connected client; the store owns it from then on
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Increment increments the counter for the given key
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (Window, error) {
	now := time.Now()

	res, err := incrementScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("failed to increment window: %w", err)
	}
	if len(res) != 2 {
		return Window{}, fmt.Errorf("unexpected increment reply length %d", len(res))
	}

	return Window{
		Count: res[0],
		End:   now.Add(time.Duration(res[1]) * time.Millisecond),
	}, nil
}

// Get retrieves the current window for the given key
func (s *RedisStore) Get(ctx context.Context, key string) (Window, bool, error) {
	now := time.Now()

	pipe := s.client.Pipeline()
	get := pipe.Get(ctx, key)
	ttl := pipe.PTTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Window{}, false, fmt.Errorf("failed to get window: %w", err)
	}

	count, err := get.Int64()
	if errors.Is(err, redis.Nil) {
		return Window{}, false, nil
	}
	if err != nil {
		return Window{}, false, fmt.Errorf("failed to parse window count: %w", err)
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		return Window{}, false, nil
	}

	return Window{Count: count, End: now.Add(remaining)}, true, nil
}

// Delete removes the key from storage
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// Ping checks if the storage is accessible
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the storage connection
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	return nil
}
