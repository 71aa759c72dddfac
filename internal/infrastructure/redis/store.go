package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/core/ports"
)

// RedisStore implements ports.Store using a Redis client. A missing key is
// reported as absent, any other client error surfaces to the caller.
type RedisStore struct {
	r redis.Cmdable
	// optional key prefix to namespace entries; applied symmetrically on
	// every operation, so it is invisible to callers
	prefix string
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(r redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{r: r, prefix: prefix}
}

func (s *RedisStore) namespaced(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Get implements Store.Get. redis.Nil maps to absence, not an error.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ns := s.namespaced(key)
	val, err := s.r.Get(ctx, ns).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", ns, err)
	}
	return val, true, nil
}

// Set implements Store.Set. SET overwrites unconditionally; ttl <= 0 stores
// without expiration.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ns := s.namespaced(key)
	if ttl < 0 {
		ttl = 0
	}
	if err := s.r.Set(ctx, ns, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", ns, err)
	}
	return nil
}

// Delete implements Store.Delete. DEL on a missing key is a no-op.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ns := s.namespaced(key)
	if err := s.r.Del(ctx, ns).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", ns, err)
	}
	return nil
}

var _ ports.Store = (*RedisStore)(nil)
