package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps every Redis failure surfaced by this package.
var ErrUnavailable = errors.New("counter store unavailable")

// ExpireMode selects how [Store.Expire] treats an existing expiry.
type ExpireMode uint8

const (
	// ExpireAlways replaces any existing expiry.
	ExpireAlways ExpireMode = iota
	// ExpireIfNoTTL applies the expiry only when the key has none.
	ExpireIfNoTTL
)

func (m ExpireMode) String() string {
	switch m {
	case ExpireAlways:
		return "always"
	case ExpireIfNoTTL:
		return "if_no_ttl"
	default:
		return "unknown"
	}
}

// Store is the counter contract consumed by the limiters.
type Store interface {
	Incr(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Expire(ctx context.Context, key string, ttl time.Duration, mode ExpireMode) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// RedisStore implements [Store] on a go-redis client.
type RedisStore struct {
	redis redis.UniversalClient
}

func NewRedisStore(redisClient redis.UniversalClient) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

// Get returns the current value, or zero when the key does not exist.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	count, err := s.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ttl, nil
}

// Expire sets ttl on key according to mode and reports whether an expiry was applied.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration, mode ExpireMode) (bool, error) {
	var cmd *redis.BoolCmd
	switch mode {
	case ExpireAlways:
		cmd = s.redis.Expire(ctx, key, ttl)
	case ExpireIfNoTTL:
		cmd = s.redis.ExpireNX(ctx, key, ttl)
	default:
		return false, fmt.Errorf("counter: unsupported expire mode %d", mode)
	}

	applied, err := cmd.Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return applied, nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
