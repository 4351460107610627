package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/credguard/internal"
	"github.com/redis/go-redis/v9"
)

const defaultCodeLength = 6

var (
	ErrPending     = errors.New("challenge already pending")
	ErrInvalid     = errors.New("challenge invalid")
	ErrUnavailable = errors.New("challenge store unavailable")
)

var consumeScript = redis.NewScript(`
local stored = redis.call("GET", KEYS[1])
if stored and stored == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
return 0
`)

// Config controls code shape. Zero values fall back to 6 symbols from
// [internal.ChallengeAlphabet].
type Config struct {
	Length   int
	Alphabet string
}

type Manager struct {
	redis    redis.UniversalClient
	length   int
	alphabet string
	generate func(int, string) (string, error)
}

func NewManager(redisClient redis.UniversalClient, cfg Config) *Manager {
	if cfg.Length <= 0 {
		cfg.Length = defaultCodeLength
	}
	if cfg.Alphabet == "" {
		cfg.Alphabet = internal.ChallengeAlphabet
	}
	return &Manager{
		redis:    redisClient,
		length:   cfg.Length,
		alphabet: cfg.Alphabet,
		generate: internal.NewChallengeCode,
	}
}

// Issue stores a fresh code under key. A ttl <= 0 stores it without expiry.
func (m *Manager) Issue(ctx context.Context, key string, ttl time.Duration) (string, error) {
	code, err := m.generate(m.length, m.alphabet)
	if err != nil {
		return "", fmt.Errorf("generate challenge code: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}

	stored, err := m.redis.SetNX(ctx, key, code, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !stored {
		return "", ErrPending
	}
	return code, nil
}

// Peek returns the live code for key without consuming it.
func (m *Manager) Peek(ctx context.Context, key string) (string, bool, error) {
	code, err := m.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return code, true, nil
}

// Remaining reports how long the live code for key stays valid. A negative
// value means the code has no expiry or does not exist.
func (m *Manager) Remaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := m.redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ttl, nil
}

// Verify consumes the code stored under key when candidate matches it.
// Empty, absent, and mismatched candidates all fail with [ErrInvalid]; a
// mismatch leaves the stored code in place.
func (m *Manager) Verify(ctx context.Context, key, candidate string) error {
	if candidate == "" {
		return ErrInvalid
	}

	matched, err := consumeScript.Run(ctx, m.redis, []string{key}, candidate).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if matched != 1 {
		return ErrInvalid
	}
	return nil
}

// Invalidate deletes any code stored under key.
func (m *Manager) Invalidate(ctx context.Context, key string) error {
	if err := m.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
