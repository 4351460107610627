package limiters

import (
	"context"
	"time"

	"github.com/MrEthical07/credguard/internal/counter"
)

// Outcome is the verdict for one counted attempt.
type Outcome uint8

const (
	// Allow lets the attempt proceed.
	Allow Outcome = iota
	// Challenge lets the attempt proceed only with a valid one-time code.
	Challenge
	// Deny rejects the attempt without a time-boxed lock.
	Deny
	// Locked rejects the attempt until the lock expires.
	Locked
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Challenge:
		return "challenge"
	case Deny:
		return "deny"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating one attempt against a policy.
// Remaining is meaningful for Allow; RetryAfter for Locked and Deny.
type Decision struct {
	Count      int64
	Outcome    Outcome
	Remaining  int
	RetryAfter time.Duration
}

func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

func remaining(threshold int, count int64) int {
	left := int64(threshold) - count
	if left < 0 {
		return 0
	}
	return int(left)
}

// lockRemaining reads the live expiry of key, falling back when the key has none.
func lockRemaining(ctx context.Context, store counter.Store, key string, fallback time.Duration) (time.Duration, error) {
	ttl, err := store.TTL(ctx, key)
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		return fallback, nil
	}
	return ttl, nil
}
