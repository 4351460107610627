package limiters

import (
	"context"
	"time"

	"github.com/MrEthical07/credguard/internal/counter"
)

const (
	defaultResetThreshold = 3
	defaultResetLockout   = 5 * time.Minute
)

// ResetConfig holds the password-reset attempt policy.
type ResetConfig struct {
	Threshold int
	Lockout   time.Duration
}

type ResetGate struct {
	store  counter.Store
	keys   Keys
	config ResetConfig
}

func NewResetGate(store counter.Store, keys Keys, cfg ResetConfig) *ResetGate {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultResetThreshold
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = defaultResetLockout
	}
	return &ResetGate{store: store, keys: keys, config: cfg}
}

// Hit counts one reset attempt from ip before any challenge is checked.
// Reaching the threshold locks the IP even if this attempt carries the
// right code.
func (g *ResetGate) Hit(ctx context.Context, ip string) (Decision, error) {
	key := g.keys.Reset(ip)

	count, err := g.store.Incr(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	if count >= int64(g.config.Threshold) {
		if _, err := g.store.Expire(ctx, key, g.config.Lockout, counter.ExpireIfNoTTL); err != nil {
			return Decision{}, err
		}
		retry, err := lockRemaining(ctx, g.store, key, g.config.Lockout)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Count: count, Outcome: Locked, RetryAfter: retry}, nil
	}

	return Decision{
		Count:     count,
		Outcome:   Allow,
		Remaining: remaining(g.config.Threshold, count),
	}, nil
}

// Reset clears the reset-attempt counter for ip.
func (g *ResetGate) Reset(ctx context.Context, ip string) error {
	return g.store.Delete(ctx, g.keys.Reset(ip))
}
