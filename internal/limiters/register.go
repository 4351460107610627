package limiters

import (
	"context"
	"time"

	"github.com/MrEthical07/credguard/internal/counter"
)

const defaultRegisterThreshold = 3

// RegisterConfig holds the registration gate policy.
type RegisterConfig struct {
	// Threshold is the number of attempts per IP allowed without a challenge.
	Threshold int
	// Window expires the counter after its first hit. Zero keeps the counter
	// until a successful challenge clears it.
	Window time.Duration
	// HardDeny rejects attempts past the threshold instead of challenging them.
	HardDeny bool
}

type RegisterGate struct {
	store  counter.Store
	keys   Keys
	config RegisterConfig
}

// NewRegisterGate creates the gate. A zero Threshold falls back to 3.
func NewRegisterGate(store counter.Store, keys Keys, cfg RegisterConfig) *RegisterGate {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultRegisterThreshold
	}
	return &RegisterGate{store: store, keys: keys, config: cfg}
}

// Hit counts one registration attempt from ip.
func (g *RegisterGate) Hit(ctx context.Context, ip string) (Decision, error) {
	key := g.keys.Register(ip)

	count, err := g.store.Incr(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if g.config.Window > 0 {
		if _, err := g.store.Expire(ctx, key, g.config.Window, counter.ExpireIfNoTTL); err != nil {
			return Decision{}, err
		}
	}

	if count <= int64(g.config.Threshold) {
		return Decision{
			Count:     count,
			Outcome:   Allow,
			Remaining: remaining(g.config.Threshold, count),
		}, nil
	}

	if g.config.HardDeny {
		retry, err := lockRemaining(ctx, g.store, key, 0)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Count: count, Outcome: Deny, RetryAfter: retry}, nil
	}

	return Decision{Count: count, Outcome: Challenge}, nil
}

// Reset clears the registration counter for ip.
func (g *RegisterGate) Reset(ctx context.Context, ip string) error {
	return g.store.Delete(ctx, g.keys.Register(ip))
}
