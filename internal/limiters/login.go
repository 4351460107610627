package limiters

import (
	"context"
	"time"

	"github.com/MrEthical07/credguard/internal/counter"
)

const (
	defaultLoginIPThreshold       = 20
	defaultLoginIPWindow          = time.Minute
	defaultLoginIPLockout         = time.Hour
	defaultLoginPasswordThreshold = 3
	defaultLoginPasswordWindow    = time.Minute
	defaultLoginPasswordLockout   = 5 * time.Minute
)

// LoginConfig holds both login policies. Zero values fall back to
// 20 attempts per minute per IP (1h lock) and 3 wrong passwords per
// IP+username (5m lock).
type LoginConfig struct {
	IPThreshold       int
	IPWindow          time.Duration
	IPLockout         time.Duration
	PasswordThreshold int
	PasswordWindow    time.Duration
	PasswordLockout   time.Duration
}

type LoginLimiter struct {
	store  counter.Store
	keys   Keys
	config LoginConfig
}

func NewLoginLimiter(store counter.Store, keys Keys, cfg LoginConfig) *LoginLimiter {
	if cfg.IPThreshold <= 0 {
		cfg.IPThreshold = defaultLoginIPThreshold
	}
	if cfg.IPWindow <= 0 {
		cfg.IPWindow = defaultLoginIPWindow
	}
	if cfg.IPLockout <= 0 {
		cfg.IPLockout = defaultLoginIPLockout
	}
	if cfg.PasswordThreshold <= 0 {
		cfg.PasswordThreshold = defaultLoginPasswordThreshold
	}
	if cfg.PasswordWindow <= 0 {
		cfg.PasswordWindow = defaultLoginPasswordWindow
	}
	if cfg.PasswordLockout <= 0 {
		cfg.PasswordLockout = defaultLoginPasswordLockout
	}
	return &LoginLimiter{store: store, keys: keys, config: cfg}
}

// HitIP counts one login attempt from ip. Reaching the threshold locks the
// IP; the lock expiry is written only by the attempt that reaches it.
func (l *LoginLimiter) HitIP(ctx context.Context, ip string) (Decision, error) {
	key := l.keys.LoginIP(ip)

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	threshold := int64(l.config.IPThreshold)
	if count >= threshold {
		mode := counter.ExpireIfNoTTL
		if count == threshold {
			mode = counter.ExpireAlways
		}
		if _, err := l.store.Expire(ctx, key, l.config.IPLockout, mode); err != nil {
			return Decision{}, err
		}
		retry, err := lockRemaining(ctx, l.store, key, l.config.IPLockout)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Count: count, Outcome: Locked, RetryAfter: retry}, nil
	}

	if _, err := l.store.Expire(ctx, key, l.config.IPWindow, counter.ExpireIfNoTTL); err != nil {
		return Decision{}, err
	}
	return Decision{
		Count:     count,
		Outcome:   Allow,
		Remaining: remaining(l.config.IPThreshold, count),
	}, nil
}

// CheckPassword denies a scope that already reached the password threshold.
// A denied attempt still advances the counter and re-applies the lock only
// when the key has no expiry, so repeated attempts never extend it.
func (l *LoginLimiter) CheckPassword(ctx context.Context, ip, username string) (Decision, error) {
	key := l.keys.LoginPassword(ip, username)

	count, err := l.store.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if count < int64(l.config.PasswordThreshold) {
		return Decision{
			Count:     count,
			Outcome:   Allow,
			Remaining: remaining(l.config.PasswordThreshold, count),
		}, nil
	}

	count, err = l.store.Incr(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return l.lockPassword(ctx, key, count, counter.ExpireIfNoTTL)
}

// RecordPasswordFailure counts one wrong password for ip+username.
// Failures below the threshold share a short window; the failure that
// reaches the threshold sets the lock, later ones only keep it alive.
func (l *LoginLimiter) RecordPasswordFailure(ctx context.Context, ip, username string) (Decision, error) {
	key := l.keys.LoginPassword(ip, username)

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	threshold := int64(l.config.PasswordThreshold)
	switch {
	case count < threshold:
		if _, err := l.store.Expire(ctx, key, l.config.PasswordWindow, counter.ExpireIfNoTTL); err != nil {
			return Decision{}, err
		}
		return Decision{
			Count:     count,
			Outcome:   Allow,
			Remaining: remaining(l.config.PasswordThreshold, count),
		}, nil
	case count == threshold:
		return l.lockPassword(ctx, key, count, counter.ExpireAlways)
	default:
		return l.lockPassword(ctx, key, count, counter.ExpireIfNoTTL)
	}
}

func (l *LoginLimiter) lockPassword(ctx context.Context, key string, count int64, mode counter.ExpireMode) (Decision, error) {
	if _, err := l.store.Expire(ctx, key, l.config.PasswordLockout, mode); err != nil {
		return Decision{}, err
	}

	retry := l.config.PasswordLockout
	if mode != counter.ExpireAlways {
		var err error
		retry, err = lockRemaining(ctx, l.store, key, l.config.PasswordLockout)
		if err != nil {
			return Decision{}, err
		}
	}
	return Decision{Count: count, Outcome: Locked, RetryAfter: retry}, nil
}

// Reset clears both login counters after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, ip, username string) error {
	return l.store.Delete(ctx, l.keys.LoginPassword(ip, username), l.keys.LoginIP(ip))
}
