package httpapi

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrEthical07/credguard"
)

// Throttle is a per-instance token bucket per client IP. It sheds floods
// before they reach Redis; the engine's counters stay the source of truth
// for lockouts.
type Throttle struct {
	mu           sync.Mutex
	entries      map[string]*throttleEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	lastCleanup  time.Time
	now          func() time.Time
}

type throttleEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type ThrottleOption func(*Throttle)

func WithIdleTTL(d time.Duration) ThrottleOption {
	return func(t *Throttle) { t.idleTTL = d }
}

func withThrottleClock(now func() time.Time) ThrottleOption {
	return func(t *Throttle) { t.now = now }
}

func NewThrottle(rps float64, burst int, opts ...ThrottleOption) *Throttle {
	t := &Throttle{
		entries:      make(map[string]*throttleEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.lastCleanup = t.now()
	return t
}

// Allow takes one token from key's bucket.
func (t *Throttle) Allow(key string) bool {
	now := t.now()

	t.mu.Lock()
	if now.Sub(t.lastCleanup) >= t.cleanupEvery {
		t.cleanupLocked(now)
	}
	ent, ok := t.entries[key]
	if !ok {
		ent = &throttleEntry{lim: rate.NewLimiter(t.rps, t.burst)}
		t.entries[key] = ent
	}
	ent.lastSeen = now
	t.mu.Unlock()

	return ent.lim.AllowN(now, 1)
}

// Len reports how many client buckets are tracked.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Throttle) cleanupLocked(now time.Time) {
	cutoff := now.Add(-t.idleTTL)
	for key, ent := range t.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(t.entries, key)
		}
	}
	t.lastCleanup = now
}

// Middleware answers 429 once the client IP's bucket is empty.
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Allow(credguard.ClientIP(r.Context())) {
			w.Header().Set("Retry-After", "1")
			writeErrorBody(w, http.StatusTooManyRequests, &errorResponse{
				Error:   "throttled",
				Message: "Too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
