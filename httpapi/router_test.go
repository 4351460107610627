package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/MrEthical07/credguard"
)

func TestResolveClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		xff        string
		trustProxy bool
		want       string
	}{
		{"remote addr", "10.0.0.1:4321", "", false, "10.0.0.1"},
		{"xff ignored when untrusted", "10.0.0.1:4321", "203.0.113.7", false, "10.0.0.1"},
		{"xff first entry when trusted", "10.0.0.1:4321", "203.0.113.7, 10.0.0.2", true, "203.0.113.7"},
		{"trusted without xff", "10.0.0.1:4321", "", true, "10.0.0.1"},
		{"blank xff entry", "10.0.0.1:4321", " ,10.0.0.2", true, "10.0.0.1"},
		{"ipv6 remote", "[2001:db8::1]:443", "", false, "2001:db8::1"},
		{"remote without port", "10.0.0.9", "", false, "10.0.0.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, resolveClientIP(req, tt.trustProxy))
		})
	}
}

func TestClientIPMiddlewareAttachesIP(t *testing.T) {
	var got string
	h := ClientIP(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = credguard.ClientIP(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.4")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "198.51.100.4", got)
}

func TestRequestIDKeepsCallerValue(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = chimw.GetReqID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", got)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestThrottlePerClient(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	th := NewThrottle(1, 2, withThrottleClock(func() time.Time { return now }))

	assert.True(t, th.Allow("a"))
	assert.True(t, th.Allow("a"))
	assert.False(t, th.Allow("a"), "burst exhausted")
	assert.True(t, th.Allow("b"), "other client has its own bucket")

	now = now.Add(time.Second)
	assert.True(t, th.Allow("a"), "one token refilled")
}

func TestThrottleEvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	th := NewThrottle(1, 1, WithIdleTTL(time.Minute), withThrottleClock(func() time.Time { return now }))

	th.Allow("a")
	th.Allow("b")
	assert.Equal(t, 2, th.Len())

	now = now.Add(5 * time.Minute)
	th.Allow("c")
	assert.Equal(t, 1, th.Len())
}

func TestThrottleMiddleware(t *testing.T) {
	th := NewThrottle(0.001, 1)
	h := ClientIP(false)(th.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}
