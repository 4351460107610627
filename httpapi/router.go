package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MrEthical07/credguard"
	"github.com/MrEthical07/credguard/middleware"
)

// RouterConfig selects the optional gateway layers.
type RouterConfig struct {
	// TrustProxy takes the client IP from the first X-Forwarded-For entry.
	// Leave it off unless a proxy in front rewrites that header.
	TrustProxy bool
	// Throttle, when set, caps request rate per client IP before any engine call.
	Throttle *Throttle
	// TokenParser enables GET /api/auth/me.
	TokenParser middleware.TokenParser
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimw.Recoverer)
	r.Use(ClientIP(cfg.TrustProxy))
	if cfg.Throttle != nil {
		r.Use(cfg.Throttle.Middleware)
	}

	h.RegisterRoutes(r)
	if cfg.TokenParser != nil {
		r.With(middleware.Guard(cfg.TokenParser)).Get("/api/auth/me", h.HandleMe)
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, &messageResponse{Message: "ok"})
	})
	return r
}

const requestIDHeader = "X-Request-ID"

// RequestID keeps a caller-supplied X-Request-ID or assigns a UUID, and
// exposes it through chi's middleware.GetReqID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), chimw.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// ClientIP resolves the caller IP and attaches it with credguard.WithClientIP.
func ClientIP(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := credguard.WithClientIP(r.Context(), resolveClientIP(r, trustProxy))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
