package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/credguard"
)

type userView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// newUserView drops the password hash.
func newUserView(u credguard.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	Message string   `json:"message"`
	User    userView `json:"user"`
}

type loginResponse struct {
	Message     string   `json:"message"`
	User        userView `json:"user"`
	AccessToken string   `json:"access_token,omitempty"`
	TokenType   string   `json:"token_type,omitempty"`
	ExpiresIn   int64    `json:"expires_in,omitempty"`
}

type meResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

type errorResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
	RetryAfterSeconds *int64 `json:"retry_after_seconds,omitempty"`
}

var errorMessages = map[string]string{
	"user_exists":         "User already exists",
	"user_not_found":      "User not found",
	"invalid_credentials": "Invalid username or password",
	"rate_limited":        "Too many attempts",
	"locked_out":          "Too many attempts, temporarily locked",
	"challenge_required":  "OTP required",
	"challenge_pending":   "An OTP was already sent",
	"invalid_challenge":   "Invalid OTP",
	"password_rejected":   "Password rejected",
	"engine_not_ready":    "Service unavailable",
	"infrastructure":      "Service unavailable",
	"internal":            "Internal error",
}

// statusFor maps an engine error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, credguard.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, credguard.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, credguard.ErrInvalidCredentials),
		errors.Is(err, credguard.ErrInvalidChallenge):
		return http.StatusUnauthorized
	case errors.Is(err, credguard.ErrChallengeRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, credguard.ErrChallengeAlreadyPending),
		errors.Is(err, credguard.ErrRateLimited),
		errors.Is(err, credguard.ErrLockedOut):
		return http.StatusTooManyRequests
	case errors.Is(err, credguard.ErrPasswordRejected):
		return http.StatusBadRequest
	case errors.Is(err, credguard.ErrInfrastructure),
		errors.Is(err, credguard.ErrEngineNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, flow, username string, err error) {
	ctx := r.Context()
	status := statusFor(err)
	code := credguard.ErrorCode(err)

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "flow failed",
			"flow", flow,
			"username", username,
			"error", err,
			"request_id", requestIDFrom(ctx),
		)
	} else {
		h.logger.DebugContext(ctx, "flow denied",
			"flow", flow,
			"username", username,
			"code", code,
			"request_id", requestIDFrom(ctx),
			clientAttrs(r),
		)
	}

	body := &errorResponse{
		Error:   code,
		Message: errorMessages[code],
	}
	if left, ok := credguard.RemainingAttempts(err); ok {
		body.RemainingAttempts = &left
	}
	if d, ok := credguard.RetryAfter(err); ok {
		secs := retryAfterSeconds(d)
		body.RetryAfterSeconds = &secs
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeErrorBody(w, status, body)
}

func (h *Handler) writeValidation(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.DebugContext(r.Context(), "request validation failed",
		"error", err,
		"path", r.URL.Path,
		"request_id", requestIDFrom(r.Context()),
	)
	writeErrorBody(w, http.StatusBadRequest, &errorResponse{
		Error:   "validation_failed",
		Message: err.Error(),
	})
}

func retryAfterSeconds(d time.Duration) int64 {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func writeErrorBody(w http.ResponseWriter, status int, body *errorResponse) {
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
