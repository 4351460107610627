package credguard

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUserExists is returned by Register when the username is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when a flow names an unknown username.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is a wrong password below the lockout threshold.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRateLimited is a threshold denial without a time-boxed lock.
	ErrRateLimited = errors.New("rate limited")
	// ErrLockedOut is an active time-boxed lock.
	ErrLockedOut = errors.New("locked out")
	// ErrChallengeRequired means a one-time code is needed but none was supplied.
	ErrChallengeRequired = errors.New("challenge required")
	// ErrChallengeAlreadyPending rejects a new challenge while one is live.
	ErrChallengeAlreadyPending = errors.New("challenge already pending")
	// ErrInvalidChallenge is a wrong, missing, or already used one-time code.
	ErrInvalidChallenge = errors.New("invalid challenge")
	// ErrPasswordRejected means the hasher refused the password (for example over its length limit).
	ErrPasswordRejected = errors.New("password rejected")
	// ErrInfrastructure wraps counter store or user directory failures.
	ErrInfrastructure = errors.New("infrastructure unavailable")
	// ErrEngineNotReady is returned by a zero Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// DenialError is a policy denial. It unwraps to its Kind, so errors.Is works
// against the sentinel, and carries the remaining-attempt count or the
// remaining lock duration when the flow knows them.
type DenialError struct {
	Kind       error
	Remaining  int
	RetryAfter time.Duration
}

func (e *DenialError) Error() string {
	switch {
	case e.Remaining > 0:
		return fmt.Sprintf("%v: %d attempts remaining", e.Kind, e.Remaining)
	case e.RetryAfter > 0:
		return fmt.Sprintf("%v: retry after %s", e.Kind, e.RetryAfter.Round(time.Second))
	default:
		return e.Kind.Error()
	}
}

func (e *DenialError) Unwrap() error {
	return e.Kind
}

func deny(kind error, remaining int, retryAfter time.Duration) error {
	if remaining <= 0 && retryAfter <= 0 {
		return &DenialError{Kind: kind}
	}
	return &DenialError{Kind: kind, Remaining: remaining, RetryAfter: retryAfter}
}

func infrastructure(cause error) error {
	return fmt.Errorf("%w: %w", ErrInfrastructure, cause)
}

// RemainingAttempts reports the attempts left before a lock, if err carries them.
func RemainingAttempts(err error) (int, bool) {
	var denial *DenialError
	if errors.As(err, &denial) && denial.Remaining > 0 {
		return denial.Remaining, true
	}
	return 0, false
}

// RetryAfter reports how long until a lock or pending challenge lapses, if err carries it.
func RetryAfter(err error) (time.Duration, bool) {
	var denial *DenialError
	if errors.As(err, &denial) && denial.RetryAfter > 0 {
		return denial.RetryAfter, true
	}
	return 0, false
}

// ErrorCode maps err to a stable snake_case code for audit records and API bodies.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUserExists):
		return "user_exists"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrLockedOut):
		return "locked_out"
	case errors.Is(err, ErrChallengeRequired):
		return "challenge_required"
	case errors.Is(err, ErrChallengeAlreadyPending):
		return "challenge_pending"
	case errors.Is(err, ErrInvalidChallenge):
		return "invalid_challenge"
	case errors.Is(err, ErrPasswordRejected):
		return "password_rejected"
	case errors.Is(err, ErrEngineNotReady):
		return "engine_not_ready"
	case errors.Is(err, ErrInfrastructure):
		return "infrastructure"
	default:
		return "internal"
	}
}
