package flows

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/credguard/internal/limiters"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Register       RegisterDeps
	Login          LoginDeps
	ForgotPassword ForgotPasswordDeps
	ResetPassword  ResetPasswordDeps
}

// UserRecord is the flow-local user model.
type UserRecord struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Challenge describes a freshly issued one-time code handed to a notifier.
type Challenge struct {
	Flow      string
	IP        string
	Username  string
	Code      string
	ExpiresIn time.Duration
}

// Errors carries the root error kinds so flows can return them without
// importing the root package.
type Errors struct {
	EngineNotReady     error
	UserExists         error
	UserNotFound       error
	InvalidCredentials error
	RateLimited        error
	LockedOut          error
	ChallengeRequired  error
	ChallengePending   error
	InvalidChallenge   error
}

// Common holds the dependencies every flow shares.
type Common struct {
	ClientIPFromContext func(context.Context) string
	Keys                limiters.Keys
	Logger              *slog.Logger

	// Deny builds the caller-facing error for a policy denial.
	Deny func(kind error, remaining int, retryAfter time.Duration) error
	// Unavailable wraps a store or directory failure.
	Unavailable func(error) error
	// IsCallerError marks dependency errors caused by the input, returned as is.
	IsCallerError func(error) bool

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, ip, username string, err error, metadata func() map[string]string)

	Errors Errors
}

func normalizeCommon(c *Common) {
	if c.ClientIPFromContext == nil {
		c.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.Deny == nil {
		c.Deny = func(kind error, _ int, _ time.Duration) error { return kind }
	}
	if c.Unavailable == nil {
		c.Unavailable = func(err error) error { return err }
	}
	if c.IsCallerError == nil {
		c.IsCallerError = func(error) bool { return false }
	}
	if c.MetricInc == nil {
		c.MetricInc = func(int) {}
	}
	if c.EmitAudit == nil {
		c.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
}

func (c Common) unavailable(ctx context.Context, flow, ip, username string, err error) error {
	if c.IsCallerError(err) {
		c.denied(ctx, flow, ip, username, "caller_error")
		return err
	}
	c.Logger.ErrorContext(ctx, "credential flow dependency failed",
		slog.String("flow", flow),
		slog.String("ip", ip),
		slog.String("username", username),
		slog.Any("error", err),
	)
	return c.Unavailable(err)
}

func (c Common) denied(ctx context.Context, flow, ip, username, reason string) {
	c.Logger.DebugContext(ctx, "credential flow denied",
		slog.String("flow", flow),
		slog.String("ip", ip),
		slog.String("username", username),
		slog.String("reason", reason),
	)
}

func retryMetadata(retry time.Duration) func() map[string]string {
	return func() map[string]string {
		return map[string]string{
			"retry_after": retry.Round(time.Second).String(),
		}
	}
}
