package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/credguard/internal/limiters"
	"github.com/MrEthical07/credguard/internal/otp"
)

const (
	flowForgotPassword = "forgot_password"
	flowResetPassword  = "reset_password"
)

type ForgotPasswordMetrics struct {
	Request      int
	Pending      int
	UserNotFound int
}

type ForgotPasswordEvents struct {
	Request string
	Pending string
}

type ForgotPasswordDeps struct {
	Common

	OTP          *otp.Manager
	ChallengeTTL time.Duration

	FindUser func(context.Context, string) (UserRecord, bool, error)
	Notify   func(context.Context, Challenge)

	Metrics ForgotPasswordMetrics
	Events  ForgotPasswordEvents
}

// RunForgotPassword issues the reset challenge for ip+username. The live
// challenge itself blocks a second request until it expires or is used.
func RunForgotPassword(ctx context.Context, username string, deps ForgotPasswordDeps) error {
	normalizeCommon(&deps.Common)
	if deps.Notify == nil {
		deps.Notify = func(context.Context, Challenge) {}
	}

	if deps.OTP == nil || deps.FindUser == nil {
		return deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	_, found, err := deps.FindUser(ctx, username)
	if err != nil {
		return deps.unavailable(ctx, flowForgotPassword, ip, username, err)
	}
	if !found {
		deps.denied(ctx, flowForgotPassword, ip, username, "user_not_found")
		deps.MetricInc(deps.Metrics.UserNotFound)
		deps.EmitAudit(ctx, deps.Events.Request, false, ip, username, deps.Errors.UserNotFound, nil)
		return deps.Errors.UserNotFound
	}

	key := deps.Keys.ForgotChallenge(ip, username)
	code, err := deps.OTP.Issue(ctx, key, deps.ChallengeTTL)
	if err != nil {
		if !errors.Is(err, otp.ErrPending) {
			return deps.unavailable(ctx, flowForgotPassword, ip, username, err)
		}

		retry, err := deps.OTP.Remaining(ctx, key)
		if err != nil {
			return deps.unavailable(ctx, flowForgotPassword, ip, username, err)
		}
		if retry < 0 {
			retry = 0
		}
		deps.denied(ctx, flowForgotPassword, ip, username, "challenge_pending")
		deps.MetricInc(deps.Metrics.Pending)
		deps.EmitAudit(ctx, deps.Events.Pending, false, ip, username, deps.Errors.ChallengePending, retryMetadata(retry))
		return deps.Deny(deps.Errors.ChallengePending, 0, retry)
	}

	deps.Notify(ctx, Challenge{
		Flow:      flowForgotPassword,
		IP:        ip,
		Username:  username,
		Code:      code,
		ExpiresIn: deps.ChallengeTTL,
	})
	deps.MetricInc(deps.Metrics.Request)
	deps.EmitAudit(ctx, deps.Events.Request, true, ip, username, nil, nil)
	return nil
}

type ResetPasswordMetrics struct {
	Success      int
	Failure      int
	LockedOut    int
	UserNotFound int
}

type ResetPasswordEvents struct {
	Confirm   string
	LockedOut string
}

type ResetPasswordDeps struct {
	Common

	Gate *limiters.ResetGate
	OTP  *otp.Manager

	FindUser       func(context.Context, string) (UserRecord, bool, error)
	HashPassword   func(string) (string, error)
	UpdatePassword func(ctx context.Context, userID, passwordHash string) error

	Metrics ResetPasswordMetrics
	Events  ResetPasswordEvents
}

// RunResetPassword replaces the password of username when code matches the
// live reset challenge. The per-IP attempt counter is evaluated first, so a
// locked IP learns nothing about the code.
func RunResetPassword(ctx context.Context, username, newPassword, code string, deps ResetPasswordDeps) error {
	normalizeCommon(&deps.Common)

	if deps.Gate == nil || deps.OTP == nil || deps.FindUser == nil || deps.HashPassword == nil || deps.UpdatePassword == nil {
		return deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	decision, err := deps.Gate.Hit(ctx, ip)
	if err != nil {
		return deps.unavailable(ctx, flowResetPassword, ip, username, err)
	}
	if decision.Outcome == limiters.Locked {
		deps.denied(ctx, flowResetPassword, ip, username, "locked")
		deps.MetricInc(deps.Metrics.LockedOut)
		deps.EmitAudit(ctx, deps.Events.LockedOut, false, ip, username, deps.Errors.LockedOut, retryMetadata(decision.RetryAfter))
		return deps.Deny(deps.Errors.LockedOut, 0, decision.RetryAfter)
	}

	user, found, err := deps.FindUser(ctx, username)
	if err != nil {
		return deps.unavailable(ctx, flowResetPassword, ip, username, err)
	}
	if !found {
		deps.denied(ctx, flowResetPassword, ip, username, "user_not_found")
		deps.MetricInc(deps.Metrics.UserNotFound)
		deps.EmitAudit(ctx, deps.Events.Confirm, false, ip, username, deps.Errors.UserNotFound, nil)
		return deps.Errors.UserNotFound
	}

	key := deps.Keys.ForgotChallenge(ip, username)
	if err := deps.OTP.Verify(ctx, key, code); err != nil {
		if errors.Is(err, otp.ErrInvalid) {
			deps.denied(ctx, flowResetPassword, ip, username, "invalid_challenge")
			deps.MetricInc(deps.Metrics.Failure)
			deps.EmitAudit(ctx, deps.Events.Confirm, false, ip, username, deps.Errors.InvalidChallenge, nil)
			return deps.Deny(deps.Errors.InvalidChallenge, decision.Remaining, 0)
		}
		return deps.unavailable(ctx, flowResetPassword, ip, username, err)
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return deps.unavailable(ctx, flowResetPassword, ip, username, err)
	}
	if err := deps.UpdatePassword(ctx, user.ID, hash); err != nil {
		return deps.unavailable(ctx, flowResetPassword, ip, username, err)
	}

	if err := deps.OTP.Invalidate(ctx, key); err != nil {
		return deps.unavailable(ctx, flowResetPassword, ip, username, err)
	}
	if err := deps.Gate.Reset(ctx, ip); err != nil {
		return deps.unavailable(ctx, flowResetPassword, ip, username, err)
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Confirm, true, ip, username, nil, func() map[string]string {
		return map[string]string{
			"user_id": user.ID,
		}
	})
	return nil
}
