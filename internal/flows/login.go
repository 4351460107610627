package flows

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/credguard/internal/limiters"
)

const flowLogin = "login"

type LoginMetrics struct {
	Success      int
	Failure      int
	UserNotFound int
	LockedOut    int
}

type LoginEvents struct {
	Success   string
	Failure   string
	LockedOut string
}

type LoginDeps struct {
	Common

	Limiter *limiters.LoginLimiter

	FindUser       func(context.Context, string) (UserRecord, bool, error)
	VerifyPassword func(password, hash string) (bool, error)

	// NeedsUpgrade is optional. When it reports true for a matching password
	// the password is re-hashed and stored through UpdatePassword.
	NeedsUpgrade   func(hash string) (bool, error)
	HashPassword   func(string) (string, error)
	UpdatePassword func(ctx context.Context, userID, hash string) error

	Metrics LoginMetrics
	Events  LoginEvents
}

// RunLogin checks a username/password pair behind the per-IP budget and the
// per-IP+username password lockout. A locked scope is denied before the
// password is compared.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) (UserRecord, error) {
	normalizeCommon(&deps.Common)

	if deps.Limiter == nil || deps.FindUser == nil || deps.VerifyPassword == nil {
		return UserRecord{}, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	decision, err := deps.Limiter.HitIP(ctx, ip)
	if err != nil {
		return UserRecord{}, deps.unavailable(ctx, flowLogin, ip, username, err)
	}
	if decision.Outcome == limiters.Locked {
		return UserRecord{}, loginLocked(ctx, ip, username, "ip_locked", decision, deps)
	}

	decision, err = deps.Limiter.CheckPassword(ctx, ip, username)
	if err != nil {
		return UserRecord{}, deps.unavailable(ctx, flowLogin, ip, username, err)
	}
	if decision.Outcome == limiters.Locked {
		return UserRecord{}, loginLocked(ctx, ip, username, "password_locked", decision, deps)
	}

	user, found, err := deps.FindUser(ctx, username)
	if err != nil {
		return UserRecord{}, deps.unavailable(ctx, flowLogin, ip, username, err)
	}
	if !found {
		deps.denied(ctx, flowLogin, ip, username, "user_not_found")
		deps.MetricInc(deps.Metrics.UserNotFound)
		deps.EmitAudit(ctx, deps.Events.Failure, false, ip, username, deps.Errors.UserNotFound, nil)
		return UserRecord{}, deps.Errors.UserNotFound
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return UserRecord{}, deps.unavailable(ctx, flowLogin, ip, username, err)
	}
	if !ok {
		decision, err := deps.Limiter.RecordPasswordFailure(ctx, ip, username)
		if err != nil {
			return UserRecord{}, deps.unavailable(ctx, flowLogin, ip, username, err)
		}
		if decision.Outcome == limiters.Locked {
			return UserRecord{}, loginLocked(ctx, ip, username, "password_locked", decision, deps)
		}

		deps.denied(ctx, flowLogin, ip, username, "invalid_credentials")
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, ip, username, deps.Errors.InvalidCredentials, nil)
		return UserRecord{}, deps.Deny(deps.Errors.InvalidCredentials, decision.Remaining, 0)
	}

	upgradeHash(ctx, &user, password, deps)

	if err := deps.Limiter.Reset(ctx, ip, username); err != nil {
		return UserRecord{}, deps.unavailable(ctx, flowLogin, ip, username, err)
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, ip, username, nil, func() map[string]string {
		return map[string]string{
			"user_id": user.ID,
		}
	})
	return user, nil
}

// upgradeHash re-hashes a verified password stored with weaker parameters.
// Failures are logged and leave the stored digest in place.
func upgradeHash(ctx context.Context, user *UserRecord, password string, deps LoginDeps) {
	if deps.NeedsUpgrade == nil || deps.HashPassword == nil || deps.UpdatePassword == nil {
		return
	}
	needed, err := deps.NeedsUpgrade(user.PasswordHash)
	if err == nil && !needed {
		return
	}
	if err == nil {
		var digest string
		digest, err = deps.HashPassword(password)
		if err == nil {
			err = deps.UpdatePassword(ctx, user.ID, digest)
		}
		if err == nil {
			user.PasswordHash = digest
			return
		}
	}
	deps.Logger.WarnContext(ctx, "password hash upgrade failed",
		slog.String("flow", flowLogin),
		slog.String("username", user.Username),
		slog.Any("error", err),
	)
}

func loginLocked(ctx context.Context, ip, username, reason string, decision limiters.Decision, deps LoginDeps) error {
	deps.denied(ctx, flowLogin, ip, username, reason)
	deps.MetricInc(deps.Metrics.LockedOut)
	deps.EmitAudit(ctx, deps.Events.LockedOut, false, ip, username, deps.Errors.LockedOut, func() map[string]string {
		return map[string]string{
			"reason":      reason,
			"retry_after": decision.RetryAfter.String(),
		}
	})
	return deps.Deny(deps.Errors.LockedOut, 0, decision.RetryAfter)
}
