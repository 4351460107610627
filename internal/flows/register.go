package flows

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/credguard/internal/limiters"
	"github.com/MrEthical07/credguard/internal/otp"
)

const flowRegister = "register"

type RegisterMetrics struct {
	Success           int
	Duplicate         int
	RateLimited       int
	ChallengeIssued   int
	ChallengeRequired int
	ChallengeFailure  int
}

type RegisterEvents struct {
	Success         string
	Duplicate       string
	RateLimited     string
	ChallengeIssued string
	ChallengeFailed string
}

type RegisterDeps struct {
	Common

	Gate         *limiters.RegisterGate
	OTP          *otp.Manager
	ChallengeTTL time.Duration

	FindUser     func(context.Context, string) (UserRecord, bool, error)
	CreateUser   func(ctx context.Context, username, passwordHash string) (UserRecord, error)
	IsDuplicate  func(error) bool
	HashPassword func(string) (string, error)
	Notify       func(context.Context, Challenge)

	Metrics RegisterMetrics
	Events  RegisterEvents
}

// RunRegister creates a user. Attempts past the per-IP threshold must carry
// the live registration challenge; one is issued when none exists yet.
func RunRegister(ctx context.Context, username, password, code string, deps RegisterDeps) (UserRecord, error) {
	normalizeRegisterDeps(&deps)

	if deps.Gate == nil || deps.OTP == nil || deps.FindUser == nil || deps.CreateUser == nil || deps.HashPassword == nil {
		return UserRecord{}, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	_, found, err := deps.FindUser(ctx, username)
	if err != nil {
		return UserRecord{}, deps.unavailable(ctx, flowRegister, ip, username, err)
	}
	if found {
		deps.MetricInc(deps.Metrics.Duplicate)
		deps.EmitAudit(ctx, deps.Events.Duplicate, false, ip, username, deps.Errors.UserExists, nil)
		return UserRecord{}, deps.Errors.UserExists
	}

	decision, err := deps.Gate.Hit(ctx, ip)
	if err != nil {
		return UserRecord{}, deps.unavailable(ctx, flowRegister, ip, username, err)
	}

	switch decision.Outcome {
	case limiters.Deny:
		deps.denied(ctx, flowRegister, ip, username, "rate_limited")
		deps.MetricInc(deps.Metrics.RateLimited)
		deps.EmitAudit(ctx, deps.Events.RateLimited, false, ip, username, deps.Errors.RateLimited, retryMetadata(decision.RetryAfter))
		return UserRecord{}, deps.Deny(deps.Errors.RateLimited, 0, decision.RetryAfter)
	case limiters.Challenge:
		if err := passRegisterChallenge(ctx, ip, username, code, deps); err != nil {
			return UserRecord{}, err
		}
	}
	challenged := decision.Outcome == limiters.Challenge

	hash, err := deps.HashPassword(password)
	if err != nil {
		return UserRecord{}, deps.unavailable(ctx, flowRegister, ip, username, err)
	}

	user, err := deps.CreateUser(ctx, username, hash)
	if err != nil {
		if deps.IsDuplicate(err) {
			deps.MetricInc(deps.Metrics.Duplicate)
			deps.EmitAudit(ctx, deps.Events.Duplicate, false, ip, username, deps.Errors.UserExists, nil)
			return UserRecord{}, deps.Errors.UserExists
		}
		return UserRecord{}, deps.unavailable(ctx, flowRegister, ip, username, err)
	}

	// The budget is refunded only once the challenged attempt stored a user.
	if challenged {
		if err := deps.Gate.Reset(ctx, ip); err != nil {
			deps.Logger.WarnContext(ctx, "register counter reset failed",
				slog.String("ip", ip),
				slog.String("username", username),
				slog.Any("error", err),
			)
		}
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, ip, username, nil, func() map[string]string {
		return map[string]string{
			"user_id": user.ID,
		}
	})
	return user, nil
}

func passRegisterChallenge(ctx context.Context, ip, username, code string, deps RegisterDeps) error {
	key := deps.Keys.RegisterChallenge(ip)

	_, live, err := deps.OTP.Peek(ctx, key)
	if err != nil {
		return deps.unavailable(ctx, flowRegister, ip, username, err)
	}
	if !live {
		issued, err := deps.OTP.Issue(ctx, key, deps.ChallengeTTL)
		switch {
		case err == nil:
			deps.MetricInc(deps.Metrics.ChallengeIssued)
			deps.EmitAudit(ctx, deps.Events.ChallengeIssued, true, ip, username, nil, nil)
			deps.Notify(ctx, Challenge{
				Flow:      flowRegister,
				IP:        ip,
				Username:  username,
				Code:      issued,
				ExpiresIn: deps.ChallengeTTL,
			})
		case errors.Is(err, otp.ErrPending):
			// issued by a concurrent attempt from the same IP
		default:
			return deps.unavailable(ctx, flowRegister, ip, username, err)
		}
	}

	if code == "" {
		deps.denied(ctx, flowRegister, ip, username, "challenge_required")
		deps.MetricInc(deps.Metrics.ChallengeRequired)
		deps.EmitAudit(ctx, deps.Events.ChallengeFailed, false, ip, username, deps.Errors.ChallengeRequired, nil)
		return deps.Deny(deps.Errors.ChallengeRequired, 0, 0)
	}

	if err := deps.OTP.Verify(ctx, key, code); err != nil {
		if errors.Is(err, otp.ErrInvalid) {
			deps.denied(ctx, flowRegister, ip, username, "invalid_challenge")
			deps.MetricInc(deps.Metrics.ChallengeFailure)
			deps.EmitAudit(ctx, deps.Events.ChallengeFailed, false, ip, username, deps.Errors.InvalidChallenge, nil)
			return deps.Deny(deps.Errors.InvalidChallenge, 0, 0)
		}
		return deps.unavailable(ctx, flowRegister, ip, username, err)
	}

	if err := deps.OTP.Invalidate(ctx, key); err != nil {
		return deps.unavailable(ctx, flowRegister, ip, username, err)
	}
	return nil
}

func normalizeRegisterDeps(deps *RegisterDeps) {
	normalizeCommon(&deps.Common)
	if deps.IsDuplicate == nil {
		deps.IsDuplicate = func(error) bool { return false }
	}
	if deps.Notify == nil {
		deps.Notify = func(context.Context, Challenge) {}
	}
}
