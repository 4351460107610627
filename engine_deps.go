package credguard

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/credguard/internal/flows"
	"github.com/MrEthical07/credguard/password"
)

func (e *Engine) flowDeps() flows.Deps {
	errs := flows.Errors{
		EngineNotReady:     ErrEngineNotReady,
		UserExists:         ErrUserExists,
		UserNotFound:       ErrUserNotFound,
		InvalidCredentials: ErrInvalidCredentials,
		RateLimited:        ErrRateLimited,
		LockedOut:          ErrLockedOut,
		ChallengeRequired:  ErrChallengeRequired,
		ChallengePending:   ErrChallengeAlreadyPending,
		InvalidChallenge:   ErrInvalidChallenge,
	}
	common := func(flow string) flows.Common {
		return flows.Common{
			ClientIPFromContext: clientIPFromContext,
			Keys:                e.keys,
			Logger:              e.logger,
			Deny:                deny,
			Unavailable: func(err error) error {
				e.metricInc(MetricInfrastructureError)
				return infrastructure(err)
			},
			IsCallerError: func(err error) bool {
				return errors.Is(err, ErrPasswordRejected)
			},
			MetricInc: func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit: e.auditEmitter(flow),
			Errors:    errs,
		}
	}
	var needsUpgrade func(string) (bool, error)
	if upgrader, ok := e.hasher.(HashUpgrader); ok {
		needsUpgrade = upgrader.NeedsUpgrade
	}
	notify := func(ctx context.Context, c flows.Challenge) {
		e.notifyChallenge(ctx, ChallengeFlow(c.Flow), c.IP, c.Username, c.Code, c.ExpiresIn)
	}

	return flows.Deps{
		Register: flows.RegisterDeps{
			Common:       common("register"),
			Gate:         e.register,
			OTP:          e.otp,
			ChallengeTTL: e.config.Register.ChallengeTTL,
			FindUser:     e.findUser,
			CreateUser:   e.createUser,
			IsDuplicate: func(err error) bool {
				return errors.Is(err, ErrUserExists)
			},
			HashPassword: e.hashPassword,
			Notify:       notify,
			Metrics: flows.RegisterMetrics{
				Success:           int(MetricRegisterSuccess),
				Duplicate:         int(MetricRegisterDuplicate),
				RateLimited:       int(MetricRegisterRateLimited),
				ChallengeIssued:   int(MetricRegisterChallengeIssued),
				ChallengeRequired: int(MetricRegisterChallengeRequired),
				ChallengeFailure:  int(MetricRegisterChallengeFailure),
			},
			Events: flows.RegisterEvents{
				Success:         auditEventRegisterSuccess,
				Duplicate:       auditEventRegisterDuplicate,
				RateLimited:     auditEventRegisterRateLimited,
				ChallengeIssued: auditEventRegisterChallengeIssued,
				ChallengeFailed: auditEventRegisterChallengeFailed,
			},
		},
		Login: flows.LoginDeps{
			Common:         common("login"),
			Limiter:        e.login,
			FindUser:       e.findUser,
			VerifyPassword: e.hasher.Verify,
			NeedsUpgrade:   needsUpgrade,
			HashPassword:   e.hashPassword,
			UpdatePassword: e.updatePassword,
			Metrics: flows.LoginMetrics{
				Success:      int(MetricLoginSuccess),
				Failure:      int(MetricLoginFailure),
				UserNotFound: int(MetricLoginUserNotFound),
				LockedOut:    int(MetricLoginLockedOut),
			},
			Events: flows.LoginEvents{
				Success:   auditEventLoginSuccess,
				Failure:   auditEventLoginFailure,
				LockedOut: auditEventLoginLockedOut,
			},
		},
		ForgotPassword: flows.ForgotPasswordDeps{
			Common:       common("forgot_password"),
			OTP:          e.otp,
			ChallengeTTL: e.config.ForgotPassword.ChallengeTTL,
			FindUser:     e.findUser,
			Notify:       notify,
			Metrics: flows.ForgotPasswordMetrics{
				Request:      int(MetricForgotPasswordRequest),
				Pending:      int(MetricForgotPasswordPending),
				UserNotFound: int(MetricForgotPasswordUserNotFound),
			},
			Events: flows.ForgotPasswordEvents{
				Request: auditEventForgotPasswordRequest,
				Pending: auditEventForgotPasswordPending,
			},
		},
		ResetPassword: flows.ResetPasswordDeps{
			Common:         common("reset_password"),
			Gate:           e.reset,
			OTP:            e.otp,
			FindUser:       e.findUser,
			HashPassword:   e.hashPassword,
			UpdatePassword: e.updatePassword,
			Metrics: flows.ResetPasswordMetrics{
				Success:      int(MetricResetPasswordSuccess),
				Failure:      int(MetricResetPasswordFailure),
				LockedOut:    int(MetricResetPasswordLockedOut),
				UserNotFound: int(MetricResetPasswordUserNotFound),
			},
			Events: flows.ResetPasswordEvents{
				Confirm:   auditEventResetPasswordConfirm,
				LockedOut: auditEventResetPasswordLockedOut,
			},
		},
	}
}

func (e *Engine) findUser(ctx context.Context, username string) (flows.UserRecord, bool, error) {
	user, err := e.directory.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return flows.UserRecord{}, false, nil
		}
		return flows.UserRecord{}, false, err
	}
	return recordFromUser(user), true, nil
}

func (e *Engine) createUser(ctx context.Context, username, passwordHash string) (flows.UserRecord, error) {
	now := e.now().UTC()
	user, err := e.directory.Insert(ctx, User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return flows.UserRecord{}, err
	}
	return recordFromUser(user), nil
}

func (e *Engine) updatePassword(ctx context.Context, userID, passwordHash string) error {
	return e.directory.UpdateByID(ctx, userID, UserUpdate{
		PasswordHash: passwordHash,
		UpdatedAt:    e.now().UTC(),
	})
}

func (e *Engine) hashPassword(plaintext string) (string, error) {
	digest, err := e.hasher.Hash(plaintext)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: %w", ErrPasswordRejected, err)
		}
		return "", err
	}
	return digest, nil
}
