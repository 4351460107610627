package credguard

import (
	"context"
	"time"
)

const (
	auditEventRegisterSuccess         = "register_success"
	auditEventRegisterDuplicate       = "register_duplicate"
	auditEventRegisterRateLimited     = "register_rate_limited"
	auditEventRegisterChallengeIssued = "register_challenge_issued"
	auditEventRegisterChallengeFailed = "register_challenge_failed"
	auditEventLoginSuccess            = "login_success"
	auditEventLoginFailure            = "login_failure"
	auditEventLoginLockedOut          = "login_locked_out"
	auditEventForgotPasswordRequest   = "forgot_password_request"
	auditEventForgotPasswordPending   = "forgot_password_pending"
	auditEventResetPasswordConfirm    = "reset_password_confirm"
	auditEventResetPasswordLockedOut  = "reset_password_locked_out"
)

// auditEmitter returns the flow-scoped emit function handed to internal flows.
func (e *Engine) auditEmitter(flow string) func(context.Context, string, bool, string, string, error, func() map[string]string) {
	return func(ctx context.Context, eventType string, success bool, ip, username string, err error, metadata func() map[string]string) {
		e.emitAudit(ctx, flow, eventType, success, ip, username, err, metadata)
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	flow string,
	eventType string,
	success bool,
	ip string,
	username string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	e.audit.Emit(ctx, AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Flow:      flow,
		Username:  username,
		IP:        ip,
		Success:   success,
		Error:     ErrorCode(err),
		Metadata:  metadata,
	})
}

func (e *Engine) notifyChallenge(ctx context.Context, flow ChallengeFlow, ip, username, code string, ttl time.Duration) {
	if e.notifier == nil {
		return
	}
	err := e.notifier.NotifyChallenge(ctx, Challenge{
		Flow:      flow,
		IP:        ip,
		Username:  username,
		Code:      code,
		ExpiresIn: ttl,
		IssuedAt:  e.now().UTC(),
	})
	if err != nil {
		e.logger.WarnContext(ctx, "challenge hand-off failed",
			"flow", string(flow),
			"ip", ip,
			"username", username,
			"error", err,
		)
	}
}
