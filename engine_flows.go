package credguard

import (
	"context"
)

// Register creates username once the per-IP registration policy allows it.
// Past the threshold the call fails with [ErrChallengeRequired] until it
// carries the live code for the caller IP; a wrong code fails with
// [ErrInvalidChallenge]. The returned User includes the stored hash.
func (e *Engine) Register(ctx context.Context, username, password, otp string) (User, error) {
	if !e.ready() {
		return User{}, ErrEngineNotReady
	}

	var user User
	err := e.observe(ctx, "register", func(ctx context.Context) error {
		record, err := e.flows.Register(ctx, username, password, otp)
		if err != nil {
			return err
		}
		user = userFromRecord(record)
		return nil
	})
	return user, err
}

// Login checks username/password. Wrong passwords fail with
// [ErrInvalidCredentials] carrying the attempts left; the failure that
// reaches the threshold, and every attempt while locked, fails with
// [ErrLockedOut] carrying the remaining lock.
func (e *Engine) Login(ctx context.Context, username, password string) (User, error) {
	if !e.ready() {
		return User{}, ErrEngineNotReady
	}

	var user User
	err := e.observe(ctx, "login", func(ctx context.Context) error {
		record, err := e.flows.Login(ctx, username, password)
		if err != nil {
			return err
		}
		user = userFromRecord(record)
		return nil
	})
	return user, err
}

// ForgotPassword issues a reset code for username in the caller IP scope and
// hands it to the configured notifier. While a code is live, further calls
// fail with [ErrChallengeAlreadyPending].
func (e *Engine) ForgotPassword(ctx context.Context, username string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.observe(ctx, "forgot_password", func(ctx context.Context) error {
		return e.flows.ForgotPassword(ctx, username)
	})
}

// ResetPassword sets a new password when otp matches the live reset code.
// The per-IP attempt counter is checked before the code, so a locked IP gets
// [ErrLockedOut] even with the right code.
func (e *Engine) ResetPassword(ctx context.Context, username, newPassword, otp string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.observe(ctx, "reset_password", func(ctx context.Context) error {
		return e.flows.ResetPassword(ctx, username, newPassword, otp)
	})
}
