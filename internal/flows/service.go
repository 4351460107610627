package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.Limiter != nil
}

func (s Service) Register(ctx context.Context, username, password, code string) (UserRecord, error) {
	return RunRegister(ctx, username, password, code, s.deps.Register)
}

func (s Service) Login(ctx context.Context, username, password string) (UserRecord, error) {
	return RunLogin(ctx, username, password, s.deps.Login)
}

func (s Service) ForgotPassword(ctx context.Context, username string) error {
	return RunForgotPassword(ctx, username, s.deps.ForgotPassword)
}

func (s Service) ResetPassword(ctx context.Context, username, newPassword, code string) error {
	return RunResetPassword(ctx, username, newPassword, code, s.deps.ResetPassword)
}
