package credguard

import (
	"fmt"
	"log/slog"
	"math"
	"time"
)

// SecurityReport summarizes the effective abuse-mitigation posture of an
// Engine. Hosts log it at startup.
type SecurityReport struct {
	Namespace string

	RegisterThreshold int
	RegisterWindow    time.Duration
	// RegisterCounterPermanent is true when the registration counter never
	// expires, so an IP stays challenge-gated once past the threshold.
	RegisterCounterPermanent bool
	RegisterHardDeny         bool

	LoginIPThreshold       int
	LoginIPLockout         time.Duration
	LoginPasswordThreshold int
	LoginPasswordLockout   time.Duration

	ResetThreshold int
	ResetLockout   time.Duration

	ChallengeLength      int
	ChallengeEntropyBits float64

	Hasher             string
	NotifierConfigured bool
	AuditEnabled       bool
	MetricsEnabled     bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	return SecurityReport{
		Namespace:                cfg.Namespace,
		RegisterThreshold:        cfg.Register.Threshold,
		RegisterWindow:           cfg.Register.Window,
		RegisterCounterPermanent: cfg.Register.Window == 0,
		RegisterHardDeny:         cfg.Register.HardDeny,
		LoginIPThreshold:         cfg.Login.IPThreshold,
		LoginIPLockout:           cfg.Login.IPLockout,
		LoginPasswordThreshold:   cfg.Login.PasswordThreshold,
		LoginPasswordLockout:     cfg.Login.PasswordLockout,
		ResetThreshold:           cfg.ResetPassword.Threshold,
		ResetLockout:             cfg.ResetPassword.Lockout,
		ChallengeLength:          cfg.Challenge.Length,
		ChallengeEntropyBits:     float64(cfg.Challenge.Length) * math.Log2(float64(len(cfg.Challenge.Alphabet))),
		Hasher:                   fmt.Sprintf("%T", e.hasher),
		NotifierConfigured:       e.notifier != nil,
		AuditEnabled:             cfg.Audit.Enabled,
		MetricsEnabled:           cfg.Metrics.Enabled,
	}
}

// LogValue groups the report for slog.
func (r SecurityReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("namespace", r.Namespace),
		slog.Int("register_threshold", r.RegisterThreshold),
		slog.Bool("register_counter_permanent", r.RegisterCounterPermanent),
		slog.Bool("register_hard_deny", r.RegisterHardDeny),
		slog.Int("login_ip_threshold", r.LoginIPThreshold),
		slog.Duration("login_ip_lockout", r.LoginIPLockout),
		slog.Int("login_password_threshold", r.LoginPasswordThreshold),
		slog.Duration("login_password_lockout", r.LoginPasswordLockout),
		slog.Int("reset_threshold", r.ResetThreshold),
		slog.Duration("reset_lockout", r.ResetLockout),
		slog.Float64("challenge_entropy_bits", r.ChallengeEntropyBits),
		slog.String("hasher", r.Hasher),
		slog.Bool("notifier", r.NotifierConfigured),
		slog.Bool("audit", r.AuditEnabled),
		slog.Bool("metrics", r.MetricsEnabled),
	)
}
