package credguard

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/credguard/internal"
)

// Config holds every policy the Engine enforces. Start from [DefaultConfig];
// its values reproduce the documented thresholds exactly.
type Config struct {
	// Namespace prefixes every counter and challenge key as "<ns>:". Empty
	// keeps the bare key layout.
	Namespace string

	Register       RegisterConfig
	Login          LoginConfig
	ForgotPassword ForgotPasswordConfig
	ResetPassword  ResetPasswordConfig
	Challenge      ChallengeConfig
	Audit          AuditConfig
	Metrics        MetricsConfig
}

/*
====================================
FLOW POLICIES
====================================
*/

// RegisterConfig is the per-IP registration policy.
type RegisterConfig struct {
	// Threshold is how many attempts one IP may make before a challenge is required.
	Threshold int
	// Window expires the attempt counter after its first hit. Zero means the
	// counter only clears after a successful challenge.
	Window time.Duration
	// HardDeny rejects attempts past Threshold with ErrRateLimited instead of
	// challenging them.
	HardDeny bool
	// ChallengeTTL bounds how long an issued registration code stays live.
	ChallengeTTL time.Duration
}

// LoginConfig holds the per-IP attempt budget and the per-IP+username
// password lockout.
type LoginConfig struct {
	IPThreshold int
	IPWindow    time.Duration
	IPLockout   time.Duration

	PasswordThreshold int
	PasswordWindow    time.Duration
	PasswordLockout   time.Duration
}

type ForgotPasswordConfig struct {
	// ChallengeTTL is both the code validity and the re-request block.
	ChallengeTTL time.Duration
}

type ResetPasswordConfig struct {
	Threshold int
	Lockout   time.Duration
}

// ChallengeConfig shapes generated one-time codes.
type ChallengeConfig struct {
	Length   int
	Alphabet string
}

/*
====================================
OBSERVABILITY
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the standard policy set.
func DefaultConfig() Config {
	return Config{
		Register: RegisterConfig{
			Threshold:    3,
			Window:       0,
			ChallengeTTL: 5 * time.Minute,
		},
		Login: LoginConfig{
			IPThreshold:       20,
			IPWindow:          time.Minute,
			IPLockout:         time.Hour,
			PasswordThreshold: 3,
			PasswordWindow:    time.Minute,
			PasswordLockout:   5 * time.Minute,
		},
		ForgotPassword: ForgotPasswordConfig{
			ChallengeTTL: 5 * time.Minute,
		},
		ResetPassword: ResetPasswordConfig{
			Threshold: 3,
			Lockout:   5 * time.Minute,
		},
		Challenge: ChallengeConfig{
			Length:   6,
			Alphabet: internal.ChallengeAlphabet,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// Validate reports the first policy value the Engine cannot enforce.
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Namespace, " \t\r\n") {
		return errors.New("Namespace must not contain whitespace")
	}

	// Register
	if c.Register.Threshold <= 0 {
		return errors.New("Register Threshold must be > 0")
	}
	if c.Register.Window < 0 {
		return errors.New("Register Window must be >= 0")
	}
	if c.Register.ChallengeTTL <= 0 {
		return errors.New("Register ChallengeTTL must be > 0")
	}

	// Login
	if c.Login.IPThreshold <= 0 || c.Login.PasswordThreshold <= 0 {
		return errors.New("Login thresholds must be > 0")
	}
	if c.Login.IPWindow <= 0 || c.Login.PasswordWindow <= 0 {
		return errors.New("Login windows must be > 0")
	}
	if c.Login.IPLockout <= 0 || c.Login.PasswordLockout <= 0 {
		return errors.New("Login lockouts must be > 0")
	}
	if c.Login.PasswordLockout < c.Login.PasswordWindow {
		return errors.New("Login PasswordLockout must be >= PasswordWindow")
	}

	// Forgot / reset password
	if c.ForgotPassword.ChallengeTTL <= 0 {
		return errors.New("ForgotPassword ChallengeTTL must be > 0")
	}
	if c.ResetPassword.Threshold <= 0 {
		return errors.New("ResetPassword Threshold must be > 0")
	}
	if c.ResetPassword.Lockout <= 0 {
		return errors.New("ResetPassword Lockout must be > 0")
	}

	// Challenge codes
	if c.Challenge.Length <= 0 || c.Challenge.Length > 64 {
		return errors.New("Challenge Length must be in [1,64]")
	}
	if len(c.Challenge.Alphabet) < 2 {
		return errors.New("Challenge Alphabet must have at least 2 symbols")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	return nil
}
