package credguard

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/credguard/internal/audit"
	"github.com/MrEthical07/credguard/internal/counter"
	"github.com/MrEthical07/credguard/internal/flows"
	"github.com/MrEthical07/credguard/internal/limiters"
	"github.com/MrEthical07/credguard/internal/otp"
	"github.com/MrEthical07/credguard/password"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory UserDirectory
	hasher    Hasher
	notifier  ChallengeNotifier
	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the shared counter and challenge store. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserDirectory sets the user store. Required.
func (b *Builder) WithUserDirectory(directory UserDirectory) *Builder {
	b.directory = directory
	return b
}

// WithHasher overrides the default bcrypt hasher.
func (b *Builder) WithHasher(hasher Hasher) *Builder {
	b.hasher = hasher
	return b
}

// WithChallengeNotifier sets where issued codes are handed for delivery.
func (b *Builder) WithChallengeNotifier(notifier ChallengeNotifier) *Builder {
	b.notifier = notifier
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the operational logger. Defaults to a discarding logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the time source used for record timestamps and latency.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	hasher := b.hasher
	if hasher == nil {
		bc, err := password.NewBcrypt(password.DefaultBcryptCost)
		if err != nil {
			return nil, err
		}
		hasher = bc
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- COUNTERS AND POLICIES --------
	store := counter.NewRedisStore(b.redis)
	keys := limiters.NewKeys(cfg.Namespace)

	engine := &Engine{
		config:    cfg,
		keys:      keys,
		directory: b.directory,
		hasher:    hasher,
		notifier:  b.notifier,
		logger:    logger,
		tracer:    newTracer(),
		now:       now,
	}

	engine.register = limiters.NewRegisterGate(store, keys, limiters.RegisterConfig{
		Threshold: cfg.Register.Threshold,
		Window:    cfg.Register.Window,
		HardDeny:  cfg.Register.HardDeny,
	})
	engine.login = limiters.NewLoginLimiter(store, keys, limiters.LoginConfig{
		IPThreshold:       cfg.Login.IPThreshold,
		IPWindow:          cfg.Login.IPWindow,
		IPLockout:         cfg.Login.IPLockout,
		PasswordThreshold: cfg.Login.PasswordThreshold,
		PasswordWindow:    cfg.Login.PasswordWindow,
		PasswordLockout:   cfg.Login.PasswordLockout,
	})
	engine.reset = limiters.NewResetGate(store, keys, limiters.ResetConfig{
		Threshold: cfg.ResetPassword.Threshold,
		Lockout:   cfg.ResetPassword.Lockout,
	})

	// -------- CHALLENGES --------
	engine.otp = otp.NewManager(b.redis, otp.Config{
		Length:   cfg.Challenge.Length,
		Alphabet: cfg.Challenge.Alphabet,
	})

	// -------- OBSERVABILITY --------
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	engine.flows = flows.New(engine.flowDeps())

	b.built = true
	return engine, nil
}
