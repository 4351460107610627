package credguard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrEthical07/credguard/internal/audit"
	"github.com/MrEthical07/credguard/internal/flows"
	"github.com/MrEthical07/credguard/internal/limiters"
	"github.com/MrEthical07/credguard/internal/otp"
)

const tracerName = "github.com/MrEthical07/credguard"

// Engine runs the credential flows. It is safe for concurrent use; all
// correctness-relevant state lives in the shared counter store, so several
// Engines may serve the same Redis.
type Engine struct {
	config    Config
	otp       *otp.Manager
	keys      limiters.Keys
	register  *limiters.RegisterGate
	login     *limiters.LoginLimiter
	reset     *limiters.ResetGate
	flows     flows.Service
	directory UserDirectory
	hasher    Hasher
	notifier  ChallengeNotifier
	logger    *slog.Logger
	audit     *audit.Dispatcher
	metrics   *Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

// Close flushes queued audit events. The Redis client and directory stay
// owned by the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports audit events lost to dispatcher backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return e.metrics.Snapshot()
}

// PendingChallenge returns the live code for flow in the scope derived from
// the ctx client IP (and username for forgot-password) without consuming it.
func (e *Engine) PendingChallenge(ctx context.Context, flow ChallengeFlow, username string) (string, bool, error) {
	if e == nil || e.otp == nil {
		return "", false, ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)
	var key string
	switch flow {
	case ChallengeRegister:
		key = e.keys.RegisterChallenge(ip)
	case ChallengeForgotPassword:
		key = e.keys.ForgotChallenge(ip, username)
	default:
		return "", false, errors.New("unknown challenge flow")
	}

	code, ok, err := e.otp.Peek(ctx, key)
	if err != nil {
		return "", false, infrastructure(err)
	}
	return code, ok, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// observe wraps one flow invocation in a span and the latency histogram.
func (e *Engine) observe(ctx context.Context, flow string, run func(context.Context) error) error {
	ctx, span := e.tracer.Start(ctx, "credguard."+flow,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("credguard.flow", flow)),
	)
	defer span.End()

	start := e.now()
	err := run(ctx)
	e.metrics.Observe(MetricFlowLatency, e.now().Sub(start))

	if err == nil {
		span.SetStatus(codes.Ok, "")
		return nil
	}
	span.SetAttributes(attribute.String("credguard.error", ErrorCode(err)))
	if errors.Is(err, ErrInfrastructure) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "infrastructure")
	}
	return err
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

func newTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func userFromRecord(r flows.UserRecord) User {
	return User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func recordFromUser(u User) flows.UserRecord {
	return flows.UserRecord{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
