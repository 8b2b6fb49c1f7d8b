package passAuth

import (
	"context"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/passAuth/internal/audit"
	"github.com/MrEthical07/passAuth/internal/rate"
	"github.com/MrEthical07/passAuth/password"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/MrEthical07/passAuth"

// Engine runs the authentication use cases against a [Repository].
//
// An Engine is immutable after [Builder.Build] and safe for concurrent use.
// It holds no per-user state: current users and session snapshots are passed
// into every call.
type Engine struct {
	config  Config
	repo    Repository
	hasher  password.Hasher
	limiter *rate.Limiter
	audit   *internalaudit.Dispatcher
	metrics *Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	clock   func() time.Time
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Close flushes and stops the audit dispatcher. The engine stays usable;
// later audit events are discarded.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events dropped for backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	return e.clock()
}

func (e *Engine) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "passAuth."+op, trace.WithAttributes(attribute.String("passauth.op", op)))
}

func endSpan(span trace.Span, err error) {
	if code := CodeOf(err); code != "" {
		span.SetAttributes(attribute.String("passauth.failure_code", string(code)))
		if !code.UserFacing() {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(code))
		}
	}
	span.End()
}

// reject records a failed operation and returns f as an error. Collaborator
// failures are logged at Error level, expected outcomes at Debug.
func (e *Engine) reject(ctx context.Context, f *Failure, event string, metric MetricID, user *UserRecord) error {
	level := slog.LevelDebug
	if !f.Code.UserFacing() {
		level = slog.LevelError
	}
	if f.Code == CodeRepositoryError || f.Code == CodeUserCreationFailed {
		e.metricInc(MetricRepositoryError)
	}
	if e.logger.Enabled(ctx, level) {
		attrs := []slog.Attr{
			slog.String("op", f.Op),
			slog.String("code", string(f.Code)),
		}
		if user != nil && !IsGuest(user) {
			attrs = append(attrs, slog.Int64("user_id", user.ID))
		}
		if f.Cause != nil {
			attrs = append(attrs, slog.String("error", f.Cause.Error()))
		}
		e.logger.LogAttrs(ctx, level, "passAuth: operation failed", attrs...)
	}

	e.metricInc(metric)
	e.emitAudit(ctx, event, user, f, func() map[string]string {
		return map[string]string{"op": f.Op}
	})
	return f
}

func (e *Engine) hashPassword(cleartext string) (string, error) {
	return e.hasher.Hash(cleartext, e.config.Password.Cost)
}

func (e *Engine) verifyPassword(hash, candidate string) bool {
	start := time.Now()
	ok := e.hasher.Verify(hash, candidate)
	if e.metrics != nil {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	return ok
}

func cloneUser(u *UserRecord) *UserRecord {
	if u == nil {
		return nil
	}
	out := u.Clone()
	return &out
}
