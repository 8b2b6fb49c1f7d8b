package passAuth

import (
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/passAuth/internal/audit"
	"github.com/MrEthical07/passAuth/internal/rate"
	"github.com/MrEthical07/passAuth/password"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once, then discard it.
type Builder struct {
	config         Config
	repo           Repository
	hasher         password.Hasher
	redis          redis.UniversalClient
	auditSink      AuditSink
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	clock          func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRepository sets the user-record store. Required.
func (b *Builder) WithRepository(repo Repository) *Builder {
	b.repo = repo
	return b
}

// WithHasher overrides the hasher selected by Config.Password.Algorithm.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithRedis supplies the client used by the sign-in throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the audit destination. Auditing still has to be enabled
// in Config.Audit.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithTracerProvider sets the OpenTelemetry tracer provider. The global
// provider is used otherwise.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithClock overrides the time source, mainly for tests.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns the engine. Misconfiguration
// is reported here and never as a per-call failure.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.repo == nil {
		return nil, errors.New("repository required")
	}
	if cfg.SignInThrottle.Enabled && b.redis == nil {
		return nil, errors.New("SignInThrottle requires redis client")
	}

	hasher := b.hasher
	if hasher == nil {
		var err error
		hasher, err = newHasher(&cfg)
		if err != nil {
			return nil, err
		}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	tp := b.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	clock := b.clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	engine := &Engine{
		config:  cfg,
		repo:    b.repo,
		hasher:  hasher,
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		tracer:  tp.Tracer(instrumentationName),
		clock:   clock,
	}

	if cfg.SignInThrottle.Enabled {
		engine.limiter = rate.New(b.redis, rate.Config{
			Prefix:           cfg.SignInThrottle.RedisPrefix,
			EnableIPThrottle: cfg.SignInThrottle.EnableIPThrottle,
			MaxAttempts:      cfg.SignInThrottle.MaxAttempts,
			Cooldown:         cfg.SignInThrottle.Cooldown,
		})
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, logger)

	b.built = true

	return engine, nil
}

func newHasher(cfg *Config) (password.Hasher, error) {
	switch cfg.Password.Algorithm {
	case AlgorithmArgon2id:
		return password.NewArgon2(cfg.argon2Config())
	default:
		return password.NewBcrypt(), nil
	}
}
