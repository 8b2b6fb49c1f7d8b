package passAuth

import (
	"errors"
	"time"

	"github.com/MrEthical07/passAuth/password"
)

// Config holds every engine setting. It is constructed once at host startup
// and treated as immutable; the engine keeps its own copy.
type Config struct {
	Password       PasswordConfig
	Token          TokenConfig
	ResetExpiry    time.Duration
	SessionExpiry  time.Duration
	Audit          AuditConfig
	Metrics        MetricsConfig
	SignInThrottle SignInThrottleConfig
}

// PasswordConfig selects the hashing algorithm and its work factor.
//
// Cost is the bcrypt cost for "bcrypt" and the time parameter for "argon2id".
type PasswordConfig struct {
	Algorithm string
	Cost      int
	Argon2    Argon2Config
}

// Argon2Config carries the argon2id parameters other than time.
type Argon2Config struct {
	Memory      uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// TokenConfig controls reset token generation.
type TokenConfig struct {
	ByteLength int
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SignInThrottleConfig controls the Redis-backed failed sign-in limiter.
type SignInThrottleConfig struct {
	Enabled          bool
	EnableIPThrottle bool
	MaxAttempts      int
	Cooldown         time.Duration
	RedisPrefix      string
}

const (
	// AlgorithmBcrypt selects bcrypt hashing.
	AlgorithmBcrypt = "bcrypt"
	// AlgorithmArgon2id selects argon2id hashing.
	AlgorithmArgon2id = "argon2id"

	// DefaultHashingCost is the default work factor.
	DefaultHashingCost = 8
	// DefaultTokenByteLength is the default number of random bytes per reset token.
	DefaultTokenByteLength = 16
	// DefaultResetExpiry is how long an issued reset token stays valid.
	DefaultResetExpiry = 24 * time.Hour
	// DefaultSessionExpiry is the sliding session window of a registered user.
	DefaultSessionExpiry = 15 * time.Minute
)

// DefaultConfig returns the configuration used when the host supplies none.
func DefaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Algorithm: AlgorithmBcrypt,
			Cost:      DefaultHashingCost,
			Argon2: Argon2Config{
				Memory:      64 * 1024,
				Parallelism: 2,
				SaltLength:  16,
				KeyLength:   32,
			},
		},
		Token: TokenConfig{
			ByteLength: DefaultTokenByteLength,
		},
		ResetExpiry:   DefaultResetExpiry,
		SessionExpiry: DefaultSessionExpiry,
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		SignInThrottle: SignInThrottleConfig{
			Enabled:          false,
			EnableIPThrottle: true,
			MaxAttempts:      5,
			Cooldown:         15 * time.Minute,
			RedisPrefix:      "pa",
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

// Validate checks that cfg can build a working engine.
func (c *Config) Validate() error {
	switch c.Password.Algorithm {
	case AlgorithmBcrypt:
		if c.Password.Cost < password.MinBcryptCost || c.Password.Cost > password.MaxBcryptCost {
			return errors.New("Password Cost out of bcrypt range (4-31)")
		}
	case AlgorithmArgon2id:
		if c.Password.Cost < 1 {
			return errors.New("Password Cost must be >= 1 for argon2id")
		}
		if err := c.argon2Config().Validate(); err != nil {
			return err
		}
	default:
		return errors.New("unsupported password algorithm")
	}

	if c.Token.ByteLength <= 0 {
		return errors.New("Token ByteLength must be > 0")
	}
	if c.ResetExpiry <= 0 {
		return errors.New("ResetExpiry must be > 0")
	}
	if c.SessionExpiry <= 0 {
		return errors.New("SessionExpiry must be > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.SignInThrottle.Enabled {
		if c.SignInThrottle.MaxAttempts <= 0 {
			return errors.New("SignInThrottle MaxAttempts must be > 0")
		}
		if c.SignInThrottle.Cooldown <= 0 {
			return errors.New("SignInThrottle Cooldown must be > 0")
		}
		if c.SignInThrottle.RedisPrefix == "" {
			return errors.New("SignInThrottle RedisPrefix must not be empty")
		}
	}

	return nil
}

func (c *Config) argon2Config() password.Argon2Config {
	return password.Argon2Config{
		Memory:      c.Password.Argon2.Memory,
		Parallelism: c.Password.Argon2.Parallelism,
		SaltLength:  c.Password.Argon2.SaltLength,
		KeyLength:   c.Password.Argon2.KeyLength,
	}
}

// Map flattens the config into the dotted keys used by config files.
func (c Config) Map() map[string]any {
	return map[string]any{
		"password.algorithm":                c.Password.Algorithm,
		"password.cost":                     c.Password.Cost,
		"password.argon2.memory":            c.Password.Argon2.Memory,
		"password.argon2.parallelism":       c.Password.Argon2.Parallelism,
		"password.argon2.salt_length":       c.Password.Argon2.SaltLength,
		"password.argon2.key_length":        c.Password.Argon2.KeyLength,
		"token.byte_length":                 c.Token.ByteLength,
		"reset_expiry":                      c.ResetExpiry.String(),
		"session_expiry":                    c.SessionExpiry.String(),
		"audit.enabled":                     c.Audit.Enabled,
		"audit.buffer_size":                 c.Audit.BufferSize,
		"audit.drop_if_full":                c.Audit.DropIfFull,
		"metrics.enabled":                   c.Metrics.Enabled,
		"metrics.enable_latency_histograms": c.Metrics.EnableLatencyHistograms,
		"signin_throttle.enabled":           c.SignInThrottle.Enabled,
		"signin_throttle.enable_ip":         c.SignInThrottle.EnableIPThrottle,
		"signin_throttle.max_attempts":      c.SignInThrottle.MaxAttempts,
		"signin_throttle.cooldown":          c.SignInThrottle.Cooldown.String(),
		"signin_throttle.redis_prefix":      c.SignInThrottle.RedisPrefix,
	}
}
