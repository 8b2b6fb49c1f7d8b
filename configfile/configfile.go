// Package configfile loads engine and host settings from a YAML file and
// command-line flags.
//
// Values are layered: [passAuth.DefaultConfig], then the file, then flags the
// user actually set. Keys are the dotted names of [passAuth.Config.Map] plus
// the host keys below. Durations accept Go syntax ("15m") or integer seconds.
package configfile

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	passAuth "github.com/MrEthical07/passAuth"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Host keys.
const (
	KeyLogLevel      = "log.level"
	KeyLogFormat     = "log.format"
	KeyStorageDriver = "storage.driver"
	KeyStorageDSN    = "storage.dsn"
	KeyRedisAddr     = "redis.addr"
	KeySessionSecret = "session.secret"
	KeySessionIssuer = "session.issuer"
	KeyListen        = "listen"
)

// Settings is everything a host process needs to start.
type Settings struct {
	Engine  passAuth.Config
	Log     LogSettings
	Storage StorageSettings
	Redis   RedisSettings
	Session SessionSettings
	Listen  string
}

// LogSettings configures the logging package.
type LogSettings struct {
	Level  string
	Format string
}

// StorageSettings selects the user repository. Driver is one of memory,
// sqlite, postgres or redis.
type StorageSettings struct {
	Driver string
	DSN    string
}

// RedisSettings locates the Redis server used by the throttle and the redis
// store.
type RedisSettings struct {
	Addr string
}

// SessionSettings configures session tokens.
type SessionSettings struct {
	Secret string
	Issuer string
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Engine:  passAuth.DefaultConfig(),
		Log:     LogSettings{Level: "info", Format: "json"},
		Storage: StorageSettings{Driver: "memory"},
		Session: SessionSettings{Issuer: "passauth"},
		Listen:  ":8080",
	}
}

// Map flattens s into dotted keys.
func (s Settings) Map() map[string]any {
	m := s.Engine.Map()
	m[KeyLogLevel] = s.Log.Level
	m[KeyLogFormat] = s.Log.Format
	m[KeyStorageDriver] = s.Storage.Driver
	m[KeyStorageDSN] = s.Storage.DSN
	m[KeyRedisAddr] = s.Redis.Addr
	m[KeySessionSecret] = s.Session.Secret
	m[KeySessionIssuer] = s.Session.Issuer
	m[KeyListen] = s.Listen
	return m
}

// RegisterFlags adds one flag per key to fs, defaulting to [Defaults].
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	e := d.Engine

	fs.String("password.algorithm", e.Password.Algorithm, "password hashing algorithm (bcrypt, argon2id)")
	fs.Int("password.cost", e.Password.Cost, "bcrypt cost or argon2id time")
	fs.Int("token.byte_length", e.Token.ByteLength, "random bytes per reset token")
	fs.String("reset_expiry", e.ResetExpiry.String(), "reset token lifetime")
	fs.String("session_expiry", e.SessionExpiry.String(), "sliding session window")
	fs.Bool("audit.enabled", e.Audit.Enabled, "emit audit events")
	fs.Bool("metrics.enabled", e.Metrics.Enabled, "collect in-process metrics")
	fs.Bool("signin_throttle.enabled", e.SignInThrottle.Enabled, "throttle failed sign-ins through Redis")
	fs.Int("signin_throttle.max_attempts", e.SignInThrottle.MaxAttempts, "failed sign-ins before throttling")

	fs.String(KeyLogLevel, d.Log.Level, "log level")
	fs.String(KeyLogFormat, d.Log.Format, "log format (json, text)")
	fs.String(KeyStorageDriver, d.Storage.Driver, "user store (memory, sqlite, postgres, redis)")
	fs.String(KeyStorageDSN, d.Storage.DSN, "user store DSN")
	fs.String(KeyRedisAddr, d.Redis.Addr, "Redis address")
	fs.String(KeySessionSecret, d.Session.Secret, "HS256 session signing secret")
	fs.String(KeyListen, d.Listen, "HTTP listen address")
}

// Load reads path (skipped when empty) and then the changed flags of fs
// (skipped when nil). The result is validated.
func Load(path string, fs *pflag.FlagSet) (Settings, error) {
	k := koanf.New(".")
	for key, value := range Defaults().Map() {
		if err := k.Set(key, normalize(value)); err != nil {
			return Settings{}, fmt.Errorf("configfile: default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Settings{}, fmt.Errorf("configfile: load %s: %w", path, err)
		}
	}
	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return Settings{}, fmt.Errorf("configfile: load flags: %w", err)
		}
	}

	s, err := decode(k)
	if err != nil {
		return Settings{}, err
	}
	if err := s.Engine.Validate(); err != nil {
		return Settings{}, fmt.Errorf("configfile: %w", err)
	}
	switch s.Storage.Driver {
	case "memory", "sqlite", "postgres", "redis":
	default:
		return Settings{}, fmt.Errorf("configfile: unknown storage driver %q", s.Storage.Driver)
	}
	return s, nil
}

func decode(k *koanf.Koanf) (Settings, error) {
	var (
		s    Settings
		errs []error
	)

	durationOf := func(key string) time.Duration {
		d, err := ParseDuration(k.String(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}
	uint32Of := func(key string) uint32 {
		v := k.Int64(key)
		if v < 0 || v > math.MaxUint32 {
			errs = append(errs, fmt.Errorf("%s: %d out of range", key, v))
			return 0
		}
		return uint32(v)
	}

	e := &s.Engine
	e.Password.Algorithm = k.String("password.algorithm")
	e.Password.Cost = k.Int("password.cost")
	e.Password.Argon2.Memory = uint32Of("password.argon2.memory")
	parallelism := k.Int("password.argon2.parallelism")
	if parallelism < 0 || parallelism > math.MaxUint8 {
		errs = append(errs, fmt.Errorf("password.argon2.parallelism: %d out of range", parallelism))
	}
	e.Password.Argon2.Parallelism = uint8(parallelism)
	e.Password.Argon2.SaltLength = uint32Of("password.argon2.salt_length")
	e.Password.Argon2.KeyLength = uint32Of("password.argon2.key_length")
	e.Token.ByteLength = k.Int("token.byte_length")
	e.ResetExpiry = durationOf("reset_expiry")
	e.SessionExpiry = durationOf("session_expiry")
	e.Audit.Enabled = k.Bool("audit.enabled")
	e.Audit.BufferSize = k.Int("audit.buffer_size")
	e.Audit.DropIfFull = k.Bool("audit.drop_if_full")
	e.Metrics.Enabled = k.Bool("metrics.enabled")
	e.Metrics.EnableLatencyHistograms = k.Bool("metrics.enable_latency_histograms")
	e.SignInThrottle.Enabled = k.Bool("signin_throttle.enabled")
	e.SignInThrottle.EnableIPThrottle = k.Bool("signin_throttle.enable_ip")
	e.SignInThrottle.MaxAttempts = k.Int("signin_throttle.max_attempts")
	e.SignInThrottle.Cooldown = durationOf("signin_throttle.cooldown")
	e.SignInThrottle.RedisPrefix = k.String("signin_throttle.redis_prefix")

	s.Log = LogSettings{Level: k.String(KeyLogLevel), Format: k.String(KeyLogFormat)}
	s.Storage = StorageSettings{Driver: strings.ToLower(k.String(KeyStorageDriver)), DSN: k.String(KeyStorageDSN)}
	s.Redis = RedisSettings{Addr: k.String(KeyRedisAddr)}
	s.Session = SessionSettings{Secret: k.String(KeySessionSecret), Issuer: k.String(KeySessionIssuer)}
	s.Listen = k.String(KeyListen)

	if err := errors.Join(errs...); err != nil {
		return Settings{}, fmt.Errorf("configfile: %w", err)
	}
	return s, nil
}

// normalize widens unsigned values so koanf's numeric getters read them back.
func normalize(v any) any {
	switch n := v.(type) {
	case uint8:
		return int64(n)
	case uint32:
		return int64(n)
	}
	return v
}

// ParseDuration accepts Go duration syntax or a whole number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}
