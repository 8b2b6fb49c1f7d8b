package configfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	passAuth "github.com/MrEthical07/passAuth"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "passauth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, passAuth.DefaultConfig(), s.Engine)
	assert.Equal(t, "memory", s.Storage.Driver)
	assert.Equal(t, "info", s.Log.Level)
	assert.Equal(t, ":8080", s.Listen)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
password:
  algorithm: argon2id
  cost: 2
token:
  byte_length: 32
reset_expiry: 3600
session_expiry: 10m
signin_throttle:
  enabled: true
  max_attempts: 3
storage:
  driver: SQLite
  dsn: file:users.db
redis:
  addr: localhost:6379
`)

	s, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, passAuth.AlgorithmArgon2id, s.Engine.Password.Algorithm)
	assert.Equal(t, 2, s.Engine.Password.Cost)
	assert.Equal(t, 32, s.Engine.Token.ByteLength)
	assert.Equal(t, time.Hour, s.Engine.ResetExpiry)
	assert.Equal(t, 10*time.Minute, s.Engine.SessionExpiry)
	assert.True(t, s.Engine.SignInThrottle.Enabled)
	assert.Equal(t, 3, s.Engine.SignInThrottle.MaxAttempts)
	assert.Equal(t, "pa", s.Engine.SignInThrottle.RedisPrefix, "unset keys keep defaults")
	assert.Equal(t, uint32(64*1024), s.Engine.Password.Argon2.Memory)
	assert.Equal(t, "sqlite", s.Storage.Driver)
	assert.Equal(t, "file:users.db", s.Storage.DSN)
	assert.Equal(t, "localhost:6379", s.Redis.Addr)
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "password:\n  cost: 10\ntoken:\n  byte_length: 24\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--password.cost=12", "--reset_expiry=2h", "--log.level=debug"}))

	s, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, 12, s.Engine.Password.Cost)
	assert.Equal(t, 24, s.Engine.Token.ByteLength, "unchanged flags must not clobber the file")
	assert.Equal(t, 2*time.Hour, s.Engine.ResetExpiry)
	assert.Equal(t, "debug", s.Log.Level)
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"invalid engine config": "token:\n  byte_length: 0\n",
		"bad duration":          "reset_expiry: soon\n",
		"unknown driver":        "storage:\n  driver: mongo\n",
		"parallelism overflow":  "password:\n  argon2:\n    parallelism: 300\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body), nil)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("90")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = ParseDuration("1h30m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	_, err = ParseDuration("")
	assert.Error(t, err)
}
