package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/passAuth/password"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(root *cobra.Command, stdin string, args ...string) (stdout, stderr string, err error) {
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "passauth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

func TestHashAndVerify(t *testing.T) {
	out, _, err := executeCommand(NewRootCmd("test"), "", "hash", "--password.cost=4", "s3cret")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.Equal(t, "bcrypt", password.Identify(hash))

	out, _, err = executeCommand(NewRootCmd("test"), "s3cret\n", "verify", hash)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, _, err = executeCommand(NewRootCmd("test"), "", "verify", hash, "wrong")
	assert.Equal(t, ExitMismatch, exitCode(err))

	_, _, err = executeCommand(NewRootCmd("test"), "", "verify", "not-a-hash", "x")
	assert.Equal(t, ExitMismatch, exitCode(err))
}

func TestHashArgon2FromConfigFile(t *testing.T) {
	cfg := writeTestFile(t, "password:\n  algorithm: argon2id\n  cost: 1\n")

	out, _, err := executeCommand(NewRootCmd("test"), "", "hash", "--config", cfg, "s3cret")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.Equal(t, "argon2id", password.Identify(hash))

	_, _, err = executeCommand(NewRootCmd("test"), "", "verify", hash, "s3cret")
	assert.NoError(t, err)
}

func TestHashRequiresPassword(t *testing.T) {
	_, _, err := executeCommand(NewRootCmd("test"), "", "hash", "--password.cost=4")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	out, _, err := executeCommand(NewRootCmd("test"), "", "token", "-n", "3", "--token.byte_length=32")
	require.NoError(t, err)

	lines := strings.Fields(out)
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Len(t, l, 43)
	}
	assert.NotEqual(t, lines[0], lines[1])
}

func TestConfigPrintRedactsSecret(t *testing.T) {
	out, _, err := executeCommand(NewRootCmd("test"), "", "config", "print", "--session.secret=topsecret", "--password.cost=10")
	require.NoError(t, err)

	assert.NotContains(t, out, "topsecret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, "cost: 10")
	assert.Contains(t, out, "reset_expiry: 24h0m0s")
}

func TestConfigLint(t *testing.T) {
	out, _, err := executeCommand(NewRootCmd("test"), "", "config", "lint")
	require.NoError(t, err)
	assert.Contains(t, out, "hash_cost_low")

	_, _, err = executeCommand(NewRootCmd("test"), "", "config", "lint", "--strict", "--token.byte_length=8")
	assert.Equal(t, ExitLint, exitCode(err))
}

func TestInvalidConfigRejected(t *testing.T) {
	_, _, err := executeCommand(NewRootCmd("test"), "", "token", "--token.byte_length=0")
	assert.Error(t, err)
}

func TestMigrateRequiresDSN(t *testing.T) {
	_, _, err := executeCommand(NewRootCmd("test"), "", "migrate", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database URL")
}

func TestLoadtestOnMiniredis(t *testing.T) {
	out, _, err := executeCommand(NewRootCmd("test"), "",
		"loadtest", "--users=8", "--concurrency=4", "--ops=16", "--password.cost=4", "--log.level=error")
	require.NoError(t, err)

	assert.Contains(t, out, "using miniredis")
	for _, phase := range []string{"signup: ops=8 failures=0", "reset: ops=8 failures=0", "signin: ops=16 failures=0"} {
		assert.Contains(t, out, phase)
	}
}

func TestPercentile(t *testing.T) {
	stats := computeStats(1, []time.Duration{5, 1, 4, 2, 3}, 0)
	assert.Equal(t, time.Duration(3), stats.p50)
	assert.Equal(t, time.Duration(4), stats.p95)
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}
