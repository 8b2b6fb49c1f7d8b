// Package cli implements the passauth command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/MrEthical07/passAuth/configfile"
	"github.com/MrEthical07/passAuth/logging"
	"github.com/spf13/cobra"
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func exitError(code int, format string, args ...any) error {
	return &ExitError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Exit codes other than 1.
const (
	ExitMismatch   = 2
	ExitLint       = 3
	ExitRegression = 4
)

// NewRootCmd builds the full command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:          "passauth",
		Short:        "Password credential and reset token toolkit",
		SilenceUsage: true,
		Version:      version,
	}
	root.SetVersionTemplate(fmt.Sprintf("passauth version %s\n", version))

	root.PersistentFlags().String("config", "", "YAML config file")
	configfile.RegisterFlags(root.PersistentFlags())

	root.AddCommand(NewHashCmd())
	root.AddCommand(NewVerifyCmd())
	root.AddCommand(NewTokenCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewMigrateCmd())
	root.AddCommand(NewLoadtestCmd())
	root.AddCommand(NewBenchcmpCmd())
	return root
}

func loadSettings(cmd *cobra.Command) (configfile.Settings, error) {
	path, _ := cmd.Flags().GetString("config")
	return configfile.Load(path, cmd.Flags())
}

func newLogger(s configfile.Settings, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Service: "passauth",
		Format:  s.Log.Format,
		Level:   level,
		Writer:  w,
	}), nil
}

// secretArg returns args[i], or the first line of stdin when args is short.
func secretArg(cmd *cobra.Command, args []string, i int) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	raw, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64*1024))
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	line, _, _ := strings.Cut(string(raw), "\n")
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return "", errors.New("no password given")
	}
	return line, nil
}
