package cli

import (
	"fmt"

	passAuth "github.com/MrEthical07/passAuth"
	"github.com/MrEthical07/passAuth/configfile"
	"github.com/MrEthical07/passAuth/logging"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the "config" command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(newConfigPrintCmd())
	cmd.AddCommand(newConfigLintCmd())
	return cmd
}

func newConfigPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Print the merged configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			k := koanf.New(".")
			for key, value := range s.Map() {
				if key == configfile.KeySessionSecret && value != "" {
					value = logging.Redacted
				}
				if err := k.Set(key, value); err != nil {
					return err
				}
			}
			out, err := k.Marshal(yaml.Parser())
			if err != nil {
				return fmt.Errorf("encoding yaml: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newConfigLintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Report questionable but valid settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			strict, _ := cmd.Flags().GetBool("strict")

			res := s.Engine.Lint()
			out := cmd.OutOrStdout()
			if len(res) == 0 {
				fmt.Fprintln(out, "no findings")
				return nil
			}
			for _, w := range res {
				fmt.Fprintf(out, "%-4s %-26s %s\n", w.Severity, w.Code, w.Message)
			}
			if strict {
				if err := res.AsError(passAuth.LintWarn); err != nil {
					return exitError(ExitLint, "%v", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("strict", false, "exit non-zero on WARN findings")
	return cmd
}
