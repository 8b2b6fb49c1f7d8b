package cli

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/passAuth/store/postgres"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the "migrate" command group for the postgres store.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run postgres schema migrations",
	}
	cmd.PersistentFlags().String("dsn", "", "postgres URL (defaults to storage.dsn)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all up migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				if err := m.Up(); err != nil {
					return fmt.Errorf("migrate up failed: %w", err)
				}
				return printVersion(cmd, m)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back one migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				if err := m.Steps(-1); err != nil {
					return fmt.Errorf("migrate down failed: %w", err)
				}
				return printVersion(cmd, m)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				return printVersion(cmd, m)
			})
		},
	})
	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(*postgres.Migrator) error) (err error) {
	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		dsn = s.Storage.DSN
	}
	if dsn == "" {
		return errors.New("no database URL: pass --dsn or set storage.dsn")
	}

	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, m.Close())
	}()
	return fn(m)
}

func printVersion(cmd *cobra.Command, m *postgres.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	suffix := ""
	if dirty {
		suffix = " (dirty)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d%s\n", version, suffix)
	return nil
}
