package cli

import (
	"fmt"

	passAuth "github.com/MrEthical07/passAuth"
	"github.com/MrEthical07/passAuth/configfile"
	"github.com/MrEthical07/passAuth/internal"
	"github.com/MrEthical07/passAuth/password"
	"github.com/spf13/cobra"
)

// NewHashCmd creates the "hash" subcommand.
func NewHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash [password]",
		Short: "Hash a password with the configured algorithm",
		Long:  "Hash a password with the configured algorithm and cost. The password is read from stdin when not given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			cleartext, err := secretArg(cmd, args, 0)
			if err != nil {
				return err
			}

			h, err := hasherFor(s.Engine.Password.Algorithm, s)
			if err != nil {
				return err
			}
			hash, err := h.Hash(cleartext, s.Engine.Password.Cost)
			if err != nil {
				return fmt.Errorf("hashing: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// NewVerifyCmd creates the "verify" subcommand.
func NewVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <hash> [password]",
		Short: "Check a password against a stored hash",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			cleartext, err := secretArg(cmd, args, 1)
			if err != nil {
				return err
			}

			algorithm := password.Identify(args[0])
			if algorithm == "" {
				return exitError(ExitMismatch, "unrecognized hash format")
			}
			h, err := hasherFor(algorithm, s)
			if err != nil {
				return err
			}
			if !h.Verify(args[0], cleartext) {
				return exitError(ExitMismatch, "password does not match")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

// NewTokenCmd creates the "token" subcommand.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print random reset-style tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("count")
			for i := 0; i < n; i++ {
				tok, err := internal.NewToken(s.Engine.Token.ByteLength)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tok)
			}
			return nil
		},
	}
	cmd.Flags().IntP("count", "n", 1, "number of tokens")
	return cmd
}

func hasherFor(algorithm string, s configfile.Settings) (password.Hasher, error) {
	switch algorithm {
	case passAuth.AlgorithmBcrypt:
		return password.NewBcrypt(), nil
	case passAuth.AlgorithmArgon2id:
		a := s.Engine.Password.Argon2
		return password.NewArgon2(password.Argon2Config{
			Memory:      a.Memory,
			Parallelism: a.Parallelism,
			SaltLength:  a.SaltLength,
			KeyLength:   a.KeyLength,
		})
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", algorithm)
	}
}
