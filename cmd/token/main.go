// Command token mints access tokens for the ops endpoints, signed with the
// same JWT_SECRET the server verifies against.
//
//	JWT_SECRET=... token mint --user-id 1 --role ADMIN --ttl 1h
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iliyamo/travel-booking/internal/utils"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "token",
		Short:        "Mint access tokens for the ops API",
		SilenceUsage: true,
	}
	root.AddCommand(mintCmd())
	return root
}

func mintCmd() *cobra.Command {
	var (
		userID uint64
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Print a signed access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}
			tok, err := utils.NewAccessToken(secret, userID, role, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&userID, "user-id", 1, "subject (sub) claim")
	cmd.Flags().StringVar(&role, "role", "ADMIN", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
