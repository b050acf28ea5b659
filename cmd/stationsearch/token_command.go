package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/airwaves-fm/stationsearch/internal/auth"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var (
		subject string
		roles   []string
		expiry  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the admin endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if expiry <= 0 {
				expiry = cfg.Auth.JWTExpiry
			}
			manager := auth.NewJWTManager(cfg.Auth.JWTSecret, expiry)
			if !manager.Enabled() {
				return errors.New("auth.jwt_secret is not configured")
			}

			token, expiresAt, err := manager.GenerateToken(subject, roles...)
			if err != nil {
				return err
			}
			if ctx.json() {
				return writeJSON(cmd, map[string]any{
					"token":      token,
					"expires_at": expiresAt,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "Expires %s\n", expiresAt.Local().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "Token subject")
	cmd.Flags().StringSliceVar(&roles, "role", []string{auth.RoleAdmin}, "Roles to grant")
	cmd.Flags().DurationVar(&expiry, "expiry", 0, "Token lifetime (0 uses auth.jwt_expiry)")

	return cmd
}
