package server

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/wolfslender/Media-Usage-Checker/internal/api"
	"github.com/wolfslender/Media-Usage-Checker/internal/config"
)

func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue an API token signed with api.secret",
		Long: `Issue a bearer token for the HTTP API.

Tokens carry the manage_options and upload_files capabilities unless
--caps says otherwise; the API refuses tokens missing either of them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			ttl, _ := cmd.Flags().GetDuration("ttl")
			caps, _ := cmd.Flags().GetStringSlice("caps")

			token, err := api.IssueToken(cfg.API.Secret, args[0], caps, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	cmd.Flags().StringSlice("caps", []string{api.CapManageOptions, api.CapUploadFiles}, "capabilities granted to the token")

	return cmd
}
