package server

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/wolfslender/Media-Usage-Checker/internal/bootstrap"
	"github.com/wolfslender/Media-Usage-Checker/internal/config"
	"github.com/wolfslender/Media-Usage-Checker/pkg/db/migrations"
	"github.com/wolfslender/Media-Usage-Checker/pkg/ui"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending state database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *migrations.Migrator) error {
				pending, err := m.Pending(ctx)
				if err != nil {
					return err
				}
				if !pending {
					fmt.Fprintln(cmd.OutOrStdout(), ui.FormatInfo("State database is up to date"))
					return nil
				}

				if err := m.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess("Applied pending migrations"))
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *migrations.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(statuses))
				for _, s := range statuses {
					state := ui.StyleWarning.Render("pending")
					if s.Applied {
						state = ui.StyleSuccess.Render("applied")
					}
					rows = append(rows, []string{strconv.Itoa(s.Version), s.Description, state})
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.Table([]string{"VERSION", "DESCRIPTION", "STATE"}, rows))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Roll back the latest applied migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *migrations.Migrator) error {
				if err := m.Rollback(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess("Rolled back the latest migration"))
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(ctx context.Context, m *migrations.Migrator) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := cmd.Context()
	state, err := bootstrap.OpenState(ctx, cfg)
	if err != nil {
		return err
	}
	defer state.Close()

	return fn(ctx, state.Migrator())
}
