package media

import (
	"context"
	"fmt"
	"os/user"
	"time"

	"github.com/spf13/cobra"
	"github.com/wolfslender/Media-Usage-Checker/internal/bootstrap"
	"github.com/wolfslender/Media-Usage-Checker/pkg/cleanup"
	"github.com/wolfslender/Media-Usage-Checker/pkg/ui"
)

func NewDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete or trash unused attachments",
		Long: `Delete attachments together with every generated size file.

Each attachment is checked again, bypassing the cache, right before it is
removed. Attachments that turn out to be in use, or whose usage cannot be
determined, are refused.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			trash, _ := cmd.Flags().GetBool("trash")
			force, _ := cmd.Flags().GetBool("force")

			mode := cleanup.ModeDelete
			if trash {
				mode = cleanup.ModeTrash
			}

			question := fmt.Sprintf("Permanently delete %d attachments and their files?", len(ids))
			if trash {
				question = fmt.Sprintf("Move %d attachments to the trash?", len(ids))
			}
			if !force && !ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), question) {
				fmt.Fprintln(cmd.OutOrStdout(), ui.FormatInfo("Operation cancelled."))
				return nil
			}

			return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
				report, err := svc.Cleaner.Delete(ctx, ids, mode, actor())
				if report != nil {
					printReport(cmd.OutOrStdout(), report)
				}
				return err
			})
		},
	}

	cmd.Flags().Bool("trash", false, "move to the trash instead of deleting")
	cmd.Flags().BoolP("force", "f", false, "do not ask for confirmation")

	return cmd
}

func NewRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>...",
		Short: "Restore trashed attachments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
				report, err := svc.Cleaner.Restore(ctx, ids, actor())
				if report != nil {
					printReport(cmd.OutOrStdout(), report)
				}
				return err
			})
		},
	}
}

func NewEmptyTrashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "empty-trash",
		Short: "Permanently delete attachments trashed long enough ago",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			force, _ := cmd.Flags().GetBool("force")

			if !force && !ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
				fmt.Sprintf("Permanently delete attachments trashed more than %s ago?", olderThan)) {
				fmt.Fprintln(cmd.OutOrStdout(), ui.FormatInfo("Operation cancelled."))
				return nil
			}

			return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
				report, err := svc.Cleaner.EmptyTrash(ctx, olderThan, actor())
				if err != nil {
					return err
				}
				if len(report.Items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), ui.FormatInfo("Nothing to delete"))
					return nil
				}
				printReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}

	cmd.Flags().Duration("older-than", 720*time.Hour, "minimum time in the trash")
	cmd.Flags().BoolP("force", "f", false, "do not ask for confirmation")

	return cmd
}

func actor() string {
	if u, err := user.Current(); err == nil {
		return "cli:" + u.Username
	}
	return "cli"
}
