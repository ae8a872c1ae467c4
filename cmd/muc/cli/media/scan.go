package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/wolfslender/Media-Usage-Checker/internal/bootstrap"
	"github.com/wolfslender/Media-Usage-Checker/pkg/batch"
	"github.com/wolfslender/Media-Usage-Checker/pkg/ui"
)

func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the next page of the batch scan",
		Long: `Scan the media library for unused attachments.

Each invocation processes one page of the active run and stores its
results; run it again to continue. --all keeps going until the run is
complete.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			fresh, _ := cmd.Flags().GetBool("fresh")
			opts := batch.StepOptions{Fresh: fresh}

			return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
				out := cmd.OutOrStdout()
				started := time.Now()

				var result *batch.StepResult
				var err error
				if all {
					result, err = svc.Walker.Run(ctx, opts, func(step *batch.StepResult) {
						fmt.Fprintln(out, ui.FormatMuted(fmt.Sprintf("offset %d/%d: %d used, %d unused, %d skipped",
							step.NextOffset, step.Total, step.Used, step.Unused, step.Skipped)))
					})
				} else {
					result, err = svc.Walker.Step(ctx, opts)
				}
				if errors.Is(err, batch.ErrBusy) {
					return err
				}
				if err != nil && result == nil {
					return err
				}

				status, statusErr := svc.Walker.Status(ctx)
				if statusErr != nil {
					return statusErr
				}

				switch {
				case result.Completed:
					fmt.Fprintln(out, ui.FormatSuccess(fmt.Sprintf("Scan complete in %s", time.Since(started).Round(time.Millisecond))))
				case result.OutOfTime:
					fmt.Fprintln(out, ui.FormatWarning(fmt.Sprintf("Time budget reached at offset %d; run scan again to continue", result.NextOffset)))
				default:
					fmt.Fprintln(out, ui.FormatInfo(fmt.Sprintf("Processed %d attachments; %.1f%% done, run scan again to continue",
						result.Visited, status.Progress())))
				}
				printStatus(out, status)
				return err
			})
		},
	}

	cmd.Flags().Bool("all", false, "continue until the run is complete")
	cmd.Flags().Bool("fresh", false, "ignore cached verdicts")

	return cmd
}

func NewResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Abort the active scan run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
				aborted, err := svc.Walker.Reset(ctx)
				if err != nil {
					return err
				}
				if aborted {
					fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess("Aborted the active scan run"))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), ui.FormatInfo("No scan run in progress"))
				}
				return nil
			})
		},
	}
}
