package media

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/wolfslender/Media-Usage-Checker/internal/bootstrap"
	"github.com/wolfslender/Media-Usage-Checker/pkg/ui"
)

func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the results of the latest scan run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			page, _ := cmd.Flags().GetInt("page")
			perPage, _ := cmd.Flags().GetInt("per-page")
			asJSON, _ := cmd.Flags().GetBool("json")

			switch filter {
			case "all":
				filter = ""
			case "used", "unused", "skipped", "deleted", "trashed":
			default:
				return fmt.Errorf("unknown filter %q", filter)
			}
			if perPage < 1 || perPage > 1000 {
				return fmt.Errorf("--per-page must be between 1 and 1000")
			}

			return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
				results, err := svc.Walker.Results(ctx, filter, page, perPage)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), results)
				}

				out := cmd.OutOrStdout()
				if results.RunID == "" {
					fmt.Fprintln(out, ui.FormatInfo("No scan results yet; run muc scan first"))
					return nil
				}

				rows := make([][]string, 0, len(results.Items))
				for _, r := range results.Items {
					note := r.Reason
					if r.Error != "" {
						note = r.Error
					}
					if r.FileMissing {
						note += " (file missing)"
					}
					rows = append(rows, []string{
						strconv.FormatUint(r.AttachmentID, 10),
						ui.FormatStatus(r.Status),
						r.MimeType,
						r.Path,
						ui.FormatMuted(note),
					})
				}

				fmt.Fprintln(out, ui.Table([]string{"ID", "STATUS", "TYPE", "FILE", "NOTE"}, rows))
				pages := (results.Total + int64(results.PerPage) - 1) / int64(results.PerPage)
				fmt.Fprintln(out, ui.FormatMuted(fmt.Sprintf("page %d of %d, %d results", results.Page, max(pages, 1), results.Total)))
				return nil
			})
		},
	}

	cmd.Flags().String("filter", "unused", "used, unused, skipped, deleted, trashed or all")
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("per-page", 20, "results per page")
	cmd.Flags().Bool("json", false, "print JSON")

	return cmd
}
