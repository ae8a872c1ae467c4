package media

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/wolfslender/Media-Usage-Checker/internal/bootstrap"
	"github.com/wolfslender/Media-Usage-Checker/pkg/ui"
	"github.com/wolfslender/Media-Usage-Checker/pkg/usage"
)

type checkResult struct {
	AttachmentID uint64         `json:"attachment_id"`
	URL          string         `json:"url,omitempty"`
	Verdict      *usage.Verdict `json:"verdict,omitempty"`
	Error        string         `json:"error,omitempty"`
}

func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <id>...",
		Short: "Check whether attachments are in use",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			cached, _ := cmd.Flags().GetBool("cached")
			asJSON, _ := cmd.Flags().GetBool("json")

			return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
				results := make([]checkResult, 0, len(ids))
				for _, id := range ids {
					result := checkResult{AttachmentID: id}

					verdict, att, err := svc.Scanner.CheckID(ctx, id, usage.Options{Fresh: !cached})
					if att != nil {
						result.URL = att.URL
					}
					if err != nil {
						result.Error = err.Error()
					} else {
						result.Verdict = &verdict
					}
					results = append(results, result)
				}

				if asJSON {
					return printJSON(cmd.OutOrStdout(), results)
				}

				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := ui.FormatStatus("skipped")
					detail := r.Error
					if r.Verdict != nil {
						status = ui.FormatStatus("unused")
						if r.Verdict.Used {
							status = ui.FormatStatus("used")
							detail = fmt.Sprintf("%s %s", r.Verdict.Reason, r.Verdict.Detail)
						}
						if r.Verdict.FileMissing {
							detail += " (file missing)"
						}
					}
					rows = append(rows, []string{strconv.FormatUint(r.AttachmentID, 10), status, r.URL, ui.FormatMuted(detail)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.Table([]string{"ID", "STATUS", "URL", "DETAIL"}, rows))
				return nil
			})
		},
	}

	cmd.Flags().Bool("cached", false, "accept a cached verdict")
	cmd.Flags().Bool("json", false, "print JSON")

	return cmd
}
