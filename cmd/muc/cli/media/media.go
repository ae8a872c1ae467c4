// Package media holds the commands that scan and clean the media library.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wolfslender/Media-Usage-Checker/internal/bootstrap"
	"github.com/wolfslender/Media-Usage-Checker/pkg/cleanup"
	"github.com/wolfslender/Media-Usage-Checker/pkg/ui"
)

func withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *bootstrap.Services) error) error {
	ctx := cmd.Context()

	svc, err := bootstrap.Load(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			svc.Logger.Warn("Failed to close services: %v", err)
		}
	}()

	return fn(ctx, svc)
}

func parseIDs(args []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil || id == 0 {
				return nil, fmt.Errorf("invalid attachment id %q", part)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no attachment ids given")
	}
	return ids, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, report *cleanup.Report) {
	rows := make([][]string, 0, len(report.Items))
	for _, item := range report.Items {
		outcome := item.Outcome
		switch outcome {
		case "done":
			outcome = ui.StyleSuccess.Render(outcome)
		case "refused":
			outcome = ui.StyleWarning.Render(outcome)
		default:
			outcome = ui.StyleError.Render(outcome)
		}

		detail := item.Error
		if item.Reason != "" {
			detail = item.Reason + ": " + detail
		}
		rows = append(rows, []string{
			strconv.FormatUint(item.AttachmentID, 10),
			item.Action,
			outcome,
			strconv.Itoa(item.Files),
			ui.FormatMuted(detail),
		})
	}

	fmt.Fprintln(w, ui.Table([]string{"ID", "ACTION", "OUTCOME", "FILES", "DETAIL"}, rows))
	fmt.Fprintln(w)

	summary := fmt.Sprintf("deleted %d, trashed %d, restored %d, refused %d, failed %d",
		report.Deleted, report.Trashed, report.Restored, report.Refused, report.Failed)
	if report.Failed > 0 {
		fmt.Fprintln(w, ui.FormatWarning(summary))
	} else {
		fmt.Fprintln(w, ui.FormatSuccess(summary))
	}
}
