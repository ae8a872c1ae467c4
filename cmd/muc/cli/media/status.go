package media

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/wolfslender/Media-Usage-Checker/internal/bootstrap"
	"github.com/wolfslender/Media-Usage-Checker/pkg/batch"
	"github.com/wolfslender/Media-Usage-Checker/pkg/ui"
)

func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show media totals and the latest scan run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			return withServices(cmd, func(ctx context.Context, svc *bootstrap.Services) error {
				status, err := svc.Walker.Status(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), status)
				}
				printStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}

	cmd.Flags().Bool("json", false, "print JSON")

	return cmd
}

func printStatus(w io.Writer, s *batch.Status) {
	fmt.Fprintln(w, ui.FormatTitle("Media library"))

	state := "never scanned"
	switch {
	case s.InProgress:
		state = fmt.Sprintf("in progress (%d/%d, %.1f%%)", s.Offset, s.RunTotal, s.Progress())
	case s.RunID != "":
		state = "idle"
	}

	lastCheck := "never"
	if s.LastCheck != nil {
		lastCheck = s.LastCheck.Local().Format(time.DateTime)
	}

	rows := [][]string{
		{"Total media", strconv.FormatInt(s.TotalMedia, 10)},
		{"Used", ui.StyleSuccess.Render(strconv.FormatInt(s.Used, 10))},
		{"Unused", ui.StyleWarning.Render(strconv.FormatInt(s.Unused, 10))},
		{"Skipped", strconv.FormatInt(s.Skipped, 10)},
		{"Scan", state},
		{"Last check", lastCheck},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %s %s\n", ui.FormatBold(fmt.Sprintf("%-12s", row[0])), row[1])
	}
}
