package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfslender/Media-Usage-Checker/pkg/db/models"
	"github.com/wolfslender/Media-Usage-Checker/pkg/db/store"
)

// Status summarises the media library and the latest scan run.
type Status struct {
	TotalMedia int64      `json:"total_media"`
	RunID      string     `json:"run_id,omitempty"`
	InProgress bool       `json:"in_progress"`
	Offset     int        `json:"offset"`
	RunTotal   int64      `json:"run_total"`
	Processed  int64      `json:"processed"`
	Used       int64      `json:"used"`
	Unused     int64      `json:"unused"`
	Skipped    int64      `json:"skipped"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	LastCheck  *time.Time `json:"last_check,omitempty"`
}

// Progress is the share of the run already visited, between 0 and 100.
func (s Status) Progress() float64 {
	if s.RunTotal <= 0 {
		if s.RunID != "" && !s.InProgress {
			return 100
		}
		return 0
	}
	p := float64(s.Offset) / float64(s.RunTotal) * 100
	if p > 100 {
		p = 100
	}
	return p
}

func (w *Walker) Status(ctx context.Context) (*Status, error) {
	total, err := w.lister.CountAttachments(ctx, w.mime)
	if err != nil {
		return nil, fmt.Errorf("failed to count attachments: %w", err)
	}

	status := &Status{TotalMedia: total}

	run, err := w.state.GetLatestRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	if run == nil {
		return status, nil
	}

	startedAt := run.StartedAt
	status.RunID = run.ID
	status.InProgress = run.Active()
	status.Offset = run.Offset
	status.RunTotal = run.Total
	status.Processed = run.Processed
	status.Used = run.UsedCount
	status.Unused = run.UnusedCount
	status.Skipped = run.SkippedCount
	status.StartedAt = &startedAt

	finished, err := w.state.GetLatestFinishedRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load finished run: %w", err)
	}
	if finished != nil {
		status.LastCheck = finished.FinishedAt
	}
	return status, nil
}

// ResultPage is one page of stored results.
type ResultPage struct {
	RunID   string              `json:"run_id"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"per_page"`
	Total   int64               `json:"total"`
	Items   []models.ScanResult `json:"items"`
}

// Results lists the results of the latest run. status may be empty, "used",
// "unused", "skipped", "deleted" or "trashed". Pages start at 1.
func (w *Walker) Results(ctx context.Context, status string, page, perPage int) (*ResultPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	out := &ResultPage{Page: page, PerPage: perPage}

	run, err := w.state.GetLatestRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	if run == nil {
		return out, nil
	}
	out.RunID = run.ID

	items, total, err := w.state.ListResults(ctx, run.ID, store.ResultFilter{Status: status}, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	out.Items = items
	out.Total = total
	return out, nil
}

// Reset aborts the active run so the next step starts over. It reports
// whether there was a run to abort.
func (w *Walker) Reset(ctx context.Context) (bool, error) {
	if !w.mutex.TryLock() {
		return false, ErrBusy
	}
	defer w.mutex.Unlock()

	run, err := w.state.GetActiveRun(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load active run: %w", err)
	}
	if run == nil {
		return false, nil
	}

	finished := w.now()
	run.Status = models.RunAborted
	run.FinishedAt = &finished
	if err := w.state.UpdateRun(ctx, run); err != nil {
		return false, fmt.Errorf("failed to abort run: %w", err)
	}

	w.logger.Info("Aborted scan run %s at offset %d", run.ID, run.Offset)
	return true, nil
}
