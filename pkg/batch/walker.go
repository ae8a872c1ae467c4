// Package batch walks the media library page by page, classifying every
// attachment and keeping a resumable cursor in the state store.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfslender/Media-Usage-Checker/pkg/db/models"
	"github.com/wolfslender/Media-Usage-Checker/pkg/db/store"
	"github.com/wolfslender/Media-Usage-Checker/pkg/log"
	"github.com/wolfslender/Media-Usage-Checker/pkg/usage"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress"
	"golang.org/x/time/rate"
)

var ErrBusy = errors.New("another scan step is in progress")

const (
	DefaultBatchSize  = 100
	DefaultMiniBatch  = 20
	DefaultThrottle   = 100 * time.Millisecond
	DefaultTimeBudget = 30 * time.Minute
	DefaultKeepRuns   = 3
)

// Lister pages through attachment ids.
type Lister interface {
	CountAttachments(ctx context.Context, mimePatterns []string) (int64, error)
	ListAttachmentIDs(ctx context.Context, mimePatterns []string, limit, offset int) ([]uint64, error)
}

// Checker classifies a single attachment.
type Checker interface {
	CheckID(ctx context.Context, id uint64, opts usage.Options) (usage.Verdict, *wordpress.Attachment, error)
}

type Config struct {
	BatchSize  int
	MiniBatch  int
	Throttle   time.Duration
	TimeBudget time.Duration
	KeepRuns   int
	FileTypes  []string
}

func (c *Config) setDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchSize > 1000 {
		c.BatchSize = 1000
	}
	if c.MiniBatch <= 0 || c.MiniBatch > c.BatchSize {
		c.MiniBatch = min(DefaultMiniBatch, c.BatchSize)
	}
	if c.Throttle < 0 {
		c.Throttle = 0
	}
	if c.TimeBudget <= 0 {
		c.TimeBudget = DefaultTimeBudget
	}
	if c.KeepRuns <= 0 {
		c.KeepRuns = DefaultKeepRuns
	}
}

// StepOptions tune one invocation.
type StepOptions struct {
	// Fresh bypasses the verdict cache.
	Fresh bool
}

// StepResult describes what one invocation did.
type StepResult struct {
	RunID      string
	PageOffset int
	Visited    int
	Used       int
	Unused     int
	Skipped    int
	NextOffset int
	Total      int64
	Completed  bool

	// OutOfTime is set when the time budget ended the page early.
	OutOfTime bool
}

// Walker is the resumable batch processor.
type Walker struct {
	lister  Lister
	checker Checker
	state   store.StateStore
	logger  log.LoggerService
	cfg     Config
	mime    []string

	mutex sync.Mutex
	now   func() time.Time
}

func NewWalker(lister Lister, checker Checker, state store.StateStore, logger log.LoggerService, cfg Config) *Walker {
	cfg.setDefaults()
	return &Walker{
		lister:  lister,
		checker: checker,
		state:   state,
		logger:  logger,
		cfg:     cfg,
		mime:    wordpress.MimePatterns(cfg.FileTypes),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Step processes one page of the active run, starting a new run when none
// is active. Overlapping calls fail with ErrBusy.
func (w *Walker) Step(ctx context.Context, opts StepOptions) (*StepResult, error) {
	if !w.mutex.TryLock() {
		return nil, ErrBusy
	}
	defer w.mutex.Unlock()

	return w.step(ctx, opts)
}

// Run repeats Step until the run completes or ctx is cancelled.
func (w *Walker) Run(ctx context.Context, opts StepOptions, progress func(*StepResult)) (*StepResult, error) {
	if !w.mutex.TryLock() {
		return nil, ErrBusy
	}
	defer w.mutex.Unlock()

	for {
		result, err := w.step(ctx, opts)
		if err != nil {
			return result, err
		}
		if progress != nil {
			progress(result)
		}
		if result.Completed {
			return result, nil
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
	}
}

func (w *Walker) activeRun(ctx context.Context) (*models.ScanRun, error) {
	run, err := w.state.GetActiveRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active run: %w", err)
	}
	if run != nil {
		return run, nil
	}

	total, err := w.lister.CountAttachments(ctx, w.mime)
	if err != nil {
		return nil, fmt.Errorf("failed to count attachments: %w", err)
	}

	run = &models.ScanRun{
		ID:        uuid.NewString(),
		Status:    models.RunRunning,
		Total:     total,
		StartedAt: w.now(),
	}
	if err := w.state.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	w.logger.Info("Started scan run %s over %d attachments", run.ID, total)
	return run, nil
}

func (w *Walker) step(ctx context.Context, opts StepOptions) (*StepResult, error) {
	started := w.now()
	deadline := started.Add(w.cfg.TimeBudget)

	run, err := w.activeRun(ctx)
	if err != nil {
		return nil, err
	}

	result := &StepResult{
		RunID:      run.ID,
		PageOffset: run.Offset,
		NextOffset: run.Offset,
		Total:      run.Total,
	}

	ids, err := w.lister.ListAttachmentIDs(ctx, w.mime, w.cfg.BatchSize, run.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments at offset %d: %w", run.Offset, err)
	}

	if len(ids) == 0 {
		result.Completed = true
		return result, w.complete(ctx, run)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if w.cfg.Throttle > 0 {
		limiter = rate.NewLimiter(rate.Every(w.cfg.Throttle), 1)
	}

	results := make([]models.ScanResult, 0, len(ids))
	var stepErr error

walk:
	for start := 0; start < len(ids); start += w.cfg.MiniBatch {
		if err := limiter.Wait(ctx); err != nil {
			stepErr = err
			break
		}

		end := min(start+w.cfg.MiniBatch, len(ids))
		for _, id := range ids[start:end] {
			// At least one item per step so the cursor always moves.
			if len(results) > 0 && !w.now().Before(deadline) {
				result.OutOfTime = true
				break walk
			}
			if err := ctx.Err(); err != nil {
				stepErr = err
				break walk
			}

			item := w.classify(ctx, id, opts)
			if ctx.Err() != nil && item.Status == models.ResultSkipped {
				stepErr = ctx.Err()
				break walk
			}
			results = append(results, item)
		}
	}

	for _, item := range results {
		switch item.Status {
		case models.ResultUsed:
			result.Used++
		case models.ResultUnused:
			result.Unused++
		default:
			result.Skipped++
		}
	}

	result.Visited = len(results)
	run.Offset += result.Visited
	run.Steps++
	result.NextOffset = run.Offset

	if result.Visited == len(ids) && stepErr == nil {
		done, err := w.endReached(ctx, run, len(ids))
		if err != nil {
			return nil, err
		}
		result.Completed = done
	}

	if result.Completed {
		finished := w.now()
		run.Status = models.RunCompleted
		run.FinishedAt = &finished
	}

	// The state store may be fine even when ctx is done; use a detached
	// context so visited items are not lost.
	saveCtx := context.WithoutCancel(ctx)
	if err := w.state.SavePage(saveCtx, run, result.PageOffset, results); err != nil {
		return nil, fmt.Errorf("failed to save page at offset %d: %w", result.PageOffset, err)
	}

	w.logger.Info("Run %s: visited %d at offset %d (used %d, unused %d, skipped %d)",
		run.ID, result.Visited, result.PageOffset, result.Used, result.Unused, result.Skipped)

	if result.Completed {
		w.logger.Info("Completed scan run %s: %d used, %d unused, %d skipped",
			run.ID, run.UsedCount, run.UnusedCount, run.SkippedCount)
		w.prune(saveCtx)
	}

	if stepErr != nil {
		return result, stepErr
	}
	return result, nil
}

func (w *Walker) endReached(ctx context.Context, run *models.ScanRun, pageSize int) (bool, error) {
	if pageSize < w.cfg.BatchSize {
		return true, nil
	}

	total, err := w.lister.CountAttachments(ctx, w.mime)
	if err != nil {
		return false, fmt.Errorf("failed to count attachments: %w", err)
	}
	return int64(run.Offset) >= total, nil
}

func (w *Walker) complete(ctx context.Context, run *models.ScanRun) error {
	finished := w.now()
	run.Status = models.RunCompleted
	run.FinishedAt = &finished
	if err := w.state.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	w.logger.Info("Completed scan run %s: %d used, %d unused, %d skipped",
		run.ID, run.UsedCount, run.UnusedCount, run.SkippedCount)
	w.prune(ctx)
	return nil
}

func (w *Walker) prune(ctx context.Context) {
	pruned, err := w.state.PruneRuns(ctx, w.cfg.KeepRuns)
	if err != nil {
		w.logger.Warn("Failed to prune old runs: %v", err)
		return
	}
	if pruned > 0 {
		w.logger.Debug("Pruned %d old runs", pruned)
	}
}

// classify never fails: errors turn the item into a skipped result.
func (w *Walker) classify(ctx context.Context, id uint64, opts StepOptions) models.ScanResult {
	result := models.ScanResult{
		AttachmentID: id,
		CheckedAt:    w.now(),
	}

	verdict, att, err := w.checker.CheckID(ctx, id, usage.Options{Fresh: opts.Fresh})
	if att != nil {
		result.Title = att.Title
		result.URL = att.URL
		result.Path = att.RelativePath
		result.MimeType = att.MimeType
	}

	switch {
	case err != nil:
		result.Status = models.ResultSkipped
		result.Error = err.Error()
		if errors.Is(err, usage.ErrNoURL) || errors.Is(err, wordpress.ErrNotFound) || errors.Is(err, wordpress.ErrNotAttachment) {
			w.logger.Debug("Skipping attachment %d: %v", id, err)
		} else {
			w.logger.Error("Failed to check attachment %d: %v", id, err)
		}
	case verdict.Used:
		result.Status = models.ResultUsed
		result.Reason = string(verdict.Reason)
		result.Detail = verdict.Detail
	default:
		result.Status = models.ResultUnused
	}

	result.FileMissing = verdict.FileMissing
	if !verdict.CheckedAt.IsZero() {
		result.CheckedAt = verdict.CheckedAt
	}
	return result
}
