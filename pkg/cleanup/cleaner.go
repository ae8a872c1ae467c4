// Package cleanup removes, trashes and restores attachments once a fresh
// usage check has confirmed nothing references them.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfslender/Media-Usage-Checker/pkg/db/models"
	"github.com/wolfslender/Media-Usage-Checker/pkg/db/store"
	"github.com/wolfslender/Media-Usage-Checker/pkg/log"
	"github.com/wolfslender/Media-Usage-Checker/pkg/storage"
	"github.com/wolfslender/Media-Usage-Checker/pkg/usage"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress"
)

var (
	ErrInUse       = errors.New("attachment is in use")
	ErrNoVerdict   = errors.New("usage could not be determined")
	ErrInvalidID   = errors.New("attachment id must be positive")
	ErrInvalidMode = errors.New("mode must be delete or trash")
)

type Mode string

const (
	ModeDelete Mode = "delete"
	ModeTrash  Mode = "trash"
)

// Library is the part of the WordPress store the cleaner mutates.
type Library interface {
	GetAttachment(ctx context.Context, id uint64) (*wordpress.Attachment, error)
	DeleteAttachment(ctx context.Context, id uint64) error
	TrashAttachment(ctx context.Context, id uint64, at time.Time) error
	RestoreAttachment(ctx context.Context, id uint64) error
	ListTrashed(ctx context.Context, before time.Time) ([]uint64, error)
}

// Guard produces the verdict a deletion depends on.
type Guard interface {
	Check(ctx context.Context, att *wordpress.Attachment, opts usage.Options) (usage.Verdict, error)
	Invalidate(ctx context.Context, ids ...uint64)
}

// Outcome is what happened to one attachment.
type Outcome struct {
	AttachmentID uint64 `json:"attachment_id"`
	Action       string `json:"action"`
	Outcome      string `json:"outcome"`
	Reason       string `json:"reason,omitempty"`
	Error        string `json:"error,omitempty"`
	Files        int    `json:"files,omitempty"`
}

// Report sums up one cleanup request.
type Report struct {
	Deleted  int       `json:"deleted"`
	Trashed  int       `json:"trashed"`
	Restored int       `json:"restored"`
	Refused  int       `json:"refused"`
	Failed   int       `json:"failed"`
	Items    []Outcome `json:"items"`
}

func (r *Report) add(o Outcome) {
	r.Items = append(r.Items, o)
	switch o.Outcome {
	case models.OutcomeRefused:
		r.Refused++
		return
	case models.OutcomeFailed:
		r.Failed++
		return
	}

	switch o.Action {
	case models.ActionDelete:
		r.Deleted++
	case models.ActionTrash:
		r.Trashed++
	case models.ActionRestore:
		r.Restored++
	}
}

type Cleaner struct {
	library Library
	guard   Guard
	files   storage.MediaStorage
	state   store.StateStore
	logger  log.LoggerService
	now     func() time.Time
}

// NewCleaner creates a cleaner. files may be nil, in which case deletions
// only touch the database.
func NewCleaner(library Library, guard Guard, files storage.MediaStorage, state store.StateStore, logger log.LoggerService) *Cleaner {
	return &Cleaner{
		library: library,
		guard:   guard,
		files:   files,
		state:   state,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ParseMode maps the user facing mode names.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDelete, "":
		return ModeDelete, nil
	case ModeTrash:
		return ModeTrash, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

func validateIDs(ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no attachment ids given")
	}

	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, ErrInvalidID
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// Delete deletes or trashes every given attachment that a fresh usage check
// reports as unused. Used attachments, and those whose usage cannot be
// determined, are refused and left untouched.
func (c *Cleaner) Delete(ctx context.Context, ids []uint64, mode Mode, actor string) (*Report, error) {
	if mode != ModeDelete && mode != ModeTrash {
		return nil, ErrInvalidMode
	}
	ids, err := validateIDs(ids)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var done []uint64

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome := c.remove(ctx, id, mode)
		c.audit(ctx, outcome, actor)
		report.add(outcome)

		if outcome.Outcome == models.OutcomeDone {
			done = append(done, id)
		}
	}

	c.guard.Invalidate(ctx, ids...)

	status := models.ResultDeleted
	if mode == ModeTrash {
		status = models.ResultTrashed
	}
	c.mark(ctx, done, status)

	return report, nil
}

func (c *Cleaner) remove(ctx context.Context, id uint64, mode Mode) Outcome {
	outcome := Outcome{AttachmentID: id, Action: string(mode)}

	att, err := c.library.GetAttachment(ctx, id)
	if err != nil {
		return failed(outcome, err)
	}

	verdict, err := c.guard.Check(ctx, att, usage.Options{Fresh: true})
	if err != nil {
		c.logger.Warn("Refusing to %s attachment %d: %v", mode, id, err)
		outcome.Outcome = models.OutcomeRefused
		outcome.Error = fmt.Errorf("%w: %v", ErrNoVerdict, err).Error()
		return outcome
	}
	if verdict.Used {
		c.logger.Info("Refusing to %s attachment %d: used (%s %s)", mode, id, verdict.Reason, verdict.Detail)
		outcome.Outcome = models.OutcomeRefused
		outcome.Reason = string(verdict.Reason)
		outcome.Error = ErrInUse.Error()
		return outcome
	}

	if mode == ModeTrash {
		if err := c.library.TrashAttachment(ctx, id, c.now()); err != nil {
			return failed(outcome, err)
		}
		c.logger.Info("Trashed attachment %d", id)
		outcome.Outcome = models.OutcomeDone
		return outcome
	}

	if err := c.library.DeleteAttachment(ctx, id); err != nil {
		return failed(outcome, err)
	}

	removed, errs := c.removeFiles(ctx, att)
	outcome.Outcome = models.OutcomeDone
	outcome.Files = removed
	if len(errs) > 0 {
		outcome.Error = errors.Join(errs...).Error()
	}

	c.logger.Info("Deleted attachment %d and %d files", id, removed)
	return outcome
}

func (c *Cleaner) removeFiles(ctx context.Context, att *wordpress.Attachment) (int, []error) {
	if c.files == nil {
		return 0, nil
	}

	var removed int
	var errs []error
	for _, rel := range att.Files() {
		if err := c.files.Delete(ctx, rel); err != nil {
			c.logger.Warn("Failed to delete file %s of attachment %d: %v", rel, att.ID, err)
			errs = append(errs, fmt.Errorf("%s: %w", rel, err))
			continue
		}
		removed++
	}
	return removed, errs
}

// Restore takes attachments out of the trash.
func (c *Cleaner) Restore(ctx context.Context, ids []uint64, actor string) (*Report, error) {
	ids, err := validateIDs(ids)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var done []uint64

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome := Outcome{AttachmentID: id, Action: models.ActionRestore, Outcome: models.OutcomeDone}
		if err := c.library.RestoreAttachment(ctx, id); err != nil {
			outcome = failed(outcome, err)
		} else {
			c.logger.Info("Restored attachment %d", id)
			done = append(done, id)
		}

		c.audit(ctx, outcome, actor)
		report.add(outcome)
	}

	c.guard.Invalidate(ctx, ids...)
	c.mark(ctx, done, models.ResultUnused)
	return report, nil
}

// EmptyTrash permanently deletes attachments trashed at least olderThan ago.
// They go through the same usage guard as Delete.
func (c *Cleaner) EmptyTrash(ctx context.Context, olderThan time.Duration, actor string) (*Report, error) {
	ids, err := c.library.ListTrashed(ctx, c.now().Add(-olderThan))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &Report{}, nil
	}

	c.logger.Info("Emptying %d trashed attachments", len(ids))
	return c.Delete(ctx, ids, ModeDelete, actor)
}

func (c *Cleaner) audit(ctx context.Context, o Outcome, actor string) {
	detail := o.Error
	if o.Reason != "" {
		detail = o.Reason + ": " + detail
	}

	entry := &models.AuditEntry{
		Action:       o.Action,
		AttachmentID: o.AttachmentID,
		Outcome:      o.Outcome,
		Detail:       detail,
		Actor:        actor,
		Files:        o.Files,
	}
	if err := c.state.AddAudit(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Error("Failed to write audit entry for attachment %d: %v", o.AttachmentID, err)
	}
}

func (c *Cleaner) mark(ctx context.Context, ids []uint64, status string) {
	if len(ids) == 0 {
		return
	}
	if err := c.state.MarkResults(context.WithoutCancel(ctx), ids, status); err != nil {
		c.logger.Warn("Failed to update stored results: %v", err)
	}
}

func failed(o Outcome, err error) Outcome {
	o.Outcome = models.OutcomeFailed
	o.Error = err.Error()
	return o
}
