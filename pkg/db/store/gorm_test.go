package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfslender/Media-Usage-Checker/pkg/db/models"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()

	store, err := NewGormStore(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "state.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Connect(ctx))
	require.NoError(t, store.Migrate(ctx))
	return store
}

func newRun(id string, status string, startedAt time.Time) *models.ScanRun {
	return &models.ScanRun{ID: id, Status: status, StartedAt: startedAt}
}

func TestNewGormStoreValidation(t *testing.T) {
	_, err := NewGormStore(Config{Driver: "sqlite"})
	assert.Error(t, err)

	_, err = NewGormStore(Config{Driver: "postgres"})
	assert.Error(t, err)

	_, err = NewGormStore(Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	statuses, err := store.Migrator().Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	for _, status := range statuses {
		assert.True(t, status.Applied, status.Description)
	}

	pending, err := store.Migrator().Pending(ctx)
	require.NoError(t, err)
	assert.False(t, pending)

	require.NoError(t, store.Migrator().Rollback(ctx))
	pending, err = store.Migrator().Pending(ctx)
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	run, err := store.GetActiveRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, run)

	require.NoError(t, store.CreateRun(ctx, newRun("old", models.RunCompleted, now.Add(-time.Hour))))
	require.NoError(t, store.CreateRun(ctx, newRun("new", models.RunRunning, now)))

	run, err = store.GetActiveRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "new", run.ID)
	assert.True(t, run.Active())

	run, err = store.GetLatestFinishedRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "old", run.ID)

	run.Offset = 200
	require.NoError(t, store.UpdateRun(ctx, run))
	run, err = store.GetRun(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, 200, run.Offset)
}

func TestSavePageReplacesResults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := newRun("run", models.RunRunning, time.Now())
	require.NoError(t, store.CreateRun(ctx, run))

	page := []models.ScanResult{
		{AttachmentID: 1, Status: models.ResultUsed},
		{AttachmentID: 2, Status: models.ResultUnused},
		{AttachmentID: 3, Status: models.ResultSkipped, Error: "attachment has no url"},
	}
	require.NoError(t, store.SavePage(ctx, run, 0, page))
	assert.Equal(t, int64(3), run.Processed)
	assert.Equal(t, int64(1), run.UsedCount)
	assert.Equal(t, int64(1), run.UnusedCount)
	assert.Equal(t, int64(1), run.SkippedCount)

	// Reprocessing the same page replaces its results.
	page = []models.ScanResult{
		{AttachmentID: 1, Status: models.ResultUsed},
		{AttachmentID: 2, Status: models.ResultUsed},
	}
	require.NoError(t, store.SavePage(ctx, run, 0, page))
	require.NoError(t, store.SavePage(ctx, run, 2, []models.ScanResult{{AttachmentID: 9, Status: models.ResultUnused}}))

	stored, err := store.GetRun(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.Processed)
	assert.Equal(t, int64(2), stored.UsedCount)
	assert.Equal(t, int64(1), stored.UnusedCount)
	assert.Zero(t, stored.SkippedCount)

	results, total, err := store.ListResults(ctx, "run", ResultFilter{Status: models.ResultUsed}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(1), results[0].AttachmentID)

	results, total, err = store.ListResults(ctx, "run", ResultFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, results, 3)

	result, err := store.GetResult(ctx, "run", 9)
	require.NoError(t, err)
	assert.Equal(t, 2, result.PageOffset)
}

func TestMarkResults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := newRun("run", models.RunCompleted, time.Now())
	require.NoError(t, store.CreateRun(ctx, run))
	require.NoError(t, store.SavePage(ctx, run, 0, []models.ScanResult{
		{AttachmentID: 1, Status: models.ResultUnused},
		{AttachmentID: 2, Status: models.ResultUnused},
	}))

	require.NoError(t, store.MarkResults(ctx, []uint64{1}, models.ResultDeleted))

	stored, err := store.GetRun(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.UnusedCount)
	assert.Equal(t, int64(2), stored.Processed)

	result, err := store.GetResult(ctx, "run", 1)
	require.NoError(t, err)
	assert.Equal(t, models.ResultDeleted, result.Status)

	require.NoError(t, store.MarkResults(ctx, nil, models.ResultDeleted))
}

func TestPruneRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, id := range []string{"a", "b", "c", "d"} {
		run := newRun(id, models.RunCompleted, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.CreateRun(ctx, run))
		require.NoError(t, store.SavePage(ctx, run, 0, []models.ScanResult{{AttachmentID: uint64(i + 1), Status: models.ResultUsed}}))
	}
	require.NoError(t, store.CreateRun(ctx, newRun("active", models.RunRunning, now.Add(-time.Hour))))

	pruned, err := store.PruneRuns(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	_, err = store.GetRun(ctx, "a")
	assert.Error(t, err)
	_, err = store.GetRun(ctx, "active")
	assert.NoError(t, err)

	var orphans int64
	require.NoError(t, store.DB().Model(&models.ScanResult{}).Where("run_id IN ?", []string{"a", "b"}).Count(&orphans).Error)
	assert.Zero(t, orphans)
}

func TestAudit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddAudit(ctx, &models.AuditEntry{Action: models.ActionTrash, AttachmentID: 4, Outcome: models.OutcomeDone}))
	require.NoError(t, store.AddAudit(ctx, &models.AuditEntry{Action: models.ActionDelete, AttachmentID: 5, Outcome: models.OutcomeRefused}))

	entries, err := store.ListAudit(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(5), entries[0].AttachmentID)
}
