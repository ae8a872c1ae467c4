package cleanup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfslender/Media-Usage-Checker/pkg/db/models"
	"github.com/wolfslender/Media-Usage-Checker/pkg/db/store"
	"github.com/wolfslender/Media-Usage-Checker/pkg/log"
	"github.com/wolfslender/Media-Usage-Checker/pkg/storage"
	"github.com/wolfslender/Media-Usage-Checker/pkg/usage"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress/wptest"
)

const catMetadata = `a:2:{s:4:"file";s:15:"2024/01/cat.jpg";s:5:"sizes";a:1:{s:9:"thumbnail";a:1:{s:4:"file";s:15:"cat-150x150.jpg";}}}`

type fixture struct {
	site    *wptest.Site
	uploads string
	state   *store.GormStore
	cleaner *Cleaner
}

func writeUpload(t *testing.T, root, rel string) string {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("data"), 0o644))
	return full
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	uploads := t.TempDir()
	site := wptest.New(t, uploads)

	files, err := storage.NewFilesystemStorage(uploads, []string{"jpg", "png"})
	require.NoError(t, err)

	state, err := store.NewGormStore(store.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "state.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = state.Close() })
	require.NoError(t, state.Migrate(context.Background()))

	scanner := usage.NewScanner(site.Store, nil, files, log.Discard(), usage.Config{})

	return &fixture{
		site:    site,
		uploads: uploads,
		state:   state,
		cleaner: NewCleaner(site.Store, scanner, files, state, log.Discard()),
	}
}

func TestDeleteRemovesUnusedAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.site.Attachment(42, "2024/01/cat.jpg", "image/jpeg", catMetadata)
	main := writeUpload(t, f.uploads, "2024/01/cat.jpg")
	thumb := writeUpload(t, f.uploads, "2024/01/cat-150x150.jpg")

	run := &models.ScanRun{ID: "run-1", Status: models.RunCompleted, StartedAt: time.Now().UTC()}
	require.NoError(t, f.state.CreateRun(ctx, run))
	require.NoError(t, f.state.SavePage(ctx, run, 0, []models.ScanResult{
		{AttachmentID: 42, Status: models.ResultUnused},
	}))

	report, err := f.cleaner.Delete(ctx, []uint64{42, 42}, ModeDelete, "tester")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	require.Len(t, report.Items, 1)
	assert.Equal(t, 2, report.Items[0].Files)
	assert.Empty(t, report.Items[0].Error)

	assert.NoFileExists(t, main)
	assert.NoFileExists(t, thumb)

	_, err = f.site.Store.GetAttachment(ctx, 42)
	assert.ErrorIs(t, err, wordpress.ErrNotFound)

	var metaCount int64
	require.NoError(t, f.site.DB().Table("wp_postmeta").Where("post_id = ?", 42).Count(&metaCount).Error)
	assert.Zero(t, metaCount)

	result, err := f.state.GetResult(ctx, "run-1", 42)
	require.NoError(t, err)
	assert.Equal(t, models.ResultDeleted, result.Status)

	audit, err := f.state.ListAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, models.ActionDelete, audit[0].Action)
	assert.Equal(t, models.OutcomeDone, audit[0].Outcome)
	assert.Equal(t, "tester", audit[0].Actor)
	assert.Equal(t, 2, audit[0].Files)
}

func TestDeleteRefusesUsedAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.site.Attachment(43, "2024/01/fox.png", "image/png", "")
	file := writeUpload(t, f.uploads, "2024/01/fox.png")
	f.site.Post("page", "publish", `<img class="wp-image-43" src="`+wptest.UploadsURL+`/2024/01/fox.png">`)

	report, err := f.cleaner.Delete(ctx, []uint64{43}, ModeDelete, "tester")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Refused)
	assert.Zero(t, report.Deleted)
	assert.Equal(t, string(usage.ReasonPostContent), report.Items[0].Reason)
	assert.Equal(t, ErrInUse.Error(), report.Items[0].Error)

	assert.FileExists(t, file)
	att, err := f.site.Store.GetAttachment(ctx, 43)
	require.NoError(t, err)
	assert.Equal(t, wordpress.StatusInherit, att.Status)

	audit, err := f.state.ListAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, models.OutcomeRefused, audit[0].Outcome)
}

func TestDeleteRefusesIntegerThemeModReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.site.Attachment(44, "2024/01/hero.jpg", "image/jpeg", "")
	f.site.Attachment(60, "2024/01/banner.jpg", "image/jpeg", "")
	hero := writeUpload(t, f.uploads, "2024/01/hero.jpg")
	banner := writeUpload(t, f.uploads, "2024/01/banner.jpg")
	f.site.Option("theme_mods_classic", `a:1:{s:4:"hero";i:44;}`)
	f.site.Option("widget_custom", `a:1:{i:2;a:1:{s:6:"banner";i:60;}}`)

	report, err := f.cleaner.Delete(ctx, []uint64{44, 60}, ModeDelete, "tester")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Refused)
	assert.Zero(t, report.Deleted)
	for _, item := range report.Items {
		assert.Equal(t, string(usage.ReasonSerialized), item.Reason)
	}

	assert.FileExists(t, hero)
	assert.FileExists(t, banner)
}

func TestDeleteValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cleaner.Delete(ctx, []uint64{1, 0}, ModeDelete, "")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = f.cleaner.Delete(ctx, nil, ModeDelete, "")
	assert.Error(t, err)

	_, err = f.cleaner.Delete(ctx, []uint64{1}, Mode("shred"), "")
	assert.ErrorIs(t, err, ErrInvalidMode)

	page := f.site.Post("page", "publish", "hello")
	report, err := f.cleaner.Delete(ctx, []uint64{999, page}, ModeDelete, "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, wordpress.ErrNotFound.Error(), report.Items[0].Error)
	assert.Equal(t, wordpress.ErrNotAttachment.Error(), report.Items[1].Error)
}

type brokenGuard struct{}

func (brokenGuard) Check(ctx context.Context, att *wordpress.Attachment, opts usage.Options) (usage.Verdict, error) {
	return usage.Verdict{}, errors.New("database went away")
}

func (brokenGuard) Invalidate(ctx context.Context, ids ...uint64) {}

func TestDeleteRefusesWithoutVerdict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.site.Attachment(44, "2024/01/lonely.jpg", "image/jpeg", "")
	file := writeUpload(t, f.uploads, "2024/01/lonely.jpg")

	cleaner := NewCleaner(f.site.Store, brokenGuard{}, nil, f.state, log.Discard())
	report, err := cleaner.Delete(ctx, []uint64{44}, ModeDelete, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Refused)
	assert.Contains(t, report.Items[0].Error, ErrNoVerdict.Error())

	assert.FileExists(t, file)
	_, err = f.site.Store.GetAttachment(ctx, 44)
	assert.NoError(t, err)
}

func TestTrashRestoreAndEmptyTrash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.site.Attachment(45, "2024/01/old.jpg", "image/jpeg", "")
	file := writeUpload(t, f.uploads, "2024/01/old.jpg")

	report, err := f.cleaner.Delete(ctx, []uint64{45}, ModeTrash, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Trashed)
	assert.FileExists(t, file)

	att, err := f.site.Store.GetAttachment(ctx, 45)
	require.NoError(t, err)
	assert.Equal(t, wordpress.StatusTrash, att.Status)

	report, err = f.cleaner.Restore(ctx, []uint64{45}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Restored)

	att, err = f.site.Store.GetAttachment(ctx, 45)
	require.NoError(t, err)
	assert.Equal(t, wordpress.StatusInherit, att.Status)

	_, err = f.cleaner.Delete(ctx, []uint64{45}, ModeTrash, "")
	require.NoError(t, err)

	report, err = f.cleaner.EmptyTrash(ctx, time.Hour, "")
	require.NoError(t, err)
	assert.Empty(t, report.Items)

	f.cleaner.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	report, err = f.cleaner.EmptyTrash(ctx, time.Hour, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.NoFileExists(t, file)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeDelete},
		{in: "delete", want: ModeDelete},
		{in: " Trash ", want: ModeTrash},
		{in: "purge", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
