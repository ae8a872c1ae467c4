package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfslender/Media-Usage-Checker/internal/config"
	"github.com/wolfslender/Media-Usage-Checker/pkg/batch"
	"github.com/wolfslender/Media-Usage-Checker/pkg/cleanup"
	"github.com/wolfslender/Media-Usage-Checker/pkg/log"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress/wptest"
)

func TestNewWiresServices(t *testing.T) {
	uploads := t.TempDir()
	site := wptest.New(t, uploads)
	site.Attachment(42, "2024/01/cat.jpg", "image/jpeg", "")
	site.Attachment(43, "2024/01/lonely.jpg", "image/jpeg", "")
	site.Post("post", "publish", `<!-- wp:image {"id":42} -->`)

	lonely := filepath.Join(uploads, "2024", "01", "lonely.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(lonely), 0o755))
	require.NoError(t, os.WriteFile(lonely, []byte("jpg"), 0o644))

	cfg := config.GetDefault()
	cfg.WordPress.Driver = "sqlite"
	cfg.WordPress.DSN = site.Path
	cfg.WordPress.UploadsDir = uploads
	cfg.State.SQLite.Path = filepath.Join(t.TempDir(), "muc.db")
	cfg.Cache.Type = "none"
	cfg.Scanner.Throttle = "0s"
	require.NoError(t, config.Validate(&cfg))

	ctx := context.Background()
	svc, err := New(ctx, &cfg, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, svc.Close()) })

	assert.Nil(t, svc.Cache)
	require.NotNil(t, svc.Files)
	assert.Equal(t, "filesystem", svc.Files.Type())
	assert.Equal(t, wptest.UploadsURL, svc.WordPress.Uploads().BaseURL)

	result, err := svc.Walker.Run(ctx, batch.StepOptions{}, nil)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, 1, result.Used)
	assert.Equal(t, 1, result.Unused)

	report, err := svc.Cleaner.Delete(ctx, []uint64{42, 43}, cleanup.ModeDelete, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Refused)
	assert.Equal(t, 1, report.Deleted)
	assert.NoFileExists(t, lonely)
}

func TestNewFailsOnUnreachableWordPress(t *testing.T) {
	cfg := config.GetDefault()
	cfg.WordPress.Driver = "postgres"

	_, err := New(context.Background(), &cfg, log.Discard())
	assert.Error(t, err)
}
