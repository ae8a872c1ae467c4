package usage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfslender/Media-Usage-Checker/pkg/log"
	"github.com/wolfslender/Media-Usage-Checker/pkg/storage"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress/wptest"
)

type mapCache struct {
	verdicts map[uint64]Verdict
}

func newMapCache() *mapCache {
	return &mapCache{verdicts: make(map[uint64]Verdict)}
}

func (c *mapCache) Get(ctx context.Context, id uint64) (*Verdict, error) {
	v, ok := c.verdicts[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (c *mapCache) Set(ctx context.Context, v Verdict) error {
	c.verdicts[v.AttachmentID] = v
	return nil
}

func (c *mapCache) Delete(ctx context.Context, ids ...uint64) error {
	for _, id := range ids {
		delete(c.verdicts, id)
	}
	return nil
}

func (c *mapCache) Clear(ctx context.Context) error {
	c.verdicts = make(map[uint64]Verdict)
	return nil
}

func (c *mapCache) Close() error { return nil }

// seedSite creates one attachment per scenario before any other post so
// that explicit ids never collide with generated ones.
func seedSite(t *testing.T) *wptest.Site {
	t.Helper()

	site := wptest.New(t, t.TempDir())
	site.Attachment(42, "2024/01/cat.jpg", "image/jpeg", "")
	site.Attachment(43, "2024/01/fox.png", "image/png", "")
	site.Attachment(44, "2024/01/lonely.jpg", "image/jpeg", "")
	site.Attachment(45, "2024/02/gallery.jpg", "image/jpeg", "")
	site.Attachment(46, "2024/02/featured.jpg", "image/jpeg", "")
	site.Attachment(47, "2024/02/icon.png", "image/png", "")
	site.Attachment(48, "2024/02/logo.svg", "image/svg+xml", "")
	site.Attachment(49, "2024/02/term.jpg", "image/jpeg", "")
	site.Attachment(50, "2024/03/hero.jpg", "image/jpeg", "")
	site.Attachment(51, "2024/03/builder.jpg", "image/jpeg", "")
	site.Attachment(52, "2024/03/banner.jpg", "image/jpeg", "")
	site.Attachment(53, "2024/03/masthead.jpg", "image/jpeg", "")

	site.Post("post", "publish", `<p><img src="`+wptest.UploadsURL+`/2024/01/cat.jpg" class="wp-image-42"></p>`)
	site.Post("post", "trash", `<img src="`+wptest.UploadsURL+`/2024/01/lonely.jpg">`)
	pageID := site.Post("page", "publish", "")

	site.Option("widget_text", `a:1:{i:2;a:2:{s:5:"title";s:3:"Fox";s:5:"media";s:2:"43";}}`)
	site.Option("widget_media_gallery", `a:1:{i:3;a:1:{s:3:"ids";a:2:{i:0;i:12;i:1;i:45;}}}`)
	site.Option("site_icon", "47")
	site.Option("stylesheet", "twentytwenty")
	site.Option("theme_mods_twentytwenty", `a:2:{s:11:"custom_logo";i:48;s:12:"header_image";s:0:"";}`)
	site.Option("widget_custom", `a:1:{i:2;a:1:{s:6:"banner";i:52;}}`)
	site.Option("theme_mods_classic", `a:1:{s:4:"hero";i:53;}`)
	site.Option("theme_mods_builder", `a:1:{s:6:"layout";s:36:"{"hero":{"image_id":50,"size":"lg"}}";}`)

	site.PostMeta(pageID, "_thumbnail_id", "46")
	site.PostMeta(pageID, "_elementor_data", `[{"settings":{"image":{"url":"https:\/\/example.test\/wp-content\/uploads\/2024\/03\/builder.jpg","id":51}}}]`)
	site.TermMeta(3, "thumbnail_id", "49")

	return site
}

func newTestScanner(site *wptest.Site, cache VerdictCache, files storage.MediaStorage) *Scanner {
	return NewScanner(site.Store, cache, files, log.Discard(), Config{})
}

func TestScannerVerdicts(t *testing.T) {
	site := seedSite(t)
	scanner := newTestScanner(site, nil, nil)

	tests := []struct {
		name   string
		id     uint64
		used   bool
		reason Reason
	}{
		{"content body", 42, true, ReasonPostContent},
		{"string serialized id in option", 43, true, ReasonOptions},
		{"no references", 44, false, ReasonNone},
		{"integer id in widget gallery", 45, true, ReasonSerialized},
		{"featured image", 46, true, ReasonPostMeta},
		{"site icon", 47, true, ReasonSiteIdentity},
		{"custom logo", 48, true, ReasonSiteIdentity},
		{"term thumbnail", 49, true, ReasonTermMeta},
		{"id in nested json", 50, true, ReasonSerialized},
		{"page builder json", 51, true, ReasonPostMeta},
		{"integer under plain widget key", 52, true, ReasonSerialized},
		{"integer under plain theme mod key", 53, true, ReasonSerialized},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, att, err := scanner.CheckID(ctx, tt.id, Options{})
			require.NoError(t, err)
			require.NotNil(t, att)

			assert.Equal(t, tt.id, verdict.AttachmentID)
			assert.Equal(t, tt.used, verdict.Used, verdict.Detail)
			assert.Equal(t, tt.reason, verdict.Reason, verdict.Detail)
			assert.False(t, verdict.CheckedAt.IsZero())

			used, err := scanner.IsInUse(ctx, att)
			require.NoError(t, err)
			assert.Equal(t, tt.used, used)
		})
	}
}

func TestScannerSerializedPostMeta(t *testing.T) {
	site := seedSite(t)
	postID := site.Post("page", "publish", "")
	site.PostMeta(postID, "panels_data", `a:1:{s:7:"widgets";a:1:{i:0;a:1:{s:8:"image_id";i:44;}}}`)

	verdict, _, err := newTestScanner(site, nil, nil).CheckID(context.Background(), 44, Options{})
	require.NoError(t, err)
	assert.True(t, verdict.Used)
	assert.Equal(t, ReasonPostMeta, verdict.Reason)
	assert.Contains(t, verdict.Detail, "panels_data")
}

func TestScannerNoURL(t *testing.T) {
	site := seedSite(t)
	scanner := newTestScanner(site, nil, nil)

	_, err := scanner.Check(context.Background(), &wordpress.Attachment{ID: 99}, Options{})
	assert.ErrorIs(t, err, ErrNoURL)
}

func TestScannerCache(t *testing.T) {
	site := seedSite(t)
	cache := newMapCache()
	scanner := newTestScanner(site, cache, nil)

	ctx := context.Background()

	verdict, att, err := scanner.CheckID(ctx, 44, Options{})
	require.NoError(t, err)
	assert.False(t, verdict.Used)
	assert.False(t, verdict.Cached)

	site.Post("page", "draft", `<a href="`+att.URL+`">lonely</a>`)

	verdict, err = scanner.Check(ctx, att, Options{})
	require.NoError(t, err)
	assert.False(t, verdict.Used)
	assert.True(t, verdict.Cached)

	verdict, err = scanner.Check(ctx, att, Options{Fresh: true})
	require.NoError(t, err)
	assert.True(t, verdict.Used)
	assert.Equal(t, ReasonPostContent, verdict.Reason)
	assert.True(t, cache.verdicts[44].Used)

	scanner.Invalidate(ctx, 44)
	assert.NotContains(t, cache.verdicts, uint64(44))
}

func TestScannerFlagsMissingFiles(t *testing.T) {
	uploads := t.TempDir()
	site := wptest.New(t, uploads)
	site.Attachment(42, "2024/01/cat.jpg", "image/jpeg", "")
	site.Attachment(44, "2024/01/lonely.jpg", "image/jpeg", "")

	require.NoError(t, os.MkdirAll(filepath.Join(uploads, "2024", "01"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "2024", "01", "cat.jpg"), []byte("jpg"), 0o644))

	files, err := storage.NewFilesystemStorage(uploads, nil)
	require.NoError(t, err)
	scanner := newTestScanner(site, nil, files)

	ctx := context.Background()

	verdict, _, err := scanner.CheckID(ctx, 42, Options{})
	require.NoError(t, err)
	assert.False(t, verdict.FileMissing)

	verdict, _, err = scanner.CheckID(ctx, 44, Options{})
	require.NoError(t, err)
	assert.True(t, verdict.FileMissing)
	assert.False(t, verdict.Used)
}

type failingSource struct {
	ContentSource
}

func (f failingSource) MetaReferences(ctx context.Context, q wordpress.MetaQuery) (*wordpress.Reference, error) {
	return nil, errors.New("connection reset")
}

func TestScannerStoreErrorGivesNoVerdict(t *testing.T) {
	site := seedSite(t)
	cache := newMapCache()
	scanner := NewScanner(failingSource{site.Store}, cache, nil, log.Discard(), Config{})

	_, _, err := scanner.CheckID(context.Background(), 44, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Empty(t, cache.verdicts)
}

func TestScannerExtraMetaKeys(t *testing.T) {
	site := seedSite(t)
	postID := site.Post("post", "publish", "")
	site.PostMeta(postID, "acf_hero", "44")
	site.PostMeta(postID, "custom_banner_image", "44")

	ctx := context.Background()

	verdict, _, err := newTestScanner(site, nil, nil).CheckID(ctx, 44, Options{})
	require.NoError(t, err)
	assert.False(t, verdict.Used)

	scanner := NewScanner(site.Store, nil, nil, log.Discard(), Config{ExtraMetaKeys: []string{"acf_hero"}})
	verdict, _, err = scanner.CheckID(ctx, 44, Options{})
	require.NoError(t, err)
	assert.True(t, verdict.Used)
	assert.Equal(t, ReasonPostMeta, verdict.Reason)
	assert.Contains(t, verdict.Detail, "acf_hero")
}
