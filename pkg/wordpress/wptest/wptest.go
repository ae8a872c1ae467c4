// Package wptest seeds throwaway WordPress databases for tests.
package wptest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	SiteURL    = "https://example.test"
	UploadsURL = SiteURL + "/wp-content/uploads"
)

// Site is a seeded WordPress database backed by a temporary sqlite file.
type Site struct {
	t     testing.TB
	db    *gorm.DB
	Path  string
	Store *wordpress.GormStore
}

// New creates an empty site with the standard tables and siteurl option.
// uploadsDir may be empty.
func New(t testing.TB, uploadsDir string) *Site {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wordpress.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Table("wp_posts").AutoMigrate(&wordpress.Post{}))
	require.NoError(t, db.Table("wp_postmeta").AutoMigrate(&wordpress.PostMeta{}))
	require.NoError(t, db.Table("wp_options").AutoMigrate(&wordpress.Option{}))
	require.NoError(t, db.Table("wp_termmeta").AutoMigrate(&wordpress.TermMeta{}))

	site := &Site{t: t, db: db, Path: path}
	site.Option("siteurl", SiteURL)

	site.Store = wordpress.NewGormStoreFromDB(db, wordpress.Config{
		Driver:      "sqlite",
		DSN:         "test",
		TablePrefix: "wp_",
		UploadsDir:  uploadsDir,
	})
	require.NoError(t, site.Store.Connect(context.Background()))
	return site
}

// DB exposes the raw database for assertions.
func (s *Site) DB() *gorm.DB {
	return s.db
}

// Attachment inserts an attachment post with its _wp_attached_file meta and,
// when given, serialized attachment metadata.
func (s *Site) Attachment(id uint64, file, mime, metadata string) uint64 {
	s.t.Helper()

	post := wordpress.Post{
		ID:           id,
		PostTitle:    file,
		PostStatus:   wordpress.StatusInherit,
		PostType:     wordpress.PostTypeAttachment,
		PostMimeType: mime,
		GUID:         UploadsURL + "/" + file,
	}
	require.NoError(s.t, s.db.Table("wp_posts").Create(&post).Error)

	if file != "" {
		s.PostMeta(post.ID, wordpress.MetaAttachedFile, file)
	}
	if metadata != "" {
		s.PostMeta(post.ID, wordpress.MetaAttachmentMetadata, metadata)
	}
	return post.ID
}

// Post inserts a post of the given type and status.
func (s *Site) Post(postType, status, content string) uint64 {
	s.t.Helper()

	post := wordpress.Post{
		PostContent: content,
		PostStatus:  status,
		PostType:    postType,
	}
	require.NoError(s.t, s.db.Table("wp_posts").Create(&post).Error)
	return post.ID
}

func (s *Site) PostMeta(postID uint64, key, value string) {
	s.t.Helper()
	meta := wordpress.PostMeta{PostID: postID, MetaKey: key, MetaValue: value}
	require.NoError(s.t, s.db.Table("wp_postmeta").Create(&meta).Error)
}

func (s *Site) TermMeta(termID uint64, key, value string) {
	s.t.Helper()
	meta := wordpress.TermMeta{TermID: termID, MetaKey: key, MetaValue: value}
	require.NoError(s.t, s.db.Table("wp_termmeta").Create(&meta).Error)
}

func (s *Site) Option(name, value string) {
	s.t.Helper()
	opt := wordpress.Option{OptionName: name, OptionValue: value, Autoload: "yes"}
	require.NoError(s.t, s.db.Table("wp_options").Create(&opt).Error)
}
