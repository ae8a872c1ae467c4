package wordpress

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Post types and states never counted as a reference from post_content.
var (
	ignoredPostTypes    = []string{PostTypeAttachment, "revision"}
	ignoredPostStatuses = []string{StatusTrash, "auto-draft"}
)

const optionBatchSize = 100

// errStopIteration ends EachOption early without reporting an error.
var errStopIteration = errors.New("stop iteration")

// StopIteration can be returned from an EachOption callback to stop early.
func StopIteration() error { return errStopIteration }

// GormStore implements ContentStore on top of a WordPress database.
type GormStore struct {
	db      *gorm.DB
	cfg     Config
	uploads Uploads
}

// Config holds the connection settings of a WordPress database.
type Config struct {
	Driver          string
	DSN             string
	TablePrefix     string
	UploadsURL      string
	UploadsDir      string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// NewGormStore opens the WordPress database described by cfg.
func NewGormStore(cfg Config) (*GormStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("wordpress dsn is required")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported wordpress driver: %s", cfg.Driver)
	}

	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open wordpress database: %w", err)
	}

	return NewGormStoreFromDB(db, cfg), nil
}

// NewGormStoreFromDB wraps an already opened database.
func NewGormStoreFromDB(db *gorm.DB, cfg Config) *GormStore {
	if cfg.TablePrefix == "" {
		cfg.TablePrefix = "wp_"
	}
	return &GormStore{
		db:  db,
		cfg: cfg,
		uploads: Uploads{
			BaseURL: strings.TrimRight(cfg.UploadsURL, "/"),
			BaseDir: cfg.UploadsDir,
		},
	}
}

// DB returns the underlying GORM database instance
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// Table returns the prefixed name of a WordPress table.
func (s *GormStore) Table(name string) string {
	return s.cfg.TablePrefix + name
}

// Connect configures the pool, pings the database and resolves the uploads
// location from the site options where it is not configured.
func (s *GormStore) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if s.cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(s.cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(s.cfg.MaxOpenConns)
	}
	if s.cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping wordpress database: %w", err)
	}

	return s.resolveUploads(ctx)
}

func (s *GormStore) resolveUploads(ctx context.Context) error {
	if s.uploads.BaseURL == "" {
		urlPath, _, err := s.GetOption(ctx, "upload_url_path")
		if err != nil {
			return err
		}

		if urlPath = strings.TrimSpace(urlPath); urlPath != "" {
			s.uploads.BaseURL = strings.TrimRight(urlPath, "/")
		} else {
			siteURL, _, err := s.GetOption(ctx, "siteurl")
			if err != nil {
				return err
			}
			if siteURL = strings.TrimSpace(siteURL); siteURL != "" {
				s.uploads.BaseURL = strings.TrimRight(siteURL, "/") + "/wp-content/uploads"
			}
		}
	}

	if s.uploads.BaseDir == "" {
		uploadPath, _, err := s.GetOption(ctx, "upload_path")
		if err != nil {
			return err
		}
		if filepath.IsAbs(uploadPath) {
			s.uploads.BaseDir = uploadPath
		}
	}
	return nil
}

// Close closes the database connection
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Health checks database connectivity
func (s *GormStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Uploads() Uploads {
	return s.uploads
}

// Attachment operations

func (s *GormStore) attachments(ctx context.Context, mimePatterns []string) *gorm.DB {
	query := s.db.WithContext(ctx).Table(s.Table(TablePosts)).
		Where("post_type = ? AND post_status <> ?", PostTypeAttachment, StatusTrash)

	if len(mimePatterns) > 0 {
		cond, args := anyLike("post_mime_type", mimePatterns)
		query = query.Where(cond, args...)
	}
	return query
}

func (s *GormStore) CountAttachments(ctx context.Context, mimePatterns []string) (int64, error) {
	var count int64
	err := s.attachments(ctx, mimePatterns).Count(&count).Error
	return count, err
}

func (s *GormStore) ListAttachmentIDs(ctx context.Context, mimePatterns []string, limit, offset int) ([]uint64, error) {
	var ids []uint64
	query := s.attachments(ctx, mimePatterns).Order("ID ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Pluck("ID", &ids).Error
	return ids, err
}

// GetAttachment loads an attachment together with its file and size metadata.
func (s *GormStore) GetAttachment(ctx context.Context, id uint64) (*Attachment, error) {
	var posts []Post
	err := s.db.WithContext(ctx).Table(s.Table(TablePosts)).
		Where("ID = ?", id).
		Limit(1).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load post %d: %w", id, err)
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}

	post := posts[0]
	if post.PostType != PostTypeAttachment {
		return nil, ErrNotAttachment
	}

	var metas []PostMeta
	err = s.db.WithContext(ctx).Table(s.Table(TablePostMeta)).
		Where("post_id = ? AND meta_key IN ?", id, []string{MetaAttachedFile, MetaAttachmentMetadata}).
		Find(&metas).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load attachment meta %d: %w", id, err)
	}

	att := &Attachment{
		ID:       post.ID,
		Title:    post.PostTitle,
		Status:   post.PostStatus,
		MimeType: post.PostMimeType,
		GUID:     post.GUID,
	}

	for _, meta := range metas {
		switch meta.MetaKey {
		case MetaAttachedFile:
			att.RelativePath = strings.TrimSpace(meta.MetaValue)
		case MetaAttachmentMetadata:
			// Broken metadata only costs the size candidates.
			if md, err := ParseAttachmentMetadata(meta.MetaValue); err == nil {
				att.Sizes = md.SizeFiles()
			}
		}
	}

	s.locate(att)
	return att, nil
}

func (s *GormStore) locate(att *Attachment) {
	rel := att.RelativePath
	switch {
	case rel == "":
		att.URL = att.GUID
	case filepath.IsAbs(rel):
		// Pre 2.7 installs stored absolute paths.
		att.Path = rel
		if s.uploads.BaseDir != "" {
			if r, err := filepath.Rel(s.uploads.BaseDir, rel); err == nil && !strings.HasPrefix(r, "..") {
				att.RelativePath = filepath.ToSlash(r)
			}
		}
		if s.uploads.BaseURL != "" && att.RelativePath != rel {
			att.URL = s.uploads.BaseURL + "/" + att.RelativePath
		} else {
			att.URL = att.GUID
		}
	default:
		if s.uploads.BaseURL != "" {
			att.URL = s.uploads.BaseURL + "/" + strings.TrimLeft(rel, "/")
		} else {
			att.URL = att.GUID
		}
		if s.uploads.BaseDir != "" {
			att.Path = filepath.Join(s.uploads.BaseDir, filepath.FromSlash(rel))
		}
	}
	att.URL = strings.TrimSpace(att.URL)
}

// ListTrashed returns trashed attachments whose trash time is not after before.
func (s *GormStore) ListTrashed(ctx context.Context, before time.Time) ([]uint64, error) {
	type trashRow struct {
		PostID    uint64
		MetaValue string
	}

	var rows []trashRow
	err := s.db.WithContext(ctx).Table(s.Table(TablePostMeta)+" AS m").
		Select("m.post_id, m.meta_value").
		Joins("JOIN "+s.Table(TablePosts)+" AS p ON p.ID = m.post_id").
		Where("p.post_type = ? AND p.post_status = ? AND m.meta_key = ?", PostTypeAttachment, StatusTrash, MetaTrashTime).
		Order("m.post_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trashed attachments: %w", err)
	}

	var ids []uint64
	for _, row := range rows {
		ts, err := strconv.ParseInt(strings.TrimSpace(row.MetaValue), 10, 64)
		if err != nil {
			continue
		}
		if !time.Unix(ts, 0).After(before) {
			ids = append(ids, row.PostID)
		}
	}
	return ids, nil
}

// DeleteAttachment removes the attachment post and all of its meta rows.
func (s *GormStore) DeleteAttachment(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(s.Table(TablePostMeta)).Where("post_id = ?", id).Delete(&PostMeta{}).Error; err != nil {
			return fmt.Errorf("failed to delete attachment meta: %w", err)
		}

		result := tx.Table(s.Table(TablePosts)).
			Where("ID = ? AND post_type = ?", id, PostTypeAttachment).
			Delete(&Post{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete attachment: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// TrashAttachment moves an attachment to the trash the way wp_trash_post does.
func (s *GormStore) TrashAttachment(ctx context.Context, id uint64, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var statuses []string
		err := tx.Table(s.Table(TablePosts)).
			Where("ID = ? AND post_type = ?", id, PostTypeAttachment).
			Limit(1).
			Pluck("post_status", &statuses).Error
		if err != nil {
			return fmt.Errorf("failed to load attachment status: %w", err)
		}
		if len(statuses) == 0 {
			return ErrNotFound
		}
		if statuses[0] == StatusTrash {
			return nil
		}

		err = tx.Table(s.Table(TablePosts)).
			Where("ID = ?", id).
			Update("post_status", StatusTrash).Error
		if err != nil {
			return fmt.Errorf("failed to trash attachment: %w", err)
		}

		metas := []PostMeta{
			{PostID: id, MetaKey: MetaTrashStatus, MetaValue: statuses[0]},
			{PostID: id, MetaKey: MetaTrashTime, MetaValue: strconv.FormatInt(at.Unix(), 10)},
		}
		if err := tx.Table(s.Table(TablePostMeta)).Create(&metas).Error; err != nil {
			return fmt.Errorf("failed to write trash meta: %w", err)
		}
		return nil
	})
}

// RestoreAttachment takes an attachment out of the trash.
func (s *GormStore) RestoreAttachment(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var statuses []string
		err := tx.Table(s.Table(TablePosts)).
			Where("ID = ? AND post_type = ?", id, PostTypeAttachment).
			Limit(1).
			Pluck("post_status", &statuses).Error
		if err != nil {
			return fmt.Errorf("failed to load attachment status: %w", err)
		}
		if len(statuses) == 0 {
			return ErrNotFound
		}
		if statuses[0] != StatusTrash {
			return nil
		}

		var previous []string
		err = tx.Table(s.Table(TablePostMeta)).
			Where("post_id = ? AND meta_key = ?", id, MetaTrashStatus).
			Limit(1).
			Pluck("meta_value", &previous).Error
		if err != nil {
			return fmt.Errorf("failed to load trash meta: %w", err)
		}

		status := StatusInherit
		if len(previous) > 0 && previous[0] != "" && previous[0] != StatusTrash {
			status = previous[0]
		}

		err = tx.Table(s.Table(TablePosts)).
			Where("ID = ?", id).
			Update("post_status", status).Error
		if err != nil {
			return fmt.Errorf("failed to restore attachment: %w", err)
		}

		err = tx.Table(s.Table(TablePostMeta)).
			Where("post_id = ? AND meta_key IN ?", id, []string{MetaTrashStatus, MetaTrashTime}).
			Delete(&PostMeta{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear trash meta: %w", err)
		}
		return nil
	})
}

// Reference operations

// ContentReferences finds a live post whose content contains one of the
// LIKE patterns.
func (s *GormStore) ContentReferences(ctx context.Context, contains []string) (*Reference, error) {
	if len(contains) == 0 {
		return nil, nil
	}

	cond, args := anyLike("post_content", contains)

	var rows []Post
	err := s.db.WithContext(ctx).Table(s.Table(TablePosts)).
		Select("ID", "post_type").
		Where("post_type NOT IN ? AND post_status NOT IN ?", ignoredPostTypes, ignoredPostStatuses).
		Where(cond, args...).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search post content: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &Reference{Table: TablePosts, ID: rows[0].ID, Key: rows[0].PostType}, nil
}

func (s *GormStore) MetaReferences(ctx context.Context, q MetaQuery) (*Reference, error) {
	return s.metaReferences(ctx, TablePostMeta, "post_id", q)
}

func (s *GormStore) TermMetaReferences(ctx context.Context, q MetaQuery) (*Reference, error) {
	return s.metaReferences(ctx, TableTermMeta, "term_id", q)
}

func (s *GormStore) metaReferences(ctx context.Context, table, owner string, q MetaQuery) (*Reference, error) {
	if q.empty() {
		return nil, nil
	}

	query := s.db.WithContext(ctx).Table(s.Table(table)).
		Select("meta_id", "meta_key")

	if q.ExcludeID > 0 {
		query = query.Where(owner+" <> ?", q.ExcludeID)
	}

	if len(q.Keys) > 0 || len(q.KeyPatterns) > 0 {
		var conds []string
		var args []any
		if len(q.Keys) > 0 {
			conds = append(conds, "meta_key IN ?")
			args = append(args, q.Keys)
		}
		if len(q.KeyPatterns) > 0 {
			cond, likeArgs := anyLike("meta_key", q.KeyPatterns)
			conds = append(conds, cond)
			args = append(args, likeArgs...)
		}
		query = query.Where("("+strings.Join(conds, " OR ")+")", args...)
	}

	var conds []string
	var args []any
	if len(q.Equals) > 0 {
		conds = append(conds, "TRIM(meta_value) IN ?")
		args = append(args, q.Equals)
	}
	if len(q.Members) > 0 {
		var patterns []string
		for _, m := range q.Members {
			e := EscapeLike(m)
			patterns = append(patterns, e+",%", "%,"+e, "%,"+e+",%")
		}
		cond, likeArgs := anyLike("meta_value", patterns)
		conds = append(conds, cond)
		args = append(args, likeArgs...)
	}
	if len(q.Contains) > 0 {
		cond, likeArgs := anyLike("meta_value", q.Contains)
		conds = append(conds, cond)
		args = append(args, likeArgs...)
	}
	query = query.Where("("+strings.Join(conds, " OR ")+")", args...)

	var rows []PostMeta
	if err := query.Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &Reference{Table: table, ID: rows[0].MetaID, Key: rows[0].MetaKey}, nil
}

func (s *GormStore) options(ctx context.Context, q OptionQuery) *gorm.DB {
	query := s.db.WithContext(ctx).Table(s.Table(TableOptions))

	var conds []string
	var args []any
	if len(q.Names) > 0 {
		conds = append(conds, "option_name IN ?")
		args = append(args, q.Names)
	}
	if len(q.NamePatterns) > 0 {
		cond, likeArgs := anyLike("option_name", q.NamePatterns)
		conds = append(conds, cond)
		args = append(args, likeArgs...)
	}
	if len(conds) > 0 {
		query = query.Where("("+strings.Join(conds, " OR ")+")", args...)
	}

	if len(q.Contains) > 0 {
		cond, likeArgs := anyLike("option_value", q.Contains)
		query = query.Where(cond, likeArgs...)
	}
	return query
}

// OptionReferences finds an option selected by q whose value matches one of
// the Contains patterns.
func (s *GormStore) OptionReferences(ctx context.Context, q OptionQuery) (*Reference, error) {
	if len(q.Contains) == 0 {
		return nil, nil
	}

	var rows []Option
	err := s.options(ctx, q).
		Select("option_id", "option_name").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search options: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &Reference{Table: TableOptions, ID: rows[0].OptionID, Key: rows[0].OptionName}, nil
}

// Option operations

func (s *GormStore) GetOption(ctx context.Context, name string) (string, bool, error) {
	var values []string
	err := s.db.WithContext(ctx).Table(s.Table(TableOptions)).
		Where("option_name = ?", name).
		Limit(1).
		Pluck("option_value", &values).Error
	if err != nil {
		return "", false, fmt.Errorf("failed to load option %s: %w", name, err)
	}
	if len(values) == 0 {
		return "", false, nil
	}
	return values[0], true, nil
}

// EachOption streams the options selected by q in batches. Returning
// StopIteration from fn ends the walk without an error.
func (s *GormStore) EachOption(ctx context.Context, q OptionQuery, fn func(Option) error) error {
	var batch []Option
	err := s.options(ctx, q).
		FindInBatches(&batch, optionBatchSize, func(tx *gorm.DB, n int) error {
			for _, opt := range batch {
				if err := fn(opt); err != nil {
					return err
				}
			}
			return nil
		}).Error

	if errors.Is(err, errStopIteration) {
		return nil
	}
	return err
}
