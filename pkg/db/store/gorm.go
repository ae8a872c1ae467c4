package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/wolfslender/Media-Usage-Checker/pkg/db/migrations"
	"github.com/wolfslender/Media-Usage-Checker/pkg/db/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore implements StateStore using SQLite or PostgreSQL
type GormStore struct {
	db       *gorm.DB
	driver   string
	migrator *migrations.Migrator
}

// DB returns the underlying GORM database instance
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// Config holds the state database configuration
type Config struct {
	Driver          string
	Path            string // sqlite
	DSN             string // postgres
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// NewGormStore creates a new state store
func NewGormStore(cfg Config) (*GormStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		dialector = sqlite.Open(cfg.Path)
		cfg.Driver = "sqlite"
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres dsn is required")
		}
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported state driver: %s", cfg.Driver)
	}

	// Default to silent logging
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	store := &GormStore{
		db:       db,
		driver:   cfg.Driver,
		migrator: migrations.NewMigrator(db),
	}

	if err := store.configurePool(cfg); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *GormStore) configurePool(cfg Config) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if s.driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1) // SQLite only supports 1 writer
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(time.Hour)
		return nil
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 10
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime == 0 {
		lifetime = time.Hour
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxLifetime(lifetime)
	return nil
}

// Connect verifies the database connection
func (s *GormStore) Connect(ctx context.Context) error {
	return s.Health(ctx)
}

// Close closes the database connection
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Migrate runs database migrations
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.migrator.Migrate(ctx)
}

func (s *GormStore) Migrator() *migrations.Migrator {
	return s.migrator
}

// Health checks database connectivity
func (s *GormStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Run operations

func (s *GormStore) CreateRun(ctx context.Context, run *models.ScanRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *GormStore) GetRun(ctx context.Context, id string) (*models.ScanRun, error) {
	var run models.ScanRun
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetActiveRun returns the running scan, or nil when there is none.
func (s *GormStore) GetActiveRun(ctx context.Context) (*models.ScanRun, error) {
	return s.firstRun(s.db.WithContext(ctx).Where("status = ?", models.RunRunning))
}

// GetLatestRun returns the most recently started scan, or nil.
func (s *GormStore) GetLatestRun(ctx context.Context) (*models.ScanRun, error) {
	return s.firstRun(s.db.WithContext(ctx))
}

// GetLatestFinishedRun returns the most recently completed scan, or nil.
func (s *GormStore) GetLatestFinishedRun(ctx context.Context) (*models.ScanRun, error) {
	return s.firstRun(s.db.WithContext(ctx).Where("status = ?", models.RunCompleted))
}

func (s *GormStore) firstRun(query *gorm.DB) (*models.ScanRun, error) {
	var run models.ScanRun
	err := query.Order("started_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *GormStore) UpdateRun(ctx context.Context, run *models.ScanRun) error {
	return s.db.WithContext(ctx).Save(run).Error
}

// PruneRuns deletes finished runs and their results beyond the newest keep.
func (s *GormStore) PruneRuns(ctx context.Context, keep int) (int64, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.ScanRun{}).
		Where("status <> ?", models.RunRunning).
		Order("started_at DESC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list old runs: %w", err)
	}
	if keep < 0 {
		keep = 0
	}
	if len(ids) <= keep {
		return 0, nil
	}
	ids = ids[keep:]

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id IN ?", ids).Delete(&models.ScanResult{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.ScanRun{}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return int64(len(ids)), nil
}

// Result operations

// SavePage replaces the results stored for pageOffset, recomputes the run
// totals and saves the run, all in one transaction.
func (s *GormStore) SavePage(ctx context.Context, run *models.ScanRun, pageOffset int, results []models.ScanResult) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("run_id = ? AND page_offset = ?", run.ID, pageOffset).
			Delete(&models.ScanResult{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear page results: %w", err)
		}

		for i := range results {
			results[i].ID = 0
			results[i].RunID = run.ID
			results[i].PageOffset = pageOffset
		}
		if len(results) > 0 {
			if err := tx.CreateInBatches(results, 100).Error; err != nil {
				return fmt.Errorf("failed to store page results: %w", err)
			}
		}

		if err := recount(tx, run); err != nil {
			return err
		}
		return tx.Save(run).Error
	})
}

type statusCount struct {
	Status string
	Count  int64
}

func recount(tx *gorm.DB, run *models.ScanRun) error {
	var counts []statusCount
	err := tx.Model(&models.ScanResult{}).
		Select("status, COUNT(*) AS count").
		Where("run_id = ?", run.ID).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return fmt.Errorf("failed to count results: %w", err)
	}

	run.Processed, run.UsedCount, run.UnusedCount, run.SkippedCount = 0, 0, 0, 0
	for _, c := range counts {
		run.Processed += c.Count
		switch c.Status {
		case models.ResultUsed:
			run.UsedCount = c.Count
		case models.ResultUnused:
			run.UnusedCount = c.Count
		case models.ResultSkipped:
			run.SkippedCount = c.Count
		}
	}
	return nil
}

func (s *GormStore) ListResults(ctx context.Context, runID string, filter ResultFilter, limit, offset int) ([]models.ScanResult, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ScanResult{}).Where("run_id = ?", runID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var results []models.ScanResult
	err := query.Order("attachment_id ASC").Find(&results).Error
	return results, total, err
}

func (s *GormStore) GetResult(ctx context.Context, runID string, attachmentID uint64) (*models.ScanResult, error) {
	var result models.ScanResult
	err := s.db.WithContext(ctx).
		Where("run_id = ? AND attachment_id = ?", runID, attachmentID).
		Order("page_offset DESC").
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// MarkResults sets the status of every stored result for the given
// attachments and refreshes the totals of the affected runs.
func (s *GormStore) MarkResults(ctx context.Context, attachmentIDs []uint64, status string) error {
	if len(attachmentIDs) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var runIDs []string
		err := tx.Model(&models.ScanResult{}).
			Where("attachment_id IN ?", attachmentIDs).
			Distinct().
			Pluck("run_id", &runIDs).Error
		if err != nil {
			return fmt.Errorf("failed to find affected runs: %w", err)
		}

		err = tx.Model(&models.ScanResult{}).
			Where("attachment_id IN ?", attachmentIDs).
			Update("status", status).Error
		if err != nil {
			return fmt.Errorf("failed to mark results: %w", err)
		}

		for _, id := range runIDs {
			var run models.ScanRun
			if err := tx.Where("id = ?", id).First(&run).Error; err != nil {
				return err
			}
			if err := recount(tx, &run); err != nil {
				return err
			}
			if err := tx.Save(&run).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Audit operations

func (s *GormStore) AddAudit(ctx context.Context, entry *models.AuditEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	query := s.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, err
}
