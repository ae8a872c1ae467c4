package store

import (
	"context"

	"github.com/wolfslender/Media-Usage-Checker/pkg/db/migrations"
	"github.com/wolfslender/Media-Usage-Checker/pkg/db/models"
)

// ResultFilter narrows result listings. Empty Status matches every state.
type ResultFilter struct {
	Status string
}

// StateStore defines the interface for database operations
type StateStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Migrator() *migrations.Migrator
	Health(ctx context.Context) error

	// Run operations
	CreateRun(ctx context.Context, run *models.ScanRun) error
	GetRun(ctx context.Context, id string) (*models.ScanRun, error)
	GetActiveRun(ctx context.Context) (*models.ScanRun, error)
	GetLatestRun(ctx context.Context) (*models.ScanRun, error)
	GetLatestFinishedRun(ctx context.Context) (*models.ScanRun, error)
	UpdateRun(ctx context.Context, run *models.ScanRun) error
	PruneRuns(ctx context.Context, keep int) (int64, error)

	// Result operations
	SavePage(ctx context.Context, run *models.ScanRun, pageOffset int, results []models.ScanResult) error
	ListResults(ctx context.Context, runID string, filter ResultFilter, limit, offset int) ([]models.ScanResult, int64, error)
	GetResult(ctx context.Context, runID string, attachmentID uint64) (*models.ScanResult, error)
	MarkResults(ctx context.Context, attachmentIDs []uint64, status string) error

	// Audit operations
	AddAudit(ctx context.Context, entry *models.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}
