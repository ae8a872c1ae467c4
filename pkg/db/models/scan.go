package models

import (
	"time"
)

// Run states
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunAborted   = "aborted"
)

// Result states
const (
	ResultUsed    = "used"
	ResultUnused  = "unused"
	ResultSkipped = "skipped"
	ResultDeleted = "deleted"
	ResultTrashed = "trashed"
)

// ScanRun is one pass of the batch walker over the media library. The
// cursor survives between invocations so a run can resume.
type ScanRun struct {
	ID     string `gorm:"type:text;primaryKey"`
	Status string `gorm:"type:text;not null;index"`

	// Cursor
	Offset int   `gorm:"not null;default:0"` // Next page starts here
	Total  int64 `gorm:"not null;default:0"` // Attachments when the run started
	Steps  int   `gorm:"not null;default:0"`

	// Totals, recomputed from results after every page
	Processed    int64 `gorm:"not null;default:0"`
	UsedCount    int64 `gorm:"not null;default:0"`
	UnusedCount  int64 `gorm:"not null;default:0"`
	SkippedCount int64 `gorm:"not null;default:0"`

	LastError  string `gorm:"type:text"`
	StartedAt  time.Time
	FinishedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Relationships
	Results []ScanResult `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// Active reports whether the run still has pages to visit.
func (r *ScanRun) Active() bool {
	return r.Status == RunRunning
}

// ScanResult is the outcome for one attachment, grouped by the offset of the
// page it was visited in.
type ScanResult struct {
	ID           uint   `gorm:"primaryKey"`
	RunID        string `gorm:"type:text;not null;index:idx_run_page"`
	PageOffset   int    `gorm:"not null;index:idx_run_page"`
	AttachmentID uint64 `gorm:"not null;index"`

	Status      string `gorm:"type:text;not null;index"`
	Reason      string `gorm:"type:text"`
	Detail      string `gorm:"type:text"`
	FileMissing bool   `gorm:"default:false"`
	Error       string `gorm:"type:text"`

	// Attachment snapshot for listings
	Title    string `gorm:"type:text"`
	URL      string `gorm:"type:text"`
	Path     string `gorm:"type:text"`
	MimeType string `gorm:"type:text"`

	CheckedAt time.Time
}
