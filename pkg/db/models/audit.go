package models

import "time"

// Audit actions
const (
	ActionDelete  = "delete"
	ActionTrash   = "trash"
	ActionRestore = "restore"
)

// Audit outcomes
const (
	OutcomeDone    = "done"
	OutcomeRefused = "refused"
	OutcomeFailed  = "failed"
)

// AuditEntry records every destructive or restoring action taken on an
// attachment.
type AuditEntry struct {
	ID           uint   `gorm:"primaryKey"`
	Action       string `gorm:"type:text;not null;index"`
	AttachmentID uint64 `gorm:"not null;index"`
	Outcome      string `gorm:"type:text;not null"`
	Detail       string `gorm:"type:text"`
	Actor        string `gorm:"type:text"`
	Files        int    `gorm:"default:0"` // Physical files removed

	CreatedAt time.Time `gorm:"index"`
}
