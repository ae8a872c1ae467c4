package usage

import (
	"context"
	"errors"
	"time"
)

var ErrNoURL = errors.New("attachment has no url")

// Reason names the store in which a reference was found.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonSiteIdentity Reason = "site_identity"
	ReasonPostMeta     Reason = "post_meta"
	ReasonPostContent  Reason = "post_content"
	ReasonTermMeta     Reason = "term_meta"
	ReasonOptions      Reason = "options"
	ReasonSerialized   Reason = "serialized_option"
)

// Verdict is the outcome of a usage check. An unused verdict is the only
// state that allows deletion.
type Verdict struct {
	AttachmentID uint64    `json:"attachment_id"`
	Used         bool      `json:"used"`
	Reason       Reason    `json:"reason,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	FileMissing  bool      `json:"file_missing,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
	Cached       bool      `json:"-"`
}

// VerdictCache stores verdicts by attachment id for a limited time.
type VerdictCache interface {
	Get(ctx context.Context, id uint64) (*Verdict, error)
	Set(ctx context.Context, v Verdict) error
	Delete(ctx context.Context, ids ...uint64) error
	Clear(ctx context.Context) error
	Close() error
}
