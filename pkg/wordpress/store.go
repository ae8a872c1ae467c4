package wordpress

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("attachment not found")
	ErrNotAttachment = errors.New("post is not an attachment")
)

// Reference locates the row that made an attachment count as used.
type Reference struct {
	Table string
	ID    uint64
	Key   string
}

// MetaQuery selects meta rows by key and matches their values. Keys and
// KeyPatterns are ORed; an empty key filter matches every key. A row
// matches when its value equals one of Equals, lists one of Members in a
// comma separated list, or matches one of the Contains LIKE patterns.
type MetaQuery struct {
	Keys        []string
	KeyPatterns []string
	ExcludeID   uint64
	Equals      []string
	Members     []string
	Contains    []string
}

func (q MetaQuery) empty() bool {
	return len(q.Equals) == 0 && len(q.Members) == 0 && len(q.Contains) == 0
}

// OptionQuery selects options by name. Names and NamePatterns are ORed.
type OptionQuery struct {
	Names        []string
	NamePatterns []string
	Contains     []string
}

// Uploads is where attachment files are served from and stored.
type Uploads struct {
	BaseURL string
	BaseDir string
}

// ContentStore is the WordPress database as seen by muc.
type ContentStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Health(ctx context.Context) error
	Uploads() Uploads

	// Attachments
	CountAttachments(ctx context.Context, mimePatterns []string) (int64, error)
	ListAttachmentIDs(ctx context.Context, mimePatterns []string, limit, offset int) ([]uint64, error)
	GetAttachment(ctx context.Context, id uint64) (*Attachment, error)
	ListTrashed(ctx context.Context, before time.Time) ([]uint64, error)
	DeleteAttachment(ctx context.Context, id uint64) error
	TrashAttachment(ctx context.Context, id uint64, at time.Time) error
	RestoreAttachment(ctx context.Context, id uint64) error

	// References
	ContentReferences(ctx context.Context, contains []string) (*Reference, error)
	MetaReferences(ctx context.Context, q MetaQuery) (*Reference, error)
	TermMetaReferences(ctx context.Context, q MetaQuery) (*Reference, error)
	OptionReferences(ctx context.Context, q OptionQuery) (*Reference, error)

	// Options
	GetOption(ctx context.Context, name string) (string, bool, error)
	EachOption(ctx context.Context, q OptionQuery, fn func(Option) error) error
}
