package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfslender/Media-Usage-Checker/internal/config"
)

var (
	ErrOutsideRoot       = errors.New("path escapes the uploads directory")
	ErrExtensionRejected = errors.New("file extension is not allowed")
)

// MediaStorage holds the physical attachment files. Paths are relative to
// the uploads directory, using forward slashes.
type MediaStorage interface {
	Type() string
	Exists(ctx context.Context, rel string) (bool, error)
	// Delete removes a file. Deleting a file that does not exist is not an error.
	Delete(ctx context.Context, rel string) error
}

// New creates the storage backend selected by cfg.
func New(ctx context.Context, cfg config.StorageConfig, uploadsDir string) (MediaStorage, error) {
	switch cfg.Type {
	case "filesystem", "":
		return NewFilesystemStorage(uploadsDir, cfg.AllowedExtensions)
	case "s3":
		return NewS3Storage(ctx, cfg.S3, cfg.AllowedExtensions)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

type extensionSet map[string]bool

func newExtensionSet(exts []string) extensionSet {
	set := make(extensionSet, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return set
}

// allows reports whether name may be deleted. An empty set allows everything.
func (s extensionSet) allows(name string) bool {
	if len(s) == 0 {
		return true
	}

	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return false
	}
	return s[strings.ToLower(name[idx+1:])]
}
