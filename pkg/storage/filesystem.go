package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStorage serves files from a local uploads directory.
type FilesystemStorage struct {
	root       string
	extensions extensionSet
}

func NewFilesystemStorage(root string, allowedExtensions []string) (*FilesystemStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("uploads directory is required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve uploads directory: %w", err)
	}

	return &FilesystemStorage{
		root:       abs,
		extensions: newExtensionSet(allowedExtensions),
	}, nil
}

func (s *FilesystemStorage) Type() string {
	return "filesystem"
}

func (s *FilesystemStorage) Root() string {
	return s.root
}

// resolve maps rel to an absolute path inside the root.
func (s *FilesystemStorage) resolve(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty path")
	}

	var full string
	if filepath.IsAbs(rel) {
		full = filepath.Clean(rel)
	} else {
		full = filepath.Join(s.root, filepath.FromSlash(rel))
	}

	inner, err := filepath.Rel(s.root, full)
	if err != nil || inner == "." || inner == ".." || strings.HasPrefix(inner, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
	}
	return full, nil
}

func (s *FilesystemStorage) Exists(ctx context.Context, rel string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	full, err := s.resolve(rel)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	return info.Mode().IsRegular(), nil
}

func (s *FilesystemStorage) Delete(ctx context.Context, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if !s.extensions.allows(full) {
		return fmt.Errorf("%s: %w", rel, ErrExtensionRejected)
	}

	info, err := os.Lstat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("refusing to delete non-regular file %s", rel)
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", rel, err)
	}
	return nil
}
