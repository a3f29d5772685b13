// Package fsstore is a filesystem-backed implementation of
// storage.Store, the local alternative to a real object store for
// dev runs without an S3 bucket.
package fsstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ledgerpipe/ledgerpipe/internal/storage"
)

// Store writes artifacts under a root directory, mirroring the
// logical path layout exactly.
type Store struct {
	Root string
}

// New returns a fsstore rooted at root, creating it if necessary.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: create root %s: %w", root, err)
	}
	return &Store{Root: root}, nil
}

var _ storage.Store = (*Store)(nil)

func (s *Store) resolve(logicalPath string) string {
	return filepath.Join(s.Root, filepath.FromSlash(logicalPath))
}

// Put copies localPath into the store at logicalPath.
func (s *Store) Put(ctx context.Context, localPath, logicalPath string) (string, error) {
	dst := s.resolve(logicalPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("fsstore: mkdir for %s: %w", logicalPath, err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("fsstore: open source %s: %w", localPath, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("fsstore: create dest %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("fsstore: copy to %s: %w", dst, err)
	}
	return "file://" + dst, nil
}

// Get returns the local path for logicalPath, the file is already
// on local disk so no copy is made.
func (s *Store) Get(ctx context.Context, logicalPath string) (string, error) {
	p := s.resolve(logicalPath)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("fsstore: get %s: %w", logicalPath, err)
	}
	return p, nil
}

// Exists reports whether logicalPath has been written.
func (s *Store) Exists(ctx context.Context, logicalPath string) (bool, error) {
	_, err := os.Stat(s.resolve(logicalPath))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
