package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for keys that would escape the uploads directory.
var ErrInvalidKey = errors.New("invalid storage key")

// DiskStore stores uploads in a local directory.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates dir if needed. Public URLs are baseURL + "/uploads/" + key.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the directory backing the store.
func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, key), nil
}

// Put writes into a temp file and links it into place, so readers never observe a partial file.
func (s *DiskStore) Put(ctx context.Context, key string, _ string, size int64, body io.Reader) error {
	dst, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	var reader io.Reader = body
	if size > 0 {
		reader = io.LimitReader(body, size+1)
	}

	written, err := io.Copy(tmp, reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	if size > 0 && written != size {
		return fmt.Errorf("write upload: got %d bytes, want %d", written, size)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// os.Link fails when dst exists, so an existing upload is never replaced.
	if err := os.Link(tmpPath, dst); err != nil {
		return fmt.Errorf("commit upload: %w", err)
	}
	return nil
}

// Delete removes key. A missing file is not an error.
func (s *DiskStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// URL returns the public address of key.
func (s *DiskStore) URL(key string) string {
	return joinURL(joinURL(s.baseURL, "uploads"), key)
}
