package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
)

var ErrInvalidHandle = errors.New("invalid file handle")

// LocalStore keeps uploaded source files under one directory. Handles are
// file names relative to that directory.
type LocalStore struct {
	BaseDir string
}

func NewLocalStore(baseDir string) *LocalStore {
	if baseDir == "" {
		baseDir = "."
	}
	return &LocalStore{BaseDir: baseDir}
}

// Save writes data under name and returns its handle. Content-addressed
// names make a second save of the same upload a harmless overwrite.
func (s *LocalStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	_ = ctx

	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.BaseDir, 0o750); err != nil {
		return "", fmt.Errorf("create upload dir %s: %w", s.BaseDir, err)
	}

	tmp, err := os.CreateTemp(s.BaseDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store %s: %w", name, err)
	}
	return name, nil
}

func (s *LocalStore) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	_ = ctx

	path, err := s.resolve(handle)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", path, err)
	}
	return file, nil
}

func (s *LocalStore) resolve(handle string) (string, error) {
	if handle == "" || !filepath.IsLocal(handle) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	return filepath.Join(s.BaseDir, handle), nil
}
