// Package fsxlocal backs fsx.Storage with a directory on disk. Development
// and single-node deployments only.
package fsxlocal

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Abraxas-365/perimeter/pkg/fsx"
)

type LocalStorage struct {
	root    string
	baseURL string
}

// New creates local storage rooted at dir. baseURL is the public prefix
// URL() answers with.
func New(dir, baseURL string) *LocalStorage {
	return &LocalStorage{root: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *LocalStorage) Write(ctx context.Context, path string, data []byte, contentType string) error {
	full := s.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fsx.ErrRegistry.NewWithCause(fsx.CodeIO, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fsx.ErrRegistry.NewWithCause(fsx.CodeIO, err)
	}
	return nil
}

func (s *LocalStorage) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fsx.ErrNotFound()
		}
		return nil, fsx.ErrRegistry.NewWithCause(fsx.CodeIO, err)
	}
	return data, nil
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	if err := os.Remove(s.resolve(path)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fsx.ErrNotFound()
		}
		return fsx.ErrRegistry.NewWithCause(fsx.CodeIO, err)
	}
	return nil
}

func (s *LocalStorage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(s.resolve(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fsx.ErrRegistry.NewWithCause(fsx.CodeIO, err)
}

func (s *LocalStorage) URL(ctx context.Context, path string) (string, error) {
	return s.baseURL + "/" + strings.TrimPrefix(path, "/"), nil
}

func (s *LocalStorage) resolve(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(path, "/")))
}
