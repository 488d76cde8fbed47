package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// FsStore keeps blobs as files on an afero file system.
type FsStore struct {
	fs afero.Fs
}

// NewFsStore stores blobs below root on the local disk.
func NewFsStore(root string) (*FsStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FsStore{fs: afero.NewBasePathFs(afero.NewOsFs(), root)}, nil
}

// NewMemStore keeps blobs in memory.
func NewMemStore() *FsStore {
	return &FsStore{fs: afero.NewMemMapFs()}
}

func (s *FsStore) Write(_ context.Context, prefix, name string, body io.Reader, _ int64, _ string) (string, error) {
	key := NewKey(prefix, name)
	if err := s.writeFile(key, body); err != nil {
		return "", err
	}
	return key, nil
}

func (s *FsStore) Read(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := s.fs.Open(filepath.FromSlash(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

func (s *FsStore) Copy(ctx context.Context, key, newName string) (string, error) {
	src, err := s.Read(ctx, key)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst := Sibling(key, newName)
	if err := s.writeFile(dst, src); err != nil {
		return "", err
	}
	return dst, nil
}

func (s *FsStore) Rename(ctx context.Context, key, newName string) (string, error) {
	dst := Sibling(key, newName)
	if err := s.Move(ctx, key, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (s *FsStore) Move(_ context.Context, src, dst string) error {
	if err := s.fs.MkdirAll(filepath.FromSlash(path.Dir(dst)), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", dst, err)
	}
	if err := s.fs.Rename(filepath.FromSlash(src), filepath.FromSlash(dst)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotExist
		}
		return fmt.Errorf("move %s: %w", src, err)
	}
	return nil
}

func (s *FsStore) Delete(_ context.Context, key string) error {
	err := s.fs.Remove(filepath.FromSlash(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (s *FsStore) Exists(_ context.Context, key string) (bool, error) {
	return afero.Exists(s.fs, filepath.FromSlash(key))
}

func (s *FsStore) writeFile(key string, body io.Reader) error {
	name := filepath.FromSlash(key)
	if err := s.fs.MkdirAll(filepath.FromSlash(path.Dir(key)), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", key, err)
	}
	f, err := s.fs.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		_ = s.fs.Remove(name)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(name)
		return fmt.Errorf("close %s: %w", key, err)
	}
	return nil
}
