// Package blobtest provides a blob store with injectable failures.
package blobtest

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/totegamma/mediastore/internal/blob"
)

// ErrInjected is returned by operations set to fail.
var ErrInjected = errors.New("injected blob failure")

type Op string

const (
	OpWrite  Op = "write"
	OpRead   Op = "read"
	OpCopy   Op = "copy"
	OpRename Op = "rename"
	OpMove   Op = "move"
	OpDelete Op = "delete"
)

// Store wraps an in-memory blob store and counts calls per operation.
type Store struct {
	*blob.FsStore

	mu    sync.Mutex
	fail  map[Op]bool
	calls map[Op]int
}

func New() *Store {
	return &Store{
		FsStore: blob.NewMemStore(),
		fail:    map[Op]bool{},
		calls:   map[Op]int{},
	}
}

// Fail makes every later call of op return ErrInjected.
func (s *Store) Fail(op Op) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = true
}

// Heal clears all injected failures.
func (s *Store) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = map[Op]bool{}
}

func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) enter(op Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	if s.fail[op] {
		return ErrInjected
	}
	return nil
}

func (s *Store) Write(ctx context.Context, prefix, name string, body io.Reader, size int64, contentType string) (string, error) {
	if err := s.enter(OpWrite); err != nil {
		return "", err
	}
	return s.FsStore.Write(ctx, prefix, name, body, size, contentType)
}

func (s *Store) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := s.enter(OpRead); err != nil {
		return nil, err
	}
	return s.FsStore.Read(ctx, key)
}

func (s *Store) Copy(ctx context.Context, key, newName string) (string, error) {
	if err := s.enter(OpCopy); err != nil {
		return "", err
	}
	return s.FsStore.Copy(ctx, key, newName)
}

func (s *Store) Rename(ctx context.Context, key, newName string) (string, error) {
	if err := s.enter(OpRename); err != nil {
		return "", err
	}
	return s.FsStore.Rename(ctx, key, newName)
}

func (s *Store) Move(ctx context.Context, src, dst string) error {
	if err := s.enter(OpMove); err != nil {
		return err
	}
	return s.FsStore.Move(ctx, src, dst)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.enter(OpDelete); err != nil {
		return err
	}
	return s.FsStore.Delete(ctx, key)
}
