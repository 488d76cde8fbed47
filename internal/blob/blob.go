// Package blob stores file contents under opaque keys.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotExist is returned by Read when no object is stored under the key.
var ErrNotExist = errors.New("blob does not exist")

// Store is the byte storage used for file contents.
//
// Delete succeeds when the object is already gone. Copy and Rename place the new
// object next to the old one and return its key. Move puts an object under an
// exact key and is what undoes a Rename.
type Store interface {
	Write(ctx context.Context, prefix, name string, body io.Reader, size int64, contentType string) (string, error)
	Read(ctx context.Context, key string) (io.ReadCloser, error)
	Copy(ctx context.Context, key, newName string) (string, error)
	Rename(ctx context.Context, key, newName string) (string, error)
	Move(ctx context.Context, src, dst string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

var now = time.Now

// NewKey builds a fresh key under prefix for an object called name.
func NewKey(prefix, name string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return path.Join(prefix, fmt.Sprintf("%d-%s-%s", now().UnixMilli(), id, BaseName(name)))
}

// Sibling builds a fresh key in the same directory as key.
func Sibling(key, name string) string {
	return NewKey(path.Dir(key), name)
}

// BaseName strips any directory components from a client supplied name.
func BaseName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	switch name {
	case ".", "..", "/":
		return "file"
	}
	return name
}
