package blob

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, s Store, key string) string {
	t.Helper()
	r, err := s.Read(context.Background(), key)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestFsStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	key, err := s.Write(ctx, "alice", "cat.png", bytes.NewReader([]byte("meow")), 4, "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "alice/"))
	assert.True(t, strings.HasSuffix(key, "-cat.png"))
	assert.Equal(t, "meow", readAll(t, s, key))

	copied, err := s.Copy(ctx, key, "Copy-of-cat.png")
	require.NoError(t, err)
	assert.NotEqual(t, key, copied)
	assert.Equal(t, "alice", path.Dir(copied))
	assert.Equal(t, "meow", readAll(t, s, copied))

	renamed, err := s.Rename(ctx, key, "dog.png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(renamed, "-dog.png"))
	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "meow", readAll(t, s, renamed))

	require.NoError(t, s.Delete(ctx, renamed))
	ok, err = s.Exists(ctx, renamed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFsStoreMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	assert.NoError(t, s.Delete(ctx, "alice/nothing"))

	_, err := s.Read(ctx, "alice/nothing")
	assert.ErrorIs(t, err, ErrNotExist)

	_, err = s.Copy(ctx, "alice/nothing", "x")
	assert.ErrorIs(t, err, ErrNotExist)

	_, err = s.Rename(ctx, "alice/nothing", "x")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestFsStoreOnDisk(t *testing.T) {
	ctx := context.Background()
	s, err := NewFsStore(t.TempDir())
	require.NoError(t, err)

	key, err := s.Write(ctx, "bob", "notes.pdf", strings.NewReader("%PDF"), 4, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", readAll(t, s, key))
	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "passwd", BaseName("../../etc/passwd"))
	assert.Equal(t, "evil.exe", BaseName(`..\..\evil.exe`))
	assert.Equal(t, "file", BaseName(".."))
	assert.Equal(t, "report.pdf", BaseName("report.pdf"))
}

func TestNewKeyIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		k := NewKey("alice", "a.png")
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
}

func TestFsStoreMoveRestoresExactKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	key, err := s.Write(ctx, "alice", "a.pdf", strings.NewReader("pdf"), 3, "application/pdf")
	require.NoError(t, err)
	renamed, err := s.Rename(ctx, key, "b.pdf")
	require.NoError(t, err)

	require.NoError(t, s.Move(ctx, renamed, key))
	assert.Equal(t, "pdf", readAll(t, s, key))
	assert.ErrorIs(t, s.Move(ctx, renamed, key), ErrNotExist)
}
