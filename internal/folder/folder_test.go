package folder

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/totegamma/mediastore/internal/apperr"
	"github.com/totegamma/mediastore/internal/database"
	"github.com/totegamma/mediastore/internal/model"
)

func newRegistry(t *testing.T) *Registry {
	return New(database.OpenTest(t), bcrypt.MinCost)
}

func TestCreateRequiresName(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Create(context.Background(), "alice", "   ", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestCreateUnlocked(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	f, err := r.Create(ctx, "alice", " Photos ", "")
	require.NoError(t, err)
	assert.Equal(t, "Photos", f.Name)
	assert.False(t, f.IsLocked)
	assert.Nil(t, f.PinHash)

	ok, err := r.VerifyPin(ctx, "alice", f.ID, "anything")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateLockedHashesPin(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	f, err := r.Create(ctx, "alice", "Taxes", "4321")
	require.NoError(t, err)
	assert.True(t, f.IsLocked)
	require.NotNil(t, f.PinHash)
	assert.NotContains(t, *f.PinHash, "4321")
	assert.True(t, strings.HasPrefix(*f.PinHash, "$2"))

	stored, err := r.Get(ctx, "alice", f.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.IsLocked, stored.PinHash != nil)

	ok, err := r.VerifyPin(ctx, "alice", f.ID, "4321")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.VerifyPin(ctx, "alice", f.ID, "0000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	f, err := r.Create(ctx, "alice", "Private", "")
	require.NoError(t, err)

	_, err = r.Get(ctx, "bob", f.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = r.VerifyPin(ctx, "bob", f.ID, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, r.Delete(ctx, "bob", f.ID), apperr.ErrNotFound)

	_, err = r.Get(ctx, "alice", f.ID)
	assert.NoError(t, err)
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	a, err := r.Create(ctx, "alice", "A", "")
	require.NoError(t, err)
	_, err = r.Create(ctx, "alice", "B", "")
	require.NoError(t, err)
	_, err = r.Create(ctx, "bob", "C", "")
	require.NoError(t, err)

	folders, err := r.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, folders, 2)

	require.NoError(t, r.Delete(ctx, "alice", a.ID))
	_, err = r.Get(ctx, "alice", a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, "alice", a.ID), apperr.ErrNotFound)
}

func TestDeleteRefusesNonEmptyFolder(t *testing.T) {
	ctx := context.Background()
	db := database.OpenTest(t)
	r := New(db, bcrypt.MinCost)

	f, err := r.Create(ctx, "alice", "Busy", "")
	require.NoError(t, err)
	member := model.File{ID: "0b9f4a52-0000-4000-8000-000000000001", OwnerID: "alice", FolderID: &f.ID, Name: "a.png", BlobKey: "alice/a.png", Size: 1}
	require.NoError(t, db.Create(&member).Error)

	assert.ErrorIs(t, r.Delete(ctx, "alice", f.ID), apperr.ErrConflict)

	require.NoError(t, db.Delete(&member).Error)
	assert.NoError(t, r.Delete(ctx, "alice", f.ID))
}
