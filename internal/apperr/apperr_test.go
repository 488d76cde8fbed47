package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestKind(t *testing.T) {
	assert.Equal(t, ErrNotFound, Kind(fmt.Errorf("load: %w", ErrNotFound)))
	assert.Equal(t, ErrInsufficientSpace, Kind(Wrap(ErrInsufficientSpace, errors.New("full"))))
	assert.Equal(t, ErrInternal, Kind(errors.New("boom")))
	assert.Equal(t, ErrInvalidInput, Kind(Invalid("name %q", "")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(ErrIO, cause)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "blob store failure: disk on fire", err.Error())
	assert.Nil(t, Wrap(ErrIO, nil))
}

func TestFromDB(t *testing.T) {
	assert.ErrorIs(t, FromDB(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, FromDB(gorm.ErrDuplicatedKey), ErrConflict)
	assert.ErrorIs(t, FromDB(gorm.ErrForeignKeyViolated), ErrConflict)
	assert.ErrorIs(t, FromDB(errors.New("FOREIGN KEY constraint failed")), ErrConflict)
	assert.ErrorIs(t, FromDB(errors.New("connection reset")), ErrInternal)
	assert.NoError(t, FromDB(nil))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "ok", Code(nil))
	assert.Equal(t, "not_found", Code(ErrNotFound))
	assert.Equal(t, "insufficient_space", Code(fmt.Errorf("dup: %w", ErrInsufficientSpace)))
	assert.Equal(t, "internal", Code(errors.New("?")))
}
