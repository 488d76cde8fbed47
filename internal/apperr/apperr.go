// Package apperr defines the error kinds every storage operation reports.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned for absent entities and for entities owned by someone else.
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientSpace = errors.New("insufficient storage space")
	ErrIO                = errors.New("blob store failure")
	ErrConflict          = errors.New("conflict")
	ErrInternal          = errors.New("internal error")
)

var kinds = []error{
	ErrNotFound,
	ErrInvalidInput,
	ErrInsufficientSpace,
	ErrIO,
	ErrConflict,
	ErrInternal,
}

type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.err.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.err}
}

// Wrap attaches kind to err. The result matches both with errors.Is.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return &kindError{kind: kind, err: err}
}

// Invalid builds an ErrInvalidInput error with a message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

// Kind returns the sentinel kind carried by err, or ErrInternal.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// Code returns a short stable name for the kind of err, "ok" for nil.
func Code(err error) string {
	if err == nil {
		return "ok"
	}
	switch Kind(err) {
	case ErrNotFound:
		return "not_found"
	case ErrInvalidInput:
		return "invalid_input"
	case ErrInsufficientSpace:
		return "insufficient_space"
	case ErrIO:
		return "io_error"
	case ErrConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// FromDB classifies an error coming back from gorm.
func FromDB(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey), IsForeignKeyViolation(err):
		return Wrap(ErrConflict, err)
	default:
		return Wrap(ErrInternal, err)
	}
}

// IsForeignKeyViolation reports whether err is a rejected reference, such as a
// file pointing at a folder that no longer exists.
func IsForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	// sqlite drivers older than the gorm translator report it only as text
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
