// Package file manages file records together with their blobs and the owner's
// storage ledger.
//
// Every operation is scoped to an owner. A file that exists but belongs to
// someone else is reported as apperr.ErrNotFound.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/totegamma/mediastore/internal/apperr"
	"github.com/totegamma/mediastore/internal/blob"
	"github.com/totegamma/mediastore/internal/folder"
	"github.com/totegamma/mediastore/internal/ledger"
	"github.com/totegamma/mediastore/internal/logger"
	"github.com/totegamma/mediastore/internal/model"
)

const copyPrefix = "Copy-of-"

type Registry struct {
	db      *gorm.DB
	ledger  *ledger.Ledger
	folders *folder.Registry
	blobs   blob.Store
	locks   *keyedMutex
	now     func() time.Time
}

func New(db *gorm.DB, l *ledger.Ledger, folders *folder.Registry, blobs blob.Store) *Registry {
	return &Registry{
		db:      db,
		ledger:  l,
		folders: folders,
		blobs:   blobs,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

// Create inserts a record for a blob that has already been written and accounted.
func (r *Registry) Create(ctx context.Context, f model.File) (model.File, error) {
	if strings.TrimSpace(f.Name) == "" {
		return model.File{}, apperr.Invalid("file name is required")
	}
	if f.FolderID != nil {
		if _, err := r.folders.Get(ctx, f.OwnerID, *f.FolderID); err != nil {
			return model.File{}, err
		}
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CDate.IsZero() {
		f.CDate = r.now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(&f).Error; err != nil {
		if f.FolderID != nil && apperr.IsForeignKeyViolation(err) {
			// the folder was deleted after the ownership check
			return model.File{}, fmt.Errorf("folder %s: %w", *f.FolderID, apperr.Wrap(apperr.ErrNotFound, err))
		}
		return model.File{}, apperr.FromDB(err)
	}
	return f, nil
}

func (r *Registry) Get(ctx context.Context, ownerID, fileID string) (model.File, error) {
	var f model.File
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", fileID, ownerID).
		First(&f).Error
	if err != nil {
		return model.File{}, fmt.Errorf("file %s: %w", fileID, apperr.FromDB(err))
	}
	return f, nil
}

func (r *Registry) ListByOwner(ctx context.Context, ownerID string) ([]model.File, error) {
	return r.find(ctx, r.db.Where("owner_id = ?", ownerID))
}

func (r *Registry) ListByFolder(ctx context.Context, ownerID, folderID string) ([]model.File, error) {
	return r.find(ctx, r.db.Where("owner_id = ? AND folder_id = ?", ownerID, folderID))
}

// Recent returns the newest files of the owner.
func (r *Registry) Recent(ctx context.Context, ownerID string, limit int) ([]model.File, error) {
	return r.find(ctx, r.db.Where("owner_id = ?", ownerID).Limit(limit))
}

// CreatedBetween returns files created in [from, to), newest first.
func (r *Registry) CreatedBetween(ctx context.Context, ownerID string, from, to time.Time) ([]model.File, error) {
	return r.find(ctx, r.db.Where("owner_id = ? AND c_date >= ? AND c_date < ?", ownerID, from.UTC(), to.UTC()))
}

func (r *Registry) find(ctx context.Context, query *gorm.DB) ([]model.File, error) {
	var files []model.File
	if err := query.WithContext(ctx).Order("c_date desc").Find(&files).Error; err != nil {
		return nil, apperr.FromDB(err)
	}
	return files, nil
}

// Rename moves the blob to a key derived from newName and then updates the
// record. The record is left alone when the blob cannot be moved, and the blob
// is moved back when the record cannot be updated.
func (r *Registry) Rename(ctx context.Context, ownerID, fileID, newName string) (model.File, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return model.File{}, apperr.Invalid("new file name is required")
	}

	unlock := r.locks.Lock(fileID)
	defer unlock()

	f, err := r.Get(ctx, ownerID, fileID)
	if err != nil {
		return model.File{}, err
	}

	newKey, err := r.blobs.Rename(ctx, f.BlobKey, newName)
	if err != nil {
		return model.File{}, apperr.Wrap(apperr.ErrIO, err)
	}

	result := r.db.WithContext(ctx).
		Model(&model.File{}).
		Where("id = ? AND owner_id = ? AND blob_key = ?", f.ID, ownerID, f.BlobKey).
		Updates(map[string]any{"name": newName, "blob_key": newKey})
	if result.Error != nil {
		if err := r.blobs.Move(ctx, newKey, f.BlobKey); err != nil {
			logger.WithError(err).WithField("file", f.ID).Warn("failed to move blob back after rename")
		}
		return model.File{}, apperr.FromDB(result.Error)
	}
	if result.RowsAffected == 0 {
		// The record vanished while the blob was moving.
		if err := r.blobs.Delete(ctx, newKey); err != nil {
			logger.WithError(err).WithField("file", f.ID).Warn("failed to remove blob of vanished file")
		}
		return model.File{}, fmt.Errorf("file %s: %w", fileID, apperr.ErrNotFound)
	}

	f.Name = newName
	f.BlobKey = newKey
	return f, nil
}

// ToggleFavorite flips the favorite flag.
func (r *Registry) ToggleFavorite(ctx context.Context, ownerID, fileID string) (model.File, error) {
	unlock := r.locks.Lock(fileID)
	defer unlock()

	result := r.db.WithContext(ctx).
		Model(&model.File{}).
		Where("id = ? AND owner_id = ?", fileID, ownerID).
		Update("is_favorite", gorm.Expr("NOT is_favorite"))
	if result.Error != nil {
		return model.File{}, apperr.FromDB(result.Error)
	}
	if result.RowsAffected == 0 {
		return model.File{}, fmt.Errorf("file %s: %w", fileID, apperr.ErrNotFound)
	}
	return r.Get(ctx, ownerID, fileID)
}

// Delete removes the blob, then the record and its accounted size together.
// A blob that cannot be removed does not stop the record cleanup; the record
// is what the ledger is accounted against.
func (r *Registry) Delete(ctx context.Context, ownerID, fileID string) (model.File, error) {
	unlock := r.locks.Lock(fileID)
	defer unlock()

	f, err := r.Get(ctx, ownerID, fileID)
	if err != nil {
		return model.File{}, err
	}

	if err := r.blobs.Delete(ctx, f.BlobKey); err != nil {
		logger.WithError(err).WithFields(map[string]any{
			"file": f.ID,
			"key":  f.BlobKey,
		}).Warn("blob removal failed, deleting record anyway")
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND owner_id = ?", f.ID, ownerID).Delete(&model.File{})
		if result.Error != nil {
			return apperr.FromDB(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("file %s: %w", fileID, apperr.ErrNotFound)
		}
		return r.ledger.WithTx(tx).Release(ctx, ownerID, f.Size)
	})
	if err != nil {
		return model.File{}, err
	}
	return f, nil
}

// Duplicate copies a file next to itself.
func (r *Registry) Duplicate(ctx context.Context, ownerID, fileID string) (model.File, error) {
	return r.CopyTo(ctx, ownerID, fileID, nil)
}

// CopyTo copies a file into targetFolderID, or into the source folder when nil.
// Space is reserved before any byte is copied.
func (r *Registry) CopyTo(ctx context.Context, ownerID, fileID string, targetFolderID *string) (model.File, error) {
	unlock := r.locks.Lock(fileID)
	defer unlock()

	src, err := r.Get(ctx, ownerID, fileID)
	if err != nil {
		return model.File{}, err
	}

	dstFolder := src.FolderID
	if targetFolderID != nil {
		target, err := r.folders.Get(ctx, ownerID, *targetFolderID)
		if err != nil {
			return model.File{}, err
		}
		dstFolder = &target.ID
	}

	if err := r.ledger.TryReserve(ctx, ownerID, src.Size); err != nil {
		return model.File{}, err
	}

	name := copyPrefix + src.Name
	newKey, err := r.blobs.Copy(ctx, src.BlobKey, name)
	if err != nil {
		r.release(ctx, ownerID, src.Size)
		return model.File{}, apperr.Wrap(apperr.ErrIO, err)
	}

	dup, err := r.Create(ctx, model.File{
		OwnerID:  ownerID,
		FolderID: dstFolder,
		Name:     name,
		BlobKey:  newKey,
		Size:     src.Size,
		MimeType: src.MimeType,
	})
	if err != nil {
		if delErr := r.blobs.Delete(ctx, newKey); delErr != nil {
			logger.WithError(delErr).WithField("key", newKey).Warn("failed to remove copied blob")
		}
		r.release(ctx, ownerID, src.Size)
		return model.File{}, err
	}
	return dup, nil
}

// SetShareToken stores token unless the file already has one, and returns the
// token the file ends up with.
func (r *Registry) SetShareToken(ctx context.Context, ownerID, fileID, token string) (string, error) {
	unlock := r.locks.Lock(fileID)
	defer unlock()

	err := r.db.WithContext(ctx).
		Model(&model.File{}).
		Where("id = ? AND owner_id = ? AND share_token IS NULL", fileID, ownerID).
		Update("share_token", token).Error
	if err != nil {
		return "", apperr.FromDB(err)
	}

	f, err := r.Get(ctx, ownerID, fileID)
	if err != nil {
		return "", err
	}
	if f.ShareToken == nil {
		return "", apperr.Wrap(apperr.ErrInternal, errors.New("share token was not stored"))
	}
	return *f.ShareToken, nil
}

func (r *Registry) FindByShareToken(ctx context.Context, token string) (model.File, error) {
	var f model.File
	err := r.db.WithContext(ctx).Where("share_token = ?", token).First(&f).Error
	if err != nil {
		return model.File{}, apperr.FromDB(err)
	}
	return f, nil
}

// Open returns the contents of a file.
func (r *Registry) Open(ctx context.Context, f model.File) (*Content, error) {
	body, err := r.blobs.Read(ctx, f.BlobKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIO, err)
	}
	return &Content{File: f, Body: body}, nil
}

// Content is an open file body. The caller closes Body.
type Content struct {
	File model.File
	Body io.ReadCloser
}

func (r *Registry) release(ctx context.Context, ownerID string, n uint64) {
	if err := r.ledger.Release(ctx, ownerID, n); err != nil {
		logger.WithError(err).WithField("owner", ownerID).Error("failed to release reserved space")
	}
}
