package folder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/totegamma/mediastore/internal/apperr"
	"github.com/totegamma/mediastore/internal/model"
)

type Registry struct {
	db      *gorm.DB
	pinCost int
}

// New creates a folder registry. A pinCost of zero selects bcrypt.DefaultCost.
func New(db *gorm.DB, pinCost int) *Registry {
	if pinCost == 0 {
		pinCost = bcrypt.DefaultCost
	}
	return &Registry{db: db, pinCost: pinCost}
}

// Create stores a new folder. A non-empty pin locks the folder.
func (r *Registry) Create(ctx context.Context, ownerID, name, pin string) (model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Folder{}, apperr.Invalid("folder name is required")
	}

	folder := model.Folder{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    name,
	}
	if pin != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pin), r.pinCost)
		if err != nil {
			return model.Folder{}, apperr.Invalid("pin: %v", err)
		}
		h := string(hash)
		folder.IsLocked = true
		folder.PinHash = &h
	}

	if err := r.db.WithContext(ctx).Create(&folder).Error; err != nil {
		return model.Folder{}, apperr.FromDB(err)
	}
	return folder, nil
}

func (r *Registry) Get(ctx context.Context, ownerID, folderID string) (model.Folder, error) {
	var folder model.Folder
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", folderID, ownerID).
		First(&folder).Error
	if err != nil {
		return model.Folder{}, fmt.Errorf("folder %s: %w", folderID, apperr.FromDB(err))
	}
	return folder, nil
}

func (r *Registry) List(ctx context.Context, ownerID string) ([]model.Folder, error) {
	var folders []model.Folder
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("c_date desc").
		Find(&folders).Error
	if err != nil {
		return nil, apperr.FromDB(err)
	}
	return folders, nil
}

// VerifyPin reports whether pin opens the folder. Unlocked folders accept any pin.
func (r *Registry) VerifyPin(ctx context.Context, ownerID, folderID, pin string) (bool, error) {
	folder, err := r.Get(ctx, ownerID, folderID)
	if err != nil {
		return false, err
	}
	if !folder.IsLocked || folder.PinHash == nil {
		return true, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(*folder.PinHash), []byte(pin))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Wrap(apperr.ErrInternal, err)
	}
	return true, nil
}

// Delete removes an empty folder. A folder that still holds files is left in
// place and reported as apperr.ErrConflict.
func (r *Registry) Delete(ctx context.Context, ownerID, folderID string) error {
	members := r.db.Model(&model.File{}).Select("1").Where("files.folder_id = folders.id")
	result := r.db.WithContext(ctx).
		Where("folders.id = ? AND folders.owner_id = ? AND NOT EXISTS (?)", folderID, ownerID, members).
		Delete(&model.Folder{})
	if result.Error != nil {
		return apperr.FromDB(result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	if _, err := r.Get(ctx, ownerID, folderID); err != nil {
		return err
	}
	return fmt.Errorf("folder %s still has files: %w", folderID, apperr.ErrConflict)
}
