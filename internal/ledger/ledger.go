// Package ledger keeps per-account storage usage within its limit.
//
// Every mutation is a single conditional UPDATE, so concurrent reservations for
// the same account are serialized by the database row lock and can never commit
// a usage above the limit together.
package ledger

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/mediastore/internal/apperr"
	"github.com/totegamma/mediastore/internal/model"
)

type Ledger struct {
	db           *gorm.DB
	defaultLimit uint64
}

func New(db *gorm.DB, defaultLimit uint64) *Ledger {
	return &Ledger{db: db, defaultLimit: defaultLimit}
}

// WithTx returns a ledger whose statements run inside tx.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx, defaultLimit: l.defaultLimit}
}

// Ensure returns the account for userID, creating it with the default limit.
func (l *Ledger) Ensure(ctx context.Context, userID string) (model.Account, error) {
	account := model.Account{ID: userID, StorageLimit: l.defaultLimit}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&account).Error
	if err != nil {
		return model.Account{}, apperr.FromDB(err)
	}
	return l.Get(ctx, userID)
}

func (l *Ledger) Get(ctx context.Context, userID string) (model.Account, error) {
	var account model.Account
	err := l.db.WithContext(ctx).Where("id = ?", userID).First(&account).Error
	if err != nil {
		return model.Account{}, apperr.FromDB(err)
	}
	return account, nil
}

// TryReserve adds n bytes to the account usage if the result stays within the limit.
func (l *Ledger) TryReserve(ctx context.Context, userID string, n uint64) error {
	result := l.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND used_storage + ? <= storage_limit", userID, n).
		Update("used_storage", gorm.Expr("used_storage + ?", n))
	if result.Error != nil {
		return apperr.FromDB(result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	// Nothing matched: either the account is missing or it is full.
	account, err := l.Get(ctx, userID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: need %d bytes, %d available", apperr.ErrInsufficientSpace, n, account.Available())
}

// Release subtracts n bytes from the account usage, flooring it at zero.
func (l *Ledger) Release(ctx context.Context, userID string, n uint64) error {
	if n == 0 {
		return nil
	}
	err := l.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", userID).
		Update("used_storage", gorm.Expr("CASE WHEN used_storage > ? THEN used_storage - ? ELSE 0 END", n, n)).
		Error
	return apperr.FromDB(err)
}

// AdjustLimit sets a new storage limit. Usage above the new limit is kept; it
// only blocks further reservations.
func (l *Ledger) AdjustLimit(ctx context.Context, userID string, limit uint64) error {
	result := l.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", userID).
		Update("storage_limit", limit)
	if result.Error != nil {
		return apperr.FromDB(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("account %s: %w", userID, apperr.ErrNotFound)
	}
	return nil
}
