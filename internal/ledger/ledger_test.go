package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/totegamma/mediastore/internal/apperr"
	"github.com/totegamma/mediastore/internal/database"
)

func newLedger(t *testing.T, limit, used uint64) (*Ledger, *gorm.DB) {
	t.Helper()
	db := database.OpenTest(t)
	l := New(db, limit)
	_, err := l.Ensure(context.Background(), "alice")
	require.NoError(t, err)
	if used > 0 {
		require.NoError(t, l.TryReserve(context.Background(), "alice", used))
	}
	return l, db
}

func used(t *testing.T, l *Ledger) uint64 {
	t.Helper()
	account, err := l.Get(context.Background(), "alice")
	require.NoError(t, err)
	return account.UsedStorage
}

func TestEnsureIsIdempotent(t *testing.T) {
	l, _ := newLedger(t, 100, 40)

	account, err := l.Ensure(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(40), account.UsedStorage)
	assert.Equal(t, uint64(100), account.StorageLimit)
	assert.Equal(t, uint64(60), account.Available())
}

func TestTryReserve(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, 100, 90)

	err := l.TryReserve(ctx, "alice", 20)
	assert.ErrorIs(t, err, apperr.ErrInsufficientSpace)
	assert.Equal(t, uint64(90), used(t, l))

	require.NoError(t, l.TryReserve(ctx, "alice", 10))
	assert.Equal(t, uint64(100), used(t, l))

	assert.ErrorIs(t, l.TryReserve(ctx, "alice", 1), apperr.ErrInsufficientSpace)
}

func TestTryReserveUnknownAccount(t *testing.T) {
	l, _ := newLedger(t, 100, 0)
	err := l.TryReserve(context.Background(), "mallory", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReleaseFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, 100, 30)

	require.NoError(t, l.Release(ctx, "alice", 10))
	assert.Equal(t, uint64(20), used(t, l))

	require.NoError(t, l.Release(ctx, "alice", 500))
	assert.Equal(t, uint64(0), used(t, l))
}

func TestConcurrentReservationsNeverOvercommit(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, 100, 0)

	var wg sync.WaitGroup
	var granted atomic.Int64
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.TryReserve(ctx, "alice", 7)
			if err == nil {
				granted.Add(1)
				return
			}
			assert.ErrorIs(t, err, apperr.ErrInsufficientSpace)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(14), granted.Load())
	assert.Equal(t, uint64(98), used(t, l))
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	l, db := newLedger(t, 100, 10)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := l.WithTx(tx).TryReserve(ctx, "alice", 50); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, uint64(10), used(t, l))
}

func TestAdjustLimit(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, 100, 60)

	require.NoError(t, l.AdjustLimit(ctx, "alice", 50))
	assert.ErrorIs(t, l.TryReserve(ctx, "alice", 1), apperr.ErrInsufficientSpace)
	assert.Equal(t, uint64(60), used(t, l))

	assert.ErrorIs(t, l.AdjustLimit(ctx, "nobody", 10), apperr.ErrNotFound)
}
