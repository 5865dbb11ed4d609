package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/pkg/db/models"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
)

func setupStockTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS rental_packages (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL DEFAULT 0,
  stock_count INTEGER NOT NULL DEFAULT 0,
  image_key TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func seedPackage(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()

	pkg := &models.RentalPackage{
		ID:         uuid.New(),
		Name:       "Sound System 2000W",
		StockCount: stock,
	}
	require.NoError(t, db.Create(pkg).Error)
	return pkg.ID
}

func stockCount(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()

	var pkg models.RentalPackage
	require.NoError(t, db.First(&pkg, "id = ?", id).Error)
	return pkg.StockCount
}

func TestReserveMovesStock(t *testing.T) {
	t.Parallel()

	db := setupStockTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()
	id := seedPackage(t, db, 5)

	require.NoError(t, ledger.Reserve(ctx, db, id, 3))
	assert.Equal(t, 2, stockCount(t, db, id))

	require.NoError(t, ledger.Reserve(ctx, db, id, 2))
	assert.Equal(t, 0, stockCount(t, db, id))
}

func TestReserveInsufficientStock(t *testing.T) {
	t.Parallel()

	db := setupStockTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()
	id := seedPackage(t, db, 2)

	err := ledger.Reserve(ctx, db, id, 3)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	// nothing consumed on failure
	assert.Equal(t, 2, stockCount(t, db, id))
}

func TestReserveUnknownPackage(t *testing.T) {
	t.Parallel()

	db := setupStockTestDB(t)
	ledger := NewLedger()

	err := ledger.Reserve(context.Background(), db, uuid.New(), 1)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestReserveRejectsNonPositiveQty(t *testing.T) {
	t.Parallel()

	db := setupStockTestDB(t)
	ledger := NewLedger()
	id := seedPackage(t, db, 5)

	for _, qty := range []int{0, -1} {
		err := ledger.Reserve(context.Background(), db, id, qty)
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
}

func TestReleaseReturnsStock(t *testing.T) {
	t.Parallel()

	db := setupStockTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()
	id := seedPackage(t, db, 1)

	require.NoError(t, ledger.Reserve(ctx, db, id, 1))
	require.NoError(t, ledger.Release(ctx, db, id, 1))
	assert.Equal(t, 1, stockCount(t, db, id))
}

func TestReleaseUnknownPackage(t *testing.T) {
	t.Parallel()

	db := setupStockTestDB(t)
	ledger := NewLedger()

	err := ledger.Release(context.Background(), db, uuid.New(), 1)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestMarkBrokenGuardsRemainingStock(t *testing.T) {
	t.Parallel()

	db := setupStockTestDB(t)
	ctx := context.Background()
	ledger := NewLedger()
	id := seedPackage(t, db, 3)

	require.NoError(t, ledger.MarkBroken(ctx, db, id, 2))
	assert.Equal(t, 1, stockCount(t, db, id))

	err := ledger.MarkBroken(ctx, db, id, 2)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Equal(t, 1, stockCount(t, db, id))
}
