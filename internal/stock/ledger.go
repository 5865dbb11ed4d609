package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
)

// Ledger serializes every stock mutation for rental packages. All methods run
// guarded single-statement updates so two transactions can never both consume
// the last unit: the WHERE clause re-checks the count at write time and the
// row lock taken by UPDATE orders concurrent writers.
type Ledger interface {
	// Reserve takes qty units out of the package's stock. It fails with a
	// state conflict when fewer than qty units remain.
	Reserve(ctx context.Context, tx *gorm.DB, packageID uuid.UUID, qty int) error
	// Release returns qty units to the package's stock.
	Release(ctx context.Context, tx *gorm.DB, packageID uuid.UUID, qty int) error
	// MarkBroken permanently removes qty units from circulation.
	MarkBroken(ctx context.Context, tx *gorm.DB, packageID uuid.UUID, qty int) error
}

type ledgerImpl struct{}

// NewLedger exposes the default stock ledger implementation.
func NewLedger() Ledger {
	return ledgerImpl{}
}

func (ledgerImpl) Reserve(ctx context.Context, tx *gorm.DB, packageID uuid.UUID, qty int) error {
	return decrement(ctx, tx, packageID, qty, "reserve stock")
}

func (ledgerImpl) MarkBroken(ctx context.Context, tx *gorm.DB, packageID uuid.UUID, qty int) error {
	return decrement(ctx, tx, packageID, qty, "mark stock broken")
}

func (ledgerImpl) Release(ctx context.Context, tx *gorm.DB, packageID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock release")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE rental_packages
		SET stock_count = stock_count + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, packageID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "rental package not found")
	}
	return nil
}

func decrement(ctx context.Context, tx *gorm.DB, packageID uuid.UUID, qty int, op string) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock updates")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE rental_packages
		SET stock_count = stock_count - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_count >= ?
	`, qty, packageID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, op)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.WithContext(ctx).
			Table("rental_packages").
			Where("id = ?", packageID).
			Count(&count).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
		}
		if count == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "rental package not found")
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").WithDetails(map[string]any{
			"package_id": packageID.String(),
			"requested":  qty,
		})
	}
	return nil
}
