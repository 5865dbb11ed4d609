package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RentalLine is the single quantity/price line attached to a rental. UnitPrice
// is snapshotted from the package at booking time.
type RentalLine struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RentalID  uuid.UUID       `gorm:"column:rental_id;type:uuid;not null;uniqueIndex"`
	Qty       int             `gorm:"column:qty;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(15,2);not null"`
}

// Subtotal multiplies the snapshot price by the reserved quantity.
func (l RentalLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}
