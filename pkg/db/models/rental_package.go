package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RentalPackage is a rentable catalog item with a finite physical stock count.
// StockCount is the authoritative ledger value; every read-check-write on it
// must go through internal/stock so concurrent bookings serialize on the row.
type RentalPackage struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(15,2);not null"`
	StockCount  int             `gorm:"column:stock_count;not null;default:0"`
	ImageKey    *string         `gorm:"column:image_key"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the plural form GORM would otherwise mangle.
func (RentalPackage) TableName() string { return "rental_packages" }
