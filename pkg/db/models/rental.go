package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danuartha/sewakit-backend/pkg/enums"
)

// Rental is one customer's reservation against a single package. The package
// reference is nullable because staff may delete a package after the fact;
// historical totals stay stable through the Line's price snapshot.
type Rental struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID   uuid.UUID          `gorm:"column:customer_id;type:uuid;not null;index"`
	PackageID    *uuid.UUID         `gorm:"column:package_id;type:uuid;index"`
	InstallDate  time.Time          `gorm:"column:install_date;not null;index"`
	ReturnDate   time.Time          `gorm:"column:return_date;not null"`
	ShippingCost decimal.Decimal    `gorm:"column:shipping_cost;type:numeric(15,2);not null;default:0"`
	Status       enums.RentalStatus `gorm:"column:status;type:rental_status;not null;default:'pending';index"`
	Note         *string            `gorm:"column:note"`
	Customer     *Customer          `gorm:"foreignKey:CustomerID"`
	Package      *RentalPackage     `gorm:"foreignKey:PackageID"`
	Line         *RentalLine        `gorm:"foreignKey:RentalID;constraint:OnDelete:CASCADE"`
	Payment      *Payment           `gorm:"foreignKey:RentalID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalPrice is the line subtotal plus shipping.
func (r Rental) TotalPrice() decimal.Decimal {
	total := r.ShippingCost
	if r.Line != nil {
		total = total.Add(r.Line.Subtotal())
	}
	return total
}
