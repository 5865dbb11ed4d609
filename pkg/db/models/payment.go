package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danuartha/sewakit-backend/pkg/enums"
)

// Payment tracks proof upload and staff verification for one rental.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RentalID      uuid.UUID           `gorm:"column:rental_id;type:uuid;not null;uniqueIndex"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(15,2);not null"`
	Method        enums.PaymentMethod `gorm:"column:method;type:payment_method;not null;default:'bank_transfer'"`
	Status        enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending';index"`
	ProofKey      *string             `gorm:"column:proof_key"`
	ReferenceCode *string             `gorm:"column:reference_code"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// HasProof reports whether the customer ever uploaded payment evidence.
func (p Payment) HasProof() bool {
	return p.ProofKey != nil && *p.ProofKey != ""
}
