package rentals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danuartha/sewakit-backend/pkg/enums"
)

// RentalFilters describe the inputs supported by the rental list.
type RentalFilters struct {
	CustomerID    *uuid.UUID
	Status        *enums.RentalStatus
	PaymentStatus *enums.PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

// RentalSummary exposes the aggregated fields returned in the rental list.
type RentalSummary struct {
	ID            uuid.UUID           `json:"id"`
	CustomerName  string              `json:"customer_name"`
	PackageName   string              `json:"package_name"`
	Qty           int                 `json:"qty"`
	InstallDate   time.Time           `json:"install_date"`
	ReturnDate    time.Time           `json:"return_date"`
	Total         decimal.Decimal     `json:"total"`
	Status        enums.RentalStatus  `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time           `json:"created_at"`
}

// RentalList wraps the paginated rentals plus the next page cursor.
type RentalList struct {
	Rentals    []RentalSummary `json:"rentals"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ChangeStatusInput carries an explicit from/to pair so a stale caller can
// never clobber a transition that happened after their last read.
type ChangeStatusInput struct {
	RentalID    uuid.UUID
	From        enums.RentalStatus
	To          enums.RentalStatus
	Reason      string
	ActorUserID uuid.UUID
}

// VerifyBatchInput selects the rentals a staff member wants to confirm at once.
type VerifyBatchInput struct {
	RentalIDs   []uuid.UUID
	ActorUserID uuid.UUID
}

// VerifyItemResult reports what happened to a single rental in the batch.
type VerifyItemResult struct {
	RentalID uuid.UUID `json:"rental_id"`
	Verified bool      `json:"verified"`
	Failed   bool      `json:"failed,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// VerifyBatchResult summarizes a verification pass. Ineligible rentals are
// skipped and hard failures are counted per rental; neither aborts the batch.
type VerifyBatchResult struct {
	Results  []VerifyItemResult `json:"results"`
	Verified int                `json:"verified"`
	Skipped  int                `json:"skipped"`
	Failed   int                `json:"failed"`
}
