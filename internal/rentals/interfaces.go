package rentals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/pkg/db/models"
	"github.com/danuartha/sewakit-backend/pkg/enums"
	"github.com/danuartha/sewakit-backend/pkg/pagination"
)

// Repository defines persistence operations for rentals and their payment rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateRental(ctx context.Context, rental *models.Rental) (*models.Rental, error)
	CreateRentalLine(ctx context.Context, line *models.RentalLine) error
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindRental(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	FindPendingRentalsBefore(ctx context.Context, cutoff time.Time) ([]models.Rental, error)
	ListRentals(ctx context.Context, params pagination.Params, filters RentalFilters) (*RentalList, error)
	UpdateRentalStatus(ctx context.Context, id uuid.UUID, from, to enums.RentalStatus) (bool, error)
	UpdateRental(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindPaymentByRental(ctx context.Context, rentalID uuid.UUID) (*models.Payment, error)
	UpdatePayment(ctx context.Context, rentalID uuid.UUID, updates map[string]any) error
}
