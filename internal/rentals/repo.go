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

type repository struct {
	db *gorm.DB
}

// NewRepository builds a rentals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRental(ctx context.Context, rental *models.Rental) (*models.Rental, error) {
	if err := r.db.WithContext(ctx).Create(rental).Error; err != nil {
		return nil, err
	}
	return rental, nil
}

func (r *repository) CreateRentalLine(ctx context.Context, line *models.RentalLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindRental(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Package").
		Preload("Line").
		Preload("Payment").
		Where("id = ?", id).
		First(&rental).Error
	if err != nil {
		return nil, err
	}
	return &rental, nil
}

func (r *repository) FindPendingRentalsBefore(ctx context.Context, cutoff time.Time) ([]models.Rental, error) {
	var rentals []models.Rental
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Package").
		Preload("Line").
		Preload("Payment").
		Where("status = ? AND created_at < ?", enums.RentalStatusPending, cutoff).
		Order("created_at ASC").
		Find(&rentals).Error
	if err != nil {
		return nil, err
	}
	return rentals, nil
}

func (r *repository) ListRentals(ctx context.Context, params pagination.Params, filters RentalFilters) (*RentalList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Rental{}).
		Preload("Customer").
		Preload("Package").
		Preload("Line").
		Preload("Payment")

	if filters.CustomerID != nil {
		query = query.Where("rentals.customer_id = ?", *filters.CustomerID)
	}
	if filters.Status != nil {
		query = query.Where("rentals.status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		query = query.
			Joins("JOIN payments ON payments.rental_id = rentals.id").
			Where("payments.status = ?", *filters.PaymentStatus)
	}
	if filters.DateFrom != nil {
		query = query.Where("rentals.install_date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("rentals.install_date <= ?", *filters.DateTo)
	}

	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, err
		}
		if cursor != nil {
			query = query.Where("(rentals.created_at, rentals.id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}

	var rentals []models.Rental
	if err := query.Order("rentals.created_at DESC, rentals.id DESC").Limit(limit).Find(&rentals).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rentals) > normalized {
		next := rentals[normalized]
		rentals = rentals[:normalized]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID})
	}

	summaries := make([]RentalSummary, 0, len(rentals))
	for _, rental := range rentals {
		summaries = append(summaries, summarize(rental))
	}
	return &RentalList{Rentals: summaries, NextCursor: nextCursor}, nil
}

func summarize(rental models.Rental) RentalSummary {
	summary := RentalSummary{
		ID:          rental.ID,
		InstallDate: rental.InstallDate,
		ReturnDate:  rental.ReturnDate,
		Total:       rental.TotalPrice(),
		Status:      rental.Status,
		CreatedAt:   rental.CreatedAt,
	}
	if rental.Customer != nil {
		summary.CustomerName = rental.Customer.Name
	}
	if rental.Package != nil {
		summary.PackageName = rental.Package.Name
	}
	if rental.Line != nil {
		summary.Qty = rental.Line.Qty
	}
	if rental.Payment != nil {
		summary.PaymentStatus = rental.Payment.Status
	}
	return summary
}

// UpdateRentalStatus applies a guarded transition. The WHERE clause re-checks
// the current status at write time so concurrent transitions lose cleanly.
func (r *repository) UpdateRentalStatus(ctx context.Context, id uuid.UUID, from, to enums.RentalStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Rental{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateRental(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Rental{}).
		Where("id = ?", id).
		UpdateColumns(updates).Error
}

func (r *repository) FindPaymentByRental(ctx context.Context, rentalID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("rental_id = ?", rentalID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) UpdatePayment(ctx context.Context, rentalID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("rental_id = ?", rentalID).
		UpdateColumns(updates).Error
}
