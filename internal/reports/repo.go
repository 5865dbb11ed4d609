package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/pkg/db/models"
	"github.com/danuartha/sewakit-backend/pkg/enums"
)

// Repository exposes the aggregate queries behind the staff dashboard.
type Repository interface {
	CountCustomers(ctx context.Context) (int64, error)
	CountPackages(ctx context.Context) (int64, error)
	CountRentalsByStatus(ctx context.Context, status enums.RentalStatus) (int64, error)
	CountPaymentsByStatus(ctx context.Context, status enums.PaymentStatus) (int64, error)
	ListRevenuePayments(ctx context.Context) ([]RevenueRow, error)
	TopPackages(ctx context.Context, limit int) ([]PackageRanking, error)
}

// RevenueRow is one settled payment used for revenue aggregation.
type RevenueRow struct {
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// PackageRanking counts rentals per package.
type PackageRanking struct {
	PackageID   uuid.UUID `gorm:"column:package_id"`
	Name        string    `gorm:"column:name"`
	RentalCount int64     `gorm:"column:rental_count"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reports repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountCustomers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Count(&count).Error
	return count, err
}

func (r *repository) CountPackages(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RentalPackage{}).Count(&count).Error
	return count, err
}

func (r *repository) CountRentalsByStatus(ctx context.Context, status enums.RentalStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Rental{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *repository) CountPaymentsByStatus(ctx context.Context, status enums.PaymentStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// ListRevenuePayments returns every settled payment. Bucketing happens in the
// service so the query stays portable across Postgres and the sqlite test DB.
func (r *repository) ListRevenuePayments(ctx context.Context) ([]RevenueRow, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("status IN ?", []enums.PaymentStatus{enums.PaymentStatusPaid, enums.PaymentStatusVerified}).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}

	rows := make([]RevenueRow, 0, len(payments))
	for _, payment := range payments {
		rows = append(rows, RevenueRow{Amount: payment.Amount, CreatedAt: payment.CreatedAt})
	}
	return rows, nil
}

func (r *repository) TopPackages(ctx context.Context, limit int) ([]PackageRanking, error) {
	var rankings []PackageRanking
	err := r.db.WithContext(ctx).
		Table("rentals").
		Select("rental_packages.id AS package_id, rental_packages.name AS name, COUNT(rentals.id) AS rental_count").
		Joins("JOIN rental_packages ON rental_packages.id = rentals.package_id").
		Group("rental_packages.id, rental_packages.name").
		Order("rental_count DESC, rental_packages.name ASC").
		Limit(limit).
		Scan(&rankings).Error
	if err != nil {
		return nil, err
	}
	return rankings, nil
}
