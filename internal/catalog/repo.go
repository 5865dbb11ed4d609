package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/pkg/db/models"
	"github.com/danuartha/sewakit-backend/pkg/pagination"
)

// Repository defines persistence operations for the package catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pkg *models.RentalPackage) (*models.RentalPackage, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.RentalPackage, error)
	List(ctx context.Context, params pagination.Params, filters PackageFilters) ([]models.RentalPackage, string, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pkg *models.RentalPackage) (*models.RentalPackage, error) {
	if err := r.db.WithContext(ctx).Create(pkg).Error; err != nil {
		return nil, err
	}
	return pkg, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RentalPackage, error) {
	var pkg models.RentalPackage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters PackageFilters) ([]models.RentalPackage, string, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.RentalPackage{})
	if filters.Query != "" {
		pattern := "%" + filters.Query + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}
	if filters.InStockOnly {
		query = query.Where("stock_count > 0")
	}

	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, "", err
		}
		if cursor != nil {
			query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}

	var packages []models.RentalPackage
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&packages).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(packages) > normalized {
		next := packages[normalized]
		packages = packages[:normalized]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID})
	}
	return packages, nextCursor, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RentalPackage{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RentalPackage{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
