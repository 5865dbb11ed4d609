package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/internal/stock"
	"github.com/danuartha/sewakit-backend/pkg/db/models"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
	"github.com/danuartha/sewakit-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PackageFilters describe the inputs supported by the package list.
type PackageFilters struct {
	Query       string
	InStockOnly bool
}

// PackageList wraps the paginated catalog page.
type PackageList struct {
	Packages   []models.RentalPackage `json:"packages"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// CreatePackageInput carries the fields staff submit for a new package.
type CreatePackageInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	StockCount  int
	ImageKey    *string
}

// UpdatePackageInput carries partial catalog edits. Nil fields are untouched.
// Stock is intentionally absent: all stock movement goes through the ledger.
type UpdatePackageInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	ImageKey    *string
}

// MarkBrokenInput removes broken units from circulation.
type MarkBrokenInput struct {
	PackageID   uuid.UUID
	Qty         int
	ActorUserID uuid.UUID
}

// Service defines catalog operations.
type Service interface {
	Create(ctx context.Context, input CreatePackageInput) (*models.RentalPackage, error)
	Get(ctx context.Context, id uuid.UUID) (*models.RentalPackage, error)
	List(ctx context.Context, params pagination.Params, filters PackageFilters) (*PackageList, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePackageInput) (*models.RentalPackage, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MarkBroken(ctx context.Context, input MarkBrokenInput) error
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger stock.Ledger
}

// NewService builds a catalog service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledger stock.Ledger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	return &service{repo: repo, tx: tx, ledger: ledger}, nil
}

func (s *service) Create(ctx context.Context, input CreatePackageInput) (*models.RentalPackage, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package name required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.StockCount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock count cannot be negative")
	}

	pkg := &models.RentalPackage{
		ID:          uuid.New(),
		Name:        name,
		Description: input.Description,
		Price:       input.Price,
		StockCount:  input.StockCount,
		ImageKey:    input.ImageKey,
	}
	created, err := s.repo.Create(ctx, pkg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create package")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.RentalPackage, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id required")
	}
	pkg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load package")
	}
	return pkg, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters PackageFilters) (*PackageList, error) {
	packages, next, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list packages")
	}
	return &PackageList{Packages: packages, NextCursor: next}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdatePackageInput) (*models.RentalPackage, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id required")
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "package name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price"] = *input.Price
	}
	if input.ImageKey != nil {
		updates["image_key"] = *input.ImageKey
	}
	if len(updates) == 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}

	affected, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update package")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "package id required")
	}
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete package")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
	}
	return nil
}

// MarkBroken runs through the stock ledger so the decrement is guarded the
// same way bookings are: it can never drive the count below zero, even when
// a customer books concurrently.
func (s *service) MarkBroken(ctx context.Context, input MarkBrokenInput) error {
	if input.PackageID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "package id required")
	}
	if input.Qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ledger.MarkBroken(ctx, tx, input.PackageID, input.Qty)
	})
}
