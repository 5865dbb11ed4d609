package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/internal/catalog"
	"github.com/danuartha/sewakit-backend/internal/customers"
	"github.com/danuartha/sewakit-backend/internal/notifications"
	"github.com/danuartha/sewakit-backend/internal/rentals"
	"github.com/danuartha/sewakit-backend/internal/stock"
	"github.com/danuartha/sewakit-backend/pkg/config"
	"github.com/danuartha/sewakit-backend/pkg/db/models"
	"github.com/danuartha/sewakit-backend/pkg/enums"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BookInput carries everything a customer submits when reserving a package.
type BookInput struct {
	CustomerID   uuid.UUID
	PackageID    uuid.UUID
	Qty          int
	InstallDate  time.Time
	ReturnDate   time.Time
	ShippingCost decimal.Decimal
	Method       enums.PaymentMethod
	Note         *string
}

// Service books rentals. Reservation, order rows, payment row, and the staff
// notification commit in a single transaction: either the customer holds the
// stock or nothing happened.
type Service interface {
	Book(ctx context.Context, input BookInput) (*models.Rental, error)
}

// Params wires the booking service dependencies.
type Params struct {
	Rentals   rentals.Repository
	Catalog   catalog.Repository
	Customers customers.Repository
	Tx        txRunner
	Ledger    stock.Ledger
	Emitter   notifications.Emitter
	Config    config.BookingConfig
}

type service struct {
	rentals   rentals.Repository
	catalog   catalog.Repository
	customers customers.Repository
	tx        txRunner
	ledger    stock.Ledger
	emitter   notifications.Emitter
	cfg       config.BookingConfig
	now       func() time.Time
}

// NewService builds a booking service with the required dependencies.
func NewService(params Params) (Service, error) {
	if params.Rentals == nil {
		return nil, fmt.Errorf("rentals repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Emitter == nil {
		return nil, fmt.Errorf("notification emitter required")
	}
	if params.Config.DefaultRentalDays <= 0 {
		params.Config.DefaultRentalDays = 1
	}
	return &service{
		rentals:   params.Rentals,
		catalog:   params.Catalog,
		customers: params.Customers,
		tx:        params.Tx,
		ledger:    params.Ledger,
		emitter:   params.Emitter,
		cfg:       params.Config,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Book(ctx context.Context, input BookInput) (*models.Rental, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.PackageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id required")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}
	if input.InstallDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "install date required")
	}
	now := s.now()
	if input.InstallDate.Before(now.Truncate(24 * time.Hour)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "install date cannot be in the past")
	}
	returnDate := input.ReturnDate
	if returnDate.IsZero() {
		returnDate = input.InstallDate.Add(time.Duration(s.cfg.DefaultRentalDays) * 24 * time.Hour)
	}
	if returnDate.Before(input.InstallDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return date cannot precede install date")
	}
	if input.ShippingCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping cost cannot be negative")
	}
	method := input.Method
	if method == "" {
		method = enums.PaymentMethodBankTransfer
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var booked *models.Rental
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rentalRepo := s.rentals.WithTx(tx)

		customer, err := s.customers.WithTx(tx).FindByID(ctx, input.CustomerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
		}

		pkg, err := s.catalog.WithTx(tx).FindByID(ctx, input.PackageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load package")
		}

		// the guarded decrement is the overbooking gate: of N concurrent
		// bookings against K units, at most K worth of qty get past this line
		if err := s.ledger.Reserve(ctx, tx, pkg.ID, input.Qty); err != nil {
			return err
		}

		packageID := pkg.ID
		rental := &models.Rental{
			ID:           uuid.New(),
			CustomerID:   customer.ID,
			PackageID:    &packageID,
			InstallDate:  input.InstallDate,
			ReturnDate:   returnDate,
			ShippingCost: input.ShippingCost,
			Status:       enums.RentalStatusPending,
			Note:         input.Note,
		}
		if _, err := rentalRepo.CreateRental(ctx, rental); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rental")
		}

		line := &models.RentalLine{
			ID:        uuid.New(),
			RentalID:  rental.ID,
			Qty:       input.Qty,
			UnitPrice: pkg.Price,
		}
		if err := rentalRepo.CreateRentalLine(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rental line")
		}

		amount := pkg.Price.Mul(decimal.NewFromInt(int64(input.Qty))).Add(input.ShippingCost)
		payment := &models.Payment{
			ID:       uuid.New(),
			RentalID: rental.ID,
			Amount:   amount,
			Method:   method,
			Status:   enums.PaymentStatusPending,
		}
		if _, err := rentalRepo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}

		if err := s.emitter.Emit(ctx, tx,
			notifications.BookingCreated(customer.Name, pkg.Name, input.Qty),
			notifications.BookingPlacedForCustomer(customer.UserID, pkg.Name),
		); err != nil {
			return err
		}

		booked, err = rentalRepo.FindRental(ctx, rental.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload rental")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booked, nil
}
