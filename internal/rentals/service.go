package rentals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/internal/notifications"
	"github.com/danuartha/sewakit-backend/internal/stock"
	"github.com/danuartha/sewakit-backend/pkg/db/models"
	"github.com/danuartha/sewakit-backend/pkg/enums"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
	"github.com/danuartha/sewakit-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines rental lifecycle operations beyond repository reads.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	List(ctx context.Context, params pagination.Params, filters RentalFilters) (*RentalList, error)
	ChangeStatus(ctx context.Context, input ChangeStatusInput) error
	VerifyBatch(ctx context.Context, input VerifyBatchInput) (*VerifyBatchResult, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	ledger  stock.Ledger
	emitter notifications.Emitter
	now     func() time.Time
}

// Params wires the rental service dependencies.
type Params struct {
	Repo    Repository
	Tx      txRunner
	Ledger  stock.Ledger
	Emitter notifications.Emitter
}

// NewService builds a rental service with the required dependencies.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("rentals repository required")
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
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		ledger:  params.Ledger,
		emitter: params.Emitter,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}
	rental, err := s.repo.FindRental(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental")
	}
	return rental, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters RentalFilters) (*RentalList, error) {
	list, err := s.repo.ListRentals(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rentals")
	}
	return list, nil
}

// canTransition encodes the rental state machine. Active statuses (pending,
// confirmed) can always be deactivated to cancelled or completed, staff can
// re-activate a cancelled or completed rental to either active status, and a
// pending rental moves forward to confirmed. Only same-side moves other than
// pending to confirmed are rejected.
func canTransition(from, to enums.RentalStatus) bool {
	if from.IsActive() != to.IsActive() {
		return true
	}
	return from == enums.RentalStatusPending && to == enums.RentalStatusConfirmed
}

func (s *service) ChangeStatus(ctx context.Context, input ChangeStatusInput) error {
	if input.RentalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}
	if !input.From.IsValid() || !input.To.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid rental status")
	}
	if input.From == input.To {
		return pkgerrors.New(pkgerrors.CodeValidation, "from and to status must differ")
	}
	if !canTransition(input.From, input.To) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "state transition disallowed").WithDetails(map[string]any{
			"from": input.From.String(),
			"to":   input.To.String(),
		})
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rental, err := repo.FindRental(ctx, input.RentalID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental")
		}
		if rental.Status != input.From {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rental status changed, reload and retry").WithDetails(map[string]any{
				"expected": input.From.String(),
				"actual":   rental.Status.String(),
			})
		}

		ok, err := repo.UpdateRentalStatus(ctx, rental.ID, input.From, input.To)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rental status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rental status changed, reload and retry")
		}

		if err := s.applyStockEffect(ctx, tx, rental, input.From, input.To); err != nil {
			return err
		}
		return s.emitTransitionEvents(ctx, tx, rental, input.To, input.Reason)
	})
}

// applyStockEffect keeps the package stock in step with the rental's activity:
// leaving the active set returns units, re-entering it reserves them again. A
// nil package reference means the package was deleted after the fact and
// there is no stock row left to adjust.
func (s *service) applyStockEffect(ctx context.Context, tx *gorm.DB, rental *models.Rental, from, to enums.RentalStatus) error {
	if rental.PackageID == nil || rental.Line == nil {
		return nil
	}
	qty := rental.Line.Qty

	switch {
	case from.IsActive() && !to.IsActive():
		return s.ledger.Release(ctx, tx, *rental.PackageID, qty)
	case !from.IsActive() && to.IsActive():
		return s.ledger.Reserve(ctx, tx, *rental.PackageID, qty)
	default:
		return nil
	}
}

func (s *service) emitTransitionEvents(ctx context.Context, tx *gorm.DB, rental *models.Rental, to enums.RentalStatus, reason string) error {
	if rental.Customer == nil {
		return nil
	}
	packageName := "paket sewa"
	if rental.Package != nil {
		packageName = rental.Package.Name
	}

	switch to {
	case enums.RentalStatusConfirmed:
		return s.emitter.Emit(ctx, tx, notifications.BookingConfirmedForCustomer(rental.Customer.UserID, packageName))
	case enums.RentalStatusCancelled:
		return s.emitter.Emit(ctx, tx, notifications.BookingCancelledForCustomer(rental.Customer.UserID, packageName, reason))
	default:
		return nil
	}
}

const maxVerifyBatchSize = 100

func (s *service) VerifyBatch(ctx context.Context, input VerifyBatchInput) (*VerifyBatchResult, error) {
	if len(input.RentalIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one rental id required")
	}
	if len(input.RentalIDs) > maxVerifyBatchSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many rentals in one batch")
	}

	// Each rental commits in its own transaction: a hard failure on one must
	// not roll back, nor block, its siblings.
	result := &VerifyBatchResult{Results: make([]VerifyItemResult, 0, len(input.RentalIDs))}
	for _, id := range input.RentalIDs {
		var item VerifyItemResult
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			item, err = s.verifyOne(ctx, tx, s.repo.WithTx(tx), id)
			return err
		})
		switch {
		case err != nil:
			item = VerifyItemResult{RentalID: id, Failed: true, Reason: err.Error()}
			result.Failed++
		case item.Verified:
			result.Verified++
		default:
			result.Skipped++
		}
		result.Results = append(result.Results, item)
	}
	return result, nil
}

// verifyOne confirms a single rental when its payment is paid. Ineligible
// rentals are reported as skipped, not errors, so one bad row never aborts
// the whole batch.
func (s *service) verifyOne(ctx context.Context, tx *gorm.DB, repo Repository, id uuid.UUID) (VerifyItemResult, error) {
	item := VerifyItemResult{RentalID: id}

	rental, err := repo.FindRental(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			item.Reason = "rental not found"
			return item, nil
		}
		return item, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental")
	}
	if rental.Status != enums.RentalStatusPending {
		item.Reason = "rental is not pending"
		return item, nil
	}
	payment, err := repo.FindPaymentByRental(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			item.Reason = "payment not found"
			return item, nil
		}
		return item, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Status != enums.PaymentStatusPaid {
		item.Reason = "payment is not paid"
		return item, nil
	}

	ok, err := repo.UpdateRentalStatus(ctx, id, enums.RentalStatusPending, enums.RentalStatusConfirmed)
	if err != nil {
		return item, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm rental")
	}
	if !ok {
		item.Reason = "rental status changed"
		return item, nil
	}
	updates := map[string]any{
		"status":     enums.PaymentStatusVerified,
		"updated_at": s.now(),
	}
	if err := repo.UpdatePayment(ctx, id, updates); err != nil {
		return item, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify payment")
	}

	if rental.Customer != nil {
		packageName := "paket sewa"
		if rental.Package != nil {
			packageName = rental.Package.Name
		}
		if err := s.emitter.Emit(ctx, tx, notifications.BookingConfirmedForCustomer(rental.Customer.UserID, packageName)); err != nil {
			return item, err
		}
	}

	item.Verified = true
	return item, nil
}
