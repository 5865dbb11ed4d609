package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/internal/notifications"
	"github.com/danuartha/sewakit-backend/internal/rentals"
	"github.com/danuartha/sewakit-backend/pkg/db/models"
	"github.com/danuartha/sewakit-backend/pkg/enums"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AttachProofInput carries a customer's proof-of-payment upload.
type AttachProofInput struct {
	RentalID        uuid.UUID
	ProofKey        string
	ReferenceCode   *string
	ActorCustomerID uuid.UUID
}

// VerifyInput confirms a single paid rental.
type VerifyInput struct {
	RentalID    uuid.UUID
	ActorUserID uuid.UUID
}

// RejectInput sends an uploaded proof back to the customer.
type RejectInput struct {
	RentalID    uuid.UUID
	Reason      string
	ActorUserID uuid.UUID
}

// Service defines payment proof and verification operations.
type Service interface {
	AttachProof(ctx context.Context, input AttachProofInput) (*models.Payment, error)
	Verify(ctx context.Context, input VerifyInput) error
	Reject(ctx context.Context, input RejectInput) error
}

type service struct {
	repo    rentals.Repository
	tx      txRunner
	emitter notifications.Emitter
	now     func() time.Time
}

// NewService builds a payments service with the required dependencies.
func NewService(repo rentals.Repository, tx txRunner, emitter notifications.Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rentals repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("notification emitter required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		emitter: emitter,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) loadRental(ctx context.Context, repo rentals.Repository, id uuid.UUID) (*models.Rental, error) {
	rental, err := repo.FindRental(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental")
	}
	if rental.Payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return rental, nil
}

// AttachProof marks the payment as paid. A failed payment can be re-submitted
// after staff rejected the previous proof.
func (s *service) AttachProof(ctx context.Context, input AttachProofInput) (*models.Payment, error) {
	if input.RentalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}
	if strings.TrimSpace(input.ProofKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proof key required")
	}

	var updated *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rental, err := s.loadRental(ctx, repo, input.RentalID)
		if err != nil {
			return err
		}
		if input.ActorCustomerID != uuid.Nil && rental.CustomerID != input.ActorCustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "rental does not belong to customer")
		}
		if rental.Status != enums.RentalStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rental is not awaiting payment")
		}
		if rental.Payment.Status != enums.PaymentStatusPending && rental.Payment.Status != enums.PaymentStatusFailed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already submitted")
		}

		updates := map[string]any{
			"status":     enums.PaymentStatusPaid,
			"proof_key":  input.ProofKey,
			"updated_at": s.now(),
		}
		if input.ReferenceCode != nil {
			updates["reference_code"] = *input.ReferenceCode
		}
		if err := repo.UpdatePayment(ctx, rental.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payment proof")
		}

		customerName := ""
		if rental.Customer != nil {
			customerName = rental.Customer.Name
		}
		if err := s.emitter.Emit(ctx, tx, notifications.PaymentReceived(customerName, rental.Payment.Amount)); err != nil {
			return err
		}

		payment, err := repo.FindPaymentByRental(ctx, rental.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
		}
		updated = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Verify confirms one rental whose payment is paid: the payment becomes
// verified and the rental moves pending to confirmed in the same transaction.
func (s *service) Verify(ctx context.Context, input VerifyInput) error {
	if input.RentalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rental, err := s.loadRental(ctx, repo, input.RentalID)
		if err != nil {
			return err
		}
		if rental.Status != enums.RentalStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rental is not pending")
		}
		if rental.Payment.Status != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not paid")
		}

		ok, err := repo.UpdateRentalStatus(ctx, rental.ID, enums.RentalStatusPending, enums.RentalStatusConfirmed)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm rental")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rental status changed, reload and retry")
		}
		updates := map[string]any{
			"status":     enums.PaymentStatusVerified,
			"updated_at": s.now(),
		}
		if err := repo.UpdatePayment(ctx, rental.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify payment")
		}

		if rental.Customer != nil {
			packageName := "paket sewa"
			if rental.Package != nil {
				packageName = rental.Package.Name
			}
			return s.emitter.Emit(ctx, tx, notifications.BookingConfirmedForCustomer(rental.Customer.UserID, packageName))
		}
		return nil
	})
}

// Reject fails a paid payment so the customer can upload a new proof. The
// proof key is kept for audit.
func (s *service) Reject(ctx context.Context, input RejectInput) error {
	if input.RentalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rental, err := s.loadRental(ctx, repo, input.RentalID)
		if err != nil {
			return err
		}
		if rental.Payment.Status != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not awaiting verification")
		}

		updates := map[string]any{
			"status":     enums.PaymentStatusFailed,
			"updated_at": s.now(),
		}
		if err := repo.UpdatePayment(ctx, rental.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject payment")
		}

		if rental.Customer != nil {
			return s.emitter.Emit(ctx, tx, notifications.PaymentRejectedForCustomer(rental.Customer.UserID, input.Reason))
		}
		return nil
	})
}
