package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/internal/notifications"
	"github.com/danuartha/sewakit-backend/internal/rentals"
	"github.com/danuartha/sewakit-backend/pkg/db/models"
	"github.com/danuartha/sewakit-backend/pkg/enums"
	"github.com/danuartha/sewakit-backend/pkg/logger"
)

const defaultPendingPaymentTTL = 2 * time.Hour

const expiryCancelReason = "batas waktu pembayaran terlewati"

// RentalExpiryJobParams configure the pending rental sweeper.
type RentalExpiryJobParams struct {
	Logger            *logger.Logger
	DB                txRunner
	PendingReader     pendingRentalReader
	Stock             stockReleaser
	Emitter           notifications.Emitter
	RepoFactory       rentalRepoFactory
	PendingPaymentTTL time.Duration
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pendingRentalReader interface {
	FindPendingRentalsBefore(ctx context.Context, cutoff time.Time) ([]models.Rental, error)
}

type stockReleaser interface {
	Release(ctx context.Context, tx *gorm.DB, packageID uuid.UUID, qty int) error
}

type transactionalRentalRepo interface {
	FindRental(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	UpdateRentalStatus(ctx context.Context, id uuid.UUID, from, to enums.RentalStatus) (bool, error)
}

type rentalRepoFactory func(tx *gorm.DB) transactionalRentalRepo

func defaultRentalRepo(tx *gorm.DB) transactionalRentalRepo {
	return rentals.NewRepository(tx)
}

// NewRentalExpiryJob builds the cron job that cancels pending rentals whose
// payment window has lapsed without an uploaded proof.
func NewRentalExpiryJob(params RentalExpiryJobParams) (Sweeper, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.PendingReader == nil {
		return nil, fmt.Errorf("pending rentals reader required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock releaser required")
	}
	if params.Emitter == nil {
		return nil, fmt.Errorf("notification emitter required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultRentalRepo
	}
	ttl := params.PendingPaymentTTL
	if ttl <= 0 {
		ttl = defaultPendingPaymentTTL
	}
	return &rentalExpiryJob{
		logg:          params.Logger,
		db:            params.DB,
		pendingReader: params.PendingReader,
		stock:         params.Stock,
		emitter:       params.Emitter,
		repoFactory:   repoFactory,
		ttl:           ttl,
		now:           time.Now,
	}, nil
}

type rentalExpiryJob struct {
	logg          *logger.Logger
	db            txRunner
	pendingReader pendingRentalReader
	stock         stockReleaser
	emitter       notifications.Emitter
	repoFactory   rentalRepoFactory
	ttl           time.Duration
	now           func() time.Time
}

func (j *rentalExpiryJob) Name() string { return "rental-expiry" }

func (j *rentalExpiryJob) Run(ctx context.Context) error {
	_, err := j.Sweep(ctx)
	return err
}

// Sweep cancels every stale pending rental and reports how many it cancelled.
// One broken rental does not stop the sweep, errors are collected and
// reported together.
func (j *rentalExpiryJob) Sweep(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.pendingReader.FindPendingRentalsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("query stale pending rentals: %w", err)
	}

	var errs []error
	cancelled := 0
	for _, rental := range stale {
		ok, err := j.expireRental(ctx, rental.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire rental %s: %w", rental.ID, err))
			continue
		}
		if ok {
			cancelled++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"candidate": len(stale),
		"cancelled": cancelled,
		"failed":    len(errs),
	})
	j.logg.Info(logCtx, "rental expiry sweep complete")
	return cancelled, multierr.Combine(errs...)
}

// expireRental re-reads the rental inside the transaction before mutating.
// Anything committed or proven between the candidate query and this point
// makes the rental a skip, not an error.
func (j *rentalExpiryJob) expireRental(ctx context.Context, rentalID uuid.UUID) (bool, error) {
	cancelled := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		current, err := repo.FindRental(ctx, rentalID)
		if err != nil {
			return err
		}
		if current.Status != enums.RentalStatusPending {
			return nil
		}
		if current.Payment != nil && current.Payment.HasProof() {
			return nil
		}

		ok, err := repo.UpdateRentalStatus(ctx, rentalID, enums.RentalStatusPending, enums.RentalStatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if current.PackageID != nil && current.Line != nil {
			if err := j.stock.Release(ctx, tx, *current.PackageID, current.Line.Qty); err != nil {
				return err
			}
		}

		if current.Customer != nil {
			packageName := "paket sewa"
			if current.Package != nil {
				packageName = current.Package.Name
			}
			event := notifications.BookingCancelledForCustomer(current.Customer.UserID, packageName, expiryCancelReason)
			if err := j.emitter.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
		cancelled = true
		return nil
	})
	return cancelled, err
}
