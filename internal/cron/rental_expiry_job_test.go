package cron

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/internal/notifications"
	"github.com/danuartha/sewakit-backend/pkg/db/models"
	"github.com/danuartha/sewakit-backend/pkg/enums"
	"github.com/danuartha/sewakit-backend/pkg/logger"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakePendingRentalReader struct {
	cutoff  time.Time
	rentals []models.Rental
	err     error
}

func (f *fakePendingRentalReader) FindPendingRentalsBefore(ctx context.Context, cutoff time.Time) ([]models.Rental, error) {
	f.cutoff = cutoff
	return f.rentals, f.err
}

type stockReleaseCall struct {
	packageID uuid.UUID
	qty       int
}

type fakeStockReleaser struct {
	calls []stockReleaseCall
	err   error
}

func (f *fakeStockReleaser) Release(ctx context.Context, tx *gorm.DB, packageID uuid.UUID, qty int) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, stockReleaseCall{packageID: packageID, qty: qty})
	return nil
}

type fakeCronEmitter struct {
	events []notifications.Event
}

func (f *fakeCronEmitter) Emit(ctx context.Context, tx *gorm.DB, events ...notifications.Event) error {
	f.events = append(f.events, events...)
	return nil
}

type statusUpdateCall struct {
	id       uuid.UUID
	from, to enums.RentalStatus
}

type fakeRentalRepo struct {
	rentals map[uuid.UUID]*models.Rental
	findErr map[uuid.UUID]error
	updates []statusUpdateCall
}

func (f *fakeRentalRepo) FindRental(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	if err, ok := f.findErr[id]; ok {
		return nil, err
	}
	rental, ok := f.rentals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rental, nil
}

func (f *fakeRentalRepo) UpdateRentalStatus(ctx context.Context, id uuid.UUID, from, to enums.RentalStatus) (bool, error) {
	rental, ok := f.rentals[id]
	if !ok || rental.Status != from {
		return false, nil
	}
	rental.Status = to
	f.updates = append(f.updates, statusUpdateCall{id: id, from: from, to: to})
	return true, nil
}

type expiryJobHarness struct {
	job     *rentalExpiryJob
	reader  *fakePendingRentalReader
	stock   *fakeStockReleaser
	emitter *fakeCronEmitter
	repo    *fakeRentalRepo
}

func newExpiryJobHarness(t *testing.T, staleRentals ...models.Rental) *expiryJobHarness {
	t.Helper()

	reader := &fakePendingRentalReader{rentals: staleRentals}
	stock := &fakeStockReleaser{}
	emitter := &fakeCronEmitter{}
	repo := &fakeRentalRepo{rentals: map[uuid.UUID]*models.Rental{}, findErr: map[uuid.UUID]error{}}
	for i := range staleRentals {
		rental := staleRentals[i]
		repo.rentals[rental.ID] = &rental
	}

	job, err := NewRentalExpiryJob(RentalExpiryJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:            stubTxRunner{},
		PendingReader: reader,
		Stock:         stock,
		Emitter:       emitter,
		RepoFactory:   func(tx *gorm.DB) transactionalRentalRepo { return repo },
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	return &expiryJobHarness{
		job:     job.(*rentalExpiryJob),
		reader:  reader,
		stock:   stock,
		emitter: emitter,
		repo:    repo,
	}
}

func staleRental(status enums.RentalStatus, proofKey *string) models.Rental {
	packageID := uuid.New()
	userID := uuid.New()
	rental := models.Rental{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		PackageID:  &packageID,
		Status:     status,
	}
	rental.Customer = &models.Customer{ID: rental.CustomerID, UserID: userID, Name: "Budi"}
	rental.Package = &models.RentalPackage{ID: packageID, Name: "Tenda Besar"}
	rental.Line = &models.RentalLine{ID: uuid.New(), RentalID: rental.ID, Qty: 2}
	rental.Payment = &models.Payment{ID: uuid.New(), RentalID: rental.ID, Status: enums.PaymentStatusPending, ProofKey: proofKey}
	return rental
}

func TestRentalExpiryJobCancelsStaleRental(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	rental := staleRental(enums.RentalStatusPending, nil)
	h := newExpiryJobHarness(t, rental)
	h.job.now = func() time.Time { return now }

	cancelled, err := h.job.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("expected 1 cancelled, got %d", cancelled)
	}

	wantCutoff := now.Add(-defaultPendingPaymentTTL)
	if !h.reader.cutoff.Equal(wantCutoff) {
		t.Fatalf("unexpected cutoff: %s", h.reader.cutoff)
	}
	if len(h.repo.updates) != 1 {
		t.Fatalf("expected 1 status update, got %d", len(h.repo.updates))
	}
	update := h.repo.updates[0]
	if update.from != enums.RentalStatusPending || update.to != enums.RentalStatusCancelled {
		t.Fatalf("unexpected transition %s -> %s", update.from, update.to)
	}
	if len(h.stock.calls) != 1 {
		t.Fatalf("expected 1 stock release, got %d", len(h.stock.calls))
	}
	if h.stock.calls[0].packageID != *rental.PackageID || h.stock.calls[0].qty != 2 {
		t.Fatalf("unexpected release %+v", h.stock.calls[0])
	}
	if len(h.emitter.events) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(h.emitter.events))
	}
	event := h.emitter.events[0]
	if event.UserID == nil || *event.UserID != rental.Customer.UserID {
		t.Fatalf("notification not targeted at customer")
	}
	if !strings.Contains(event.Message, expiryCancelReason) {
		t.Fatalf("cancellation reason missing from message: %q", event.Message)
	}
}

func TestRentalExpiryJobSkipsRentalWithProof(t *testing.T) {
	proof := "proofs/bukti.jpg"
	rental := staleRental(enums.RentalStatusPending, &proof)
	h := newExpiryJobHarness(t, rental)

	if err := h.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.repo.updates) != 0 {
		t.Fatalf("expected no status updates, got %d", len(h.repo.updates))
	}
	if len(h.stock.calls) != 0 {
		t.Fatal("stock should not be released for proven rentals")
	}
}

func TestRentalExpiryJobRechecksStatusInTransaction(t *testing.T) {
	rental := staleRental(enums.RentalStatusPending, nil)
	h := newExpiryJobHarness(t, rental)
	// The rental was confirmed between the candidate query and the sweep tx.
	h.repo.rentals[rental.ID].Status = enums.RentalStatusConfirmed

	if err := h.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.repo.updates) != 0 {
		t.Fatalf("expected no status updates, got %d", len(h.repo.updates))
	}
	if len(h.emitter.events) != 0 {
		t.Fatal("no notification expected for skipped rental")
	}
}

func TestRentalExpiryJobSecondSweepCancelsNothing(t *testing.T) {
	rental := staleRental(enums.RentalStatusPending, nil)
	h := newExpiryJobHarness(t, rental)

	cancelled, err := h.job.Sweep(context.Background())
	if err != nil {
		t.Fatalf("first Sweep: %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("first sweep should cancel 1, got %d", cancelled)
	}

	// The rental is already cancelled, so even if the candidate query still
	// surfaces it the in-transaction re-check must skip it.
	cancelled, err = h.job.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if cancelled != 0 {
		t.Fatalf("second sweep should cancel nothing, got %d", cancelled)
	}
	if len(h.stock.calls) != 1 {
		t.Fatalf("stock should be released exactly once, got %d", len(h.stock.calls))
	}
	if len(h.emitter.events) != 1 {
		t.Fatalf("customer should be notified exactly once, got %d", len(h.emitter.events))
	}
}

func TestRentalExpiryJobCollectsErrorsAndContinues(t *testing.T) {
	broken := staleRental(enums.RentalStatusPending, nil)
	healthy := staleRental(enums.RentalStatusPending, nil)
	h := newExpiryJobHarness(t, broken, healthy)
	h.repo.findErr[broken.ID] = fmt.Errorf("connection reset")

	err := h.job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !strings.Contains(err.Error(), broken.ID.String()) {
		t.Fatalf("error should name the broken rental: %v", err)
	}
	if len(h.repo.updates) != 1 || h.repo.updates[0].id != healthy.ID {
		t.Fatalf("healthy rental should still be cancelled: %+v", h.repo.updates)
	}
}
