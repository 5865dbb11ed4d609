package rentals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/internal/notifications"
	"github.com/danuartha/sewakit-backend/internal/stock"
	"github.com/danuartha/sewakit-backend/pkg/db/models"
	"github.com/danuartha/sewakit-backend/pkg/enums"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type fakeEmitter struct {
	events     []notifications.Event
	calls      int
	failOnCall int
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, events ...notifications.Event) error {
	f.calls++
	if f.failOnCall > 0 && f.calls == f.failOnCall {
		return pkgerrors.New(pkgerrors.CodeDependency, "notification sink unavailable")
	}
	f.events = append(f.events, events...)
	return nil
}

func newTestService(t *testing.T, db *gorm.DB) (Service, *fakeEmitter) {
	t.Helper()

	emitter := &fakeEmitter{}
	svc, err := NewService(Params{
		Repo:    NewRepository(db),
		Tx:      testTxRunner{db: db},
		Ledger:  stock.NewLedger(),
		Emitter: emitter,
	})
	require.NoError(t, err)
	return svc, emitter
}

func packageStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()

	var pkg models.RentalPackage
	require.NoError(t, db.First(&pkg, "id = ?", id).Error)
	return pkg.StockCount
}

func rentalStatus(t *testing.T, db *gorm.DB, id uuid.UUID) enums.RentalStatus {
	t.Helper()

	var rental models.Rental
	require.NoError(t, db.First(&rental, "id = ?", id).Error)
	return rental.Status
}

func TestChangeStatusCancelReleasesStock(t *testing.T) {
	t.Parallel()

	db := setupRentalsTestDB(t)
	ctx := context.Background()
	svc, emitter := newTestService(t, db)
	seeded := seedRental(t, db, seedOptions{Status: enums.RentalStatusPending, Stock: 0, Qty: 2})

	err := svc.ChangeStatus(ctx, ChangeStatusInput{
		RentalID:    seeded.RentalID,
		From:        enums.RentalStatusPending,
		To:          enums.RentalStatusCancelled,
		Reason:      "tidak jadi",
		ActorUserID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.RentalStatusCancelled, rentalStatus(t, db, seeded.RentalID))
	assert.Equal(t, 2, packageStock(t, db, seeded.PackageID))

	require.Len(t, emitter.events, 1)
	assert.Equal(t, "Pesanan Dibatalkan", emitter.events[0].Title)
	require.NotNil(t, emitter.events[0].UserID)
	assert.Equal(t, seeded.UserID, *emitter.events[0].UserID)
}

func TestChangeStatusCompleteReturnsStock(t *testing.T) {
	t.Parallel()

	db := setupRentalsTestDB(t)
	ctx := context.Background()
	svc, emitter := newTestService(t, db)
	seeded := seedRental(t, db, seedOptions{Status: enums.RentalStatusConfirmed, Stock: 1, Qty: 1})

	err := svc.ChangeStatus(ctx, ChangeStatusInput{
		RentalID: seeded.RentalID,
		From:     enums.RentalStatusConfirmed,
		To:       enums.RentalStatusCompleted,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.RentalStatusCompleted, rentalStatus(t, db, seeded.RentalID))
	assert.Equal(t, 2, packageStock(t, db, seeded.PackageID))
	assert.Empty(t, emitter.events, "completion should not notify")
}

func TestChangeStatusStaleFromRejected(t *testing.T) {
	t.Parallel()

	db := setupRentalsTestDB(t)
	ctx := context.Background()
	svc, _ := newTestService(t, db)
	seeded := seedRental(t, db, seedOptions{Status: enums.RentalStatusConfirmed})

	err := svc.ChangeStatus(ctx, ChangeStatusInput{
		RentalID: seeded.RentalID,
		From:     enums.RentalStatusPending,
		To:       enums.RentalStatusCancelled,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Equal(t, enums.RentalStatusConfirmed, rentalStatus(t, db, seeded.RentalID))
}

func TestChangeStatusInvalidTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		from, to enums.RentalStatus
	}{
		{name: "confirmed back to pending", from: enums.RentalStatusConfirmed, to: enums.RentalStatusPending},
		{name: "cancelled to completed", from: enums.RentalStatusCancelled, to: enums.RentalStatusCompleted},
		{name: "completed to cancelled", from: enums.RentalStatusCompleted, to: enums.RentalStatusCancelled},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			db := setupRentalsTestDB(t)
			svc, _ := newTestService(t, db)
			seeded := seedRental(t, db, seedOptions{Status: tc.from})

			err := svc.ChangeStatus(context.Background(), ChangeStatusInput{
				RentalID: seeded.RentalID,
				From:     tc.from,
				To:       tc.to,
			})
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
			assert.Equal(t, tc.from, rentalStatus(t, db, seeded.RentalID))
		})
	}
}

func TestChangeStatusPendingCanComplete(t *testing.T) {
	t.Parallel()

	db := setupRentalsTestDB(t)
	ctx := context.Background()
	svc, emitter := newTestService(t, db)
	seeded := seedRental(t, db, seedOptions{Status: enums.RentalStatusPending, Stock: 0, Qty: 2})

	err := svc.ChangeStatus(ctx, ChangeStatusInput{
		RentalID: seeded.RentalID,
		From:     enums.RentalStatusPending,
		To:       enums.RentalStatusCompleted,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.RentalStatusCompleted, rentalStatus(t, db, seeded.RentalID))
	assert.Equal(t, 2, packageStock(t, db, seeded.PackageID))
	assert.Empty(t, emitter.events, "completion should not notify")
}

func TestChangeStatusReopenReservesStock(t *testing.T) {
	t.Parallel()

	db := setupRentalsTestDB(t)
	ctx := context.Background()
	svc, _ := newTestService(t, db)
	seeded := seedRental(t, db, seedOptions{Status: enums.RentalStatusCancelled, Stock: 5, Qty: 2})

	err := svc.ChangeStatus(ctx, ChangeStatusInput{
		RentalID: seeded.RentalID,
		From:     enums.RentalStatusCancelled,
		To:       enums.RentalStatusPending,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.RentalStatusPending, rentalStatus(t, db, seeded.RentalID))
	assert.Equal(t, 3, packageStock(t, db, seeded.PackageID))
}

func TestChangeStatusReopenFailsWithoutStock(t *testing.T) {
	t.Parallel()

	db := setupRentalsTestDB(t)
	ctx := context.Background()
	svc, _ := newTestService(t, db)
	seeded := seedRental(t, db, seedOptions{Status: enums.RentalStatusCancelled, Stock: 1, Qty: 2})

	err := svc.ChangeStatus(ctx, ChangeStatusInput{
		RentalID: seeded.RentalID,
		From:     enums.RentalStatusCancelled,
		To:       enums.RentalStatusPending,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	assert.Equal(t, enums.RentalStatusCancelled, rentalStatus(t, db, seeded.RentalID))
	assert.Equal(t, 1, packageStock(t, db, seeded.PackageID))
}

func TestChangeStatusReactivationReservesStock(t *testing.T) {
	t.Parallel()

	db := setupRentalsTestDB(t)
	ctx := context.Background()
	svc, emitter := newTestService(t, db)
	seeded := seedRental(t, db, seedOptions{Status: enums.RentalStatusCancelled, Stock: 3, Qty: 2})

	err := svc.ChangeStatus(ctx, ChangeStatusInput{
		RentalID: seeded.RentalID,
		From:     enums.RentalStatusCancelled,
		To:       enums.RentalStatusConfirmed,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.RentalStatusConfirmed, rentalStatus(t, db, seeded.RentalID))
	assert.Equal(t, 1, packageStock(t, db, seeded.PackageID))
	require.Len(t, emitter.events, 1)
	assert.Equal(t, "Pesanan Berhasil", emitter.events[0].Title)
}

func TestChangeStatusReactivationFailsWithoutStock(t *testing.T) {
	t.Parallel()

	db := setupRentalsTestDB(t)
	ctx := context.Background()
	svc, _ := newTestService(t, db)
	seeded := seedRental(t, db, seedOptions{Status: enums.RentalStatusCancelled, Stock: 1, Qty: 2})

	err := svc.ChangeStatus(ctx, ChangeStatusInput{
		RentalID: seeded.RentalID,
		From:     enums.RentalStatusCancelled,
		To:       enums.RentalStatusConfirmed,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	// the whole transaction rolls back, leaving status and stock untouched
	assert.Equal(t, enums.RentalStatusCancelled, rentalStatus(t, db, seeded.RentalID))
	assert.Equal(t, 1, packageStock(t, db, seeded.PackageID))
}

func TestVerifyBatchMixedResults(t *testing.T) {
	t.Parallel()

	db := setupRentalsTestDB(t)
	ctx := context.Background()
	svc, emitter := newTestService(t, db)

	proof := "proofs/bukti.jpg"
	eligible := seedRental(t, db, seedOptions{Status: enums.RentalStatusPending, PaymentStatus: enums.PaymentStatusPaid, ProofKey: &proof})
	unpaid := seedRental(t, db, seedOptions{Status: enums.RentalStatusPending, PaymentStatus: enums.PaymentStatusPending})
	confirmed := seedRental(t, db, seedOptions{Status: enums.RentalStatusConfirmed, PaymentStatus: enums.PaymentStatusVerified})
	missing := uuid.New()

	result, err := svc.VerifyBatch(ctx, VerifyBatchInput{
		RentalIDs:   []uuid.UUID{eligible.RentalID, unpaid.RentalID, confirmed.RentalID, missing},
		ActorUserID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Verified)
	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Results, 4)

	assert.True(t, result.Results[0].Verified)
	assert.False(t, result.Results[1].Verified)
	assert.Equal(t, "payment is not paid", result.Results[1].Reason)
	assert.Equal(t, "rental is not pending", result.Results[2].Reason)
	assert.Equal(t, "rental not found", result.Results[3].Reason)

	assert.Equal(t, enums.RentalStatusConfirmed, rentalStatus(t, db, eligible.RentalID))

	var payment models.Payment
	require.NoError(t, db.First(&payment, "rental_id = ?", eligible.RentalID).Error)
	assert.Equal(t, enums.PaymentStatusVerified, payment.Status)

	require.Len(t, emitter.events, 1)
	require.NotNil(t, emitter.events[0].UserID)
	assert.Equal(t, eligible.UserID, *emitter.events[0].UserID)
}

func TestVerifyBatchKeepsEarlierCommitsWhenOneFails(t *testing.T) {
	t.Parallel()

	db := setupRentalsTestDB(t)
	ctx := context.Background()
	svc, emitter := newTestService(t, db)
	emitter.failOnCall = 2

	proof := "proofs/bukti.jpg"
	first := seedRental(t, db, seedOptions{Status: enums.RentalStatusPending, PaymentStatus: enums.PaymentStatusPaid, ProofKey: &proof})
	second := seedRental(t, db, seedOptions{Status: enums.RentalStatusPending, PaymentStatus: enums.PaymentStatusPaid, ProofKey: &proof})

	result, err := svc.VerifyBatch(ctx, VerifyBatchInput{
		RentalIDs:   []uuid.UUID{first.RentalID, second.RentalID},
		ActorUserID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Verified)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[0].Verified)
	assert.True(t, result.Results[1].Failed)
	assert.NotEmpty(t, result.Results[1].Reason)

	// the first rental's transaction already committed before the failure
	assert.Equal(t, enums.RentalStatusConfirmed, rentalStatus(t, db, first.RentalID))

	// only the failed rental rolls back
	assert.Equal(t, enums.RentalStatusPending, rentalStatus(t, db, second.RentalID))
	var payment models.Payment
	require.NoError(t, db.First(&payment, "rental_id = ?", second.RentalID).Error)
	assert.Equal(t, enums.PaymentStatusPaid, payment.Status)
}

func TestVerifyBatchRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	db := setupRentalsTestDB(t)
	svc, _ := newTestService(t, db)

	_, err := svc.VerifyBatch(context.Background(), VerifyBatchInput{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
