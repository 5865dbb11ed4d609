package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/pkg/enums"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
)

func TestEmitterRequiresTransaction(t *testing.T) {
	emitter, err := NewEmitter(&fakeRepository{})
	if err != nil {
		t.Fatalf("new emitter: %v", err)
	}

	err = emitter.Emit(context.Background(), nil, BookingCreated("Budi", "Tenda Besar", 2))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestEmitterPersistsEvents(t *testing.T) {
	repo := &fakeRepository{}
	emitter, err := NewEmitter(repo)
	if err != nil {
		t.Fatalf("new emitter: %v", err)
	}

	db, err := gorm.Open(sqlite.Open("file:emitter_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	userID := uuid.New()
	events := []Event{
		BookingCreated("Budi", "Tenda Besar", 2),
		BookingConfirmedForCustomer(userID, "Tenda Besar"),
	}
	if err := emitter.Emit(context.Background(), db, events...); err != nil {
		t.Fatalf("emit: %v", err)
	}

	if len(repo.created) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(repo.created))
	}
	if repo.created[0].UserID != nil {
		t.Fatal("booking created should be a staff broadcast")
	}
	if repo.created[0].Title != "Pesanan Baru" {
		t.Fatalf("unexpected title %q", repo.created[0].Title)
	}
	if repo.created[1].UserID == nil || *repo.created[1].UserID != userID {
		t.Fatal("confirmation should target the customer")
	}
	if repo.created[1].Kind != enums.NotificationKindSuccess {
		t.Fatalf("unexpected kind %q", repo.created[1].Kind)
	}
}

func TestEmitterRejectsEmptyMessage(t *testing.T) {
	emitter, err := NewEmitter(&fakeRepository{})
	if err != nil {
		t.Fatalf("new emitter: %v", err)
	}

	db, err := gorm.Open(sqlite.Open("file:emitter_empty_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	err = emitter.Emit(context.Background(), db, Event{Title: "x"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPaymentReceivedFormatsAmount(t *testing.T) {
	event := PaymentReceived("Budi", decimal.NewFromInt(150000))
	if event.Title != "Pembayaran Diterima" {
		t.Fatalf("unexpected title %q", event.Title)
	}
	if want := "Budi mengunggah bukti bayar sebesar Rp150000, menunggu verifikasi."; event.Message != want {
		t.Fatalf("unexpected message %q", event.Message)
	}
}
