package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/pkg/db/models"
	"github.com/danuartha/sewakit-backend/pkg/enums"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
)

// Event is a notification payload before persistence. A nil UserID makes the
// row a staff broadcast.
type Event struct {
	UserID  *uuid.UUID
	Kind    enums.NotificationKind
	Title   string
	Message string
}

// Emitter persists notifications inside the caller's transaction so they
// commit and roll back together with the business mutation that caused them.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...Event) error
}

type emitterImpl struct {
	repo Repository
}

// NewEmitter wires the default transactional emitter.
func NewEmitter(repo Repository) (Emitter, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &emitterImpl{repo: repo}, nil
}

func (e *emitterImpl) Emit(ctx context.Context, tx *gorm.DB, events ...Event) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for notification emit")
	}
	repo := e.repo.WithTx(tx)
	for _, event := range events {
		if event.Title == "" || event.Message == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "notification title and message required")
		}
		kind := event.Kind
		if !kind.IsValid() {
			kind = enums.NotificationKindInfo
		}
		row := &models.Notification{
			UserID:  event.UserID,
			Kind:    kind,
			Title:   event.Title,
			Message: event.Message,
		}
		if err := repo.Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
		}
	}
	return nil
}

// BookingCreated is broadcast to staff when a customer books a package.
func BookingCreated(customerName, packageName string, qty int) Event {
	return Event{
		Kind:    enums.NotificationKindInfo,
		Title:   "Pesanan Baru",
		Message: fmt.Sprintf("%s menyewa %s (%d unit), menunggu pembayaran.", customerName, packageName, qty),
	}
}

// BookingPlacedForCustomer confirms receipt of the order and reminds the
// customer that payment is still outstanding.
func BookingPlacedForCustomer(userID uuid.UUID, packageName string) Event {
	return Event{
		UserID:  &userID,
		Kind:    enums.NotificationKindSuccess,
		Title:   "Pesanan Dibuat",
		Message: fmt.Sprintf("Pesanan %s berhasil dibuat. Segera unggah bukti bayar sebelum batas waktu.", packageName),
	}
}

// BookingConfirmedForCustomer tells the customer their rental is locked in.
func BookingConfirmedForCustomer(userID uuid.UUID, packageName string) Event {
	return Event{
		UserID:  &userID,
		Kind:    enums.NotificationKindSuccess,
		Title:   "Pesanan Berhasil",
		Message: fmt.Sprintf("Penyewaan %s sudah dikonfirmasi. Terima kasih!", packageName),
	}
}

// PaymentReceived is broadcast to staff when a proof of payment arrives.
func PaymentReceived(customerName string, amount decimal.Decimal) Event {
	return Event{
		Kind:    enums.NotificationKindInfo,
		Title:   "Pembayaran Diterima",
		Message: fmt.Sprintf("%s mengunggah bukti bayar sebesar Rp%s, menunggu verifikasi.", customerName, amount.StringFixed(0)),
	}
}

// PaymentRejectedForCustomer tells the customer their proof was rejected.
func PaymentRejectedForCustomer(userID uuid.UUID, reason string) Event {
	message := "Bukti bayar Anda ditolak. Silakan unggah ulang."
	if reason != "" {
		message = fmt.Sprintf("Bukti bayar Anda ditolak: %s", reason)
	}
	return Event{
		UserID:  &userID,
		Kind:    enums.NotificationKindDanger,
		Title:   "Bukti Bayar Ditolak",
		Message: message,
	}
}

// BookingCancelledForCustomer tells the customer their rental was cancelled.
func BookingCancelledForCustomer(userID uuid.UUID, packageName, reason string) Event {
	message := fmt.Sprintf("Penyewaan %s dibatalkan.", packageName)
	if reason != "" {
		message = fmt.Sprintf("Penyewaan %s dibatalkan: %s", packageName, reason)
	}
	return Event{
		UserID:  &userID,
		Kind:    enums.NotificationKindWarning,
		Title:   "Pesanan Dibatalkan",
		Message: message,
	}
}
