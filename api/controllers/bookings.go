package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danuartha/sewakit-backend/api/middleware"
	"github.com/danuartha/sewakit-backend/api/responses"
	"github.com/danuartha/sewakit-backend/api/validators"
	"github.com/danuartha/sewakit-backend/internal/bookings"
	"github.com/danuartha/sewakit-backend/internal/rentals"
	"github.com/danuartha/sewakit-backend/pkg/enums"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
	"github.com/danuartha/sewakit-backend/pkg/logger"
)

func customerIDFromRequest(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.CustomerIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer profile required")
	}
	return id, nil
}

type createBookingBody struct {
	PackageID    uuid.UUID        `json:"package_id" validate:"required"`
	Qty          int              `json:"qty" validate:"required,gt=0"`
	InstallDate  time.Time        `json:"install_date" validate:"required"`
	ReturnDate   *time.Time       `json:"return_date,omitempty"`
	ShippingCost *decimal.Decimal `json:"shipping_cost,omitempty"`
	Method       *string          `json:"method,omitempty"`
	Note         *string          `json:"note,omitempty" validate:"omitempty,max=500"`
}

// CreateBooking places a rental order for the authenticated customer.
func CreateBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createBookingBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := bookings.BookInput{
			CustomerID:  customerID,
			PackageID:   body.PackageID,
			Qty:         body.Qty,
			InstallDate: body.InstallDate,
			Note:        body.Note,
		}
		if body.ReturnDate != nil {
			input.ReturnDate = *body.ReturnDate
		}
		if body.ShippingCost != nil {
			input.ShippingCost = *body.ShippingCost
		}
		if body.Method != nil {
			method, err := enums.ParsePaymentMethod(*body.Method)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
				return
			}
			input.Method = method
		}

		rental, err := svc.Book(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rental)
	}
}

// MyRentals lists the authenticated customer's rental history.
func MyRentals(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := listParamsFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := rentals.RentalFilters{CustomerID: &customerID}
		if status := r.URL.Query().Get("status"); status != "" {
			parsed, err := enums.ParseRentalStatus(status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &parsed
		}

		page, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// MyRentalDetail returns one rental if it belongs to the caller.
func MyRentalDetail(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rentalID, err := pathUUID(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rental, err := svc.Get(r.Context(), rentalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if rental.CustomerID != customerID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "rental not found"))
			return
		}
		responses.WriteSuccess(w, rental)
	}
}
