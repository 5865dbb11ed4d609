package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danuartha/sewakit-backend/api/middleware"
	"github.com/danuartha/sewakit-backend/api/responses"
	"github.com/danuartha/sewakit-backend/api/validators"
	"github.com/danuartha/sewakit-backend/internal/cron"
	"github.com/danuartha/sewakit-backend/internal/rentals"
	"github.com/danuartha/sewakit-backend/pkg/enums"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
	"github.com/danuartha/sewakit-backend/pkg/logger"
)

// AdminListRentals serves the staff rental table with filters.
func AdminListRentals(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := listParamsFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := rentals.RentalFilters{}
		query := r.URL.Query()
		if status := query.Get("status"); status != "" {
			parsed, err := enums.ParseRentalStatus(status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &parsed
		}
		if status := query.Get("paymentStatus"); status != "" {
			parsed, err := enums.ParsePaymentStatus(status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paymentStatus filter"))
				return
			}
			filters.PaymentStatus = &parsed
		}
		if raw := query.Get("customerId"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customerId filter"))
				return
			}
			filters.CustomerID = &id
		}
		if raw := query.Get("dateFrom"); raw != "" {
			from, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dateFrom filter"))
				return
			}
			filters.DateFrom = &from
		}
		if raw := query.Get("dateTo"); raw != "" {
			to, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dateTo filter"))
				return
			}
			filters.DateTo = &to
		}

		page, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminRentalDetail(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		responses.WriteSuccess(w, rental)
	}
}

type changeStatusBody struct {
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

// AdminChangeRentalStatus applies one explicit transition. The caller states
// the status it last saw, a stale view is rejected instead of overwritten.
func AdminChangeRentalStatus(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rentalID, err := pathUUID(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body changeStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		from, err := enums.ParseRentalStatus(body.From)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from status"))
			return
		}
		to, err := enums.ParseRentalStatus(body.To)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to status"))
			return
		}

		actorID, _ := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err := svc.ChangeStatus(r.Context(), rentals.ChangeStatusInput{
			RentalID:    rentalID,
			From:        from,
			To:          to,
			Reason:      body.Reason,
			ActorUserID: actorID,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(to)})
	}
}

type verifyBatchBody struct {
	RentalIDs []uuid.UUID `json:"rental_ids" validate:"required,min=1"`
}

// AdminVerifyBatch confirms a set of paid rentals in one transaction and
// reports a per-rental outcome.
func AdminVerifyBatch(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body verifyBatchBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, _ := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		result, err := svc.VerifyBatch(r.Context(), rentals.VerifyBatchInput{
			RentalIDs:   body.RentalIDs,
			ActorUserID: actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminCheckExpired runs the pending rental sweep on demand and reports how
// many rentals it cancelled.
func AdminCheckExpired(sweeper cron.Sweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sweeper == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "expiry sweep unavailable"))
			return
		}
		cancelled, err := sweeper.Sweep(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "run expiry sweep"))
			return
		}
		responses.WriteSuccess(w, map[string]int{"cancelled_count": cancelled})
	}
}
