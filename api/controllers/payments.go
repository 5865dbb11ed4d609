package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/danuartha/sewakit-backend/api/middleware"
	"github.com/danuartha/sewakit-backend/api/responses"
	"github.com/danuartha/sewakit-backend/api/validators"
	"github.com/danuartha/sewakit-backend/internal/payments"
	"github.com/danuartha/sewakit-backend/pkg/logger"
)

type attachProofBody struct {
	ProofKey      string  `json:"proof_key" validate:"required,max=512"`
	ReferenceCode *string `json:"reference_code,omitempty" validate:"omitempty,max=64"`
}

// AttachPaymentProof records the customer's transfer evidence for a rental.
func AttachPaymentProof(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body attachProofBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.AttachProof(r.Context(), payments.AttachProofInput{
			RentalID:        rentalID,
			ProofKey:        body.ProofKey,
			ReferenceCode:   body.ReferenceCode,
			ActorCustomerID: customerID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// VerifyPayment confirms a paid rental. Staff only.
func VerifyPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rentalID, err := pathUUID(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, _ := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err := svc.Verify(r.Context(), payments.VerifyInput{RentalID: rentalID, ActorUserID: actorID}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "verified"})
	}
}

type rejectPaymentBody struct {
	Reason string `json:"reason" validate:"max=500"`
}

// RejectPayment sends an uploaded proof back to the customer. Staff only.
func RejectPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rentalID, err := pathUUID(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body rejectPaymentBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, _ := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err := svc.Reject(r.Context(), payments.RejectInput{
			RentalID:    rentalID,
			Reason:      body.Reason,
			ActorUserID: actorID,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "rejected"})
	}
}
