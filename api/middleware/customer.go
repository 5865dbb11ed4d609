package middleware

import (
	"net/http"

	"github.com/danuartha/sewakit-backend/api/responses"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
	"github.com/danuartha/sewakit-backend/pkg/logger"
)

// RequireCustomer rejects requests whose token carries no customer profile.
func RequireCustomer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if CustomerIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "customer profile required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
