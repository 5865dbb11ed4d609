package controllers

import (
	"net/http"

	"github.com/danuartha/sewakit-backend/api/responses"
	"github.com/danuartha/sewakit-backend/internal/reports"
	"github.com/danuartha/sewakit-backend/pkg/logger"
)

// AdminDashboard returns operational counters, revenue aggregates and the
// most rented packages for the staff dashboard.
func AdminDashboard(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboard, err := svc.Dashboard(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}
