package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danuartha/sewakit-backend/api/controllers"
	"github.com/danuartha/sewakit-backend/api/middleware"
	"github.com/danuartha/sewakit-backend/internal/auth"
	"github.com/danuartha/sewakit-backend/internal/bookings"
	"github.com/danuartha/sewakit-backend/internal/catalog"
	"github.com/danuartha/sewakit-backend/internal/cron"
	"github.com/danuartha/sewakit-backend/internal/customers"
	"github.com/danuartha/sewakit-backend/internal/notifications"
	"github.com/danuartha/sewakit-backend/internal/payments"
	"github.com/danuartha/sewakit-backend/internal/rentals"
	"github.com/danuartha/sewakit-backend/internal/reports"
	"github.com/danuartha/sewakit-backend/pkg/config"
	"github.com/danuartha/sewakit-backend/pkg/db"
	"github.com/danuartha/sewakit-backend/pkg/enums"
	"github.com/danuartha/sewakit-backend/pkg/logger"
	"github.com/danuartha/sewakit-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	authService auth.Service,
	registerService auth.RegisterService,
	catalogService catalog.Service,
	bookingService bookings.Service,
	rentalService rentals.Service,
	paymentService payments.Service,
	customerService customers.Service,
	notificationService notifications.Service,
	reportService reports.Service,
	expirySweep cron.Sweeper,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(registerService, authService, logg))
		r.Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.With(middleware.Auth(cfg.JWT, logg)).Post("/logout", controllers.AuthLogout(authService, logg))
	})

	// Catalog reads are public so the storefront can browse without a session.
	r.Route("/api/v1/packages", func(r chi.Router) {
		r.Get("/", controllers.ListPackages(catalogService, logg))
		r.Get("/{packageId}", controllers.GetPackage(catalogService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCustomer(logg))

			r.Route("/bookings", func(r chi.Router) {
				r.Post("/", controllers.CreateBooking(bookingService, logg))
			})
			r.Route("/my/rentals", func(r chi.Router) {
				r.Get("/", controllers.MyRentals(rentalService, logg))
				r.Get("/{rentalId}", controllers.MyRentalDetail(rentalService, logg))
				r.Post("/{rentalId}/payment-proof", controllers.AttachPaymentProof(paymentService, logg))
			})
			r.Route("/me", func(r chi.Router) {
				r.Get("/", controllers.CustomerProfile(customerService, logg))
				r.Put("/", controllers.UpdateCustomerProfile(customerService, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleStaff), logg))

		r.Route("/packages", func(r chi.Router) {
			r.Post("/", controllers.CreatePackage(catalogService, logg))
			r.Patch("/{packageId}", controllers.UpdatePackage(catalogService, logg))
			r.Delete("/{packageId}", controllers.DeletePackage(catalogService, logg))
			r.Post("/{packageId}/mark-broken", controllers.MarkPackageBroken(catalogService, logg))
		})

		r.Route("/rentals", func(r chi.Router) {
			r.Get("/", controllers.AdminListRentals(rentalService, logg))
			r.Post("/check-expired", controllers.AdminCheckExpired(expirySweep, logg))
			r.Post("/verify-batch", controllers.AdminVerifyBatch(rentalService, logg))
			r.Get("/{rentalId}", controllers.AdminRentalDetail(rentalService, logg))
			r.Post("/{rentalId}/status", controllers.AdminChangeRentalStatus(rentalService, logg))
			r.Post("/{rentalId}/payment/verify", controllers.VerifyPayment(paymentService, logg))
			r.Post("/{rentalId}/payment/reject", controllers.RejectPayment(paymentService, logg))
		})

		r.Get("/customers", controllers.AdminListCustomers(customerService, logg))
		r.Get("/dashboard", controllers.AdminDashboard(reportService, logg))
	})

	return r
}
