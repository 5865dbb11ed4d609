package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/danuartha/sewakit-backend/api/routes"
	"github.com/danuartha/sewakit-backend/internal/auth"
	"github.com/danuartha/sewakit-backend/internal/bookings"
	"github.com/danuartha/sewakit-backend/internal/catalog"
	"github.com/danuartha/sewakit-backend/internal/cron"
	"github.com/danuartha/sewakit-backend/internal/customers"
	"github.com/danuartha/sewakit-backend/internal/notifications"
	"github.com/danuartha/sewakit-backend/internal/payments"
	"github.com/danuartha/sewakit-backend/internal/rentals"
	"github.com/danuartha/sewakit-backend/internal/reports"
	"github.com/danuartha/sewakit-backend/internal/stock"
	"github.com/danuartha/sewakit-backend/internal/users"
	"github.com/danuartha/sewakit-backend/pkg/config"
	"github.com/danuartha/sewakit-backend/pkg/db"
	"github.com/danuartha/sewakit-backend/pkg/logger"
	"github.com/danuartha/sewakit-backend/pkg/migrate"
	"github.com/danuartha/sewakit-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	ledger := stock.NewLedger()
	rentalRepo := rentals.NewRepository(gormDB)
	catalogRepo := catalog.NewRepository(gormDB)
	customerRepo := customers.NewRepository(gormDB)
	notificationRepo := notifications.NewRepository(gormDB)

	emitter, err := notifications.NewEmitter(notificationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification emitter", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:     users.NewRepository(gormDB),
		CustomerRepo: customerRepo,
		SessionStore: redisClient,
		JWTConfig:    cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		Tx:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalogRepo, dbClient, ledger)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	bookingService, err := bookings.NewService(bookings.Params{
		Rentals:   rentalRepo,
		Catalog:   catalogRepo,
		Customers: customerRepo,
		Tx:        dbClient,
		Ledger:    ledger,
		Emitter:   emitter,
		Config:    cfg.Booking,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	rentalService, err := rentals.NewService(rentals.Params{
		Repo:    rentalRepo,
		Tx:      dbClient,
		Ledger:  ledger,
		Emitter: emitter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rental service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(rentalRepo, dbClient, emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	customerService, err := customers.NewService(customerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	reportService, err := reports.NewService(reports.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create report service", err)
		os.Exit(1)
	}

	expirySweep, err := cron.NewRentalExpiryJob(cron.RentalExpiryJobParams{
		Logger:            logg,
		DB:                dbClient,
		PendingReader:     rentalRepo,
		Stock:             ledger,
		Emitter:           emitter,
		PendingPaymentTTL: cfg.Sweep.PendingPaymentTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rental expiry job", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			authService,
			registerService,
			catalogService,
			bookingService,
			rentalService,
			paymentService,
			customerService,
			notificationService,
			reportService,
			expirySweep,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
