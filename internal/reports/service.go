package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danuartha/sewakit-backend/pkg/enums"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
)

const (
	monthlyRevenueWindow = 6
	topPackageLimit      = 3
)

// MonthlyRevenue holds settled payment totals for one calendar month.
type MonthlyRevenue struct {
	Month time.Time       `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// Dashboard is the aggregate snapshot shown on the staff landing page.
type Dashboard struct {
	CustomerCount             int64            `json:"customer_count"`
	PackageCount              int64            `json:"package_count"`
	PendingRentalCount        int64            `json:"pending_rental_count"`
	CompletedRentalCount      int64            `json:"completed_rental_count"`
	AwaitingVerificationCount int64            `json:"awaiting_verification_count"`
	TotalRevenue              decimal.Decimal  `json:"total_revenue"`
	MonthlyRevenue            []MonthlyRevenue `json:"monthly_revenue"`
	TopPackages               []PackageRanking `json:"top_packages"`
}

// Service builds dashboard aggregates.
type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the reports service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	return &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Dashboard collects the counters, revenue series, and package ranking.
// Revenue counts payments that are paid or verified.
func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	customerCount, err := s.repo.CountCustomers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count customers")
	}
	packageCount, err := s.repo.CountPackages(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count packages")
	}
	pendingCount, err := s.repo.CountRentalsByStatus(ctx, enums.RentalStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending rentals")
	}
	completedCount, err := s.repo.CountRentalsByStatus(ctx, enums.RentalStatusCompleted)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count completed rentals")
	}
	awaitingCount, err := s.repo.CountPaymentsByStatus(ctx, enums.PaymentStatusPaid)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count payments awaiting verification")
	}

	revenueRows, err := s.repo.ListRevenuePayments(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settled payments")
	}

	topPackages, err := s.repo.TopPackages(ctx, topPackageLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank packages")
	}

	total, monthly := summarizeRevenue(revenueRows, s.now())

	return &Dashboard{
		CustomerCount:             customerCount,
		PackageCount:              packageCount,
		PendingRentalCount:        pendingCount,
		CompletedRentalCount:      completedCount,
		AwaitingVerificationCount: awaitingCount,
		TotalRevenue:              total,
		MonthlyRevenue:            monthly,
		TopPackages:               topPackages,
	}, nil
}

// summarizeRevenue totals every row and buckets the trailing window into
// calendar months, oldest first. Empty months still appear with a zero total.
func summarizeRevenue(rows []RevenueRow, now time.Time) (decimal.Decimal, []MonthlyRevenue) {
	total := decimal.Zero
	buckets := make(map[time.Time]decimal.Decimal, monthlyRevenueWindow)

	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	windowStart := currentMonth.AddDate(0, -(monthlyRevenueWindow - 1), 0)

	for _, row := range rows {
		total = total.Add(row.Amount)
		created := row.CreatedAt.UTC()
		month := time.Date(created.Year(), created.Month(), 1, 0, 0, 0, 0, time.UTC)
		if month.Before(windowStart) || month.After(currentMonth) {
			continue
		}
		buckets[month] = buckets[month].Add(row.Amount)
	}

	monthly := make([]MonthlyRevenue, 0, monthlyRevenueWindow)
	for i := 0; i < monthlyRevenueWindow; i++ {
		month := windowStart.AddDate(0, i, 0)
		amount, ok := buckets[month]
		if !ok {
			amount = decimal.Zero
		}
		monthly = append(monthly, MonthlyRevenue{Month: month, Total: amount})
	}
	return total, monthly
}
