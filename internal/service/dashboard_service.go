package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/observability"
	"github.com/boddenberg/insightedge-bfa-go/internal/infra/storekit"
	"github.com/boddenberg/insightedge-bfa-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var dashboardTracer = otel.Tracer("service/dashboard")

const (
	recentTransactionsLimit = 5
	recentDateLayout        = "January 2, 2006"
)

// DashboardService derives the dashboard summary from an owner's records.
// Nothing is cached: every call reads the store afresh.
type DashboardService struct {
	store   port.RecordStore
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(store port.RecordStore, metrics *observability.Metrics, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the clock used to pick the default year.
func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

// ============================================================
// Summarize (GET /v1/data/dashboard)
// ============================================================

// Summarize aggregates every record the owner has from a single store read,
// so totals and recent transactions always describe the same records.
// Totals and the category split cover all records; only the monthly series
// is restricted to year. A year <= 0 selects the current year.
func (s *DashboardService) Summarize(ctx context.Context, ownerID string, year int) (*domain.DashboardSummary, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Summarize")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.ObserveDashboard(time.Since(start)) }()

	if year <= 0 {
		year = s.now().Year()
	}
	span.SetAttributes(
		attribute.String("owner.id", ownerID),
		attribute.Int("year", year),
	)

	all, err := s.store.FindByOwner(ctx, ownerID)
	if err != nil {
		s.metrics.IncrStoreError("find")
		span.RecordError(err)
		s.logger.Error("dashboard read failed",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
		return nil, err
	}

	summary := aggregate(all, year)
	summary.RecentTransactions = projectRecent(newest(all, recentTransactionsLimit))

	s.logger.Debug("dashboard summarized",
		zap.String("owner_id", ownerID),
		zap.Int("year", year),
		zap.Int("records", len(all)),
	)
	return summary, nil
}

// aggregate computes every summary field except the recent transactions.
func aggregate(records []domain.FinancialRecord, year int) *domain.DashboardSummary {
	revenue := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	var months [12]decimal.Decimal

	for _, r := range records {
		total := money(r.Total)
		revenue = revenue.Add(total)
		byCategory[r.Category] = byCategory[r.Category].Add(total)
		if r.Date.Year() == year {
			m := r.Date.Month() - 1
			months[m] = months[m].Add(total)
		}
	}

	avg := decimal.Zero
	if len(records) > 0 {
		avg = revenue.Div(decimal.NewFromInt(int64(len(records))))
	}

	categories := make([]domain.NamedValue, 0, len(byCategory))
	for name, v := range byCategory {
		categories = append(categories, domain.NamedValue{Name: name, Value: toFloat(v)})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Value != categories[j].Value {
			return categories[i].Value > categories[j].Value
		}
		return categories[i].Name < categories[j].Name
	})

	monthly := make([]domain.NamedValue, 12)
	for i := range months {
		monthly[i] = domain.NamedValue{
			Name:  time.Month(i + 1).String()[:3],
			Value: months[i].InexactFloat64(),
		}
	}

	return &domain.DashboardSummary{
		Year:          year,
		TotalRevenue:  toFloat(revenue),
		TotalSales:    len(records),
		AvgOrderValue: toFloat(avg),
		CategoryData:  categories,
		RevenueData: domain.RevenueSeries{
			Monthly:   monthly,
			Quarterly: []domain.NamedValue{},
			Yearly:    []domain.NamedValue{},
		},
		RecentTransactions: []domain.RecentTransaction{},
	}
}

// newest returns the n most recently created records without reordering
// the caller's slice.
func newest(records []domain.FinancialRecord, n int) []domain.FinancialRecord {
	sorted := make([]domain.FinancialRecord, len(records))
	copy(sorted, records)
	storekit.SortNewestFirst(sorted)
	return storekit.Limit(sorted, n)
}

func projectRecent(records []domain.FinancialRecord) []domain.RecentTransaction {
	out := make([]domain.RecentTransaction, 0, len(records))
	for _, r := range records {
		out = append(out, domain.RecentTransaction{
			ID:       r.ID,
			Date:     r.Date.UTC().Format(recentDateLayout),
			Customer: r.Product,
			Amount:   toFloat(money(r.Total)),
			Status:   domain.TransactionStatusCompleted,
		})
	}
	return out
}

// money converts a stored total to a decimal. Non-finite values cannot be
// represented and count as zero.
func money(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// toFloat converts a sum back to float64, saturating instead of overflowing
// to +Inf, which JSON cannot encode.
func toFloat(d decimal.Decimal) float64 {
	f := d.InexactFloat64()
	switch {
	case math.IsInf(f, 1):
		return math.MaxFloat64
	case math.IsInf(f, -1):
		return -math.MaxFloat64
	}
	return f
}
