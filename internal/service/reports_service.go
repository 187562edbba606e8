package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/infra/cache"
	"github.com/minhnd/expenses-ledger-go/internal/infra/observability"
	"github.com/minhnd/expenses-ledger-go/internal/port"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// ReportsService is the read-only surface over entries and aggregates.
// Summaries come straight from the aggregate documents (O(1) per month);
// only the weekly window is computed by scanning entries, since no weekly
// aggregate is maintained.
type ReportsService struct {
	store          port.LedgerStore
	summaryCache   *cache.InMemory[domain.MonthlySummary]
	breakdownCache *cache.InMemory[domain.MonthlyBreakdown]
	loc            *time.Location
	metrics        *observability.Metrics
	logger         *zap.Logger
}

// NewReportsService creates the reporting surface. The caches are shared
// with the LedgerService, which invalidates them on every mutation.
func NewReportsService(
	store port.LedgerStore,
	summaryCache *cache.InMemory[domain.MonthlySummary],
	breakdownCache *cache.InMemory[domain.MonthlyBreakdown],
	loc *time.Location,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ReportsService {
	return &ReportsService{
		store:          store,
		summaryCache:   summaryCache,
		breakdownCache: breakdownCache,
		loc:            loc,
		metrics:        metrics,
		logger:         logger,
	}
}

// ListMonth returns one bucket's entries, newest first, paginated by the id
// of the last entry of the previous page.
func (s *ReportsService) ListMonth(ctx context.Context, uid string, key domain.MonthKey, limit int, startAfter string) (*domain.EntryList, error) {
	ctx, span := tracer.Start(ctx, "ReportsService.ListMonth")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid), attribute.String("month", key.String()))

	if uid == "" {
		return nil, &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	items, err := s.store.ListEntriesForMonth(ctx, uid, key, limit, startAfter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Entry{}
	}
	return &domain.EntryList{Items: items, Count: len(items)}, nil
}

// ListAll returns every entry of the user, newest first.
func (s *ReportsService) ListAll(ctx context.Context, uid string) (*domain.EntryList, error) {
	ctx, span := tracer.Start(ctx, "ReportsService.ListAll")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	if uid == "" {
		return nil, &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}

	items, err := s.store.ListEntries(ctx, uid)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Entry{}
	}
	return &domain.EntryList{Items: items, Count: len(items)}, nil
}

// MonthlySummary returns the requested month's expense total next to the
// previous month's, reading the two aggregate documents directly. A bucket
// that was never written reports zero.
func (s *ReportsService) MonthlySummary(ctx context.Context, uid string, key domain.MonthKey) (*domain.MonthlySummary, error) {
	ctx, span := tracer.Start(ctx, "ReportsService.MonthlySummary")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid), attribute.String("month", key.String()))

	if uid == "" {
		return nil, &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}

	cacheKey := uid + "|summary|" + key.String()
	if cached, ok := s.summaryCache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("summary")
		return &cached, nil
	}
	s.metrics.IncrCacheMiss("summary")

	prev := key.Previous()
	current, err := s.store.GetAggregate(ctx, uid, key)
	if err != nil {
		return nil, err
	}
	previous, err := s.store.GetAggregate(ctx, uid, prev)
	if err != nil {
		return nil, err
	}

	summary := domain.MonthlySummary{
		Current:  domain.MonthTotals{Month: key.String(), TotalExpense: totalExpenseOf(current)},
		Previous: domain.MonthTotals{Month: prev.String(), TotalExpense: totalExpenseOf(previous)},
	}
	s.summaryCache.Set(cacheKey, summary)
	return &summary, nil
}

// WeeklySummary totals expense entries in the Monday-Sunday window around
// the reference date by scanning the range.
func (s *ReportsService) WeeklySummary(ctx context.Context, uid string, ref time.Time) (*domain.WeeklySummary, error) {
	ctx, span := tracer.Start(ctx, "ReportsService.WeeklySummary")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	if uid == "" {
		return nil, &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}

	start, end := domain.WeekRange(ref, s.loc)
	items, err := s.store.ListExpensesInRange(ctx, uid, start, end)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, e := range items {
		total += e.Amount
	}
	return &domain.WeeklySummary{
		Start:        start.Format("2006-01-02"),
		End:          end.Format("2006-01-02"),
		TotalExpense: total,
	}, nil
}

// MonthlyBreakdown returns a bucket's expense and income totals with the
// per-category expense split.
func (s *ReportsService) MonthlyBreakdown(ctx context.Context, uid string, key domain.MonthKey) (*domain.MonthlyBreakdown, error) {
	ctx, span := tracer.Start(ctx, "ReportsService.MonthlyBreakdown")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid), attribute.String("month", key.String()))

	if uid == "" {
		return nil, &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}

	cacheKey := uid + "|breakdown|" + key.String()
	if cached, ok := s.breakdownCache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("breakdown")
		return &cached, nil
	}
	s.metrics.IncrCacheMiss("breakdown")

	agg, err := s.store.GetAggregate(ctx, uid, key)
	if err != nil {
		return nil, err
	}

	breakdown := domain.MonthlyBreakdown{
		Month:      key.String(),
		ByCategory: map[string]int64{},
	}
	if agg != nil {
		breakdown.TotalExpense = agg.TotalExpense
		breakdown.TotalIncome = agg.TotalIncome
		for k, v := range agg.ByCategory {
			breakdown.ByCategory[k] = v
		}
	}
	s.breakdownCache.Set(cacheKey, breakdown)
	return &breakdown, nil
}

// YearlyTotals returns the twelve month totals of a calendar year. Buckets
// that were never written report zero.
func (s *ReportsService) YearlyTotals(ctx context.Context, uid string, year int) (*domain.YearTotals, error) {
	ctx, span := tracer.Start(ctx, "ReportsService.YearlyTotals")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid), attribute.Int("year", year))

	if uid == "" {
		return nil, &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}
	if year < 1 {
		return nil, &domain.ErrValidation{Field: "year", Message: "invalid year"}
	}

	totals := &domain.YearTotals{Year: year, Months: make([]domain.MonthTotals, 0, 12)}
	for month := 1; month <= 12; month++ {
		key := domain.MonthKey{Year: year, Month: month}
		agg, err := s.store.GetAggregate(ctx, uid, key)
		if err != nil {
			return nil, err
		}
		totals.Months = append(totals.Months, domain.MonthTotals{
			Month:        key.String(),
			TotalExpense: totalExpenseOf(agg),
		})
	}
	return totals, nil
}

func totalExpenseOf(agg *domain.MonthlyAggregate) int64 {
	if agg == nil {
		return 0
	}
	return agg.TotalExpense
}
