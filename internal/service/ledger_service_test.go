package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/infra/cache"
	"github.com/minhnd/expenses-ledger-go/internal/infra/memstore"
	"github.com/minhnd/expenses-ledger-go/internal/infra/observability"
	"github.com/minhnd/expenses-ledger-go/internal/port"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	ledger  *LedgerService
	reports *ReportsService
	store   *memstore.Store
	metrics *observability.Metrics
}

func newTestEnv() *testEnv {
	store := memstore.New()
	summaryCache := cache.New[domain.MonthlySummary](time.Minute)
	breakdownCache := cache.New[domain.MonthlyBreakdown](time.Minute)
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	ledger := NewLedgerService(store, summaryCache, breakdownCache, time.UTC, metrics, logger)
	ledger.now = func() time.Time { return testNow }
	reports := NewReportsService(store, summaryCache, breakdownCache, time.UTC, metrics, logger)

	return &testEnv{ledger: ledger, reports: reports, store: store, metrics: metrics}
}

// stageOrphanEntry writes an entry without touching its month aggregate,
// reproducing the drift state a mutation has to tolerate.
func (env *testEnv) stageOrphanEntry(t *testing.T, uid string, e *domain.Entry) {
	t.Helper()
	err := env.store.RunEntryTransaction(context.Background(), uid, func(tx port.LedgerTx) error {
		return tx.PutEntry(e)
	})
	if err != nil {
		t.Fatalf("stage entry: %v", err)
	}
}

func (env *testEnv) aggregate(t *testing.T, uid string, key domain.MonthKey) *domain.MonthlyAggregate {
	t.Helper()
	agg, err := env.store.GetAggregate(context.Background(), uid, key)
	if err != nil {
		t.Fatalf("GetAggregate: %v", err)
	}
	return agg
}

func TestCreateExpenseInitializesAggregate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	entry, err := env.ledger.CreateEntry(ctx, "u1", domain.CreateEntryRequest{
		Name:       "lunch",
		Amount:     "150,000",
		Type:       "expense",
		CategoryID: "food",
		Date:       "2024-03-05",
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if entry.Amount != 150000 || entry.Currency != domain.DefaultCurrency {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Year != 2024 || entry.Month != 3 || entry.Day != 5 {
		t.Errorf("calendar parts = %d-%d-%d", entry.Year, entry.Month, entry.Day)
	}

	agg := env.aggregate(t, "u1", domain.MonthKey{Year: 2024, Month: 3})
	if agg == nil {
		t.Fatal("aggregate not created")
	}
	if agg.TotalExpense != 150000 || agg.TotalIncome != 0 {
		t.Errorf("totals = %d/%d", agg.TotalExpense, agg.TotalIncome)
	}
	if agg.ByCategory["food"] != 150000 {
		t.Errorf("byCategory = %v", agg.ByCategory)
	}
}

func TestCreateIncomeLeavesCategoriesEmpty(t *testing.T) {
	env := newTestEnv()

	_, err := env.ledger.CreateEntry(context.Background(), "u1", domain.CreateEntryRequest{
		Name:   "salary",
		Amount: "9000000",
		Type:   "income",
		Date:   "2024-03-01",
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	agg := env.aggregate(t, "u1", domain.MonthKey{Year: 2024, Month: 3})
	if agg.TotalIncome != 9000000 || agg.TotalExpense != 0 {
		t.Errorf("totals = %d/%d", agg.TotalExpense, agg.TotalIncome)
	}
	if len(agg.ByCategory) != 0 {
		t.Errorf("byCategory = %v", agg.ByCategory)
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	cases := []domain.CreateEntryRequest{
		{Amount: "1000", Type: "expense"},                     // missing name
		{Name: "x", Amount: "1000", Type: "transfer"},         // bad kind
		{Name: "x", Amount: "abc", Type: "expense"},           // bad amount
		{Name: "x", Amount: "-5", Type: "expense"},            // non-positive
		{Name: "x", Amount: "1000", Type: "expense", Date: "soon"}, // bad date
	}
	for i, req := range cases {
		_, err := env.ledger.CreateEntry(ctx, "u1", req)
		var ve *domain.ErrValidation
		if !errors.As(err, &ve) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestCreateRejectsFutureDateAcceptsNow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Dated exactly now: accepted.
	_, err := env.ledger.CreateEntry(ctx, "u1", domain.CreateEntryRequest{
		Name:   "edge",
		Amount: "1000",
		Type:   "expense",
		Date:   testNow.Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("now-dated entry rejected: %v", err)
	}

	// One microsecond in the future: rejected before any write.
	_, err = env.ledger.CreateEntry(ctx, "u1", domain.CreateEntryRequest{
		Name:   "future",
		Amount: "1000",
		Type:   "expense",
		Date:   testNow.Add(time.Microsecond).Format(time.RFC3339Nano),
	})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateAmountSameBucket(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	entry, err := env.ledger.CreateEntry(ctx, "u1", domain.CreateEntryRequest{
		Name: "lunch", Amount: "150000", Type: "expense", CategoryID: "food", Date: "2024-03-05",
	})
	if err != nil {
		t.Fatal(err)
	}

	amount := "200000"
	if _, err := env.ledger.UpdateEntry(ctx, "u1", entry.ID, domain.UpdateEntryRequest{Amount: &amount}); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}

	agg := env.aggregate(t, "u1", domain.MonthKey{Year: 2024, Month: 3})
	if agg.TotalExpense != 200000 || agg.ByCategory["food"] != 200000 {
		t.Errorf("aggregate = %+v", agg)
	}
}

func TestUpdateCategoryDecrementsOldKeyToZero(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	entry, err := env.ledger.CreateEntry(ctx, "u1", domain.CreateEntryRequest{
		Name: "lunch", Amount: "200000", Type: "expense", CategoryID: "food", Date: "2024-03-05",
	})
	if err != nil {
		t.Fatal(err)
	}

	category := "transport"
	if _, err := env.ledger.UpdateEntry(ctx, "u1", entry.ID, domain.UpdateEntryRequest{CategoryID: &category}); err != nil {
		t.Fatal(err)
	}

	agg := env.aggregate(t, "u1", domain.MonthKey{Year: 2024, Month: 3})
	if agg.TotalExpense != 200000 {
		t.Errorf("totalExpense = %d", agg.TotalExpense)
	}
	// The old key is decremented to zero, not removed.
	if v, ok := agg.ByCategory["food"]; !ok || v != 0 {
		t.Errorf("byCategory[food] = %d (present=%v)", v, ok)
	}
	if agg.ByCategory["transport"] != 200000 {
		t.Errorf("byCategory[transport] = %d", agg.ByCategory["transport"])
	}
}

func TestUpdateDateMovesContributionAcrossBuckets(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	entry, err := env.ledger.CreateEntry(ctx, "u1", domain.CreateEntryRequest{
		Name: "lunch", Amount: "200000", Type: "expense", CategoryID: "transport", Date: "2024-03-05",
	})
	if err != nil {
		t.Fatal(err)
	}

	date := "2024-04-01"
	updated, err := env.ledger.UpdateEntry(ctx, "u1", entry.ID, domain.UpdateEntryRequest{Date: &date})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Year != 2024 || updated.Month != 4 {
		t.Errorf("entry bucket = %d-%d", updated.Year, updated.Month)
	}

	march := env.aggregate(t, "u1", domain.MonthKey{Year: 2024, Month: 3})
	if march.TotalExpense != 0 || march.ByCategory["transport"] != 0 {
		t.Errorf("march = %+v", march)
	}
	april := env.aggregate(t, "u1", domain.MonthKey{Year: 2024, Month: 4})
	if april == nil {
		t.Fatal("april aggregate not created on first contribution")
	}
	if april.TotalExpense != 200000 || april.ByCategory["transport"] != 200000 {
		t.Errorf("april = %+v", april)
	}
}

func TestDeleteReturnsAggregateToZero(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	entry, err := env.ledger.CreateEntry(ctx, "u1", domain.CreateEntryRequest{
		Name: "lunch", Amount: "200000", Type: "expense", CategoryID: "transport", Date: "2024-04-01",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := env.ledger.DeleteEntry(ctx, "u1", entry.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}

	agg := env.aggregate(t, "u1", domain.MonthKey{Year: 2024, Month: 4})
	if agg.TotalExpense != 0 || agg.ByCategory["transport"] != 0 {
		t.Errorf("aggregate = %+v", agg)
	}

	_, err = env.store.GetEntry(ctx, "u1", entry.ID)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("entry should be gone, got %v", err)
	}
}

func TestDeleteWithMissingAggregateSkipsIncrement(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	key := domain.MonthKey{Year: 2024, Month: 2}

	orphan := &domain.Entry{
		ID:         env.store.NewEntryID("u1"),
		Name:       "orphan",
		Amount:     5000,
		Currency:   domain.DefaultCurrency,
		Kind:       domain.KindExpense,
		CategoryID: "food",
		Date:       time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		Year:       2024,
		Month:      2,
		Day:        10,
	}
	env.stageOrphanEntry(t, "u1", orphan)

	// The delete still commits; the missing aggregate is reported, not fatal.
	if err := env.ledger.DeleteEntry(ctx, "u1", orphan.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}

	_, err := env.store.GetEntry(ctx, "u1", orphan.ID)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("entry should be gone, got %v", err)
	}
	if agg := env.aggregate(t, "u1", key); agg != nil {
		t.Errorf("no aggregate should be created, got %+v", agg)
	}
	if got := env.metrics.LedgerSnapshot().DriftEvents; got != 1 {
		t.Errorf("driftEvents = %d, want 1", got)
	}
}

func TestUpdateWithMissingAggregateSkipsIncrement(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	key := domain.MonthKey{Year: 2024, Month: 2}

	orphan := &domain.Entry{
		ID:         env.store.NewEntryID("u1"),
		Name:       "orphan",
		Amount:     5000,
		Currency:   domain.DefaultCurrency,
		Kind:       domain.KindExpense,
		CategoryID: "food",
		Date:       time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		Year:       2024,
		Month:      2,
		Day:        10,
	}
	env.stageOrphanEntry(t, "u1", orphan)

	amount := "8000"
	updated, err := env.ledger.UpdateEntry(ctx, "u1", orphan.ID, domain.UpdateEntryRequest{Amount: &amount})
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if updated.Amount != 8000 {
		t.Errorf("amount = %d", updated.Amount)
	}
	if agg := env.aggregate(t, "u1", key); agg != nil {
		t.Errorf("no aggregate should be created, got %+v", agg)
	}
	if got := env.metrics.LedgerSnapshot().DriftEvents; got != 1 {
		t.Errorf("driftEvents = %d, want 1", got)
	}
}

func TestUpdateAndDeleteUnknownEntry(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	name := "x"
	_, err := env.ledger.UpdateEntry(ctx, "u1", "missing", domain.UpdateEntryRequest{Name: &name})
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("update: expected not found, got %v", err)
	}

	err = env.ledger.DeleteEntry(ctx, "u1", "missing")
	if !errors.As(err, &nf) {
		t.Errorf("delete: expected not found, got %v", err)
	}
}

func TestUpdateKindFlipRebalancesTotals(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	entry, err := env.ledger.CreateEntry(ctx, "u1", domain.CreateEntryRequest{
		Name: "refund", Amount: "100000", Type: "expense", CategoryID: "food", Date: "2024-03-05",
	})
	if err != nil {
		t.Fatal(err)
	}

	kind := "income"
	if _, err := env.ledger.UpdateEntry(ctx, "u1", entry.ID, domain.UpdateEntryRequest{Type: &kind}); err != nil {
		t.Fatal(err)
	}

	agg := env.aggregate(t, "u1", domain.MonthKey{Year: 2024, Month: 3})
	if agg.TotalExpense != 0 || agg.TotalIncome != 100000 {
		t.Errorf("totals = %d/%d", agg.TotalExpense, agg.TotalIncome)
	}
	if agg.ByCategory["food"] != 0 {
		t.Errorf("byCategory = %v", agg.ByCategory)
	}
}

func TestConcurrentCreatesBothSurvive(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	wg.Add(workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := env.ledger.CreateEntry(ctx, "u1", domain.CreateEntryRequest{
				Name: "snack", Amount: "10000", Type: "expense", CategoryID: "food", Date: "2024-03-07",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent create failed: %v", err)
		}
	}

	agg := env.aggregate(t, "u1", domain.MonthKey{Year: 2024, Month: 3})
	if agg.TotalExpense != 10000*workers {
		t.Errorf("totalExpense = %d, want %d (lost update)", agg.TotalExpense, 10000*workers)
	}
	if agg.ByCategory["food"] != 10000*workers {
		t.Errorf("byCategory[food] = %d", agg.ByCategory["food"])
	}
}

func TestAggregateMatchesEntriesAfterMixedSequence(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	key := domain.MonthKey{Year: 2024, Month: 5}

	ids := make([]string, 0, 4)
	for _, req := range []domain.CreateEntryRequest{
		{Name: "a", Amount: "10000", Type: "expense", CategoryID: "food", Date: "2024-05-01"},
		{Name: "b", Amount: "25000", Type: "expense", CategoryID: "transport", Date: "2024-05-02"},
		{Name: "c", Amount: "5000", Type: "expense", Date: "2024-05-03"},
		{Name: "d", Amount: "700000", Type: "income", Date: "2024-05-04"},
	} {
		e, err := env.ledger.CreateEntry(ctx, "u1", req)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, e.ID)
	}

	amount := "12000"
	if _, err := env.ledger.UpdateEntry(ctx, "u1", ids[0], domain.UpdateEntryRequest{Amount: &amount}); err != nil {
		t.Fatal(err)
	}
	if err := env.ledger.DeleteEntry(ctx, "u1", ids[1]); err != nil {
		t.Fatal(err)
	}

	// Recompute the invariant from the surviving entries.
	entries, err := env.store.ListEntries(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	var wantExpense, wantIncome int64
	wantByCat := map[string]int64{}
	for i := range entries {
		e := &entries[i]
		switch e.Kind {
		case domain.KindExpense:
			wantExpense += e.Amount
			wantByCat[e.CategoryKey()] += e.Amount
		case domain.KindIncome:
			wantIncome += e.Amount
		}
	}

	agg := env.aggregate(t, "u1", key)
	if agg.TotalExpense != wantExpense || agg.TotalIncome != wantIncome {
		t.Errorf("totals = %d/%d, want %d/%d", agg.TotalExpense, agg.TotalIncome, wantExpense, wantIncome)
	}
	for k, v := range wantByCat {
		if agg.ByCategory[k] != v {
			t.Errorf("byCategory[%s] = %d, want %d", k, agg.ByCategory[k], v)
		}
	}
}
