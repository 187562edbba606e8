package service

import (
	"context"
	"testing"
	"time"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
)

func seedEntries(t *testing.T, env *testEnv, reqs ...domain.CreateEntryRequest) []string {
	t.Helper()
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		e, err := env.ledger.CreateEntry(context.Background(), "u1", req)
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		ids = append(ids, e.ID)
	}
	return ids
}

func TestListMonthPagination(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	seedEntries(t, env,
		domain.CreateEntryRequest{Name: "d1", Amount: "1000", Type: "expense", Date: "2024-03-01"},
		domain.CreateEntryRequest{Name: "d2", Amount: "1000", Type: "expense", Date: "2024-03-02"},
		domain.CreateEntryRequest{Name: "d3", Amount: "1000", Type: "expense", Date: "2024-03-03"},
		domain.CreateEntryRequest{Name: "other", Amount: "1000", Type: "expense", Date: "2024-04-01"},
	)

	key := domain.MonthKey{Year: 2024, Month: 3}
	page1, err := env.reports.ListMonth(ctx, "u1", key, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if page1.Count != 2 || page1.Items[0].Name != "d3" || page1.Items[1].Name != "d2" {
		t.Errorf("page1 = %+v", page1)
	}

	page2, err := env.reports.ListMonth(ctx, "u1", key, 2, page1.Items[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if page2.Count != 1 || page2.Items[0].Name != "d1" {
		t.Errorf("page2 = %+v", page2)
	}
}

func TestListMonthDefaultLimit(t *testing.T) {
	env := newTestEnv()

	list, err := env.reports.ListMonth(context.Background(), "u1", domain.MonthKey{Year: 2024, Month: 3}, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if list.Count != 0 || list.Items == nil {
		t.Errorf("empty month should give an empty page, got %+v", list)
	}
}

func TestMonthlySummaryIncludesPreviousMonth(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	seedEntries(t, env,
		domain.CreateEntryRequest{Name: "feb", Amount: "50000", Type: "expense", Date: "2024-02-10"},
		domain.CreateEntryRequest{Name: "mar", Amount: "70000", Type: "expense", Date: "2024-03-10"},
	)

	summary, err := env.reports.MonthlySummary(ctx, "u1", domain.MonthKey{Year: 2024, Month: 3})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Current.Month != "2024-03" || summary.Current.TotalExpense != 70000 {
		t.Errorf("current = %+v", summary.Current)
	}
	if summary.Previous.Month != "2024-02" || summary.Previous.TotalExpense != 50000 {
		t.Errorf("previous = %+v", summary.Previous)
	}
}

func TestMonthlySummaryJanuaryLooksAtPreviousYear(t *testing.T) {
	env := newTestEnv()

	seedEntries(t, env,
		domain.CreateEntryRequest{Name: "dec", Amount: "30000", Type: "expense", Date: "2023-12-20"},
	)

	summary, err := env.reports.MonthlySummary(context.Background(), "u1", domain.MonthKey{Year: 2024, Month: 1})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Previous.Month != "2023-12" || summary.Previous.TotalExpense != 30000 {
		t.Errorf("previous = %+v", summary.Previous)
	}
}

func TestMonthlySummaryCacheInvalidatedByMutation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	key := domain.MonthKey{Year: 2024, Month: 3}

	seedEntries(t, env,
		domain.CreateEntryRequest{Name: "a", Amount: "10000", Type: "expense", Date: "2024-03-01"},
	)

	first, err := env.reports.MonthlySummary(ctx, "u1", key)
	if err != nil {
		t.Fatal(err)
	}
	if first.Current.TotalExpense != 10000 {
		t.Fatalf("first = %+v", first)
	}

	// A new mutation must not be hidden by the cache.
	seedEntries(t, env,
		domain.CreateEntryRequest{Name: "b", Amount: "5000", Type: "expense", Date: "2024-03-02"},
	)
	second, err := env.reports.MonthlySummary(ctx, "u1", key)
	if err != nil {
		t.Fatal(err)
	}
	if second.Current.TotalExpense != 15000 {
		t.Errorf("second = %+v (stale cache)", second)
	}
}

func TestWeeklySummaryMondayToSundayWindow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Week of Monday 2024-03-04 .. Sunday 2024-03-10.
	seedEntries(t, env,
		domain.CreateEntryRequest{Name: "mon", Amount: "1000", Type: "expense", Date: "2024-03-04"},
		domain.CreateEntryRequest{Name: "sun", Amount: "2000", Type: "expense", Date: "2024-03-10"},
		domain.CreateEntryRequest{Name: "nextMon", Amount: "4000", Type: "expense", Date: "2024-03-11"},
		domain.CreateEntryRequest{Name: "income", Amount: "8000", Type: "income", Date: "2024-03-05"},
	)

	week, err := env.reports.WeeklySummary(ctx, "u1", time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if week.Start != "2024-03-04" || week.End != "2024-03-10" {
		t.Errorf("window = %s..%s", week.Start, week.End)
	}
	// Only expense entries inside the window count.
	if week.TotalExpense != 3000 {
		t.Errorf("totalExpense = %d", week.TotalExpense)
	}
}

func TestMonthlyBreakdown(t *testing.T) {
	env := newTestEnv()

	seedEntries(t, env,
		domain.CreateEntryRequest{Name: "a", Amount: "10000", Type: "expense", CategoryID: "food", Date: "2024-03-01"},
		domain.CreateEntryRequest{Name: "b", Amount: "20000", Type: "expense", CategoryID: "transport", Date: "2024-03-02"},
		domain.CreateEntryRequest{Name: "c", Amount: "5000", Type: "expense", Date: "2024-03-03"},
		domain.CreateEntryRequest{Name: "salary", Amount: "900000", Type: "income", Date: "2024-03-04"},
	)

	breakdown, err := env.reports.MonthlyBreakdown(context.Background(), "u1", domain.MonthKey{Year: 2024, Month: 3})
	if err != nil {
		t.Fatal(err)
	}
	if breakdown.TotalExpense != 35000 {
		t.Errorf("totalExpense = %d", breakdown.TotalExpense)
	}
	if breakdown.TotalIncome != 900000 {
		t.Errorf("totalIncome = %d", breakdown.TotalIncome)
	}
	want := map[string]int64{"food": 10000, "transport": 20000, domain.UncategorizedKey: 5000}
	for k, v := range want {
		if breakdown.ByCategory[k] != v {
			t.Errorf("byCategory[%s] = %d, want %d", k, breakdown.ByCategory[k], v)
		}
	}
}

func TestMonthlyBreakdownEmptyBucket(t *testing.T) {
	env := newTestEnv()

	breakdown, err := env.reports.MonthlyBreakdown(context.Background(), "u1", domain.MonthKey{Year: 2030, Month: 1})
	if err != nil {
		t.Fatal(err)
	}
	if breakdown.TotalExpense != 0 || breakdown.TotalIncome != 0 || len(breakdown.ByCategory) != 0 {
		t.Errorf("breakdown = %+v", breakdown)
	}
}

func TestYearlyTotals(t *testing.T) {
	env := newTestEnv()

	seedEntries(t, env,
		domain.CreateEntryRequest{Name: "jan", Amount: "10000", Type: "expense", Date: "2024-01-15"},
		domain.CreateEntryRequest{Name: "mar", Amount: "20000", Type: "expense", Date: "2024-03-15"},
	)

	totals, err := env.reports.YearlyTotals(context.Background(), "u1", 2024)
	if err != nil {
		t.Fatal(err)
	}
	if len(totals.Months) != 12 {
		t.Fatalf("months = %d", len(totals.Months))
	}
	if totals.Months[0].TotalExpense != 10000 || totals.Months[2].TotalExpense != 20000 {
		t.Errorf("jan/mar = %d/%d", totals.Months[0].TotalExpense, totals.Months[2].TotalExpense)
	}
	if totals.Months[5].TotalExpense != 0 {
		t.Errorf("untouched month should be zero")
	}
}
