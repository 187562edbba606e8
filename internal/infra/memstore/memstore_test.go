package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/port"
)

func testEntry(id string, amount int64, date time.Time) *domain.Entry {
	y, m, d := domain.CalendarParts(date, time.UTC)
	return &domain.Entry{
		ID:     id,
		Name:   "test",
		Amount: amount,
		Kind:   domain.KindExpense,
		Date:   date,
		Year:   y,
		Month:  m,
		Day:    d,
	}
}

func TestTransactionCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := domain.MonthKey{Year: 2024, Month: 3}

	err := s.RunEntryTransaction(ctx, "u1", func(tx port.LedgerTx) error {
		agg, err := tx.GetAggregate(key)
		if err != nil {
			return err
		}
		if agg != nil {
			t.Fatal("expected absent aggregate")
		}
		if err := tx.PutEntry(testEntry("e1", 1000, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))); err != nil {
			return err
		}
		return tx.MergeAggregate(key, &domain.MonthlyAggregate{
			Month:        key.String(),
			TotalExpense: 1000,
			ByCategory:   map[string]int64{"uncategorized": 1000},
		})
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	agg, err := s.GetAggregate(ctx, "u1", key)
	if err != nil || agg == nil {
		t.Fatalf("aggregate missing after commit: %v", err)
	}
	if agg.TotalExpense != 1000 {
		t.Errorf("totalExpense = %d", agg.TotalExpense)
	}
}

func TestReadAfterWriteRejected(t *testing.T) {
	s := New()
	err := s.RunEntryTransaction(context.Background(), "u1", func(tx port.LedgerTx) error {
		if err := tx.PutEntry(testEntry("e1", 1000, time.Now())); err != nil {
			return err
		}
		_, err := tx.GetEntry("e1")
		return err
	})
	if err != ErrReadAfterWrite {
		t.Errorf("expected ErrReadAfterWrite, got %v", err)
	}
}

func TestConcurrentIncrementsSurvive(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := domain.MonthKey{Year: 2024, Month: 3}

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			errs <- s.RunEntryTransaction(ctx, "u1", func(tx port.LedgerTx) error {
				agg, err := tx.GetAggregate(key)
				if err != nil {
					return err
				}
				if agg == nil {
					return tx.MergeAggregate(key, &domain.MonthlyAggregate{
						Month:        key.String(),
						TotalExpense: 100,
						ByCategory:   map[string]int64{"food": 100},
					})
				}
				return tx.IncrementAggregate(key, domain.AggregateDelta{
					TotalExpense: 100,
					ByCategory:   map[string]int64{"food": 100},
				})
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("worker failed: %v", err)
		}
	}

	agg, _ := s.GetAggregate(ctx, "u1", key)
	if agg.TotalExpense != 100*workers {
		t.Errorf("totalExpense = %d, want %d (lost update)", agg.TotalExpense, 100*workers)
	}
	if agg.ByCategory["food"] != 100*workers {
		t.Errorf("byCategory[food] = %d", agg.ByCategory["food"])
	}
}

func TestListEntriesForMonthPagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := domain.MonthKey{Year: 2024, Month: 3}

	for day := 1; day <= 5; day++ {
		e := testEntry(s.NewEntryID("u1"), int64(day), time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC))
		err := s.RunEntryTransaction(ctx, "u1", func(tx port.LedgerTx) error {
			return tx.PutEntry(e)
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	page1, err := s.ListEntriesForMonth(ctx, "u1", key, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(page1) != 2 {
		t.Fatalf("page1 len = %d", len(page1))
	}
	if page1[0].Day != 5 || page1[1].Day != 4 {
		t.Errorf("not date-descending: days %d, %d", page1[0].Day, page1[1].Day)
	}

	page2, err := s.ListEntriesForMonth(ctx, "u1", key, 2, page1[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 2 || page2[0].Day != 3 {
		t.Errorf("page2 = %+v", page2)
	}
}

func TestRangeQueryInclusive(t *testing.T) {
	s := New()
	ctx := context.Background()
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC)

	inside := testEntry("in", 100, start)
	edge := testEntry("edge", 200, end)
	outside := testEntry("out", 300, end.Add(time.Second))
	for _, e := range []*domain.Entry{inside, edge, outside} {
		entry := e
		if err := s.RunEntryTransaction(ctx, "u1", func(tx port.LedgerTx) error {
			return tx.PutEntry(entry)
		}); err != nil {
			t.Fatal(err)
		}
	}

	items, err := s.ListExpensesInRange(ctx, "u1", start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Errorf("got %d items, want 2 (inclusive bounds)", len(items))
	}
}

func TestProfileMerge(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := "An"
	email := "AN@Example.com"
	if err := s.MergeProfile(ctx, "u1", domain.ProfileUpdate{FirstName: &first, Email: &email}); err != nil {
		t.Fatal(err)
	}
	income := int64(9000000)
	if err := s.MergeProfile(ctx, "u1", domain.ProfileUpdate{IncomeAmount: &income}); err != nil {
		t.Fatal(err)
	}

	p, err := s.GetProfile(ctx, "u1")
	if err != nil || p == nil {
		t.Fatalf("profile missing: %v", err)
	}
	if p.FirstName != "An" || p.Email != "an@example.com" || p.IncomeAmount != 9000000 {
		t.Errorf("profile = %+v", p)
	}
}
