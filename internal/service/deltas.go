package service

import "github.com/minhnd/expenses-ledger-go/internal/domain"

// Delta computation for monthly aggregates. Pure functions, no I/O.
// Aggregates are only ever adjusted with signed increments so that
// concurrent mutations on the same bucket commute instead of clobbering
// each other.

// deltaPlan describes which bucket(s) a mutation touches and by how much.
// For a same-bucket update OldKey == NewKey and the single combined
// adjustment is carried in NewDelta; OldDelta is empty.
type deltaPlan struct {
	OldKey   domain.MonthKey
	NewKey   domain.MonthKey
	OldDelta domain.AggregateDelta
	NewDelta domain.AggregateDelta
}

func (p deltaPlan) sameBucket() bool {
	return p.OldKey == p.NewKey
}

// creationDelta is the contribution a new entry adds to its bucket.
// Income is never categorized.
func creationDelta(e *domain.Entry) domain.AggregateDelta {
	d := domain.AggregateDelta{ByCategory: map[string]int64{}}
	switch e.Kind {
	case domain.KindExpense:
		d.TotalExpense = e.Amount
		d.ByCategory[e.CategoryKey()] = e.Amount
	case domain.KindIncome:
		d.TotalIncome = e.Amount
	}
	return d
}

// deletionDelta removes an entry's full contribution from its bucket.
func deletionDelta(e *domain.Entry) domain.AggregateDelta {
	d := creationDelta(e)
	d.TotalExpense = -d.TotalExpense
	d.TotalIncome = -d.TotalIncome
	for k, v := range d.ByCategory {
		d.ByCategory[k] = -v
	}
	return d
}

// updateDeltas computes the adjustments for an edit of oldE into newE.
//
// When the date edit moved the entry to a different month bucket, the two
// buckets are treated as fully independent targets: the old bucket gets a
// pure negative contribution and the new bucket a pure positive one, never
// diffed against each other.
//
// Within one bucket the contributions are netted, so an unchanged expense
// category key receives a single newAmount-oldAmount delta instead of an
// opposing decrement/increment pair on the same map path.
func updateDeltas(oldE, newE *domain.Entry) deltaPlan {
	oldKey, newKey := oldE.BucketKey(), newE.BucketKey()
	if oldKey != newKey {
		return deltaPlan{
			OldKey:   oldKey,
			NewKey:   newKey,
			OldDelta: deletionDelta(oldE),
			NewDelta: creationDelta(newE),
		}
	}

	d := domain.AggregateDelta{ByCategory: map[string]int64{}}
	if oldE.Kind == domain.KindExpense {
		d.TotalExpense -= oldE.Amount
		d.ByCategory[oldE.CategoryKey()] -= oldE.Amount
	} else {
		d.TotalIncome -= oldE.Amount
	}
	if newE.Kind == domain.KindExpense {
		d.TotalExpense += newE.Amount
		d.ByCategory[newE.CategoryKey()] += newE.Amount
	} else {
		d.TotalIncome += newE.Amount
	}

	return deltaPlan{OldKey: oldKey, NewKey: newKey, NewDelta: d}
}
