package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/infra/cache"
	"github.com/minhnd/expenses-ledger-go/internal/infra/observability"
	"github.com/minhnd/expenses-ledger-go/internal/port"
)

var tracer = otel.Tracer("service")

// LedgerService coordinates entry mutations. Every create/update/delete runs
// as one atomic store transaction: all reads first, then validation and
// delta computation, then all writes. The monthly aggregates are only ever
// touched through merge-create (first write to a bucket) or signed
// increments, so concurrent mutations on the same bucket commute.
type LedgerService struct {
	store          port.LedgerStore
	summaryCache   *cache.InMemory[domain.MonthlySummary]
	breakdownCache *cache.InMemory[domain.MonthlyBreakdown]
	loc            *time.Location
	now            func() time.Time
	metrics        *observability.Metrics
	logger         *zap.Logger
}

// NewLedgerService creates the mutation coordinator.
func NewLedgerService(
	store port.LedgerStore,
	summaryCache *cache.InMemory[domain.MonthlySummary],
	breakdownCache *cache.InMemory[domain.MonthlyBreakdown],
	loc *time.Location,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		store:          store,
		summaryCache:   summaryCache,
		breakdownCache: breakdownCache,
		loc:            loc,
		now:            time.Now,
		metrics:        metrics,
		logger:         logger,
	}
}

// CreateEntry records a new monetary event and folds its contribution into
// the month bucket's aggregate, creating the aggregate on first write.
func (s *LedgerService) CreateEntry(ctx context.Context, uid string, req domain.CreateEntryRequest) (*domain.Entry, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.CreateEntry")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	start := s.now()
	defer func() { s.metrics.RecordRequestDuration("create_entry", s.now().Sub(start)) }()

	if uid == "" {
		return nil, &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}
	if req.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	kind := domain.EntryKind(req.Type)
	if !kind.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "type must be expense or income"}
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be positive"}
	}

	now := s.now()
	occurred := now
	if req.Date != "" {
		occurred, err = domain.ParseDate(req.Date, s.loc)
		if err != nil {
			return nil, err
		}
	}
	if occurred.After(now) {
		return nil, &domain.ErrValidation{Field: "date", Message: "occurrence date is in the future"}
	}

	currency := req.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	year, month, day := domain.CalendarParts(occurred, s.loc)
	entry := &domain.Entry{
		ID:           s.store.NewEntryID(uid),
		Name:         req.Name,
		Amount:       amount,
		Currency:     currency,
		Kind:         kind,
		CategoryID:   req.CategoryID,
		CategoryName: req.CategoryName,
		Date:         occurred,
		Year:         year,
		Month:        month,
		Day:          day,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	key := entry.BucketKey()
	delta := creationDelta(entry)

	err = s.store.RunEntryTransaction(ctx, uid, func(tx port.LedgerTx) error {
		agg, err := tx.GetAggregate(key)
		if err != nil {
			return err
		}

		if err := tx.PutEntry(entry); err != nil {
			return err
		}

		if agg == nil {
			return tx.MergeAggregate(key, &domain.MonthlyAggregate{
				Month:        key.String(),
				TotalExpense: delta.TotalExpense,
				TotalIncome:  delta.TotalIncome,
				ByCategory:   delta.ByCategory,
				UpdatedAt:    now,
			})
		}
		return tx.IncrementAggregate(key, delta)
	})
	if err != nil {
		s.logger.Error("create entry failed",
			zap.String("uid", uid),
			zap.String("month", key.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrMutation("create")
	s.invalidateReadModels(uid)
	s.logger.Info("entry created",
		zap.String("uid", uid),
		zap.String("entry_id", entry.ID),
		zap.String("kind", string(kind)),
		zap.Int64("amount", amount),
		zap.String("month", key.String()),
	)
	return entry, nil
}

// UpdateEntry edits an entry in place and re-balances the touched month
// aggregates. A date edit across months removes the full old contribution
// from the old bucket and adds the full new contribution to the new one,
// merge-creating the target aggregate when the move is its first
// contribution. A missing aggregate on the decrement side is accepted
// drift: the increment is skipped with a diagnostic instead of failing
// the mutation.
func (s *LedgerService) UpdateEntry(ctx context.Context, uid, id string, req domain.UpdateEntryRequest) (*domain.Entry, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.UpdateEntry")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid), attribute.String("entry.id", id))

	start := s.now()
	defer func() { s.metrics.RecordRequestDuration("update_entry", s.now().Sub(start)) }()

	if uid == "" {
		return nil, &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}
	if id == "" {
		return nil, &domain.ErrValidation{Field: "id", Message: "missing entry id"}
	}

	var (
		updated *domain.Entry
		drifts  []driftEvent
	)
	err := s.store.RunEntryTransaction(ctx, uid, func(tx port.LedgerTx) error {
		// The closure re-runs on conflict; drift events are collected here
		// and emitted once after the commit.
		drifts = drifts[:0]

		old, err := tx.GetEntry(id)
		if err != nil {
			return err
		}

		next, err := s.applyPatch(old, req)
		if err != nil {
			return err
		}

		plan := updateDeltas(old, next)

		// Read phase must complete before the first write.
		oldAgg, err := tx.GetAggregate(plan.OldKey)
		if err != nil {
			return err
		}
		newAgg := oldAgg
		if !plan.sameBucket() {
			newAgg, err = tx.GetAggregate(plan.NewKey)
			if err != nil {
				return err
			}
		}

		if err := tx.PutEntry(next); err != nil {
			return err
		}

		if plan.sameBucket() {
			if oldAgg == nil {
				drifts = append(drifts, driftEvent{key: plan.OldKey, op: "update"})
			} else if err := tx.IncrementAggregate(plan.OldKey, plan.NewDelta); err != nil {
				return err
			}
		} else {
			if oldAgg == nil {
				drifts = append(drifts, driftEvent{key: plan.OldKey, op: "update"})
			} else if err := tx.IncrementAggregate(plan.OldKey, plan.OldDelta); err != nil {
				return err
			}
			if newAgg == nil {
				// First contribution to the target bucket: the delta is the
				// entry's full positive contribution, safe to merge-create.
				if err := tx.MergeAggregate(plan.NewKey, &domain.MonthlyAggregate{
					Month:        plan.NewKey.String(),
					TotalExpense: plan.NewDelta.TotalExpense,
					TotalIncome:  plan.NewDelta.TotalIncome,
					ByCategory:   plan.NewDelta.ByCategory,
					UpdatedAt:    next.UpdatedAt,
				}); err != nil {
					return err
				}
			} else if err := tx.IncrementAggregate(plan.NewKey, plan.NewDelta); err != nil {
				return err
			}
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, d := range drifts {
		s.warnDrift(uid, d.key, d.op)
	}
	s.metrics.IncrMutation("update")
	s.invalidateReadModels(uid)
	s.logger.Info("entry updated",
		zap.String("uid", uid),
		zap.String("entry_id", id),
		zap.String("month", updated.BucketKey().String()),
	)
	return updated, nil
}

// DeleteEntry removes an entry and subtracts its contribution from its
// bucket's aggregate. Hard delete, no tombstone.
func (s *LedgerService) DeleteEntry(ctx context.Context, uid, id string) error {
	ctx, span := tracer.Start(ctx, "LedgerService.DeleteEntry")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid), attribute.String("entry.id", id))

	start := s.now()
	defer func() { s.metrics.RecordRequestDuration("delete_entry", s.now().Sub(start)) }()

	if uid == "" {
		return &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}
	if id == "" {
		return &domain.ErrValidation{Field: "id", Message: "missing entry id"}
	}

	var drifts []driftEvent
	err := s.store.RunEntryTransaction(ctx, uid, func(tx port.LedgerTx) error {
		drifts = drifts[:0]

		old, err := tx.GetEntry(id)
		if err != nil {
			return err
		}

		key := old.BucketKey()
		agg, err := tx.GetAggregate(key)
		if err != nil {
			return err
		}

		if err := tx.DeleteEntry(id); err != nil {
			return err
		}

		if agg == nil {
			drifts = append(drifts, driftEvent{key: key, op: "delete"})
			return nil
		}
		return tx.IncrementAggregate(key, deletionDelta(old))
	})
	if err != nil {
		return err
	}

	for _, d := range drifts {
		s.warnDrift(uid, d.key, d.op)
	}
	s.metrics.IncrMutation("delete")
	s.invalidateReadModels(uid)
	s.logger.Info("entry deleted", zap.String("uid", uid), zap.String("entry_id", id))
	return nil
}

// applyPatch merges an update request into a copy of the stored entry and
// re-derives the denormalized calendar fields.
func (s *LedgerService) applyPatch(old *domain.Entry, req domain.UpdateEntryRequest) (*domain.Entry, error) {
	next := *old

	if req.Name != nil {
		next.Name = *req.Name
	}
	if req.Currency != nil {
		next.Currency = *req.Currency
	}
	if req.Type != nil {
		kind := domain.EntryKind(*req.Type)
		if !kind.Valid() {
			return nil, &domain.ErrValidation{Field: "type", Message: "type must be expense or income"}
		}
		next.Kind = kind
	}
	if req.Amount != nil {
		amount, err := domain.ParseAmount(*req.Amount)
		if err != nil {
			return nil, err
		}
		if amount <= 0 {
			return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be positive"}
		}
		next.Amount = amount
	}
	if req.CategoryID != nil {
		next.CategoryID = *req.CategoryID
	}
	if req.CategoryName != nil {
		next.CategoryName = *req.CategoryName
	}

	now := s.now()
	if req.Date != nil {
		occurred, err := domain.ParseDate(*req.Date, s.loc)
		if err != nil {
			return nil, err
		}
		next.Date = occurred
	}
	if next.Date.After(now) {
		return nil, &domain.ErrValidation{Field: "date", Message: "occurrence date is in the future"}
	}

	next.Year, next.Month, next.Day = domain.CalendarParts(next.Date, s.loc)
	next.UpdatedAt = now
	return &next, nil
}

// driftEvent records a skipped increment against a missing aggregate,
// detected inside a transaction and reported after it commits.
type driftEvent struct {
	key domain.MonthKey
	op  string
}

// warnDrift surfaces a skipped increment against a missing aggregate. The
// mutation itself still commits; operators reconcile by rebuild-from-scan.
func (s *LedgerService) warnDrift(uid string, key domain.MonthKey, op string) {
	s.logger.Warn("monthly aggregate missing, skipping increment",
		zap.String("uid", uid),
		zap.String("month", key.String()),
		zap.String("op", op),
	)
	s.metrics.IncrAggregateDrift(op)
}

// invalidateReadModels drops the user's cached summaries after a mutation.
func (s *LedgerService) invalidateReadModels(uid string) {
	s.summaryCache.DeletePrefix(uid + "|")
	s.breakdownCache.DeletePrefix(uid + "|")
}
