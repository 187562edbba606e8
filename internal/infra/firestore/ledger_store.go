package firestore

import (
	"context"
	"fmt"
	"sort"
	"time"

	fs "cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/port"
)

// LedgerStore implements port.LedgerStore on Firestore. Mutations run inside
// RunTransaction, which gives serializable isolation and automatic retry on
// contention; aggregate adjustments use field-level increments so concurrent
// transactions on the same bucket commute.
type LedgerStore struct {
	c *Client
}

// NewLedgerStore creates the ledger store on a shared client.
func NewLedgerStore(c *Client) *LedgerStore {
	return &LedgerStore{c: c}
}

// NewEntryID allocates a document id without a network round trip.
func (s *LedgerStore) NewEntryID(uid string) string {
	return s.c.entriesCol(uid).NewDoc().ID
}

// RunEntryTransaction executes fn atomically. Firestore enforces the
// all-reads-before-writes rule for us: reads go to the server, writes are
// buffered until commit.
func (s *LedgerStore) RunEntryTransaction(ctx context.Context, uid string, fn func(tx port.LedgerTx) error) error {
	ctx, span := tracer.Start(ctx, "LedgerStore.RunEntryTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	return s.c.executeOnce(ctx, "run entry transaction", func() error {
		return s.c.db.RunTransaction(ctx, func(ctx context.Context, tx *fs.Transaction) error {
			return fn(&ledgerTx{store: s, uid: uid, tx: tx})
		})
	})
}

// GetEntry reads one entry outside a transaction.
func (s *LedgerStore) GetEntry(ctx context.Context, uid, id string) (*domain.Entry, error) {
	ctx, span := tracer.Start(ctx, "LedgerStore.GetEntry")
	defer span.End()

	var snap *fs.DocumentSnapshot
	err := s.c.execute(ctx, "get entry", func() error {
		got, err := s.c.entriesCol(uid).Doc(id).Get(ctx)
		if status.Code(err) == codes.NotFound {
			snap = nil
			return nil
		}
		if err != nil {
			return err
		}
		snap = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	return entryFromDoc(snap)
}

// ListEntriesForMonth pages through one bucket's entries, newest first. The
// cursor is the last entry id of the previous page.
func (s *LedgerStore) ListEntriesForMonth(ctx context.Context, uid string, key domain.MonthKey, limit int, startAfter string) ([]domain.Entry, error) {
	ctx, span := tracer.Start(ctx, "LedgerStore.ListEntriesForMonth")
	defer span.End()
	span.SetAttributes(attribute.String("month", key.String()))

	q := s.c.entriesCol(uid).
		Where("year", "==", key.Year).
		Where("month", "==", key.Month).
		OrderBy("date", fs.Desc).
		Limit(limit)

	if startAfter != "" {
		cursor, err := s.c.entriesCol(uid).Doc(startAfter).Get(ctx)
		if status.Code(err) == codes.NotFound {
			return nil, &domain.ErrNotFound{Resource: "expense", ID: startAfter}
		}
		if err != nil {
			return nil, &domain.ErrExternalService{Service: "firestore", Err: err}
		}
		q = q.StartAfter(cursor)
	}

	return s.queryEntries(ctx, "list month entries", q)
}

// ListEntries returns every entry of the user, newest first.
func (s *LedgerStore) ListEntries(ctx context.Context, uid string) ([]domain.Entry, error) {
	ctx, span := tracer.Start(ctx, "LedgerStore.ListEntries")
	defer span.End()

	q := s.c.entriesCol(uid).OrderBy("date", fs.Desc)
	return s.queryEntries(ctx, "list entries", q)
}

// ListExpensesInRange returns expense entries in [start, end], both
// inclusive. Kind filtering happens client-side to avoid a composite index
// on (type, date).
func (s *LedgerStore) ListExpensesInRange(ctx context.Context, uid string, start, end time.Time) ([]domain.Entry, error) {
	ctx, span := tracer.Start(ctx, "LedgerStore.ListExpensesInRange")
	defer span.End()

	q := s.c.entriesCol(uid).
		Where("date", ">=", start).
		Where("date", "<=", end).
		OrderBy("date", fs.Desc)

	all, err := s.queryEntries(ctx, "list expenses in range", q)
	if err != nil {
		return nil, err
	}
	expenses := all[:0]
	for _, e := range all {
		if e.Kind == domain.KindExpense {
			expenses = append(expenses, e)
		}
	}
	return expenses, nil
}

// GetAggregate reads one monthly aggregate outside a transaction, returning
// nil when the bucket was never written.
func (s *LedgerStore) GetAggregate(ctx context.Context, uid string, key domain.MonthKey) (*domain.MonthlyAggregate, error) {
	ctx, span := tracer.Start(ctx, "LedgerStore.GetAggregate")
	defer span.End()
	span.SetAttributes(attribute.String("month", key.String()))

	var snap *fs.DocumentSnapshot
	err := s.c.execute(ctx, "get aggregate", func() error {
		got, err := s.c.monthlyDoc(uid, key).Get(ctx)
		if status.Code(err) == codes.NotFound {
			snap = nil
			return nil
		}
		if err != nil {
			return err
		}
		snap = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}
	return aggregateFromDoc(snap)
}

func (s *LedgerStore) queryEntries(ctx context.Context, op string, q fs.Query) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := s.c.execute(ctx, op, func() error {
		entries = entries[:0]
		iter := q.Documents(ctx)
		defer iter.Stop()
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			e, err := entryFromDoc(doc)
			if err != nil {
				return err
			}
			entries = append(entries, *e)
		}
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ============================================================
// Transaction view
// ============================================================

type ledgerTx struct {
	store *LedgerStore
	uid   string
	tx    *fs.Transaction
}

func (t *ledgerTx) GetEntry(id string) (*domain.Entry, error) {
	snap, err := t.tx.Get(t.store.c.entriesCol(t.uid).Doc(id))
	if status.Code(err) == codes.NotFound {
		return nil, &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "firestore", Err: err}
	}
	return entryFromDoc(snap)
}

func (t *ledgerTx) GetAggregate(key domain.MonthKey) (*domain.MonthlyAggregate, error) {
	snap, err := t.tx.Get(t.store.c.monthlyDoc(t.uid, key))
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "firestore", Err: err}
	}
	return aggregateFromDoc(snap)
}

func (t *ledgerTx) PutEntry(e *domain.Entry) error {
	return t.tx.Set(t.store.c.entriesCol(t.uid).Doc(e.ID), entryDoc(e))
}

func (t *ledgerTx) DeleteEntry(id string) error {
	return t.tx.Delete(t.store.c.entriesCol(t.uid).Doc(id))
}

func (t *ledgerTx) MergeAggregate(key domain.MonthKey, agg *domain.MonthlyAggregate) error {
	doc := map[string]any{
		"month":        key.String(),
		"totalExpense": agg.TotalExpense,
		"totalIncome":  agg.TotalIncome,
		"updatedAt":    fs.ServerTimestamp,
	}
	if len(agg.ByCategory) > 0 {
		doc["byCategory"] = agg.ByCategory
	}
	return t.tx.Set(t.store.c.monthlyDoc(t.uid, key), doc, fs.MergeAll)
}

func (t *ledgerTx) IncrementAggregate(key domain.MonthKey, delta domain.AggregateDelta) error {
	updates := make([]fs.Update, 0, 3+len(delta.ByCategory))
	if delta.TotalExpense != 0 {
		updates = append(updates, fs.Update{Path: "totalExpense", Value: fs.Increment(delta.TotalExpense)})
	}
	if delta.TotalIncome != 0 {
		updates = append(updates, fs.Update{Path: "totalIncome", Value: fs.Increment(delta.TotalIncome)})
	}
	// Stable order keeps retried transactions byte-identical.
	keys := make([]string, 0, len(delta.ByCategory))
	for k := range delta.ByCategory {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if delta.ByCategory[k] == 0 {
			continue
		}
		updates = append(updates, fs.Update{
			Path:  "byCategory." + k,
			Value: fs.Increment(delta.ByCategory[k]),
		})
	}
	if len(updates) == 0 {
		return nil
	}
	updates = append(updates, fs.Update{Path: "updatedAt", Value: fs.ServerTimestamp})
	return t.tx.Update(t.store.c.monthlyDoc(t.uid, key), updates)
}

// ============================================================
// Document codecs
// ============================================================

func entryDoc(e *domain.Entry) map[string]any {
	doc := map[string]any{
		"name":      e.Name,
		"amount":    e.Amount,
		"currency":  e.Currency,
		"type":      string(e.Kind),
		"date":      e.Date,
		"year":      e.Year,
		"month":     e.Month,
		"day":       e.Day,
		"createdAt": e.CreatedAt,
		"updatedAt": fs.ServerTimestamp,
	}
	if e.CategoryID != "" {
		doc["categoryId"] = e.CategoryID
	}
	if e.CategoryName != "" {
		doc["categoryName"] = e.CategoryName
	}
	return doc
}

func entryFromDoc(snap *fs.DocumentSnapshot) (*domain.Entry, error) {
	data := snap.Data()
	e := &domain.Entry{
		ID:           snap.Ref.ID,
		Name:         asString(data["name"]),
		Amount:       asInt64(data["amount"]),
		Currency:     asString(data["currency"]),
		Kind:         domain.EntryKind(asString(data["type"])),
		CategoryID:   asString(data["categoryId"]),
		CategoryName: asString(data["categoryName"]),
		Year:         int(asInt64(data["year"])),
		Month:        int(asInt64(data["month"])),
		Day:          int(asInt64(data["day"])),
		CreatedAt:    asTime(data["createdAt"]),
		UpdatedAt:    asTime(data["updatedAt"]),
	}
	date := asTime(data["date"])
	if date.IsZero() {
		return nil, fmt.Errorf("entry %s: malformed date field %v", snap.Ref.ID, data["date"])
	}
	e.Date = date
	return e, nil
}

func aggregateFromDoc(snap *fs.DocumentSnapshot) (*domain.MonthlyAggregate, error) {
	data := snap.Data()
	agg := &domain.MonthlyAggregate{
		Month:        snap.Ref.ID,
		TotalExpense: asInt64(data["totalExpense"]),
		TotalIncome:  asInt64(data["totalIncome"]),
		UpdatedAt:    asTime(data["updatedAt"]),
	}
	if m, ok := data["byCategory"].(map[string]any); ok {
		agg.ByCategory = make(map[string]int64, len(m))
		for k, v := range m {
			agg.ByCategory[k] = asInt64(v)
		}
	}
	return agg, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// asTime tolerates the historical encodings of date fields: native
// timestamps, RFC3339 strings, and {seconds, nanoseconds} maps written by
// older clients.
func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err == nil {
			return parsed
		}
		parsed, err = time.Parse("2006-01-02", t)
		if err == nil {
			return parsed
		}
	case map[string]any:
		secs := asInt64(t["seconds"])
		if secs == 0 {
			secs = asInt64(t["_seconds"])
		}
		if secs != 0 {
			return time.Unix(secs, asInt64(t["nanoseconds"])).UTC()
		}
	}
	return time.Time{}
}
