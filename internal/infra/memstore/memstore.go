// Package memstore is an in-memory document store implementing the same
// transactional contract as the Firestore adapter: snapshot reads, buffered
// writes, optimistic conflict detection with automatic retry, and a hard
// reads-before-writes rule inside a transaction. Backs tests and local dev.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/port"
)

const maxTxAttempts = 10

// ErrReadAfterWrite is returned when a transaction reads after staging a
// write, mirroring the backing store's transactional contract.
var ErrReadAfterWrite = errors.New("memstore: read after write in transaction")

// Store holds all documents of all users, versioned per document path.
type Store struct {
	mu    sync.Mutex
	users map[string]*userDocs
	now   func() time.Time
}

type userDocs struct {
	entries  map[string]*domain.Entry
	monthly  map[string]*domain.MonthlyAggregate
	cards    map[string]*domain.Card
	savings  map[string]*domain.Saving
	profile  *domain.Profile
	versions map[string]uint64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users: make(map[string]*userDocs),
		now:   time.Now,
	}
}

// user returns the per-user document set, creating it lazily.
// Caller holds s.mu.
func (s *Store) user(uid string) *userDocs {
	u, ok := s.users[uid]
	if !ok {
		u = &userDocs{
			entries:  make(map[string]*domain.Entry),
			monthly:  make(map[string]*domain.MonthlyAggregate),
			cards:    make(map[string]*domain.Card),
			savings:  make(map[string]*domain.Saving),
			versions: make(map[string]uint64),
		}
		s.users[uid] = u
	}
	return u
}

func entryPath(id string) string { return "expenses/" + id }

func monthPath(k domain.MonthKey) string { return "monthly/" + k.String() }

// ============================================================
// port.LedgerStore
// ============================================================

// NewEntryID allocates a document id without touching the store.
func (s *Store) NewEntryID(string) string {
	return uuid.NewString()
}

// RunEntryTransaction executes fn against a consistent snapshot and commits
// its writes atomically. On a version conflict the whole function is re-run,
// up to maxTxAttempts.
func (s *Store) RunEntryTransaction(ctx context.Context, uid string, fn func(tx port.LedgerTx) error) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		t := &ledgerTx{s: s, uid: uid, reads: make(map[string]uint64)}
		if err := fn(t); err != nil {
			return err
		}

		committed, err := s.commit(uid, t)
		if err != nil {
			return err
		}
		if committed {
			return nil
		}
		// Stagger retries so contending writers don't re-collide in lockstep.
		time.Sleep(time.Duration(attempt+1) * time.Millisecond)
	}
	return &domain.ErrConflict{Resource: "ledger", Reason: "too many concurrent modifications"}
}

type opKind int

const (
	opPutEntry opKind = iota
	opDeleteEntry
	opMergeAggregate
	opIncrementAggregate
)

type writeOp struct {
	kind  opKind
	id    string
	entry *domain.Entry
	key   domain.MonthKey
	agg   *domain.MonthlyAggregate
	delta domain.AggregateDelta
}

type ledgerTx struct {
	s     *Store
	uid   string
	reads map[string]uint64
	ops   []writeOp
}

func (t *ledgerTx) GetEntry(id string) (*domain.Entry, error) {
	if len(t.ops) > 0 {
		return nil, ErrReadAfterWrite
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	u := t.s.user(t.uid)
	t.reads[entryPath(id)] = u.versions[entryPath(id)]
	e, ok := u.entries[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	return copyEntry(e), nil
}

func (t *ledgerTx) GetAggregate(key domain.MonthKey) (*domain.MonthlyAggregate, error) {
	if len(t.ops) > 0 {
		return nil, ErrReadAfterWrite
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	u := t.s.user(t.uid)
	t.reads[monthPath(key)] = u.versions[monthPath(key)]
	agg, ok := u.monthly[key.String()]
	if !ok {
		return nil, nil
	}
	return copyAggregate(agg), nil
}

func (t *ledgerTx) PutEntry(e *domain.Entry) error {
	t.ops = append(t.ops, writeOp{kind: opPutEntry, entry: copyEntry(e)})
	return nil
}

func (t *ledgerTx) DeleteEntry(id string) error {
	t.ops = append(t.ops, writeOp{kind: opDeleteEntry, id: id})
	return nil
}

func (t *ledgerTx) MergeAggregate(key domain.MonthKey, agg *domain.MonthlyAggregate) error {
	t.ops = append(t.ops, writeOp{kind: opMergeAggregate, key: key, agg: copyAggregate(agg)})
	return nil
}

func (t *ledgerTx) IncrementAggregate(key domain.MonthKey, delta domain.AggregateDelta) error {
	t.ops = append(t.ops, writeOp{kind: opIncrementAggregate, key: key, delta: copyDelta(delta)})
	return nil
}

// commit verifies the read set is unchanged and applies the buffered writes.
// Returns false (no error) on a version conflict so the caller can retry.
func (s *Store) commit(uid string, t *ledgerTx) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(uid)
	for path, version := range t.reads {
		if u.versions[path] != version {
			return false, nil
		}
	}

	now := s.now()
	for _, op := range t.ops {
		switch op.kind {
		case opPutEntry:
			u.entries[op.entry.ID] = op.entry
			u.versions[entryPath(op.entry.ID)]++
		case opDeleteEntry:
			delete(u.entries, op.id)
			u.versions[entryPath(op.id)]++
		case opMergeAggregate:
			existing, ok := u.monthly[op.key.String()]
			if !ok {
				u.monthly[op.key.String()] = op.agg
			} else {
				existing.Month = op.agg.Month
				existing.TotalExpense = op.agg.TotalExpense
				existing.TotalIncome = op.agg.TotalIncome
				existing.UpdatedAt = op.agg.UpdatedAt
				for k, v := range op.agg.ByCategory {
					if existing.ByCategory == nil {
						existing.ByCategory = make(map[string]int64)
					}
					existing.ByCategory[k] = v
				}
			}
			u.versions[monthPath(op.key)]++
		case opIncrementAggregate:
			agg, ok := u.monthly[op.key.String()]
			if !ok {
				return false, fmt.Errorf("memstore: increment on missing aggregate %s", op.key)
			}
			agg.TotalExpense += op.delta.TotalExpense
			agg.TotalIncome += op.delta.TotalIncome
			if agg.ByCategory == nil {
				agg.ByCategory = make(map[string]int64)
			}
			for k, v := range op.delta.ByCategory {
				agg.ByCategory[k] += v
			}
			agg.UpdatedAt = now
			u.versions[monthPath(op.key)]++
		}
	}
	return true, nil
}

func (s *Store) GetEntry(_ context.Context, uid, id string) (*domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.user(uid).entries[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "expense", ID: id}
	}
	return copyEntry(e), nil
}

func (s *Store) ListEntriesForMonth(_ context.Context, uid string, key domain.MonthKey, limit int, startAfter string) ([]domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []domain.Entry
	for _, e := range s.user(uid).entries {
		if e.Year == key.Year && e.Month == key.Month {
			items = append(items, *copyEntry(e))
		}
	}
	sortByDateDesc(items)

	if startAfter != "" {
		from := 0
		for i, e := range items {
			if e.ID == startAfter {
				from = i + 1
				break
			}
		}
		items = items[from:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListEntries(_ context.Context, uid string) ([]domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []domain.Entry
	for _, e := range s.user(uid).entries {
		items = append(items, *copyEntry(e))
	}
	sortByDateDesc(items)
	return items, nil
}

func (s *Store) ListExpensesInRange(_ context.Context, uid string, start, end time.Time) ([]domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []domain.Entry
	for _, e := range s.user(uid).entries {
		if e.Kind != domain.KindExpense {
			continue
		}
		if e.Date.Before(start) || e.Date.After(end) {
			continue
		}
		items = append(items, *copyEntry(e))
	}
	sortByDateDesc(items)
	return items, nil
}

func (s *Store) GetAggregate(_ context.Context, uid string, key domain.MonthKey) (*domain.MonthlyAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, ok := s.user(uid).monthly[key.String()]
	if !ok {
		return nil, nil
	}
	return copyAggregate(agg), nil
}

// ============================================================
// port.CardsStore
// ============================================================

func (s *Store) ListCards(_ context.Context, uid string) ([]domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []domain.Card
	for _, c := range s.user(uid).cards {
		items = append(items, *c)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) CreateCard(_ context.Context, uid string, c *domain.Card) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *c
	stored.ID = uuid.NewString()
	stored.CreatedAt = s.now()
	stored.UpdatedAt = stored.CreatedAt
	s.user(uid).cards[stored.ID] = &stored
	return stored.ID, nil
}

func (s *Store) GetCard(_ context.Context, uid, id string) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.user(uid).cards[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "card", ID: id}
	}
	copied := *c
	return &copied, nil
}

func (s *Store) UpdateCard(_ context.Context, uid string, c *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.user(uid).cards[c.ID]
	if !ok {
		return &domain.ErrNotFound{Resource: "card", ID: c.ID}
	}
	updated := *c
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()
	s.user(uid).cards[c.ID] = &updated
	return nil
}

func (s *Store) DeleteCard(_ context.Context, uid, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(uid)
	if _, ok := u.cards[id]; !ok {
		return &domain.ErrNotFound{Resource: "card", ID: id}
	}
	delete(u.cards, id)
	return nil
}

// ============================================================
// port.SavingsStore
// ============================================================

func (s *Store) CreateSaving(_ context.Context, uid string, sv *domain.Saving) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *sv
	stored.ID = uuid.NewString()
	stored.CreatedAt = s.now()
	stored.UpdatedAt = stored.CreatedAt
	s.user(uid).savings[stored.ID] = &stored
	return stored.ID, nil
}

func (s *Store) ListSavings(_ context.Context, uid string) ([]domain.Saving, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []domain.Saving
	for _, sv := range s.user(uid).savings {
		items = append(items, *sv)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
	return items, nil
}

// ============================================================
// port.ProfileStore
// ============================================================

func (s *Store) GetProfile(_ context.Context, uid string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.user(uid).profile
	if p == nil {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (s *Store) MergeProfile(_ context.Context, uid string, update domain.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(uid)
	now := s.now()
	if u.profile == nil {
		u.profile = &domain.Profile{CreatedAt: now}
	}
	p := u.profile
	if update.FirstName != nil {
		p.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		p.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Phone != nil {
		p.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.Email != nil {
		p.Email = strings.ToLower(strings.TrimSpace(*update.Email))
	}
	if update.IncomeAmount != nil {
		p.IncomeAmount = *update.IncomeAmount
	}
	p.UpdatedAt = now
	return nil
}

// ============================================================
// helpers
// ============================================================

func sortByDateDesc(items []domain.Entry) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date.Equal(items[j].Date) {
			return items[i].ID < items[j].ID
		}
		return items[i].Date.After(items[j].Date)
	})
}

func copyEntry(e *domain.Entry) *domain.Entry {
	copied := *e
	return &copied
}

func copyAggregate(a *domain.MonthlyAggregate) *domain.MonthlyAggregate {
	copied := *a
	copied.ByCategory = make(map[string]int64, len(a.ByCategory))
	for k, v := range a.ByCategory {
		copied.ByCategory[k] = v
	}
	return &copied
}

func copyDelta(d domain.AggregateDelta) domain.AggregateDelta {
	copied := d
	copied.ByCategory = make(map[string]int64, len(d.ByCategory))
	for k, v := range d.ByCategory {
		copied.ByCategory[k] = v
	}
	return copied
}
