// Package port defines the interfaces the services depend on.
// Infra adapters (Firestore, in-memory) implement them.
package port

import (
	"context"
	"time"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
)

// LedgerTx is the view of the document store inside one atomic transaction.
// The store guarantees all-reads-before-any-write semantics: once a write is
// staged, further reads fail. Conflicting transactions are retried by the
// store, so the function passed to RunEntryTransaction must be idempotent.
type LedgerTx interface {
	// GetEntry returns the entry or *domain.ErrNotFound.
	GetEntry(id string) (*domain.Entry, error)

	// GetAggregate returns the monthly aggregate, or nil when the bucket has
	// never been written.
	GetAggregate(key domain.MonthKey) (*domain.MonthlyAggregate, error)

	// PutEntry creates or overwrites the entry document.
	PutEntry(e *domain.Entry) error

	// DeleteEntry removes the entry document.
	DeleteEntry(id string) error

	// MergeAggregate merge-creates the aggregate document. Only valid as the
	// first write to a bucket.
	MergeAggregate(key domain.MonthKey, agg *domain.MonthlyAggregate) error

	// IncrementAggregate applies signed deltas atomically. The target
	// document must exist; callers check with GetAggregate first.
	IncrementAggregate(key domain.MonthKey, delta domain.AggregateDelta) error
}

// LedgerStore is the transactional document store holding entries and
// monthly aggregates, scoped per user.
type LedgerStore interface {
	// NewEntryID allocates a document id without touching the store.
	NewEntryID(uid string) string

	// RunEntryTransaction executes fn atomically. Reads see a consistent
	// snapshot; writes commit together or not at all.
	RunEntryTransaction(ctx context.Context, uid string, fn func(tx LedgerTx) error) error

	GetEntry(ctx context.Context, uid, id string) (*domain.Entry, error)

	// ListEntriesForMonth returns a bucket's entries, newest first, at most
	// limit items, starting after the entry with id startAfter when set.
	ListEntriesForMonth(ctx context.Context, uid string, key domain.MonthKey, limit int, startAfter string) ([]domain.Entry, error)

	// ListEntries returns every entry of the user, newest first.
	ListEntries(ctx context.Context, uid string) ([]domain.Entry, error)

	// ListExpensesInRange returns expense-kind entries whose occurrence falls
	// in [start, end], both inclusive.
	ListExpensesInRange(ctx context.Context, uid string, start, end time.Time) ([]domain.Entry, error)

	// GetAggregate returns the aggregate, or nil when absent.
	GetAggregate(ctx context.Context, uid string, key domain.MonthKey) (*domain.MonthlyAggregate, error)
}

// CardsStore persists a user's payment cards.
type CardsStore interface {
	ListCards(ctx context.Context, uid string) ([]domain.Card, error)
	CreateCard(ctx context.Context, uid string, c *domain.Card) (string, error)
	GetCard(ctx context.Context, uid, id string) (*domain.Card, error)
	UpdateCard(ctx context.Context, uid string, c *domain.Card) error
	DeleteCard(ctx context.Context, uid, id string) error
}

// SavingsStore persists a user's savings log.
type SavingsStore interface {
	CreateSaving(ctx context.Context, uid string, s *domain.Saving) (string, error)
	ListSavings(ctx context.Context, uid string) ([]domain.Saving, error)
}

// ProfileStore persists the user document.
type ProfileStore interface {
	// GetProfile returns nil when the user has no profile document yet.
	GetProfile(ctx context.Context, uid string) (*domain.Profile, error)

	// MergeProfile writes the non-nil fields, creating the document if needed.
	MergeProfile(ctx context.Context, uid string, update domain.ProfileUpdate) error
}
