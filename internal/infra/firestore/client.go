// Package firestore adapts the port interfaces to Google Cloud Firestore.
// All documents live under users/{uid}: entries and savings as
// subcollections, monthly aggregates keyed by "YYYY-MM", and the profile on
// the user document itself.
package firestore

import (
	"context"
	"errors"
	"fmt"

	fs "cloud.google.com/go/firestore"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/infra/resilience"
)

var tracer = otel.Tracer("firestore")

// Client wraps the Firestore SDK with a circuit breaker, retry policy, and a
// bulkhead bounding in-flight calls. One Client serves all stores.
type Client struct {
	db     *fs.Client
	cb     *gobreaker.CircuitBreaker
	bh     *resilience.Bulkhead
	cfg    resilience.Config
	logger *zap.Logger
}

// NewClient connects to the project's Firestore database.
func NewClient(ctx context.Context, projectID string, cfg resilience.Config, logger *zap.Logger) (*Client, error) {
	db, err := fs.NewClient(ctx, projectID)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "firestore", Err: err}
	}
	return &Client{
		db:     db,
		cb:     resilience.NewCircuitBreaker("firestore"),
		bh:     resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) userDoc(uid string) *fs.DocumentRef {
	return c.db.Collection("users").Doc(uid)
}

func (c *Client) entriesCol(uid string) *fs.CollectionRef {
	return c.userDoc(uid).Collection("expenses")
}

func (c *Client) monthlyDoc(uid string, key domain.MonthKey) *fs.DocumentRef {
	return c.userDoc(uid).Collection("monthly").Doc(key.String())
}

func (c *Client) cardsCol(uid string) *fs.CollectionRef {
	return c.userDoc(uid).Collection("cards")
}

func (c *Client) savingsCol(uid string) *fs.CollectionRef {
	return c.userDoc(uid).Collection("savings")
}

// execute runs fn behind the bulkhead and circuit breaker with retries,
// translating breaker state into a domain error.
func (c *Client) execute(ctx context.Context, op string, fn func() error) error {
	if err := c.bh.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: op}
	}
	defer c.bh.Release()

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, fn)
	})
	return c.mapBreakerErr(op, err)
}

// executeOnce is execute without the retry layer, for operations that manage
// their own retries (Firestore transactions already re-run on contention).
func (c *Client) executeOnce(ctx context.Context, op string, fn func() error) error {
	if err := c.bh.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: op}
	}
	defer c.bh.Release()

	_, err := c.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return c.mapBreakerErr(op, err)
}

func (c *Client) mapBreakerErr(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("circuit breaker rejected call", zap.String("op", op))
		return &domain.ErrCircuitOpen{Service: "firestore"}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
