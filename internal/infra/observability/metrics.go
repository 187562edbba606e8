package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the ledger backend.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	mutationsTotal  *prometheus.CounterVec
	driftTotal      *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		mutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_mutations_total",
				Help: "Total committed ledger mutations by operation.",
			},
			[]string{"op"},
		),
		driftTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_aggregate_drift_total",
				Help: "Mutations that skipped a missing monthly aggregate.",
			},
			[]string{"op"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_store_errors_total",
				Help: "Total errors from the backing document store.",
			},
			[]string{"backend"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrMutation counts a committed create/update/delete.
func (m *Metrics) IncrMutation(op string) {
	m.mutationsTotal.WithLabelValues(op).Inc()
}

// IncrAggregateDrift counts a skipped increment against a missing aggregate.
func (m *Metrics) IncrAggregateDrift(op string) {
	m.driftTotal.WithLabelValues(op).Inc()
}

// IncrStoreError increments the store error counter.
func (m *Metrics) IncrStoreError(backend string) {
	m.storeErrors.WithLabelValues(backend).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// LedgerSnapshot returns the counter values served by GET /v1/metrics/ledger.
// Prometheus counters are cumulative, so this is an all-time view.
func (m *Metrics) LedgerSnapshot() *domain.LedgerMetrics {
	creates := getCounterValue(m.mutationsTotal, "create")
	updates := getCounterValue(m.mutationsTotal, "update")
	deletes := getCounterValue(m.mutationsTotal, "delete")
	drift := getCounterValue(m.driftTotal, "create") +
		getCounterValue(m.driftTotal, "update") +
		getCounterValue(m.driftTotal, "delete")

	hits := getCounterValue(m.cacheHits, "summary") + getCounterValue(m.cacheHits, "breakdown")
	misses := getCounterValue(m.cacheMisses, "summary") + getCounterValue(m.cacheMisses, "breakdown")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.LedgerMetrics{
		Creates:      int64(creates),
		Updates:      int64(updates),
		Deletes:      int64(deletes),
		DriftEvents:  int64(drift),
		CacheHitRate: hitRate,
		Period:       "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
