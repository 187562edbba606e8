package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/infra/observability"
	"github.com/minhnd/expenses-ledger-go/internal/service"
)

// Deps carries everything the router needs. Dev is optional; the seed route
// is only mounted when DevMode is set.
type Deps struct {
	Ledger  *service.LedgerService
	Reports *service.ReportsService
	Cards   *service.CardsService
	Savings *service.SavingsService
	Users   *service.UsersService
	Dev     *service.DevService

	Metrics   *observability.Metrics
	Logger    *zap.Logger
	Loc       *time.Location
	JWTSecret string
	DevMode   bool
}

// NewRouter builds the chi router with the full middleware stack and the /v1
// API surface.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(deps.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(jwtAuthMiddleware(deps.JWTSecret, deps.Logger))

		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", createEntryHandler(deps.Ledger, deps.Logger))
			r.Get("/", listMonthHandler(deps.Reports, deps.Loc, deps.Logger))
			r.Get("/all", listAllHandler(deps.Reports, deps.Logger))
			r.Get("/summary", monthlySummaryHandler(deps.Reports, deps.Loc, deps.Logger))
			r.Get("/summary-week", weeklySummaryHandler(deps.Reports, deps.Loc, deps.Logger))
			r.Get("/breakdown", monthlyBreakdownHandler(deps.Reports, deps.Loc, deps.Logger))
			r.Get("/monthly", yearlyTotalsHandler(deps.Reports, deps.Loc, deps.Logger))
			r.Patch("/{id}", updateEntryHandler(deps.Ledger, deps.Logger))
			r.Delete("/{id}", deleteEntryHandler(deps.Ledger, deps.Logger))
		})

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", listCardsHandler(deps.Cards, deps.Logger))
			r.Post("/", createCardHandler(deps.Cards, deps.Logger))
			r.Patch("/{id}", updateCardHandler(deps.Cards, deps.Logger))
			r.Delete("/{id}", deleteCardHandler(deps.Cards, deps.Logger))
		})

		r.Route("/savings", func(r chi.Router) {
			r.Post("/", createSavingHandler(deps.Savings, deps.Logger))
			r.Get("/", listSavingsHandler(deps.Savings, deps.Logger))
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", registerHandler(deps.Users, deps.Logger))
			r.Get("/profile", getProfileHandler(deps.Users, deps.Logger))
			r.Patch("/income", updateIncomeHandler(deps.Users, deps.Logger))
		})

		r.Get("/metrics/ledger", ledgerMetricsHandler(deps.Metrics))

		if deps.DevMode && deps.Dev != nil {
			r.Post("/dev/seed", seedHandler(deps.Dev, deps.Logger))
		}
	})

	return r
}
