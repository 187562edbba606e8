// Command ledger runs the expenses ledger HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/config"
	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/handler"
	"github.com/minhnd/expenses-ledger-go/internal/infra/cache"
	"github.com/minhnd/expenses-ledger-go/internal/infra/firestore"
	"github.com/minhnd/expenses-ledger-go/internal/infra/memstore"
	"github.com/minhnd/expenses-ledger-go/internal/infra/observability"
	"github.com/minhnd/expenses-ledger-go/internal/infra/resilience"
	"github.com/minhnd/expenses-ledger-go/internal/port"
	"github.com/minhnd/expenses-ledger-go/internal/service"
)

func main() {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		logger.Warn("unknown time zone, falling back to UTC", zap.String("tz", cfg.TimeZone))
		loc = time.UTC
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var shutdownTracer func(context.Context) error
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err = observability.InitTracer(ctx, cfg.OTLPEndpoint, "expenses-ledger")
		if err != nil {
			logger.Fatal("init tracer", zap.Error(err))
		}
	}

	metrics := observability.NewMetrics()

	resCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	var (
		ledgerStore  port.LedgerStore
		cardsStore   port.CardsStore
		savingsStore port.SavingsStore
		profileStore port.ProfileStore
		closeStore   func() error
	)
	if cfg.UseFirestore {
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID, resCfg, logger)
		if err != nil {
			logger.Fatal("connect firestore", zap.Error(err))
		}
		ledgerStore = firestore.NewLedgerStore(client)
		cardsStore = firestore.NewCardsStore(client)
		savingsStore = firestore.NewSavingsStore(client)
		profileStore = firestore.NewProfileStore(client)
		closeStore = client.Close
		logger.Info("using firestore store", zap.String("project", cfg.FirestoreProjectID))
	} else {
		mem := memstore.New()
		ledgerStore = mem
		cardsStore = mem
		savingsStore = mem
		profileStore = mem
		closeStore = func() error { return nil }
		logger.Info("using in-memory store")
	}

	summaryCache := cache.New[domain.MonthlySummary](cfg.CacheTTL)
	breakdownCache := cache.New[domain.MonthlyBreakdown](cfg.CacheTTL)

	ledgerSvc := service.NewLedgerService(ledgerStore, summaryCache, breakdownCache, loc, metrics, logger)
	reportsSvc := service.NewReportsService(ledgerStore, summaryCache, breakdownCache, loc, metrics, logger)
	cardsSvc := service.NewCardsService(cardsStore, logger)
	savingsSvc := service.NewSavingsService(savingsStore, loc, logger)
	usersSvc := service.NewUsersService(profileStore, logger)

	deps := handler.Deps{
		Ledger:    ledgerSvc,
		Reports:   reportsSvc,
		Cards:     cardsSvc,
		Savings:   savingsSvc,
		Users:     usersSvc,
		Metrics:   metrics,
		Logger:    logger,
		Loc:       loc,
		JWTSecret: cfg.JWTSecret,
		DevMode:   cfg.DevMode,
	}
	if cfg.DevMode {
		deps.Dev = service.NewDevService(ledgerSvc, logger)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(deps),
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  2 * cfg.HTTPTimeout,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("tz", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := closeStore(); err != nil {
		logger.Error("closing store failed", zap.Error(err))
	}
	if shutdownTracer != nil {
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("tracer shutdown failed", zap.Error(err))
		}
	}
}
