package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/infra/observability"
	"github.com/minhnd/expenses-ledger-go/internal/service"
)

func listMonthHandler(svc *service.ReportsService, loc *time.Location, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := monthParam(r, loc)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		limit, err := limitParam(r)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}

		list, err := svc.ListMonth(r.Context(), UIDFromContext(r.Context()), key, limit, r.URL.Query().Get("startAfter"))
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func listAllHandler(svc *service.ReportsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListAll(r.Context(), UIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func monthlySummaryHandler(svc *service.ReportsService, loc *time.Location, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := monthParam(r, loc)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}

		summary, err := svc.MonthlySummary(r.Context(), UIDFromContext(r.Context()), key)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func weeklySummaryHandler(svc *service.ReportsService, loc *time.Location, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := time.Now()
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid request", "date must be YYYY-MM-DD")
				return
			}
			ref = parsed
		}

		week, err := svc.WeeklySummary(r.Context(), UIDFromContext(r.Context()), ref)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, week)
	}
}

func monthlyBreakdownHandler(svc *service.ReportsService, loc *time.Location, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := monthParam(r, loc)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}

		breakdown, err := svc.MonthlyBreakdown(r.Context(), UIDFromContext(r.Context()), key)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, breakdown)
	}
}

func yearlyTotalsHandler(svc *service.ReportsService, loc *time.Location, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, err := yearParam(r, loc)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}

		totals, err := svc.YearlyTotals(r.Context(), UIDFromContext(r.Context()), year)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, totals)
	}
}

func ledgerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.LedgerSnapshot())
	}
}
