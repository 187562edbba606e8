// Package handler exposes the HTTP surface: routing, auth middleware, and
// the translation between transport and service errors.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}

// handleServiceError maps domain errors onto HTTP status codes. Anything
// unrecognized is a 500 with a generic body; the real error goes to the log.
func handleServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		notFound     *domain.ErrNotFound
		validation   *domain.ErrValidation
		unauthorized *domain.ErrUnauthorized
		conflict     *domain.ErrConflict
		circuitOpen  *domain.ErrCircuitOpen
		timeout      *domain.ErrTimeout
	)

	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, "not found", notFound.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "invalid request", validation.Error())
	case errors.As(err, &unauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", unauthorized.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, "conflict", conflict.Error())
	case errors.As(err, &circuitOpen):
		writeError(w, http.StatusServiceUnavailable, "service unavailable", circuitOpen.Error())
	case errors.As(err, &timeout):
		writeError(w, http.StatusGatewayTimeout, "timeout", timeout.Error())
	default:
		logger.Error("unhandled service error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "malformed JSON"}
	}
	return nil
}

// monthParam reads ?month=YYYY-MM, defaulting to the current month in loc.
func monthParam(r *http.Request, loc *time.Location) (domain.MonthKey, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return domain.MonthKeyOf(time.Now(), loc), nil
	}
	return domain.ParseMonthKey(raw)
}

// limitParam reads ?limit=n, returning 0 (service default) when absent.
func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &domain.ErrValidation{Field: "limit", Message: "limit must be a non-negative integer"}
	}
	return n, nil
}

// yearParam reads ?year=YYYY, defaulting to the current year in loc.
func yearParam(r *http.Request, loc *time.Location) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return time.Now().In(loc).Year(), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &domain.ErrValidation{Field: "year", Message: "year must be a positive integer"}
	}
	return n, nil
}
