package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/service"
)

func createEntryHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.CreateEntryRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, logger, err)
			return
		}

		entry, err := svc.CreateEntry(r.Context(), UIDFromContext(r.Context()), req)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}

func updateEntryHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.UpdateEntryRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, logger, err)
			return
		}

		entry, err := svc.UpdateEntry(r.Context(), UIDFromContext(r.Context()), chi.URLParam(r, "id"), req)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func deleteEntryHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.DeleteEntry(r.Context(), UIDFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	}
}
