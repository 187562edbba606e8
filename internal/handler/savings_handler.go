package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/service"
)

func createSavingHandler(svc *service.SavingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.SavingRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, logger, err)
			return
		}

		id, err := svc.CreateSaving(r.Context(), UIDFromContext(r.Context()), req)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func listSavingsHandler(svc *service.SavingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListSavings(r.Context(), UIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
