package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/service"
)

func seedHandler(svc *service.DevService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.SeedRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, logger, err)
			return
		}

		result, err := svc.SeedEntries(r.Context(), UIDFromContext(r.Context()), req.Count)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}
