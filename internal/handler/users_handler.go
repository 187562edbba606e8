package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/service"
)

func registerHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.RegisterRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, logger, err)
			return
		}

		ctx := r.Context()
		if err := svc.Register(ctx, UIDFromContext(ctx), EmailFromContext(ctx), req); err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
	}
}

func getProfileHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := svc.GetProfile(r.Context(), UIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		if profile == nil {
			writeError(w, http.StatusNotFound, "not found", "user has no profile")
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func updateIncomeHandler(svc *service.UsersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.UpdateIncomeRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, logger, err)
			return
		}

		if err := svc.UpdateIncome(r.Context(), UIDFromContext(r.Context()), req); err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}
