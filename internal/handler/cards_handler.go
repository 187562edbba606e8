package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/service"
)

func listCardsHandler(svc *service.CardsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListCards(r.Context(), UIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createCardHandler(svc *service.CardsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.CardRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, logger, err)
			return
		}

		id, err := svc.CreateCard(r.Context(), UIDFromContext(r.Context()), req)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func updateCardHandler(svc *service.CardsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.CardRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, logger, err)
			return
		}

		err := svc.UpdateCard(r.Context(), UIDFromContext(r.Context()), chi.URLParam(r, "id"), req)
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func deleteCardHandler(svc *service.CardsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.DeleteCard(r.Context(), UIDFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	}
}
