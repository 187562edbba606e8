package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/port"
)

// CardsService manages a user's stored payment cards. Plain CRUD, no
// cross-record consistency concerns.
type CardsService struct {
	store  port.CardsStore
	logger *zap.Logger
}

// NewCardsService creates the cards service.
func NewCardsService(store port.CardsStore, logger *zap.Logger) *CardsService {
	return &CardsService{store: store, logger: logger}
}

// ListCards returns the user's cards, newest first.
func (s *CardsService) ListCards(ctx context.Context, uid string) (*domain.CardList, error) {
	ctx, span := tracer.Start(ctx, "CardsService.ListCards")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	if uid == "" {
		return nil, &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}

	items, err := s.store.ListCards(ctx, uid)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Card{}
	}
	return &domain.CardList{Items: items, Count: len(items)}, nil
}

// CreateCard stores a new card, deriving last4 from the card number.
func (s *CardsService) CreateCard(ctx context.Context, uid string, req domain.CardRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "CardsService.CreateCard")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	card, err := cardFromRequest(uid, req)
	if err != nil {
		return "", err
	}

	id, err := s.store.CreateCard(ctx, uid, card)
	if err != nil {
		s.logger.Error("create card failed", zap.String("uid", uid), zap.Error(err))
		return "", err
	}
	s.logger.Info("card created", zap.String("uid", uid), zap.String("card_id", id))
	return id, nil
}

// UpdateCard replaces a card's fields, keeping its identity.
func (s *CardsService) UpdateCard(ctx context.Context, uid, id string, req domain.CardRequest) error {
	ctx, span := tracer.Start(ctx, "CardsService.UpdateCard")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid), attribute.String("card.id", id))

	if id == "" {
		return &domain.ErrValidation{Field: "id", Message: "missing card id"}
	}
	card, err := cardFromRequest(uid, req)
	if err != nil {
		return err
	}
	card.ID = id

	if err := s.store.UpdateCard(ctx, uid, card); err != nil {
		return err
	}
	s.logger.Info("card updated", zap.String("uid", uid), zap.String("card_id", id))
	return nil
}

// DeleteCard removes a card.
func (s *CardsService) DeleteCard(ctx context.Context, uid, id string) error {
	ctx, span := tracer.Start(ctx, "CardsService.DeleteCard")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid), attribute.String("card.id", id))

	if uid == "" {
		return &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}
	if id == "" {
		return &domain.ErrValidation{Field: "id", Message: "missing card id"}
	}

	if err := s.store.DeleteCard(ctx, uid, id); err != nil {
		return err
	}
	s.logger.Info("card deleted", zap.String("uid", uid), zap.String("card_id", id))
	return nil
}

func cardFromRequest(uid string, req domain.CardRequest) (*domain.Card, error) {
	if uid == "" {
		return nil, &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	number := strings.TrimSpace(req.CardNumber)
	if number == "" {
		return nil, &domain.ErrValidation{Field: "cardNumber", Message: "card number is required"}
	}

	last4 := number
	if len(number) > 4 {
		last4 = number[len(number)-4:]
	}
	return &domain.Card{
		Name:       req.Name,
		CardNumber: number,
		Bank:       req.Bank,
		CardType:   req.CardType,
		Expiry:     req.Expiry,
		CVV:        req.CVV,
		Last4:      last4,
	}, nil
}
