package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/port"
)

// SavingsService records deposits into the user's savings log.
type SavingsService struct {
	store  port.SavingsStore
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewSavingsService creates the savings service.
func NewSavingsService(store port.SavingsStore, loc *time.Location, logger *zap.Logger) *SavingsService {
	return &SavingsService{store: store, loc: loc, now: time.Now, logger: logger}
}

// CreateSaving stores one deposit, defaulting the date to now.
func (s *SavingsService) CreateSaving(ctx context.Context, uid string, req domain.SavingRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "SavingsService.CreateSaving")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	if uid == "" {
		return "", &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}
	if req.Amount <= 0 {
		return "", &domain.ErrValidation{Field: "amount", Message: "amount must be positive"}
	}

	date := s.now()
	if req.Date != "" {
		parsed, err := domain.ParseDate(req.Date, s.loc)
		if err != nil {
			return "", err
		}
		date = parsed
	}

	year, month, day := domain.CalendarParts(date, s.loc)
	saving := &domain.Saving{
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		Date:        date,
		Year:        year,
		Month:       month,
		Day:         day,
	}

	id, err := s.store.CreateSaving(ctx, uid, saving)
	if err != nil {
		s.logger.Error("create saving failed", zap.String("uid", uid), zap.Error(err))
		return "", err
	}
	s.logger.Info("saving recorded", zap.String("uid", uid), zap.String("saving_id", id), zap.Int64("amount", req.Amount))
	return id, nil
}

// ListSavings returns the user's deposits, newest first.
func (s *SavingsService) ListSavings(ctx context.Context, uid string) (*domain.SavingList, error) {
	ctx, span := tracer.Start(ctx, "SavingsService.ListSavings")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	if uid == "" {
		return nil, &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}

	items, err := s.store.ListSavings(ctx, uid)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Saving{}
	}
	return &domain.SavingList{Items: items, Count: len(items)}, nil
}
