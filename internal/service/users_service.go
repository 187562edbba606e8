package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
	"github.com/minhnd/expenses-ledger-go/internal/port"
)

// UsersService maintains the user's profile document. All writes are merge
// writes, so registration and later partial updates compose.
type UsersService struct {
	store  port.ProfileStore
	logger *zap.Logger
}

// NewUsersService creates the users service.
func NewUsersService(store port.ProfileStore, logger *zap.Logger) *UsersService {
	return &UsersService{store: store, logger: logger}
}

// Register stores the profile fields for an authenticated identity. The
// email comes from the verified token, not the request body.
func (s *UsersService) Register(ctx context.Context, uid, email string, req domain.RegisterRequest) error {
	ctx, span := tracer.Start(ctx, "UsersService.Register")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	if uid == "" {
		return &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}
	if email == "" {
		return &domain.ErrValidation{Field: "email", Message: "token carries no email"}
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" || strings.TrimSpace(req.Phone) == "" {
		return &domain.ErrValidation{Field: "profile", Message: "firstName, lastName and phone are required"}
	}

	err := s.store.MergeProfile(ctx, uid, domain.ProfileUpdate{
		FirstName: &req.FirstName,
		LastName:  &req.LastName,
		Phone:     &req.Phone,
		Email:     &email,
	})
	if err != nil {
		s.logger.Error("register failed", zap.String("uid", uid), zap.Error(err))
		return err
	}
	s.logger.Info("user registered", zap.String("uid", uid))
	return nil
}

// GetProfile returns the profile document, or nil when the user never
// registered.
func (s *UsersService) GetProfile(ctx context.Context, uid string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "UsersService.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	if uid == "" {
		return nil, &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}
	return s.store.GetProfile(ctx, uid)
}

// UpdateIncome merge-writes the declared monthly income.
func (s *UsersService) UpdateIncome(ctx context.Context, uid string, req domain.UpdateIncomeRequest) error {
	ctx, span := tracer.Start(ctx, "UsersService.UpdateIncome")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	if uid == "" {
		return &domain.ErrValidation{Field: "uid", Message: "missing user id"}
	}
	if req.IncomeAmount == nil {
		return &domain.ErrValidation{Field: "incomeAmount", Message: "income amount is required"}
	}

	if err := s.store.MergeProfile(ctx, uid, domain.ProfileUpdate{IncomeAmount: req.IncomeAmount}); err != nil {
		s.logger.Error("update income failed", zap.String("uid", uid), zap.Error(err))
		return err
	}
	s.logger.Info("income updated", zap.String("uid", uid), zap.Int64("income", *req.IncomeAmount))
	return nil
}
