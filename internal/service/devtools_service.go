package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
)

const maxSeedCount = 500

var seedCategories = []struct {
	id   string
	name string
}{
	{"food", "Ăn uống"},
	{"transport", "Di chuyển"},
	{"rent", "Nhà cửa"},
	{"entertainment", "Giải trí"},
	{"", ""}, // uncategorized
}

// DevService generates demo data. Only wired when dev mode is enabled.
type DevService struct {
	ledger *LedgerService
	logger *zap.Logger
}

// NewDevService creates the dev tooling service.
func NewDevService(ledger *LedgerService, logger *zap.Logger) *DevService {
	return &DevService{ledger: ledger, logger: logger}
}

// SeedEntries creates count random entries over the past 90 days, going
// through the regular mutation path so aggregates stay consistent.
func (s *DevService) SeedEntries(ctx context.Context, uid string, count int) (*domain.SeedResult, error) {
	ctx, span := tracer.Start(ctx, "DevService.SeedEntries")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid), attribute.Int("count", count))

	if count <= 0 {
		count = 20
	}
	if count > maxSeedCount {
		count = maxSeedCount
	}

	result := &domain.SeedResult{IDs: make([]string, 0, count)}
	for i := 0; i < count; i++ {
		cat := seedCategories[rand.Intn(len(seedCategories))]
		kind := "expense"
		if rand.Intn(10) == 0 {
			kind = "income"
		}
		amount := int64(rand.Intn(500)+1) * 1000
		date := time.Now().AddDate(0, 0, -rand.Intn(90))

		entry, err := s.ledger.CreateEntry(ctx, uid, domain.CreateEntryRequest{
			Name:         fmt.Sprintf("seed-%d", i+1),
			Amount:       fmt.Sprintf("%d", amount),
			Type:         kind,
			CategoryID:   cat.id,
			CategoryName: cat.name,
			Date:         date.Format("2006-01-02"),
		})
		if err != nil {
			return nil, err
		}
		result.IDs = append(result.IDs, entry.ID)
		result.Created++
	}

	s.logger.Info("seeded entries", zap.String("uid", uid), zap.Int("count", result.Created))
	return result, nil
}
