package firestore

import (
	"context"

	fs "cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/minhnd/expenses-ledger-go/internal/domain"
)

// CardsStore implements port.CardsStore on the cards subcollection.
type CardsStore struct {
	c *Client
}

// NewCardsStore creates the cards store on a shared client.
func NewCardsStore(c *Client) *CardsStore {
	return &CardsStore{c: c}
}

func (s *CardsStore) ListCards(ctx context.Context, uid string) ([]domain.Card, error) {
	ctx, span := tracer.Start(ctx, "CardsStore.ListCards")
	defer span.End()

	var cards []domain.Card
	err := s.c.execute(ctx, "list cards", func() error {
		cards = cards[:0]
		iter := s.c.cardsCol(uid).OrderBy("createdAt", fs.Desc).Documents(ctx)
		defer iter.Stop()
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			cards = append(cards, cardFromDoc(doc))
		}
	})
	if err != nil {
		return nil, err
	}
	return cards, nil
}

func (s *CardsStore) CreateCard(ctx context.Context, uid string, card *domain.Card) (string, error) {
	ctx, span := tracer.Start(ctx, "CardsStore.CreateCard")
	defer span.End()

	ref := s.c.cardsCol(uid).NewDoc()
	doc := cardDoc(card)
	doc["createdAt"] = fs.ServerTimestamp
	err := s.c.execute(ctx, "create card", func() error {
		_, err := ref.Set(ctx, doc)
		return err
	})
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *CardsStore) GetCard(ctx context.Context, uid, id string) (*domain.Card, error) {
	ctx, span := tracer.Start(ctx, "CardsStore.GetCard")
	defer span.End()

	var snap *fs.DocumentSnapshot
	err := s.c.execute(ctx, "get card", func() error {
		got, err := s.c.cardsCol(uid).Doc(id).Get(ctx)
		if status.Code(err) == codes.NotFound {
			snap = nil
			return nil
		}
		if err != nil {
			return err
		}
		snap = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, &domain.ErrNotFound{Resource: "card", ID: id}
	}
	card := cardFromDoc(snap)
	return &card, nil
}

func (s *CardsStore) UpdateCard(ctx context.Context, uid string, card *domain.Card) error {
	ctx, span := tracer.Start(ctx, "CardsStore.UpdateCard")
	defer span.End()
	span.SetAttributes(attribute.String("card.id", card.ID))

	// Existence check first so a replace of an unknown id is a 404, not an
	// implicit create.
	if _, err := s.GetCard(ctx, uid, card.ID); err != nil {
		return err
	}
	return s.c.execute(ctx, "update card", func() error {
		_, err := s.c.cardsCol(uid).Doc(card.ID).Set(ctx, cardDoc(card), fs.MergeAll)
		return err
	})
}

func (s *CardsStore) DeleteCard(ctx context.Context, uid, id string) error {
	ctx, span := tracer.Start(ctx, "CardsStore.DeleteCard")
	defer span.End()

	if _, err := s.GetCard(ctx, uid, id); err != nil {
		return err
	}
	return s.c.execute(ctx, "delete card", func() error {
		_, err := s.c.cardsCol(uid).Doc(id).Delete(ctx)
		return err
	})
}

func cardDoc(card *domain.Card) map[string]any {
	return map[string]any{
		"name":       card.Name,
		"cardNumber": card.CardNumber,
		"bank":       card.Bank,
		"cardType":   card.CardType,
		"expiry":     card.Expiry,
		"cvv":        card.CVV,
		"last4":      card.Last4,
		"updatedAt":  fs.ServerTimestamp,
	}
}

func cardFromDoc(snap *fs.DocumentSnapshot) domain.Card {
	data := snap.Data()
	return domain.Card{
		ID:         snap.Ref.ID,
		Name:       asString(data["name"]),
		CardNumber: asString(data["cardNumber"]),
		Bank:       asString(data["bank"]),
		CardType:   asString(data["cardType"]),
		Expiry:     asString(data["expiry"]),
		CVV:        asString(data["cvv"]),
		Last4:      asString(data["last4"]),
		CreatedAt:  asTime(data["createdAt"]),
		UpdatedAt:  asTime(data["updatedAt"]),
	}
}

// SavingsStore implements port.SavingsStore on the savings subcollection.
type SavingsStore struct {
	c *Client
}

// NewSavingsStore creates the savings store on a shared client.
func NewSavingsStore(c *Client) *SavingsStore {
	return &SavingsStore{c: c}
}

func (s *SavingsStore) CreateSaving(ctx context.Context, uid string, saving *domain.Saving) (string, error) {
	ctx, span := tracer.Start(ctx, "SavingsStore.CreateSaving")
	defer span.End()

	ref := s.c.savingsCol(uid).NewDoc()
	doc := map[string]any{
		"amount":    saving.Amount,
		"date":      saving.Date,
		"year":      saving.Year,
		"month":     saving.Month,
		"day":       saving.Day,
		"createdAt": fs.ServerTimestamp,
		"updatedAt": fs.ServerTimestamp,
	}
	if saving.Description != "" {
		doc["description"] = saving.Description
	}
	err := s.c.execute(ctx, "create saving", func() error {
		_, err := ref.Set(ctx, doc)
		return err
	})
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *SavingsStore) ListSavings(ctx context.Context, uid string) ([]domain.Saving, error) {
	ctx, span := tracer.Start(ctx, "SavingsStore.ListSavings")
	defer span.End()

	var savings []domain.Saving
	err := s.c.execute(ctx, "list savings", func() error {
		savings = savings[:0]
		iter := s.c.savingsCol(uid).OrderBy("date", fs.Desc).Documents(ctx)
		defer iter.Stop()
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			data := doc.Data()
			savings = append(savings, domain.Saving{
				ID:          doc.Ref.ID,
				Amount:      asInt64(data["amount"]),
				Description: asString(data["description"]),
				Date:        asTime(data["date"]),
				Year:        int(asInt64(data["year"])),
				Month:       int(asInt64(data["month"])),
				Day:         int(asInt64(data["day"])),
				CreatedAt:   asTime(data["createdAt"]),
				UpdatedAt:   asTime(data["updatedAt"]),
			})
		}
	})
	if err != nil {
		return nil, err
	}
	return savings, nil
}

// ProfileStore implements port.ProfileStore on the user document.
type ProfileStore struct {
	c *Client
}

// NewProfileStore creates the profile store on a shared client.
func NewProfileStore(c *Client) *ProfileStore {
	return &ProfileStore{c: c}
}

func (s *ProfileStore) GetProfile(ctx context.Context, uid string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "ProfileStore.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	var snap *fs.DocumentSnapshot
	err := s.c.execute(ctx, "get profile", func() error {
		got, err := s.c.userDoc(uid).Get(ctx)
		if status.Code(err) == codes.NotFound {
			snap = nil
			return nil
		}
		if err != nil {
			return err
		}
		snap = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}
	data := snap.Data()
	return &domain.Profile{
		FirstName:    asString(data["firstName"]),
		LastName:     asString(data["lastName"]),
		Phone:        asString(data["phone"]),
		Email:        asString(data["email"]),
		IncomeAmount: asInt64(data["incomeAmount"]),
		CreatedAt:    asTime(data["createdAt"]),
		UpdatedAt:    asTime(data["updatedAt"]),
	}, nil
}

func (s *ProfileStore) MergeProfile(ctx context.Context, uid string, update domain.ProfileUpdate) error {
	ctx, span := tracer.Start(ctx, "ProfileStore.MergeProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", uid))

	doc := map[string]any{"updatedAt": fs.ServerTimestamp}
	if update.FirstName != nil {
		doc["firstName"] = *update.FirstName
	}
	if update.LastName != nil {
		doc["lastName"] = *update.LastName
	}
	if update.Phone != nil {
		doc["phone"] = *update.Phone
	}
	if update.Email != nil {
		doc["email"] = *update.Email
	}
	if update.IncomeAmount != nil {
		doc["incomeAmount"] = *update.IncomeAmount
	}
	return s.c.execute(ctx, "merge profile", func() error {
		_, err := s.c.userDoc(uid).Set(ctx, doc, fs.MergeAll)
		return err
	})
}
