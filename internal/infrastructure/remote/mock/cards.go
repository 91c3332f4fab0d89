package mock

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
)

func (b *Backend) cardIndexLocked(userID, id string) int {
	for i := range b.cards {
		if b.cards[i].ID == id && b.cards[i].UserID == userID {
			return i
		}
	}
	return -1
}

func (b *Backend) ListCards(ctx context.Context) ([]domain.Card, error) {
	acc, err := b.protected(ctx, "cards.list")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	out := make([]domain.Card, 0)
	for _, c := range b.cards {
		if c.UserID == acc.profile.ID {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (b *Backend) CreateCard(ctx context.Context, in ports.CreateCardInput) (*domain.Card, error) {
	acc, err := b.protected(ctx, "cards.create")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	card := b.newCardLocked(acc.profile.ID, in)
	b.cards = append(b.cards, card)
	out := card.Clone()
	return &out, nil
}

func (b *Backend) newCardLocked(userID string, in ports.CreateCardInput) domain.Card {
	now := b.now().UTC()
	category := in.Category
	if category == "" {
		category = domain.CategoryOther
	}
	card := domain.Card{
		ID:         uuid.NewString(),
		UserID:     userID,
		Type:       in.Type,
		Category:   category,
		IsPrime:    in.IsPrime,
		IsMainCard: in.IsMainCard,
		IsInWallet: in.IsInWallet,
		Name:       in.Name,
		Nickname:   in.Nickname,
		Phone:      in.Phone,
		Email:      in.Email,
		Bio:        in.Bio,
		Location:   in.Location,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if len(in.Social) > 0 {
		card.Social = make(map[string]string, len(in.Social))
		for k, v := range in.Social {
			card.Social[k] = v
		}
	}
	return card
}

func (b *Backend) UpdateCard(ctx context.Context, id string, patch ports.CardPatch) (*domain.Card, error) {
	acc, err := b.protected(ctx, "cards.update")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	i := b.cardIndexLocked(acc.profile.ID, id)
	if i < 0 {
		return nil, domain.NewRemoteError("cards.update", http.StatusNotFound, "Card not found")
	}
	patch.Apply(&b.cards[i])
	b.cards[i].UpdatedAt = b.now().UTC()
	out := b.cards[i].Clone()
	return &out, nil
}

func (b *Backend) DeleteCard(ctx context.Context, id string) error {
	acc, err := b.protected(ctx, "cards.delete")
	if err != nil {
		return err
	}
	defer b.mu.Unlock()

	i := b.cardIndexLocked(acc.profile.ID, id)
	if i < 0 {
		return domain.NewRemoteError("cards.delete", http.StatusNotFound, "Card not found")
	}
	b.cards = append(b.cards[:i], b.cards[i+1:]...)
	if acc.profile.MainCardID == id {
		acc.profile.MainCardID = ""
	}
	return nil
}

// ToggleMainCard flags the target card only; previous main cards keep their flag.
func (b *Backend) ToggleMainCard(ctx context.Context, id string) (*domain.Card, error) {
	acc, err := b.protected(ctx, "cards.toggle_main")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	i := b.cardIndexLocked(acc.profile.ID, id)
	if i < 0 {
		return nil, domain.NewRemoteError("cards.toggle_main", http.StatusNotFound, "Card not found")
	}
	b.cards[i].IsMainCard = true
	b.cards[i].UpdatedAt = b.now().UTC()
	acc.profile.MainCardID = id
	out := b.cards[i].Clone()
	return &out, nil
}
