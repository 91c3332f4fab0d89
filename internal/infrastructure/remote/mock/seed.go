package mock

import (
	"github.com/google/uuid"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
)

// Demo account credentials loaded by Options.Seed.
const (
	DemoEmail    = "demo@pich.app"
	DemoPassword = "password123"
)

var seedNamespace = uuid.MustParse("6f1c2a8e-2d7b-4f43-9a59-0c1e7d3b5a10")

// SeedID derives the stable id of a seeded record from its name.
func SeedID(name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(name)).String()
}

type seedPeer struct {
	email, first, last string
}

var seedPeers = []seedPeer{
	{"ana@pich.app", "Ana", "Torres"},
	{"leo@pich.app", "Leo", "Martin"},
	{"mia@pich.app", "Mia", "Chen"},
}

func (b *Backend) seed() error {
	hash, err := hashPassword(DemoPassword)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	demo := b.createAccountLocked(domain.UserProfile{
		ID:               SeedID(DemoEmail),
		Email:            DemoEmail,
		FirstName:        "Demo",
		LastName:         "User",
		Nickname:         "demo",
		SubscriptionPlan: domain.PlanPremium,
		TokenBalance:     120,
	}, hash)

	peers := make([]string, 0, len(seedPeers))
	for _, p := range seedPeers {
		acc := b.createAccountLocked(domain.UserProfile{
			ID:        SeedID(p.email),
			Email:     p.email,
			FirstName: p.first,
			LastName:  p.last,
		}, hash)
		peers = append(peers, acc.profile.ID)
	}

	work := b.newCardLocked(demo.profile.ID, ports.CreateCardInput{
		Type:       domain.CardBAC,
		Category:   domain.CategoryWork,
		Name:       "Demo User",
		Nickname:   "demo",
		Email:      DemoEmail,
		Bio:        "Product engineer",
		Social:     map[string]string{"linkedin": "https://linkedin.com/in/demo"},
		IsMainCard: true,
		IsInWallet: true,
	})
	work.ID = SeedID("card:work")
	personal := b.newCardLocked(demo.profile.ID, ports.CreateCardInput{
		Type:     domain.CardPAC,
		Category: domain.CategoryFriends,
		Name:     "Demo",
		Nickname: "d",
		Social:   map[string]string{"instagram": "@demo"},
	})
	personal.ID = SeedID("card:personal")
	b.cards = append(b.cards, work, personal)
	demo.profile.MainCardID = work.ID

	now := b.now().UTC()
	// The demo user sits on user1 for the first peer and user2 for the second,
	// so both sides of the record get exercised. The third peer stays unconnected.
	b.conns = append(b.conns,
		domain.Connection{
			ID: SeedID("conn:0"), User1ID: demo.profile.ID, User2ID: peers[0],
			User1Notes: "Met at the launch event", User1FavoritedUser2: true,
			ConnectionDate: now, LastInteractionDate: now, CreatedAt: now, UpdatedAt: now,
		},
		domain.Connection{
			ID: SeedID("conn:1"), User1ID: peers[1], User2ID: demo.profile.ID,
			User1FavoritedUser2: true,
			ConnectionDate: now, LastInteractionDate: now, CreatedAt: now, UpdatedAt: now,
		},
	)
	b.log.Debug().Str("user_id", demo.profile.ID).Int("peers", len(peers)).Msg("mock backend seeded")
	return nil
}
