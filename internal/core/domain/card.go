package domain

import "time"

// CardType classifies a card.
type CardType string

const (
	CardBAC CardType = "BAC"
	CardPAC CardType = "PAC"
	CardVAC CardType = "VAC"
	CardCAC CardType = "CAC"
)

// CardCategory groups cards in the wallet.
type CardCategory string

const (
	CategoryFamily  CardCategory = "FAMILY"
	CategoryFriends CardCategory = "FRIENDS"
	CategoryWork    CardCategory = "WORK"
	CategoryOther   CardCategory = "OTHER"
)

// Card is a user-created digital contact profile.
// BlockchainID references an external ledger record and is never dereferenced here.
type Card struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	Type         CardType          `json:"type"`
	Category     CardCategory      `json:"category"`
	IsPrime      bool              `json:"isPrime"`
	IsMainCard   bool              `json:"isMainCard"`
	IsInWallet   bool              `json:"isInWallet"`
	Name         string            `json:"name"`
	Nickname     string            `json:"nickname"`
	Phone        string            `json:"phone,omitempty"`
	Email        string            `json:"email,omitempty"`
	Bio          string            `json:"bio,omitempty"`
	Location     string            `json:"location,omitempty"`
	Social       map[string]string `json:"social,omitempty"`
	BlockchainID string            `json:"blockchainId,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy.
func (c Card) Clone() Card {
	out := c
	if c.Social != nil {
		out.Social = make(map[string]string, len(c.Social))
		for k, v := range c.Social {
			out.Social[k] = v
		}
	}
	return out
}

// CloneCards deep-copies a card slice. A nil input yields an empty slice.
func CloneCards(in []Card) []Card {
	out := make([]Card, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
