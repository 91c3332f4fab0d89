package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
	"github.com/pich-app/pich-core/internal/pkg/validation"
)

// CardsState is a snapshot of the card collection.
type CardsState struct {
	Cards      []domain.Card `json:"cards"`
	SelectedID string        `json:"selectedId,omitempty"`
	Loading    bool          `json:"loading"`
	Err        string        `json:"error,omitempty"`
}

// CardCache mirrors the caller's cards. Results of remote calls are committed
// with fetch-then-replace semantics and only while the session that issued
// them is still current.
type CardCache struct {
	slice
	remote ports.CardRemote

	cards      []domain.Card
	selectedID string
	fetchSeq   uint64
	appliedSeq uint64
}

// NewCardCache wires the cache to the bus so it clears itself when the session ends.
func NewCardCache(bus *Bus, session *SessionStore, remote ports.CardRemote, log zerolog.Logger) *CardCache {
	c := &CardCache{
		slice:  slice{name: "cards", bus: bus, session: session, log: log},
		remote: remote,
	}
	bus.On(EventSessionEnded, func(Event) { c.resetLocked() })
	return c
}

func (c *CardCache) resetLocked() {
	c.slice.resetLocked()
	c.cards = nil
	c.selectedID = ""
	c.appliedSeq = c.fetchSeq
}

// State returns a copy of the collection.
func (c *CardCache) State() CardsState {
	var out CardsState
	c.bus.read(func() { out = c.stateLocked() })
	return out
}

func (c *CardCache) stateLocked() CardsState {
	return CardsState{
		Cards:      domain.CloneCards(c.cards),
		SelectedID: c.selectedID,
		Loading:    c.inflight > 0,
		Err:        c.err,
	}
}

// FetchAll replaces the collection with the remote list. On failure the
// previous collection is kept. A response older than one already applied is dropped.
func (c *CardCache) FetchAll(ctx context.Context) error {
	var seq uint64
	ctx, gen, err := c.start(ctx, func() {
		c.fetchSeq++
		seq = c.fetchSeq
	})
	if err != nil {
		return err
	}

	cards, err := c.remote.ListCards(ctx)
	current := func() bool { return seq > c.appliedSeq }
	committed := c.finishIf("cards.list", gen, err, current, func() {
		c.appliedSeq = seq
		c.cards = domain.CloneCards(cards)
		c.enforceMainLocked("")
		if c.selectedID != "" && c.indexLocked(c.selectedID) < 0 {
			c.selectedID = ""
		}
	})
	if !committed {
		return nil
	}
	return err
}

// Create validates in, creates the card remotely and appends the result.
func (c *CardCache) Create(ctx context.Context, in ports.CreateCardInput) (*domain.Card, error) {
	if err := validation.Struct(in); err != nil {
		return nil, c.fail(err)
	}
	if in.Category == "" {
		in.Category = domain.CategoryOther
	}

	ctx, gen, err := c.start(ctx, nil)
	if err != nil {
		return nil, err
	}

	card, err := c.remote.CreateCard(ctx, in)
	if err == nil && card == nil {
		err = fmt.Errorf("cards.create: empty response")
	}
	c.finish("cards.create", gen, err, func() {
		c.cards = append(c.cards, card.Clone())
		if card.IsMainCard {
			c.enforceMainLocked(card.ID)
			c.bus.publishLocked(Event{Kind: EventMainCardChanged, CardID: card.ID, Main: true})
		}
	})
	if err != nil {
		return nil, err
	}
	out := card.Clone()
	return &out, nil
}

// Update sends patch and replaces the local card with the server's record.
// An id missing from the local collection leaves the collection unchanged.
func (c *CardCache) Update(ctx context.Context, id string, patch ports.CardPatch) (*domain.Card, error) {
	if id == "" {
		return nil, c.fail(domain.NewValidationError("id", "id is required"))
	}
	if err := validation.Struct(patch); err != nil {
		return nil, c.fail(err)
	}

	ctx, gen, err := c.start(ctx, nil)
	if err != nil {
		return nil, err
	}

	card, err := c.remote.UpdateCard(ctx, id, patch)
	if err == nil && card == nil {
		err = fmt.Errorf("cards.update: empty response")
	}
	c.finish("cards.update", gen, err, func() {
		c.replaceLocked(*card)
	})
	if err != nil {
		return nil, err
	}
	out := card.Clone()
	return &out, nil
}

// Delete removes the card remotely and locally, clearing any reference to it.
func (c *CardCache) Delete(ctx context.Context, id string) error {
	if id == "" {
		return c.fail(domain.NewValidationError("id", "id is required"))
	}

	ctx, gen, err := c.start(ctx, nil)
	if err != nil {
		return err
	}

	err = c.remote.DeleteCard(ctx, id)
	c.finish("cards.delete", gen, err, func() {
		if i := c.indexLocked(id); i >= 0 {
			c.cards = append(c.cards[:i], c.cards[i+1:]...)
		}
		if c.selectedID == id {
			c.selectedID = ""
		}
		c.bus.publishLocked(Event{Kind: EventCardDeleted, CardID: id})
	})
	return err
}

// ToggleMainCard makes id the main card. The backend does not unset the
// previous main card, so every other local card is cleared in the same commit.
func (c *CardCache) ToggleMainCard(ctx context.Context, id string) (*domain.Card, error) {
	if id == "" {
		return nil, c.fail(domain.NewValidationError("id", "id is required"))
	}

	ctx, gen, err := c.start(ctx, nil)
	if err != nil {
		return nil, err
	}

	card, err := c.remote.ToggleMainCard(ctx, id)
	if err == nil && card == nil {
		err = fmt.Errorf("cards.toggle_main: empty response")
	}
	c.finish("cards.toggle_main", gen, err, func() {
		c.replaceLocked(*card)
	})
	if err != nil {
		return nil, err
	}
	out := card.Clone()
	return &out, nil
}

// ToggleWallet flips IsInWallet on a cached card.
func (c *CardCache) ToggleWallet(ctx context.Context, id string) (*domain.Card, error) {
	card, ok := c.Get(id)
	if !ok {
		return nil, c.fail(fmt.Errorf("card %s: %w", id, domain.ErrNotFound))
	}
	flag := !card.IsInWallet
	return c.Update(ctx, id, ports.CardPatch{IsInWallet: &flag})
}

// TogglePrime flips IsPrime on a cached card.
func (c *CardCache) TogglePrime(ctx context.Context, id string) (*domain.Card, error) {
	card, ok := c.Get(id)
	if !ok {
		return nil, c.fail(fmt.Errorf("card %s: %w", id, domain.ErrNotFound))
	}
	flag := !card.IsPrime
	return c.Update(ctx, id, ports.CardPatch{IsPrime: &flag})
}

// Select marks a cached card as selected. An empty id clears the selection.
func (c *CardCache) Select(id string) error {
	return c.bus.do(func() error {
		if id != "" && c.indexLocked(id) < 0 {
			return fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
		}
		c.selectedID = id
		return nil
	})
}

// Get returns a cached card by id.
func (c *CardCache) Get(id string) (domain.Card, bool) {
	var (
		out domain.Card
		ok  bool
	)
	c.bus.read(func() {
		if i := c.indexLocked(id); i >= 0 {
			out, ok = c.cards[i].Clone(), true
		}
	})
	return out, ok
}

// MainCard returns the cached card flagged as main, if any.
func (c *CardCache) MainCard() (domain.Card, bool) {
	var (
		out domain.Card
		ok  bool
	)
	c.bus.read(func() {
		for _, card := range c.cards {
			if card.IsMainCard {
				out, ok = card.Clone(), true
				return
			}
		}
	})
	return out, ok
}

func (c *CardCache) indexLocked(id string) int {
	for i := range c.cards {
		if c.cards[i].ID == id {
			return i
		}
	}
	return -1
}

// replaceLocked swaps in the server copy of a card and keeps the main flag
// exclusive. Unknown ids are ignored.
func (c *CardCache) replaceLocked(card domain.Card) {
	i := c.indexLocked(card.ID)
	if i < 0 {
		c.log.Debug().Str("card_id", card.ID).Msg("update for uncached card dropped")
		return
	}
	wasMain := c.cards[i].IsMainCard
	c.cards[i] = card.Clone()

	switch {
	case card.IsMainCard:
		c.enforceMainLocked(card.ID)
		c.bus.publishLocked(Event{Kind: EventMainCardChanged, CardID: card.ID, Main: true})
	case wasMain:
		c.bus.publishLocked(Event{Kind: EventMainCardChanged, CardID: card.ID, Main: false})
	}
}

// enforceMainLocked leaves at most one card flagged as main. keep wins when
// set; otherwise the most recently updated main card is kept.
func (c *CardCache) enforceMainLocked(keep string) {
	if keep == "" {
		for _, card := range c.cards {
			if !card.IsMainCard {
				continue
			}
			if keep == "" || card.UpdatedAt.After(c.cards[c.indexLocked(keep)].UpdatedAt) {
				keep = card.ID
			}
		}
	}
	for i := range c.cards {
		if c.cards[i].ID != keep {
			c.cards[i].IsMainCard = false
		}
	}
}
