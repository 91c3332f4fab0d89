package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
)

func seededCardsStore(t *testing.T) (*Store, *stubRemote) {
	t.Helper()
	remote := newStubRemote()
	now := time.Now()
	remote.cards = []domain.Card{
		{ID: "card-a", Type: domain.CardPAC, Name: "A", IsMainCard: true, UpdatedAt: now},
		{ID: "card-b", Type: domain.CardBAC, Name: "B", UpdatedAt: now},
	}
	remote.accounts[demoEmail].profile.MainCardID = "card-a"
	s := newTestStore(t, remote, newStubKV())
	loginDemo(t, s)
	if err := s.Cards.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	return s, remote
}

func TestCards_Create_AppendsCard(t *testing.T) {
	s, _ := seededCardsStore(t)
	before := s.Cards.State().Cards

	card, err := s.Cards.Create(context.Background(), ports.CreateCardInput{Type: domain.CardPAC, Name: "Jane", Nickname: "J"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if card.ID == "" {
		t.Fatalf("expected id to be set")
	}
	for _, c := range before {
		if c.ID == card.ID {
			t.Fatalf("id %s collides with an existing card", card.ID)
		}
	}
	if card.IsMainCard {
		t.Fatalf("IsMainCard must default to false")
	}
	if card.Category != domain.CategoryOther {
		t.Fatalf("expected default category OTHER, got %s", card.Category)
	}

	after := s.Cards.State().Cards
	if len(after) != len(before)+1 {
		t.Fatalf("expected %d cards, got %d", len(before)+1, len(after))
	}
	if main, ok := s.Cards.MainCard(); !ok || main.ID != "card-a" {
		t.Fatalf("main card changed unexpectedly: %+v", main)
	}
}

func TestCards_Create_AsMainClearsOthers(t *testing.T) {
	s, _ := seededCardsStore(t)

	card, err := s.Cards.Create(context.Background(), ports.CreateCardInput{Type: domain.CardPAC, Name: "Jane", Nickname: "J", IsMainCard: true})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	assertSingleMain(t, s, card.ID)
	if got := s.Profile.State().Profile.MainCardID; got != card.ID {
		t.Fatalf("expected profile main card %s, got %s", card.ID, got)
	}
}

func TestCards_Create_Validation(t *testing.T) {
	s, remote := seededCardsStore(t)

	_, err := s.Cards.Create(context.Background(), ports.CreateCardInput{Type: "XYZ"})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if remote.count("cards.create") != 0 {
		t.Fatalf("remote must not be called on invalid input")
	}
	if s.Cards.State().Err == "" {
		t.Fatalf("expected the validation message to be mirrored")
	}
}

func TestCards_FetchAll_FailureKeepsPrevious(t *testing.T) {
	s, remote := seededCardsStore(t)
	before := s.Cards.State().Cards

	remote.failOp("cards.list", domain.NewRemoteError("cards.list", http.StatusInternalServerError, "Server exploded"))
	if err := s.Cards.FetchAll(context.Background()); err == nil {
		t.Fatalf("expected error")
	}

	st := s.Cards.State()
	if len(st.Cards) != len(before) {
		t.Fatalf("expected previous collection to survive, got %+v", st.Cards)
	}
	if st.Err != "Server exploded" {
		t.Fatalf("unexpected error %q", st.Err)
	}
	if st.Loading {
		t.Fatalf("loading flag left set")
	}

	remote.failOp("cards.list", nil)
	if err := s.Cards.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if s.Cards.State().Err != "" {
		t.Fatalf("successful fetch must clear the error")
	}
}

func TestCards_ToggleMainCard_Exclusive(t *testing.T) {
	s, remote := seededCardsStore(t)

	card, err := s.Cards.ToggleMainCard(context.Background(), "card-b")
	if err != nil {
		t.Fatalf("ToggleMainCard returned error: %v", err)
	}
	if !card.IsMainCard {
		t.Fatalf("expected target to be main")
	}
	assertSingleMain(t, s, "card-b")

	// The backend leaves card-a flagged; a refetch must still yield one main card.
	remote.mu.Lock()
	remote.cards[1].UpdatedAt = time.Now().Add(time.Minute)
	remote.mu.Unlock()
	if err := s.Cards.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	assertSingleMain(t, s, "card-b")

	if got := s.Profile.State().Profile.MainCardID; got != "card-b" {
		t.Fatalf("expected profile main card card-b, got %q", got)
	}
	if got := s.Session.State().User.MainCardID; got != "card-b" {
		t.Fatalf("expected session user main card card-b, got %q", got)
	}
}

func TestCards_Delete_ClearsMainCardAndSelection(t *testing.T) {
	s, _ := seededCardsStore(t)
	if err := s.Cards.Select("card-a"); err != nil {
		t.Fatalf("Select: %v", err)
	}

	if err := s.Cards.Delete(context.Background(), "card-a"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	st := s.Cards.State()
	if len(st.Cards) != 1 || st.Cards[0].ID != "card-b" {
		t.Fatalf("unexpected cards: %+v", st.Cards)
	}
	if st.SelectedID != "" {
		t.Fatalf("selection must be cleared, got %q", st.SelectedID)
	}
	if got := s.Profile.State().Profile.MainCardID; got != "" {
		t.Fatalf("profile main card must be cleared, got %q", got)
	}
	if got := s.Session.State().User.MainCardID; got != "" {
		t.Fatalf("session user main card must be cleared, got %q", got)
	}
}

func TestCards_Update_ReplacesRecord(t *testing.T) {
	s, _ := seededCardsStore(t)
	name := "Renamed"

	card, err := s.Cards.Update(context.Background(), "card-b", ports.CardPatch{Name: &name})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if card.Name != "Renamed" {
		t.Fatalf("unexpected result %+v", card)
	}
	got, ok := s.Cards.Get("card-b")
	if !ok || got.Name != "Renamed" || got.Type != domain.CardBAC {
		t.Fatalf("unexpected cached card %+v", got)
	}
}

func TestCards_Update_UnknownID(t *testing.T) {
	s, _ := seededCardsStore(t)
	name := "Ghost"

	_, err := s.Cards.Update(context.Background(), "card-zzz", ports.CardPatch{Name: &name})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(s.Cards.State().Cards) != 2 {
		t.Fatalf("collection must be unchanged")
	}
}

func TestCards_ToggleWalletAndPrime(t *testing.T) {
	s, _ := seededCardsStore(t)

	card, err := s.Cards.ToggleWallet(context.Background(), "card-b")
	if err != nil || !card.IsInWallet {
		t.Fatalf("ToggleWallet: %+v, %v", card, err)
	}
	card, err = s.Cards.TogglePrime(context.Background(), "card-b")
	if err != nil || !card.IsPrime {
		t.Fatalf("TogglePrime: %+v, %v", card, err)
	}
	if _, err := s.Cards.ToggleWallet(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCards_Select(t *testing.T) {
	s, _ := seededCardsStore(t)

	if err := s.Cards.Select("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Cards.Select("card-b"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := s.Cards.Select(""); err != nil {
		t.Fatalf("clearing selection: %v", err)
	}
	if got := s.Cards.State().SelectedID; got != "" {
		t.Fatalf("expected empty selection, got %q", got)
	}
}

func TestCards_StaleFetchAfterLogout(t *testing.T) {
	ctx := context.Background()
	s, remote := seededCardsStore(t)
	hold := remote.holdOp("cards.list")

	errc := make(chan error, 1)
	go func() { errc <- s.Cards.FetchAll(ctx) }()
	waitEntered(t, remote, "cards.list")

	if err := s.Session.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	loginDemo(t, s)
	close(hold)

	if err := <-errc; err != nil {
		t.Fatalf("stale fetch must not surface an error, got %v", err)
	}
	st := s.Cards.State()
	if len(st.Cards) != 0 {
		t.Fatalf("stale response leaked into the new session: %+v", st.Cards)
	}
	if st.Loading {
		t.Fatalf("stale response must not leave the slice loading")
	}
}

func TestCards_SupersededFetchDropped(t *testing.T) {
	ctx := context.Background()
	s, remote := seededCardsStore(t)
	hold := remote.holdOp("cards.list")

	errc := make(chan error, 1)
	go func() { errc <- s.Cards.FetchAll(ctx) }()
	waitEntered(t, remote, "cards.list")

	remote.mu.Lock()
	remote.cards = []domain.Card{{ID: "card-new", Name: "New"}}
	remote.mu.Unlock()
	if err := s.Cards.FetchAll(ctx); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}

	remote.mu.Lock()
	remote.cards = []domain.Card{{ID: "card-old", Name: "Old"}}
	remote.mu.Unlock()
	close(hold)
	if err := <-errc; err != nil {
		t.Fatalf("superseded fetch returned %v", err)
	}

	st := s.Cards.State()
	if len(st.Cards) != 1 || st.Cards[0].ID != "card-new" {
		t.Fatalf("expected the later fetch to win, got %+v", st.Cards)
	}
}

func TestCards_SupersededFailureKeepsNewerResult(t *testing.T) {
	ctx := context.Background()
	s, remote := seededCardsStore(t)
	hold := remote.holdOp("cards.list")

	errc := make(chan error, 1)
	go func() { errc <- s.Cards.FetchAll(ctx) }()
	waitEntered(t, remote, "cards.list")

	if err := s.Cards.FetchAll(ctx); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	remote.failOp("cards.list", domain.NewRemoteError("cards.list", http.StatusInternalServerError, "Server error"))
	close(hold)

	if err := <-errc; err != nil {
		t.Fatalf("superseded fetch returned %v", err)
	}
	st := s.Cards.State()
	if st.Err != "" {
		t.Fatalf("superseded failure mirrored its error: %q", st.Err)
	}
	if len(st.Cards) != 2 || st.Loading {
		t.Fatalf("unexpected state after superseded failure: %+v", st)
	}
}

func TestCards_DiscardLogsStaleState(t *testing.T) {
	ctx := context.Background()
	remote := newStubRemote()
	w := &syncBuffer{}
	s, err := NewStore(Deps{Remote: remote, Storage: newStubKV(), Logger: zerolog.New(w)})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Dispose(ctx)
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	loginDemo(t, s)

	hold := remote.holdOp("cards.list")
	errc := make(chan error, 1)
	go func() { errc <- s.Cards.FetchAll(ctx) }()
	waitEntered(t, remote, "cards.list")
	if err := s.Session.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	close(hold)
	if err := <-errc; err != nil {
		t.Fatalf("stale fetch returned %v", err)
	}

	if !strings.Contains(w.String(), domain.ErrStaleState.Error()) {
		t.Fatalf("expected the discard to be logged with the stale reason, got:\n%s", w.String())
	}
}

func TestCards_UnauthorizedTriggersLogout(t *testing.T) {
	s, remote := seededCardsStore(t)
	remote.failOp("cards.list", domain.NewRemoteError("cards.list", http.StatusUnauthorized, "Unauthorized"))

	err := s.Cards.FetchAll(context.Background())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	snap := s.Snapshot()
	if snap.Session.Status != domain.SessionUnauthenticated || snap.Session.Token != "" {
		t.Fatalf("expected implicit logout, got %+v", snap.Session)
	}
	if len(snap.Cards.Cards) != 0 || snap.Profile.Profile != nil {
		t.Fatalf("caches must be cleared on implicit logout")
	}
	if remote.count("auth.logout") != 0 {
		t.Fatalf("implicit logout must not call the backend")
	}
}

func TestCards_StaleUnauthorizedKeepsNewSession(t *testing.T) {
	ctx := context.Background()
	s, remote := seededCardsStore(t)
	hold := remote.holdOp("cards.list")
	remote.failOp("cards.list", domain.NewRemoteError("cards.list", http.StatusUnauthorized, "Unauthorized"))

	errc := make(chan error, 1)
	go func() { errc <- s.Cards.FetchAll(ctx) }()
	waitEntered(t, remote, "cards.list")

	if err := s.Session.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	loginDemo(t, s)
	close(hold)
	<-errc

	if !s.Session.State().IsAuthenticated() {
		t.Fatalf("a 401 from the previous session must not log out the new one")
	}
}

func assertSingleMain(t *testing.T, s *Store, id string) {
	t.Helper()
	mains := 0
	for _, c := range s.Cards.State().Cards {
		if c.IsMainCard {
			mains++
			if c.ID != id {
				t.Fatalf("expected %s to be main, got %s", id, c.ID)
			}
		}
	}
	if mains != 1 {
		t.Fatalf("expected exactly one main card, got %d", mains)
	}
}
