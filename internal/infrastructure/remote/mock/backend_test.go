package mock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSeeded(t *testing.T) (*Backend, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Now()}
	b, err := New(Options{JWTSecret: "secret", TokenTTL: time.Hour, Seed: true, Now: clock.Now}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, clock
}

func demoCtx(t *testing.T, b *Backend) context.Context {
	t.Helper()
	res, err := b.Login(context.Background(), DemoEmail, DemoPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return ports.WithToken(context.Background(), res.AccessToken)
}

func TestNew_RequiresSecret(t *testing.T) {
	if _, err := New(Options{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error without secret")
	}
}

func TestLogin_Errors(t *testing.T) {
	b, _ := newSeeded(t)
	ctx := context.Background()

	_, err := b.Login(ctx, "bad@x.com", "x")
	if !errors.Is(err, domain.ErrNotFound) || err.Error() != "User not found" {
		t.Fatalf("expected User not found, got %v", err)
	}

	_, err = b.Login(ctx, DemoEmail, "wrong")
	if !errors.Is(err, domain.ErrUnauthorized) || err.Error() != "Invalid credentials" {
		t.Fatalf("expected Invalid credentials, got %v", err)
	}
}

func TestLogin_IssuesSignedToken(t *testing.T) {
	b, _ := newSeeded(t)

	res, err := b.Login(context.Background(), DemoEmail, DemoPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.ID != SeedID(DemoEmail) || res.User.MainCardID == "" {
		t.Fatalf("unexpected user %+v", res.User)
	}

	parsed := jwt.RegisteredClaims{}
	tkn, err := jwt.ParseWithClaims(res.AccessToken, &parsed, func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	})
	if err != nil || !tkn.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if parsed.Subject != res.User.ID {
		t.Fatalf("unexpected subject %q", parsed.Subject)
	}
}

func TestRegister(t *testing.T) {
	b, _ := newSeeded(t)
	ctx := context.Background()

	_, err := b.Register(ctx, ports.RegisterInput{Email: DemoEmail, FirstName: "A", LastName: "B", Password: "secret1"})
	if !errors.Is(err, domain.ErrConflict) || err.Error() != "User with this email already exists" {
		t.Fatalf("expected conflict, got %v", err)
	}

	res, err := b.Register(ctx, ports.RegisterInput{Email: "new@pich.app", FirstName: "New", LastName: "User", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.User.SubscriptionPlan != domain.PlanBasic || !res.User.IsActive {
		t.Fatalf("unexpected defaults %+v", res.User)
	}
	if _, err := b.Login(ctx, "new@pich.app", "secret1"); err != nil {
		t.Fatalf("login with new account: %v", err)
	}
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	b, _ := newSeeded(t)
	in := ports.RegisterInput{Email: "race@pich.app", FirstName: "Race", LastName: "User", Password: "secret1"}

	const n = 4
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Register(context.Background(), in)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("expected one account and %d conflicts, got %d/%d", n-1, ok, conflicts)
	}
}

func TestProtected_TokenChecks(t *testing.T) {
	b, clock := newSeeded(t)

	if _, err := b.ListCards(context.Background()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected 401 without token, got %v", err)
	}
	if _, err := b.ListCards(ports.WithToken(context.Background(), "garbage")); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected 401 for malformed token, got %v", err)
	}

	ctx := demoCtx(t, b)
	if _, err := b.ListCards(ctx); err != nil {
		t.Fatalf("ListCards: %v", err)
	}

	clock.Advance(2 * time.Hour)
	if _, err := b.ListCards(ctx); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected 401 for expired token, got %v", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	b, _ := newSeeded(t)
	ctx := demoCtx(t, b)

	if err := b.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := b.FetchProfile(ctx); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected revoked token to be rejected, got %v", err)
	}
	if _, err := b.Authenticate(ports.TokenFromContext(ctx)); err == nil {
		t.Fatalf("Authenticate must reject a revoked token")
	}

	other := demoCtx(t, b)
	if _, err := b.FetchProfile(other); err != nil {
		t.Fatalf("a fresh token must still work: %v", err)
	}
}

func TestCards_CRUD(t *testing.T) {
	b, _ := newSeeded(t)
	ctx := demoCtx(t, b)

	cards, err := b.ListCards(ctx)
	if err != nil || len(cards) != 2 {
		t.Fatalf("expected 2 seeded cards, got %d (%v)", len(cards), err)
	}

	card, err := b.CreateCard(ctx, ports.CreateCardInput{Type: domain.CardPAC, Name: "Jane", Nickname: "J"})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if card.ID == "" || card.IsMainCard || card.Category != domain.CategoryOther {
		t.Fatalf("unexpected card %+v", card)
	}

	bio := "updated"
	updated, err := b.UpdateCard(ctx, card.ID, ports.CardPatch{Bio: &bio})
	if err != nil || updated.Bio != "updated" || updated.Name != "Jane" {
		t.Fatalf("UpdateCard: %+v, %v", updated, err)
	}

	if err := b.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if err := b.DeleteCard(ctx, card.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected 404 on second delete, got %v", err)
	}
}

func TestCards_ToggleMainLeavesPreviousMain(t *testing.T) {
	b, _ := newSeeded(t)
	ctx := demoCtx(t, b)

	if _, err := b.ToggleMainCard(ctx, SeedID("card:personal")); err != nil {
		t.Fatalf("ToggleMainCard: %v", err)
	}
	cards, _ := b.ListCards(ctx)
	mains := 0
	for _, c := range cards {
		if c.IsMainCard {
			mains++
		}
	}
	if mains != 2 {
		t.Fatalf("backend is expected to leave the old main card flagged, got %d mains", mains)
	}
}

func TestCards_DeleteMainClearsProfile(t *testing.T) {
	b, _ := newSeeded(t)
	ctx := demoCtx(t, b)

	if err := b.DeleteCard(ctx, SeedID("card:work")); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	p, err := b.FetchProfile(ctx)
	if err != nil || p.MainCardID != "" {
		t.Fatalf("expected main card to be cleared, got %+v (%v)", p, err)
	}
}

func TestProfile_Update(t *testing.T) {
	b, _ := newSeeded(t)
	ctx := demoCtx(t, b)
	id := SeedID(DemoEmail)
	nick := "dd"

	p, err := b.UpdateProfile(ctx, id, ports.ProfilePatch{Nickname: &nick})
	if err != nil || p.Nickname != "dd" || p.FirstName != "Demo" {
		t.Fatalf("UpdateProfile: %+v, %v", p, err)
	}

	if _, err := b.UpdateProfile(ctx, SeedID("ana@pich.app"), ports.ProfilePatch{Nickname: &nick}); err == nil {
		t.Fatalf("expected rejection when updating another user")
	}
	missing := "nope"
	if _, err := b.UpdateProfile(ctx, id, ports.ProfilePatch{MainCardID: &missing}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected 404 for unknown main card, got %v", err)
	}
}

func TestConnections(t *testing.T) {
	b, _ := newSeeded(t)
	ctx := demoCtx(t, b)
	me := SeedID(DemoEmail)

	conns, err := b.ListConnections(ctx)
	if err != nil || len(conns) != 2 {
		t.Fatalf("expected 2 seeded connections, got %d (%v)", len(conns), err)
	}

	conn, err := b.ToggleFavorite(ctx, SeedID("conn:1"))
	if err != nil {
		t.Fatalf("ToggleFavorite: %v", err)
	}
	if !conn.IsFavoriteFor(me) || !conn.User2FavoritedUser1 {
		t.Fatalf("favorite not set on the caller's side: %+v", conn)
	}

	conn, err = b.UpdateNotes(ctx, SeedID("conn:1"), "notes")
	if err != nil || conn.User2Notes != "notes" || conn.User1Notes != "" {
		t.Fatalf("UpdateNotes: %+v, %v", conn, err)
	}
	if _, err := b.UpdateNotes(ctx, SeedID("conn:1"), strings.Repeat("x", 501)); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected 400 for long notes, got %v", err)
	}

	if _, err := b.CreateConnection(ctx, me); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected 400 for self scan, got %v", err)
	}
	if _, err := b.CreateConnection(ctx, SeedID("ana@pich.app")); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected 409 for existing connection, got %v", err)
	}
	if _, err := b.CreateConnection(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected 404 for unknown user, got %v", err)
	}
	created, err := b.CreateConnection(ctx, SeedID("mia@pich.app"))
	if err != nil {
		t.Fatalf("CreateConnection: %v", err)
	}

	if err := b.DeleteConnection(ctx, created.ID); err != nil {
		t.Fatalf("DeleteConnection: %v", err)
	}
	if err := b.DeleteConnection(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected 404 on second delete, got %v", err)
	}
}

func TestConnections_HiddenFromOutsiders(t *testing.T) {
	b, _ := newSeeded(t)
	res, err := b.Login(context.Background(), "mia@pich.app", DemoPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	ctx := ports.WithToken(context.Background(), res.AccessToken)

	conns, err := b.ListConnections(ctx)
	if err != nil || len(conns) != 0 {
		t.Fatalf("expected no connections for mia, got %d (%v)", len(conns), err)
	}
	if _, err := b.ToggleFavorite(ctx, SeedID("conn:0")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected 404 for a foreign connection, got %v", err)
	}
}

func TestQRCode(t *testing.T) {
	b, _ := newSeeded(t)
	ctx := demoCtx(t, b)

	first, err := b.FetchQRCode(ctx)
	if err != nil || !strings.HasPrefix(first, "data:image/png;base64,") {
		t.Fatalf("FetchQRCode: %.40q, %v", first, err)
	}
	again, _ := b.FetchQRCode(ctx)
	if again != first {
		t.Fatalf("fetch must be stable until refreshed")
	}
	refreshed, err := b.RefreshQRCode(ctx)
	if err != nil || refreshed == first {
		t.Fatalf("RefreshQRCode must rotate the code (%v)", err)
	}
}

func TestLatency_HonoursContext(t *testing.T) {
	b, err := New(Options{JWTSecret: "secret", Latency: time.Hour}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := b.Login(ctx, DemoEmail, DemoPassword); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
