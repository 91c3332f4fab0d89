package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
)

const (
	demoEmail    = "demo@pich.app"
	demoPassword = "password123"
	demoID       = "user-1"
)

type stubAccount struct {
	password string
	profile  domain.UserProfile
}

// stubRemote is an in-memory backend. Operations listed in hold block until
// their channel is closed; fail injects an error returned after the hold.
type stubRemote struct {
	mu       sync.Mutex
	accounts map[string]*stubAccount
	cards    []domain.Card
	conns    []domain.Connection
	hold     map[string]chan struct{}
	fail     map[string]error
	calls    map[string]int
	tokens   map[string]string
	entered  chan string
	seq      int
}

func newStubRemote() *stubRemote {
	return &stubRemote{
		accounts: map[string]*stubAccount{
			demoEmail: {
				password: demoPassword,
				profile: domain.UserProfile{
					ID:               demoID,
					Email:            demoEmail,
					FirstName:        "Demo",
					LastName:         "User",
					SubscriptionPlan: domain.PlanBasic,
					IsActive:         true,
				},
			},
		},
		hold:    make(map[string]chan struct{}),
		fail:    make(map[string]error),
		calls:   make(map[string]int),
		tokens:  make(map[string]string),
		entered: make(chan string, 16),
	}
}

func (r *stubRemote) holdOp(op string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	r.hold[op] = ch
	return ch
}

func (r *stubRemote) failOp(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[op] = err
}

func (r *stubRemote) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *stubRemote) call(ctx context.Context, op string, protected bool) (string, error) {
	r.mu.Lock()
	r.calls[op]++
	hold := r.hold[op]
	delete(r.hold, op)
	token := ports.TokenFromContext(ctx)
	r.mu.Unlock()

	if hold != nil {
		r.entered <- op
		select {
		case <-hold:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[op]; err != nil {
		return "", err
	}
	if !protected {
		return "", nil
	}
	uid, ok := r.tokens[token]
	if !ok {
		return "", domain.NewRemoteError(op, http.StatusUnauthorized, "Unauthorized")
	}
	return uid, nil
}

func (r *stubRemote) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *stubRemote) accountByID(id string) *stubAccount {
	for _, a := range r.accounts {
		if a.profile.ID == id {
			return a
		}
	}
	return nil
}

func (r *stubRemote) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	if _, err := r.call(ctx, "auth.login", false); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[email]
	if !ok {
		return nil, domain.NewRemoteError("auth.login", http.StatusNotFound, "User not found")
	}
	if acc.password != password {
		return nil, domain.NewRemoteError("auth.login", http.StatusUnauthorized, "Invalid credentials")
	}
	token := r.nextID("token")
	r.tokens[token] = acc.profile.ID
	return &ports.AuthResult{User: acc.profile.Clone(), AccessToken: token}, nil
}

func (r *stubRemote) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	if _, err := r.call(ctx, "auth.register", false); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[in.Email]; ok {
		return nil, domain.NewRemoteError("auth.register", http.StatusConflict, "User with this email already exists")
	}
	p := domain.UserProfile{ID: r.nextID("user"), Email: in.Email, FirstName: in.FirstName, LastName: in.LastName, SubscriptionPlan: domain.PlanBasic}
	r.accounts[in.Email] = &stubAccount{password: in.Password, profile: p}
	token := r.nextID("token")
	r.tokens[token] = p.ID
	return &ports.AuthResult{User: p.Clone(), AccessToken: token}, nil
}

func (r *stubRemote) Logout(ctx context.Context) error {
	if _, err := r.call(ctx, "auth.logout", false); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, ports.TokenFromContext(ctx))
	return nil
}

func (r *stubRemote) FetchProfile(ctx context.Context) (*domain.UserProfile, error) {
	uid, err := r.call(ctx, "profile.fetch", true)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.accountByID(uid).profile.Clone()
	return &p, nil
}

func (r *stubRemote) UpdateProfile(ctx context.Context, id string, patch ports.ProfilePatch) (*domain.UserProfile, error) {
	if _, err := r.call(ctx, "profile.update", true); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	acc := r.accountByID(id)
	if acc == nil {
		return nil, domain.NewRemoteError("profile.update", http.StatusNotFound, "User not found")
	}
	patch.Apply(&acc.profile)
	p := acc.profile.Clone()
	return &p, nil
}

func (r *stubRemote) ListCards(ctx context.Context) ([]domain.Card, error) {
	if _, err := r.call(ctx, "cards.list", true); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.CloneCards(r.cards), nil
}

func (r *stubRemote) CreateCard(ctx context.Context, in ports.CreateCardInput) (*domain.Card, error) {
	uid, err := r.call(ctx, "cards.create", true)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	card := domain.Card{
		ID: r.nextID("card"), UserID: uid, Type: in.Type, Category: in.Category,
		Name: in.Name, Nickname: in.Nickname, Email: in.Email,
		IsMainCard: in.IsMainCard, IsPrime: in.IsPrime, IsInWallet: in.IsInWallet,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	r.cards = append(r.cards, card)
	return &card, nil
}

func (r *stubRemote) cardIndex(id string) int {
	for i := range r.cards {
		if r.cards[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *stubRemote) UpdateCard(ctx context.Context, id string, patch ports.CardPatch) (*domain.Card, error) {
	if _, err := r.call(ctx, "cards.update", true); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.cardIndex(id)
	if i < 0 {
		return nil, domain.NewRemoteError("cards.update", http.StatusNotFound, "Card not found")
	}
	patch.Apply(&r.cards[i])
	out := r.cards[i].Clone()
	return &out, nil
}

func (r *stubRemote) DeleteCard(ctx context.Context, id string) error {
	if _, err := r.call(ctx, "cards.delete", true); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.cardIndex(id)
	if i < 0 {
		return domain.NewRemoteError("cards.delete", http.StatusNotFound, "Card not found")
	}
	r.cards = append(r.cards[:i], r.cards[i+1:]...)
	return nil
}

func (r *stubRemote) ToggleMainCard(ctx context.Context, id string) (*domain.Card, error) {
	if _, err := r.call(ctx, "cards.toggle_main", true); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.cardIndex(id)
	if i < 0 {
		return nil, domain.NewRemoteError("cards.toggle_main", http.StatusNotFound, "Card not found")
	}
	r.cards[i].IsMainCard = true
	r.cards[i].UpdatedAt = time.Now()
	out := r.cards[i].Clone()
	return &out, nil
}

func (r *stubRemote) ListConnections(ctx context.Context) ([]domain.Connection, error) {
	if _, err := r.call(ctx, "connections.list", true); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.CloneConnections(r.conns), nil
}

func (r *stubRemote) CreateConnection(ctx context.Context, scannedUserID string) (*domain.Connection, error) {
	uid, err := r.call(ctx, "connections.create", true)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	conn := domain.Connection{ID: r.nextID("conn"), User1ID: uid, User2ID: scannedUserID, ConnectionDate: time.Now()}
	r.conns = append(r.conns, conn)
	return &conn, nil
}

func (r *stubRemote) editConn(ctx context.Context, op, id string, edit func(*domain.Connection, string) error) (*domain.Connection, error) {
	uid, err := r.call(ctx, op, true)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.conns {
		if r.conns[i].ID != id {
			continue
		}
		if err := edit(&r.conns[i], uid); err != nil {
			return nil, domain.NewRemoteError(op, http.StatusForbidden, err.Error())
		}
		out := r.conns[i]
		return &out, nil
	}
	return nil, domain.NewRemoteError(op, http.StatusNotFound, "Connection not found")
}

func (r *stubRemote) ToggleFavorite(ctx context.Context, id string) (*domain.Connection, error) {
	return r.editConn(ctx, "connections.toggle_favorite", id, func(c *domain.Connection, uid string) error {
		_, err := c.ToggleFavorite(uid)
		return err
	})
}

func (r *stubRemote) UpdateNotes(ctx context.Context, id, notes string) (*domain.Connection, error) {
	return r.editConn(ctx, "connections.update_notes", id, func(c *domain.Connection, uid string) error {
		return c.SetNotes(uid, notes)
	})
}

func (r *stubRemote) DeleteConnection(ctx context.Context, id string) error {
	if _, err := r.call(ctx, "connections.delete", true); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.conns {
		if r.conns[i].ID == id {
			r.conns = append(r.conns[:i], r.conns[i+1:]...)
			return nil
		}
	}
	return domain.NewRemoteError("connections.delete", http.StatusNotFound, "Connection not found")
}

func (r *stubRemote) FetchQRCode(ctx context.Context) (string, error) {
	uid, err := r.call(ctx, "qrcode.fetch", true)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + uid, nil
}

func (r *stubRemote) RefreshQRCode(ctx context.Context) (string, error) {
	uid, err := r.call(ctx, "qrcode.refresh", true)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return "data:image/png;base64," + uid + "-" + r.nextID("qr"), nil
}

// stubKV is an in-memory KeyValueStore with failure injection.
type stubKV struct {
	mu      sync.Mutex
	data    map[string]string
	ops     []string
	failSet error
	failGet error
}

func newStubKV() *stubKV {
	return &stubKV{data: make(map[string]string)}
}

func (kv *stubKV) Get(_ context.Context, key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.failGet != nil {
		return "", false, kv.failGet
	}
	v, ok := kv.data[key]
	return v, ok, nil
}

func (kv *stubKV) Set(_ context.Context, key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.ops = append(kv.ops, "set "+key)
	if kv.failSet != nil {
		return kv.failSet
	}
	kv.data[key] = value
	return nil
}

func (kv *stubKV) Remove(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.ops = append(kv.ops, "remove "+key)
	delete(kv.data, key)
	return nil
}

func (kv *stubKV) value(key string) (string, bool) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[key]
	return v, ok
}

func newTestStore(t *testing.T, remote *stubRemote, kv *stubKV) *Store {
	t.Helper()
	s, err := NewStore(Deps{Remote: remote, Storage: kv, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Dispose(ctx)
	})
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func loginDemo(t *testing.T, s *Store) {
	t.Helper()
	if err := s.Session.Login(context.Background(), ports.Credentials{Email: demoEmail, Password: demoPassword}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func waitEntered(t *testing.T, r *stubRemote, op string) {
	t.Helper()
	select {
	case got := <-r.entered:
		if got != op {
			t.Fatalf("expected %s to start, got %s", op, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", op)
	}
}

var errBoom = errors.New("boom")

// syncBuffer is a log sink safe for the store's writer goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
