// Package mock is an in-process backend for the PICH client core. It keeps
// every account, card and connection in memory, signs HS256 access tokens and
// simulates network latency.
package mock

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
	"github.com/pich-app/pich-core/internal/pkg/metrics"
)

const defaultTokenTTL = 24 * time.Hour

// Options configures a Backend.
type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	// Latency is applied before every operation. Zero disables it.
	Latency time.Duration
	// Seed loads the demo account with sample cards and connections.
	Seed bool
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type account struct {
	profile      domain.UserProfile
	passwordHash []byte
	qrNonce      string
}

// Backend implements ports.Remote.
type Backend struct {
	secret  []byte
	ttl     time.Duration
	latency time.Duration
	now     func() time.Time
	log     zerolog.Logger

	mu       sync.Mutex
	accounts map[string]*account // by user id
	byEmail  map[string]string
	cards    []domain.Card
	conns    []domain.Connection
	revoked  map[string]time.Time // jti -> expiry
}

var _ ports.Remote = (*Backend)(nil)

// New returns an empty backend, seeded when opts.Seed is set.
func New(opts Options, log zerolog.Logger) (*Backend, error) {
	if opts.JWTSecret == "" {
		return nil, errors.New("mock: jwt secret is required")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	b := &Backend{
		secret:   []byte(opts.JWTSecret),
		ttl:      opts.TokenTTL,
		latency:  opts.Latency,
		now:      opts.Now,
		log:      log,
		accounts: make(map[string]*account),
		byEmail:  make(map[string]string),
		revoked:  make(map[string]time.Time),
	}
	if opts.Seed {
		if err := b.seed(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// wait simulates the round trip. It returns early when ctx is done.
func (b *Backend) wait(ctx context.Context, op string) error {
	start := time.Now()
	defer func() { metrics.MockLatency.WithLabelValues(op).Observe(time.Since(start).Seconds()) }()

	if b.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(b.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type claims struct {
	jwt.RegisteredClaims
}

func (b *Backend) issueToken(userID string) (string, error) {
	now := b.now()
	c := claims{jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(b.ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(b.secret)
}

func (b *Backend) parseToken(token string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(b.now))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Authenticate resolves a bearer token to its user id. Expired, revoked and
// malformed tokens yield a 401 RemoteError.
func (b *Backend) Authenticate(token string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, err := b.authLocked("auth", token)
	if err != nil {
		return "", err
	}
	return acc.profile.ID, nil
}

func (b *Backend) authLocked(op, token string) (*account, error) {
	unauthorized := domain.NewRemoteError(op, http.StatusUnauthorized, "Unauthorized")
	if token == "" {
		return nil, unauthorized
	}
	c, err := b.parseToken(token)
	if err != nil {
		return nil, unauthorized
	}
	if _, ok := b.revoked[c.ID]; ok {
		return nil, unauthorized
	}
	acc, ok := b.accounts[c.Subject]
	if !ok || !acc.profile.IsActive {
		return nil, unauthorized
	}
	return acc, nil
}

// protected waits, then locks the backend and resolves the caller from ctx.
// The caller must unlock b.mu when err is nil.
func (b *Backend) protected(ctx context.Context, op string) (*account, error) {
	if err := b.wait(ctx, op); err != nil {
		return nil, err
	}
	b.mu.Lock()
	acc, err := b.authLocked(op, ports.TokenFromContext(ctx))
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	return acc, nil
}

func (b *Backend) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	if err := b.wait(ctx, "auth.login"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.byEmail[email]
	if !ok {
		return nil, domain.NewRemoteError("auth.login", http.StatusNotFound, "User not found")
	}
	acc := b.accounts[id]
	if bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) != nil {
		return nil, domain.NewRemoteError("auth.login", http.StatusUnauthorized, "Invalid credentials")
	}
	return b.authResultLocked(acc)
}

// Register hashes the password before taking the lock so bcrypt does not hold
// up concurrent calls.
func (b *Backend) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	if err := b.wait(ctx, "auth.register"); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.byEmail[in.Email]; ok {
		return nil, domain.NewRemoteError("auth.register", http.StatusConflict, "User with this email already exists")
	}
	acc := b.createAccountLocked(domain.UserProfile{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Nickname:  in.Nickname,
	}, hash)
	return b.authResultLocked(acc)
}

func (b *Backend) authResultLocked(acc *account) (*ports.AuthResult, error) {
	token, err := b.issueToken(acc.profile.ID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &ports.AuthResult{User: acc.profile.Clone(), AccessToken: token}, nil
}

func hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (b *Backend) createAccountLocked(p domain.UserProfile, hash []byte) *account {
	now := b.now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.SubscriptionPlan == "" {
		p.SubscriptionPlan = domain.PlanBasic
	}
	p.IsActive = true
	p.CreatedAt = now
	p.UpdatedAt = now

	acc := &account{profile: p, passwordHash: hash, qrNonce: uuid.NewString()}
	b.accounts[p.ID] = acc
	b.byEmail[p.Email] = p.ID
	return acc
}

// Logout revokes the bearer token in ctx.
func (b *Backend) Logout(ctx context.Context) error {
	if err := b.wait(ctx, "auth.logout"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.parseToken(ports.TokenFromContext(ctx))
	if err != nil {
		return domain.NewRemoteError("auth.logout", http.StatusUnauthorized, "Unauthorized")
	}
	b.revoked[c.ID] = c.ExpiresAt.Time
	b.pruneRevokedLocked()
	return nil
}

func (b *Backend) pruneRevokedLocked() {
	now := b.now()
	for id, exp := range b.revoked {
		if exp.Before(now) {
			delete(b.revoked, id)
		}
	}
}

func (b *Backend) FetchProfile(ctx context.Context) (*domain.UserProfile, error) {
	acc, err := b.protected(ctx, "profile.fetch")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	p := acc.profile.Clone()
	return &p, nil
}

func (b *Backend) UpdateProfile(ctx context.Context, id string, patch ports.ProfilePatch) (*domain.UserProfile, error) {
	acc, err := b.protected(ctx, "profile.update")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	if acc.profile.ID != id {
		return nil, domain.NewRemoteError("profile.update", http.StatusForbidden, "Cannot update another user's profile")
	}
	if patch.MainCardID != nil && *patch.MainCardID != "" {
		if i := b.cardIndexLocked(acc.profile.ID, *patch.MainCardID); i < 0 {
			return nil, domain.NewRemoteError("profile.update", http.StatusNotFound, "Card not found")
		}
	}
	patch.Apply(&acc.profile)
	acc.profile.UpdatedAt = b.now().UTC()

	p := acc.profile.Clone()
	return &p, nil
}
