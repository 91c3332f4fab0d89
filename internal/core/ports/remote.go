package ports

import (
	"context"

	"github.com/pich-app/pich-core/internal/core/domain"
)

// AuthResult is returned by login and registration.
type AuthResult struct {
	User        domain.UserProfile `json:"user"`
	AccessToken string             `json:"accessToken"`
}

// AuthRemote covers the unauthenticated session endpoints.
type AuthRemote interface {
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	// Logout invalidates the bearer token carried by ctx.
	Logout(ctx context.Context) error
}

// ProfileRemote reads and updates the caller's profile.
type ProfileRemote interface {
	FetchProfile(ctx context.Context) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*domain.UserProfile, error)
}

// CardRemote is the card collection of the caller.
type CardRemote interface {
	ListCards(ctx context.Context) ([]domain.Card, error)
	CreateCard(ctx context.Context, in CreateCardInput) (*domain.Card, error)
	UpdateCard(ctx context.Context, id string, patch CardPatch) (*domain.Card, error)
	DeleteCard(ctx context.Context, id string) error
	// ToggleMainCard marks id as main. Other cards are not guaranteed to be unset.
	ToggleMainCard(ctx context.Context, id string) (*domain.Card, error)
}

// ConnectionRemote is the connection collection of the caller.
type ConnectionRemote interface {
	ListConnections(ctx context.Context) ([]domain.Connection, error)
	CreateConnection(ctx context.Context, scannedUserID string) (*domain.Connection, error)
	ToggleFavorite(ctx context.Context, id string) (*domain.Connection, error)
	UpdateNotes(ctx context.Context, id, notes string) (*domain.Connection, error)
	DeleteConnection(ctx context.Context, id string) error
}

// QRRemote serves the caller's scannable identifier as an image data URL.
type QRRemote interface {
	FetchQRCode(ctx context.Context) (string, error)
	RefreshQRCode(ctx context.Context) (string, error)
}

// Remote is the full set of remote operations the client core depends on.
// Protected calls read the bearer token from ctx (see WithToken).
type Remote interface {
	AuthRemote
	ProfileRemote
	CardRemote
	ConnectionRemote
	QRRemote
}

type tokenKey struct{}

// WithToken attaches a bearer token to ctx for protected remote calls.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token attached by WithToken, or "".
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
