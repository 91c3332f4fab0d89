// Package httpapi implements ports.Remote against the REST API served by cmd/pichd.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ ports.Remote = (*Client)(nil)

// New returns a client for baseURL. A zero timeout uses 10s.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type qrBody struct {
	QRCode string `json:"qrCode"`
}

// do sends body as JSON and decodes a 2xx response into out. Non-2xx
// responses become a RemoteError carrying the server's message.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := ports.TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			msg = eb.Error
		}
		return domain.NewRemoteError(op, resp.StatusCode, msg)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	var res ports.AuthResult
	err := c.do(ctx, "auth.login", http.MethodPost, "/auth/login", ports.Credentials{Email: email, Password: password}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	var res ports.AuthResult
	if err := c.do(ctx, "auth.register", http.MethodPost, "/auth/register", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "auth.logout", http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) FetchProfile(ctx context.Context) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := c.do(ctx, "profile.fetch", http.MethodGet, "/profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, id string, patch ports.ProfilePatch) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := c.do(ctx, "profile.update", http.MethodPatch, "/profile/"+url.PathEscape(id), patch, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ListCards(ctx context.Context) ([]domain.Card, error) {
	var cards []domain.Card
	if err := c.do(ctx, "cards.list", http.MethodGet, "/cards", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (c *Client) CreateCard(ctx context.Context, in ports.CreateCardInput) (*domain.Card, error) {
	var card domain.Card
	if err := c.do(ctx, "cards.create", http.MethodPost, "/cards", in, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *Client) UpdateCard(ctx context.Context, id string, patch ports.CardPatch) (*domain.Card, error) {
	var card domain.Card
	if err := c.do(ctx, "cards.update", http.MethodPatch, "/cards/"+url.PathEscape(id), patch, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *Client) DeleteCard(ctx context.Context, id string) error {
	return c.do(ctx, "cards.delete", http.MethodDelete, "/cards/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ToggleMainCard(ctx context.Context, id string) (*domain.Card, error) {
	var card domain.Card
	if err := c.do(ctx, "cards.toggle_main", http.MethodPost, "/cards/"+url.PathEscape(id)+"/main", nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *Client) ListConnections(ctx context.Context) ([]domain.Connection, error) {
	var conns []domain.Connection
	if err := c.do(ctx, "connections.list", http.MethodGet, "/connections", nil, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

func (c *Client) CreateConnection(ctx context.Context, scannedUserID string) (*domain.Connection, error) {
	var conn domain.Connection
	err := c.do(ctx, "connections.create", http.MethodPost, "/connections", ports.ScanInput{ScannedUserID: scannedUserID}, &conn)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (c *Client) ToggleFavorite(ctx context.Context, id string) (*domain.Connection, error) {
	var conn domain.Connection
	if err := c.do(ctx, "connections.toggle_favorite", http.MethodPost, "/connections/"+url.PathEscape(id)+"/favorite", nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

func (c *Client) UpdateNotes(ctx context.Context, id, notes string) (*domain.Connection, error) {
	var conn domain.Connection
	err := c.do(ctx, "connections.update_notes", http.MethodPut, "/connections/"+url.PathEscape(id)+"/notes", ports.NotesInput{Notes: notes}, &conn)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (c *Client) DeleteConnection(ctx context.Context, id string) error {
	return c.do(ctx, "connections.delete", http.MethodDelete, "/connections/"+url.PathEscape(id), nil, nil)
}

func (c *Client) FetchQRCode(ctx context.Context) (string, error) {
	var body qrBody
	if err := c.do(ctx, "qrcode.fetch", http.MethodGet, "/qrcode", nil, &body); err != nil {
		return "", err
	}
	return body.QRCode, nil
}

func (c *Client) RefreshQRCode(ctx context.Context) (string, error) {
	var body qrBody
	if err := c.do(ctx, "qrcode.refresh", http.MethodPost, "/qrcode/refresh", nil, &body); err != nil {
		return "", err
	}
	return body.QRCode, nil
}
