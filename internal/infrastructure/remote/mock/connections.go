package mock

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/pich-app/pich-core/internal/core/domain"
)

func (b *Backend) ListConnections(ctx context.Context) ([]domain.Connection, error) {
	acc, err := b.protected(ctx, "connections.list")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	out := make([]domain.Connection, 0)
	for _, c := range b.conns {
		if _, err := c.SideOf(acc.profile.ID); err == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (b *Backend) CreateConnection(ctx context.Context, scannedUserID string) (*domain.Connection, error) {
	const op = "connections.create"
	acc, err := b.protected(ctx, op)
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	me := acc.profile.ID
	if scannedUserID == me {
		return nil, domain.NewRemoteError(op, http.StatusBadRequest, "Cannot connect with yourself")
	}
	if _, ok := b.accounts[scannedUserID]; !ok {
		return nil, domain.NewRemoteError(op, http.StatusNotFound, "User not found")
	}
	for _, c := range b.conns {
		if c.Links(me, scannedUserID) {
			return nil, domain.NewRemoteError(op, http.StatusConflict, "Connection already exists")
		}
	}

	now := b.now().UTC()
	conn := domain.Connection{
		ID:                  uuid.NewString(),
		User1ID:             me,
		User2ID:             scannedUserID,
		ConnectionDate:      now,
		LastInteractionDate: now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	b.conns = append(b.conns, conn)
	return &conn, nil
}

func (b *Backend) editConnection(ctx context.Context, op, id string, edit func(*domain.Connection, string) error) (*domain.Connection, error) {
	acc, err := b.protected(ctx, op)
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	for i := range b.conns {
		if b.conns[i].ID != id {
			continue
		}
		if err := edit(&b.conns[i], acc.profile.ID); err != nil {
			if errors.Is(err, domain.ErrNotParticipant) {
				return nil, domain.NewRemoteError(op, http.StatusNotFound, "Connection not found")
			}
			return nil, err
		}
		now := b.now().UTC()
		b.conns[i].LastInteractionDate = now
		b.conns[i].UpdatedAt = now
		out := b.conns[i]
		return &out, nil
	}
	return nil, domain.NewRemoteError(op, http.StatusNotFound, "Connection not found")
}

func (b *Backend) ToggleFavorite(ctx context.Context, id string) (*domain.Connection, error) {
	return b.editConnection(ctx, "connections.toggle_favorite", id, func(c *domain.Connection, me string) error {
		_, err := c.ToggleFavorite(me)
		return err
	})
}

func (b *Backend) UpdateNotes(ctx context.Context, id, notes string) (*domain.Connection, error) {
	if len([]rune(notes)) > 500 {
		return nil, domain.NewRemoteError("connections.update_notes", http.StatusBadRequest, "Notes must be at most 500 characters")
	}
	return b.editConnection(ctx, "connections.update_notes", id, func(c *domain.Connection, me string) error {
		return c.SetNotes(me, notes)
	})
}

func (b *Backend) DeleteConnection(ctx context.Context, id string) error {
	acc, err := b.protected(ctx, "connections.delete")
	if err != nil {
		return err
	}
	defer b.mu.Unlock()

	for i, c := range b.conns {
		if c.ID != id {
			continue
		}
		if _, err := c.SideOf(acc.profile.ID); err != nil {
			break
		}
		b.conns = append(b.conns[:i], b.conns[i+1:]...)
		return nil
	}
	return domain.NewRemoteError("connections.delete", http.StatusNotFound, "Connection not found")
}
