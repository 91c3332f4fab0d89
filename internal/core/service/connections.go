package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
	"github.com/pich-app/pich-core/internal/pkg/validation"
)

// ConnectionsState is a snapshot of the connection collection.
type ConnectionsState struct {
	Connections []domain.Connection `json:"connections"`
	Loading     bool                `json:"loading"`
	Err         string              `json:"error,omitempty"`
}

// ConnectionCache mirrors the caller's connections.
type ConnectionCache struct {
	slice
	remote ports.ConnectionRemote

	connections []domain.Connection
	fetchSeq    uint64
	appliedSeq  uint64
}

// NewConnectionCache wires the cache to the bus so it clears itself when the session ends.
func NewConnectionCache(bus *Bus, session *SessionStore, remote ports.ConnectionRemote, log zerolog.Logger) *ConnectionCache {
	c := &ConnectionCache{
		slice:  slice{name: "connections", bus: bus, session: session, log: log},
		remote: remote,
	}
	bus.On(EventSessionEnded, func(Event) { c.resetLocked() })
	return c
}

func (c *ConnectionCache) resetLocked() {
	c.slice.resetLocked()
	c.connections = nil
	c.appliedSeq = c.fetchSeq
}

// State returns a copy of the collection.
func (c *ConnectionCache) State() ConnectionsState {
	var out ConnectionsState
	c.bus.read(func() { out = c.stateLocked() })
	return out
}

func (c *ConnectionCache) stateLocked() ConnectionsState {
	return ConnectionsState{
		Connections: domain.CloneConnections(c.connections),
		Loading:     c.inflight > 0,
		Err:         c.err,
	}
}

// FetchAll replaces the collection with the remote list.
func (c *ConnectionCache) FetchAll(ctx context.Context) error {
	var seq uint64
	ctx, gen, err := c.start(ctx, func() {
		c.fetchSeq++
		seq = c.fetchSeq
	})
	if err != nil {
		return err
	}

	conns, err := c.remote.ListConnections(ctx)
	current := func() bool { return seq > c.appliedSeq }
	committed := c.finishIf("connections.list", gen, err, current, func() {
		c.appliedSeq = seq
		c.connections = domain.CloneConnections(conns)
	})
	if !committed {
		return nil
	}
	return err
}

// Create connects the caller with the user whose QR code was scanned.
func (c *ConnectionCache) Create(ctx context.Context, scannedUserID string) (*domain.Connection, error) {
	if err := validation.Struct(ports.ScanInput{ScannedUserID: scannedUserID}); err != nil {
		return nil, c.fail(err)
	}

	var verr error
	c.bus.read(func() {
		me := c.session.userIDLocked()
		if me == scannedUserID {
			verr = domain.NewValidationError("scannedUserId", "cannot connect with yourself")
			return
		}
		for _, conn := range c.connections {
			if conn.Links(me, scannedUserID) {
				verr = domain.NewValidationError("scannedUserId", "already connected with this user")
				return
			}
		}
	})
	if verr != nil {
		return nil, c.fail(verr)
	}

	ctx, gen, err := c.start(ctx, nil)
	if err != nil {
		return nil, err
	}

	conn, err := c.remote.CreateConnection(ctx, scannedUserID)
	if err == nil && conn == nil {
		err = fmt.Errorf("connections.create: empty response")
	}
	c.finish("connections.create", gen, err, func() {
		c.connections = append(c.connections, *conn)
	})
	if err != nil {
		return nil, err
	}
	out := *conn
	return &out, nil
}

// ToggleFavorite flips the caller's favorite flag on a connection.
func (c *ConnectionCache) ToggleFavorite(ctx context.Context, id string) (*domain.Connection, error) {
	return c.mutate(ctx, "connections.toggle_favorite", id, func(ctx context.Context) (*domain.Connection, error) {
		return c.remote.ToggleFavorite(ctx, id)
	})
}

// UpdateNotes sets the caller's notes on a connection.
func (c *ConnectionCache) UpdateNotes(ctx context.Context, id, notes string) (*domain.Connection, error) {
	if err := validation.Struct(ports.NotesInput{Notes: notes}); err != nil {
		return nil, c.fail(err)
	}
	return c.mutate(ctx, "connections.update_notes", id, func(ctx context.Context) (*domain.Connection, error) {
		return c.remote.UpdateNotes(ctx, id, notes)
	})
}

func (c *ConnectionCache) mutate(ctx context.Context, op, id string, call func(context.Context) (*domain.Connection, error)) (*domain.Connection, error) {
	if id == "" {
		return nil, c.fail(domain.NewValidationError("id", "id is required"))
	}

	ctx, gen, err := c.start(ctx, nil)
	if err != nil {
		return nil, err
	}

	conn, err := call(ctx)
	if err == nil && conn == nil {
		err = fmt.Errorf("%s: empty response", op)
	}
	c.finish(op, gen, err, func() {
		if i := c.indexLocked(conn.ID); i >= 0 {
			c.connections[i] = *conn
		}
	})
	if err != nil {
		return nil, err
	}
	out := *conn
	return &out, nil
}

// Delete removes a connection remotely and locally.
func (c *ConnectionCache) Delete(ctx context.Context, id string) error {
	if id == "" {
		return c.fail(domain.NewValidationError("id", "id is required"))
	}

	ctx, gen, err := c.start(ctx, nil)
	if err != nil {
		return err
	}

	err = c.remote.DeleteConnection(ctx, id)
	c.finish("connections.delete", gen, err, func() {
		if i := c.indexLocked(id); i >= 0 {
			c.connections = append(c.connections[:i], c.connections[i+1:]...)
		}
	})
	return err
}

// Favorites returns the connections the logged-in user marked as favorite.
func (c *ConnectionCache) Favorites() []domain.Connection {
	var out []domain.Connection
	c.bus.read(func() {
		me := c.session.userIDLocked()
		for _, conn := range c.connections {
			if conn.IsFavoriteFor(me) {
				out = append(out, conn)
			}
		}
	})
	return out
}

// Peers returns the ids of every user the caller is connected with.
func (c *ConnectionCache) Peers() []string {
	var out []string
	c.bus.read(func() {
		me := c.session.userIDLocked()
		for _, conn := range c.connections {
			if peer, err := conn.PeerOf(me); err == nil {
				out = append(out, peer)
			}
		}
	})
	return out
}

func (c *ConnectionCache) indexLocked(id string) int {
	for i := range c.connections {
		if c.connections[i].ID == id {
			return i
		}
	}
	return -1
}
