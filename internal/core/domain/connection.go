package domain

import (
	"fmt"
	"time"
)

// Side identifies which half of a Connection record belongs to a user.
type Side int

const (
	SideNone Side = iota
	SideUser1
	SideUser2
)

// Connection is a bidirectional link between two users. The record stores the
// pair asymmetrically, so per-user fields must be read through SideOf.
type Connection struct {
	ID                  string    `json:"id"`
	User1ID             string    `json:"user1Id"`
	User2ID             string    `json:"user2Id"`
	User1Notes          string    `json:"user1Notes,omitempty"`
	User2Notes          string    `json:"user2Notes,omitempty"`
	User1FavoritedUser2 bool      `json:"user1FavoritedUser2"`
	User2FavoritedUser1 bool      `json:"user2FavoritedUser1"`
	ConnectionDate      time.Time `json:"connectionDate"`
	LastInteractionDate time.Time `json:"lastInteractionDate"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// SideOf resolves which side of the connection userID is on.
func (c Connection) SideOf(userID string) (Side, error) {
	switch {
	case userID == "":
		return SideNone, fmt.Errorf("connection %s: %w", c.ID, ErrNotParticipant)
	case c.User1ID == userID:
		return SideUser1, nil
	case c.User2ID == userID:
		return SideUser2, nil
	}
	return SideNone, fmt.Errorf("connection %s: %w", c.ID, ErrNotParticipant)
}

// PeerOf returns the other participant's id.
func (c Connection) PeerOf(userID string) (string, error) {
	side, err := c.SideOf(userID)
	if err != nil {
		return "", err
	}
	if side == SideUser1 {
		return c.User2ID, nil
	}
	return c.User1ID, nil
}

// NotesFor returns the notes userID wrote about the peer.
func (c Connection) NotesFor(userID string) string {
	switch side, _ := c.SideOf(userID); side {
	case SideUser1:
		return c.User1Notes
	case SideUser2:
		return c.User2Notes
	}
	return ""
}

// IsFavoriteFor reports whether userID marked the peer as favorite.
func (c Connection) IsFavoriteFor(userID string) bool {
	switch side, _ := c.SideOf(userID); side {
	case SideUser1:
		return c.User1FavoritedUser2
	case SideUser2:
		return c.User2FavoritedUser1
	}
	return false
}

// SetNotes writes notes on userID's side.
func (c *Connection) SetNotes(userID, notes string) error {
	side, err := c.SideOf(userID)
	if err != nil {
		return err
	}
	if side == SideUser1 {
		c.User1Notes = notes
	} else {
		c.User2Notes = notes
	}
	return nil
}

// ToggleFavorite flips the favorite flag on userID's side and returns the new value.
func (c *Connection) ToggleFavorite(userID string) (bool, error) {
	side, err := c.SideOf(userID)
	if err != nil {
		return false, err
	}
	if side == SideUser1 {
		c.User1FavoritedUser2 = !c.User1FavoritedUser2
		return c.User1FavoritedUser2, nil
	}
	c.User2FavoritedUser1 = !c.User2FavoritedUser1
	return c.User2FavoritedUser1, nil
}

// Links reports whether the connection joins a and b, in either order.
func (c Connection) Links(a, b string) bool {
	return (c.User1ID == a && c.User2ID == b) || (c.User1ID == b && c.User2ID == a)
}

// CloneConnections copies a connection slice. A nil input yields an empty slice.
func CloneConnections(in []Connection) []Connection {
	out := make([]Connection, len(in))
	copy(out, in)
	return out
}
