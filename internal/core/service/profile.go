package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
	"github.com/pich-app/pich-core/internal/pkg/validation"
)

// ProfileState is a snapshot of the cached user profile.
type ProfileState struct {
	Profile *domain.UserProfile `json:"profile,omitempty"`
	QRCode  string              `json:"qrCode,omitempty"`
	Loading bool                `json:"loading"`
	Err     string              `json:"error,omitempty"`
}

// ProfileCache holds the logged-in user's profile and QR code. Every commit
// is mirrored into the session user and persisted under KeyUser.
type ProfileCache struct {
	slice
	remote ports.ProfileRemote
	qr     ports.QRRemote
	gate   *Gate

	profile *domain.UserProfile
	qrCode  string
}

// NewProfileCache wires the cache to session and card events.
func NewProfileCache(bus *Bus, session *SessionStore, remote ports.ProfileRemote, qr ports.QRRemote, gate *Gate, log zerolog.Logger) *ProfileCache {
	c := &ProfileCache{
		slice:  slice{name: "profile", bus: bus, session: session, log: log},
		remote: remote,
		qr:     qr,
		gate:   gate,
	}
	bus.On(EventSessionEnded, func(Event) {
		c.slice.resetLocked()
		c.profile = nil
		c.qrCode = ""
		c.gate.Remove(KeyUser)
	})
	bus.On(EventCardDeleted, func(ev Event) {
		c.editMainCardLocked(func(p *domain.UserProfile) bool {
			if p.MainCardID != ev.CardID {
				return false
			}
			p.MainCardID = ""
			return true
		})
	})
	bus.On(EventMainCardChanged, func(ev Event) {
		c.editMainCardLocked(func(p *domain.UserProfile) bool {
			switch {
			case ev.Main && p.MainCardID != ev.CardID:
				p.MainCardID = ev.CardID
				return true
			case !ev.Main && p.MainCardID == ev.CardID:
				p.MainCardID = ""
				return true
			}
			return false
		})
	})
	return c
}

// State returns a copy of the profile slice.
func (c *ProfileCache) State() ProfileState {
	var out ProfileState
	c.bus.read(func() { out = c.stateLocked() })
	return out
}

func (c *ProfileCache) stateLocked() ProfileState {
	st := ProfileState{QRCode: c.qrCode, Loading: c.inflight > 0, Err: c.err}
	if c.profile != nil {
		p := c.profile.Clone()
		st.Profile = &p
	}
	return st
}

// hydrate installs a persisted profile if it belongs to the restored session.
func (c *ProfileCache) hydrate(p *domain.UserProfile) {
	if p == nil {
		return
	}
	_ = c.bus.do(func() error {
		if c.session.userIDLocked() != p.ID {
			return nil
		}
		cp := p.Clone()
		c.profile = &cp
		return nil
	})
}

// Fetch loads the profile from the backend.
func (c *ProfileCache) Fetch(ctx context.Context) error {
	ctx, gen, err := c.start(ctx, nil)
	if err != nil {
		return err
	}

	p, err := c.remote.FetchProfile(ctx)
	if err == nil && p == nil {
		err = fmt.Errorf("profile.fetch: empty response")
	}
	c.finish("profile.fetch", gen, err, func() {
		c.setLocked(*p)
	})
	return err
}

// Update sends a partial profile and installs the full record returned.
func (c *ProfileCache) Update(ctx context.Context, patch ports.ProfilePatch) (*domain.UserProfile, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, c.fail(err)
	}

	var id string
	c.bus.read(func() {
		if c.profile != nil {
			id = c.profile.ID
			return
		}
		id = c.session.userIDLocked()
	})
	if id == "" {
		return nil, ErrNotAuthenticated
	}

	ctx, gen, err := c.start(ctx, nil)
	if err != nil {
		return nil, err
	}

	p, err := c.remote.UpdateProfile(ctx, id, patch)
	if err == nil && p == nil {
		err = fmt.Errorf("profile.update: empty response")
	}
	c.finish("profile.update", gen, err, func() {
		c.setLocked(*p)
	})
	if err != nil {
		return nil, err
	}
	out := p.Clone()
	return &out, nil
}

// FetchQRCode loads the caller's QR code data URL.
func (c *ProfileCache) FetchQRCode(ctx context.Context) (string, error) {
	return c.loadQR(ctx, "qrcode.fetch", c.qr.FetchQRCode)
}

// RefreshQRCode rotates the caller's QR code.
func (c *ProfileCache) RefreshQRCode(ctx context.Context) (string, error) {
	return c.loadQR(ctx, "qrcode.refresh", c.qr.RefreshQRCode)
}

func (c *ProfileCache) loadQR(ctx context.Context, op string, call func(context.Context) (string, error)) (string, error) {
	ctx, gen, err := c.start(ctx, nil)
	if err != nil {
		return "", err
	}

	url, err := call(ctx)
	c.finish(op, gen, err, func() {
		c.qrCode = url
	})
	if err != nil {
		return "", err
	}
	return url, nil
}

func (c *ProfileCache) setLocked(p domain.UserProfile) {
	cp := p.Clone()
	c.profile = &cp
	c.gate.Save(KeyUser, cp)
	c.session.syncUserLocked(cp)
}

// editMainCardLocked applies edit to the cached profile, falling back to the
// session user when the profile has not been fetched yet.
func (c *ProfileCache) editMainCardLocked(edit func(*domain.UserProfile) bool) {
	var p domain.UserProfile
	switch {
	case c.profile != nil:
		p = c.profile.Clone()
	case c.session.state.User != nil:
		p = c.session.state.User.Clone()
	default:
		return
	}
	if !edit(&p) {
		return
	}
	if c.profile != nil {
		c.setLocked(p)
		return
	}
	c.session.syncUserLocked(p)
}
