package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
	"github.com/pich-app/pich-core/pkg/logger"
)

// Deps are the collaborators of a Store.
type Deps struct {
	Remote          ports.Remote
	Storage         ports.KeyValueStore
	Logger          zerolog.Logger
	StoragePrefix   string
	PersistDebounce time.Duration
}

// Snapshot is a consistent view of every slice, taken in one critical section.
type Snapshot struct {
	Session     domain.Session   `json:"session"`
	Cards       CardsState       `json:"cards"`
	Connections ConnectionsState `json:"connections"`
	Profile     ProfileState     `json:"profile"`
	Settings    domain.Settings  `json:"settings"`
	Generation  uint64           `json:"generation"`
}

// Store is one isolated client state container. Nothing is shared between
// stores, so tests and multiple accounts can run side by side.
type Store struct {
	Session     *SessionStore
	Cards       *CardCache
	Connections *ConnectionCache
	Profile     *ProfileCache
	Settings    *SettingsStore

	bus  *Bus
	gate *Gate
	log  zerolog.Logger
}

// NewStore wires the slices together. Call Init before use and Dispose when done.
func NewStore(deps Deps) (*Store, error) {
	if deps.Remote == nil {
		return nil, errors.New("store: remote is required")
	}
	if deps.Storage == nil {
		return nil, errors.New("store: storage is required")
	}

	log := deps.Logger
	bus := NewBus()
	gate := NewGate(deps.Storage, logger.Component(log, "persist"), GateOptions{
		Prefix:   deps.StoragePrefix,
		Debounce: deps.PersistDebounce,
	})

	session := NewSessionStore(bus, deps.Remote, gate, logger.Component(log, "session"))
	s := &Store{
		Session:     session,
		Cards:       NewCardCache(bus, session, deps.Remote, logger.Component(log, "cards")),
		Connections: NewConnectionCache(bus, session, deps.Remote, logger.Component(log, "connections")),
		Profile:     NewProfileCache(bus, session, deps.Remote, deps.Remote, gate, logger.Component(log, "profile")),
		Settings:    NewSettingsStore(bus, gate, logger.Component(log, "settings")),
		bus:         bus,
		gate:        gate,
		log:         log,
	}

	session.onAuthenticated = func(ctx context.Context) {
		if err := s.Profile.Fetch(ctx); err != nil {
			s.log.Warn().Err(err).Msg("profile fetch after login failed")
		}
	}
	return s, nil
}

// Init restores persisted settings and session. A restored session also gets
// its cached profile back when it belongs to the same user.
func (s *Store) Init(ctx context.Context) error {
	s.Settings.hydrate(ctx)
	if err := s.Session.Init(ctx); err != nil {
		return err
	}
	if s.Session.State().IsAuthenticated() {
		s.Profile.hydrate(s.gate.LoadProfile(ctx))
	}
	return nil
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned func removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.bus.listen(func() { fn(s.Snapshot()) })
}

// Snapshot returns every slice as of one instant.
func (s *Store) Snapshot() Snapshot {
	var snap Snapshot
	s.bus.read(func() {
		snap = Snapshot{
			Session:     s.Session.state.Clone(),
			Cards:       s.Cards.stateLocked(),
			Connections: s.Connections.stateLocked(),
			Profile:     s.Profile.stateLocked(),
			Settings:    s.Settings.settings,
			Generation:  s.bus.gen,
		}
	})
	return snap
}

// Generation returns the current session generation.
func (s *Store) Generation() uint64 {
	return s.bus.Generation()
}

// Sync waits for pending persistence writes.
func (s *Store) Sync(ctx context.Context) error {
	return s.gate.Sync(ctx)
}

// Dispose flushes persistence and detaches subscribers.
func (s *Store) Dispose(ctx context.Context) error {
	s.bus.clearListeners()
	return s.gate.Close(ctx)
}
