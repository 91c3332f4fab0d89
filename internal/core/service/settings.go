package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/pkg/validation"
)

// SettingsStore holds device preferences. They survive logout.
type SettingsStore struct {
	bus  *Bus
	gate *Gate
	log  zerolog.Logger

	settings domain.Settings // guarded by bus.mu
}

// NewSettingsStore returns a store holding the default settings.
func NewSettingsStore(bus *Bus, gate *Gate, log zerolog.Logger) *SettingsStore {
	return &SettingsStore{bus: bus, gate: gate, log: log, settings: domain.DefaultSettings()}
}

// State returns the current settings.
func (s *SettingsStore) State() domain.Settings {
	var out domain.Settings
	s.bus.read(func() { out = s.settings })
	return out
}

func (s *SettingsStore) hydrate(ctx context.Context) {
	loaded := s.gate.LoadSettings(ctx)
	if err := validation.Struct(loaded); err != nil {
		s.log.Warn().Err(err).Msg("persisted settings rejected, using defaults")
		loaded = domain.DefaultSettings()
	}
	_ = s.bus.do(func() error {
		s.settings = loaded
		return nil
	})
}

// Update applies fn to a copy of the settings and commits it if still valid.
// fn runs outside the store lock, so it may read the store. If the settings
// change while fn runs, fn is applied again to the newer value.
func (s *SettingsStore) Update(_ context.Context, fn func(*domain.Settings)) error {
	for {
		base := s.State()
		next := base
		fn(&next)
		if err := validation.Struct(next); err != nil {
			return err
		}

		applied := false
		_ = s.bus.do(func() error {
			if s.settings != base {
				return nil
			}
			s.settings = next
			s.gate.Save(KeySettings, next)
			applied = true
			return nil
		})
		if applied {
			return nil
		}
	}
}

// Reset restores the defaults.
func (s *SettingsStore) Reset(_ context.Context) error {
	return s.bus.do(func() error {
		s.settings = domain.DefaultSettings()
		s.gate.Save(KeySettings, s.settings)
		return nil
	})
}
