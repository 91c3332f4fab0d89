package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
	"github.com/pich-app/pich-core/internal/pkg/metrics"
	"github.com/pich-app/pich-core/internal/pkg/validation"
)

// ErrSessionBusy is returned when a login or registration is already in flight.
var ErrSessionBusy = errors.New("session operation already in progress")

// SessionStore owns the authentication state machine:
//
//	uninitialized → initializing → {authenticated, unauthenticated}
//	unauthenticated ⇄ authenticated
type SessionStore struct {
	bus    *Bus
	remote ports.AuthRemote
	gate   *Gate
	log    zerolog.Logger

	// onAuthenticated runs after a successful login or registration.
	onAuthenticated func(ctx context.Context)

	state domain.Session // guarded by bus.mu
}

// NewSessionStore returns a store in the uninitialized state.
func NewSessionStore(bus *Bus, remote ports.AuthRemote, gate *Gate, log zerolog.Logger) *SessionStore {
	return &SessionStore{
		bus:    bus,
		remote: remote,
		gate:   gate,
		log:    log,
		state:  domain.Session{Status: domain.SessionUninitialized},
	}
}

// State returns a copy of the session.
func (s *SessionStore) State() domain.Session {
	var out domain.Session
	s.bus.read(func() { out = s.state.Clone() })
	return out
}

// Init restores the persisted token and user. It never fails: unreadable or
// missing state resolves to unauthenticated. Calls after the first are no-ops.
func (s *SessionStore) Init(ctx context.Context) error {
	err := s.bus.do(func() error {
		return s.transitionLocked(domain.SessionInitializing)
	})
	if err != nil {
		return nil
	}

	rec := s.gate.LoadAuth(ctx)

	_ = s.bus.do(func() error {
		if rec == nil {
			return s.transitionLocked(domain.SessionUnauthenticated)
		}
		if err := s.transitionLocked(domain.SessionAuthenticated); err != nil {
			return err
		}
		u := rec.User.Clone()
		s.state.Token = rec.Token
		s.state.User = &u
		return nil
	})

	st := s.State()
	s.log.Info().Str("status", string(st.Status)).Msg("session initialised")
	return nil
}

// Login authenticates with the remote backend. On failure the remote message
// is mirrored on the session and the error is returned unchanged.
func (s *SessionStore) Login(ctx context.Context, creds ports.Credentials) error {
	return s.authenticate(ctx, "auth.login", creds, func(ctx context.Context) (*ports.AuthResult, error) {
		return s.remote.Login(ctx, creds.Email, creds.Password)
	})
}

// Register creates an account and logs it in.
func (s *SessionStore) Register(ctx context.Context, in ports.RegisterInput) error {
	return s.authenticate(ctx, "auth.register", in, func(ctx context.Context) (*ports.AuthResult, error) {
		return s.remote.Register(ctx, in)
	})
}

func (s *SessionStore) authenticate(ctx context.Context, op string, input any, call func(context.Context) (*ports.AuthResult, error)) error {
	if err := validation.Struct(input); err != nil {
		_ = s.bus.do(func() error {
			s.state.Err = domain.Message(err)
			return nil
		})
		return err
	}

	err := s.bus.do(func() error {
		if s.state.Loading {
			return ErrSessionBusy
		}
		if !s.state.Status.CanTransitionTo(domain.SessionAuthenticated) || s.state.Status == domain.SessionInitializing {
			return fmt.Errorf("%s from %s: %w", op, s.state.Status, domain.ErrInvalidTransition)
		}
		s.state.Loading = true
		s.state.Err = ""
		return nil
	})
	if err != nil {
		return err
	}

	res, err := call(ctx)
	metrics.RemoteCallsTotal.WithLabelValues(op, metrics.Result(err)).Inc()
	if err == nil && (res == nil || res.AccessToken == "" || res.User.ID == "") {
		err = domain.NewRemoteError(op, http.StatusBadGateway, "Malformed authentication response")
	}
	if err != nil {
		_ = s.bus.do(func() error {
			s.state.Loading = false
			s.state.Err = domain.Message(err)
			return nil
		})
		s.log.Warn().Err(err).Str("op", op).Msg("authentication failed")
		return err
	}

	user := res.User.Clone()
	s.gate.Save(KeyAuth, domain.AuthRecord{Token: res.AccessToken, User: &user})
	if err := s.gate.Sync(ctx); err != nil {
		s.log.Warn().Err(err).Msg("waiting for session persistence")
	}

	_ = s.bus.do(func() error {
		s.state.Loading = false
		if err := s.transitionLocked(domain.SessionAuthenticated); err != nil {
			return err
		}
		s.state.Token = res.AccessToken
		s.state.User = &user
		s.state.Err = ""
		return nil
	})

	s.log.Info().Str("op", op).Str("user_id", user.ID).Msg("session authenticated")

	if s.onAuthenticated != nil {
		s.onAuthenticated(ctx)
	}
	return nil
}

// Logout ends the session. The remote call is best-effort; local state is
// cleared regardless and every entity cache is invalidated. Calling Logout
// without a session is a no-op, and a logout that resolves after its session
// already ended leaves any newer session alone.
func (s *SessionStore) Logout(ctx context.Context) error {
	var (
		token string
		gen   uint64
	)
	s.bus.read(func() {
		if s.state.Status == domain.SessionAuthenticated {
			token = s.state.Token
			gen = s.bus.gen
		}
	})
	if token == "" {
		return nil
	}

	err := s.remote.Logout(ports.WithToken(ctx, token))
	metrics.RemoteCallsTotal.WithLabelValues("auth.logout", metrics.Result(err)).Inc()
	if err != nil {
		s.log.Warn().Err(err).Msg("remote logout failed, clearing local session anyway")
	}

	if !s.end(gen, "logout") {
		s.log.Debug().Err(domain.ErrStaleState).Uint64("generation", gen).Msg("session already ended before logout resolved")
	}
	return nil
}

// Expire ends the session without contacting the backend.
func (s *SessionStore) Expire(cause error) {
	s.expire(0, cause)
}

// expire ends the session started at gen after an unauthorized response.
func (s *SessionStore) expire(gen uint64, cause error) {
	if s.end(gen, "expired") {
		metrics.ImplicitLogoutsTotal.Inc()
		s.log.Warn().Err(cause).Msg("session expired, logged out")
	}
}

func (s *SessionStore) end(gen uint64, reason string) bool {
	ended := s.bus.endSession(gen, reason, func() bool {
		if s.state.Status != domain.SessionAuthenticated {
			return false
		}
		if err := s.transitionLocked(domain.SessionUnauthenticated); err != nil {
			return false
		}
		s.state.Token = ""
		s.state.User = nil
		s.state.Loading = false
		s.gate.Remove(KeyAuth)
		return true
	})
	if ended {
		s.log.Info().Str("reason", reason).Msg("session ended")
	}
	return ended
}

// ClearError resets the mirrored error without touching authentication.
func (s *SessionStore) ClearError() {
	_ = s.bus.do(func() error {
		s.state.Err = ""
		return nil
	})
}

// transitionLocked moves the state machine. The caller holds bus.mu.
func (s *SessionStore) transitionLocked(next domain.SessionStatus) error {
	if !s.state.Status.CanTransitionTo(next) {
		return fmt.Errorf("%s to %s: %w", s.state.Status, next, domain.ErrInvalidTransition)
	}
	s.state.Status = next
	metrics.SessionTransitionsTotal.WithLabelValues(string(next)).Inc()
	return nil
}

// tokenLocked returns the bearer token of an authenticated session.
func (s *SessionStore) tokenLocked() (string, error) {
	if s.state.Status != domain.SessionAuthenticated {
		return "", ErrNotAuthenticated
	}
	return s.state.Token, nil
}

// userIDLocked returns the id of the logged-in user, or "".
func (s *SessionStore) userIDLocked() string {
	if s.state.User == nil {
		return ""
	}
	return s.state.User.ID
}

// syncUserLocked replaces the session user with a fresher profile and
// persists it. Ignored when p belongs to someone else.
func (s *SessionStore) syncUserLocked(p domain.UserProfile) {
	if s.state.Status != domain.SessionAuthenticated || s.state.User == nil || s.state.User.ID != p.ID {
		return
	}
	u := p.Clone()
	s.state.User = &u
	s.gate.Save(KeyAuth, domain.AuthRecord{Token: s.state.Token, User: &u})
}
