package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
	"github.com/pich-app/pich-core/internal/pkg/metrics"
)

// ErrNotAuthenticated is returned by protected operations called without a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// slice holds the loading/error bookkeeping shared by the entity caches.
// Every field is guarded by bus.mu.
type slice struct {
	name     string
	bus      *Bus
	session  *SessionStore
	log      zerolog.Logger
	inflight int
	err      string
}

// start captures the generation and bearer token for a protected call and
// marks the slice as loading. extra runs in the same critical section.
func (s *slice) start(ctx context.Context, extra func()) (context.Context, uint64, error) {
	var token string
	gen, err := s.bus.begin(func() error {
		t, err := s.session.tokenLocked()
		if err != nil {
			return err
		}
		token = t
		s.inflight++
		if extra != nil {
			extra()
		}
		return nil
	})
	if err != nil {
		return ctx, 0, err
	}
	return ports.WithToken(ctx, token), gen, nil
}

// finish commits the outcome of a remote call started at gen and reports
// whether it was applied. A false return means the response is stale: the
// store is left untouched and nothing is mirrored on the slice.
func (s *slice) finish(op string, gen uint64, callErr error, apply func()) bool {
	return s.finishIf(op, gen, callErr, nil, apply)
}

// finishIf is finish with an extra check run under the lock. When current
// reports false the response was superseded and is dropped like a stale one,
// error included.
func (s *slice) finishIf(op string, gen uint64, callErr error, current func() bool, apply func()) bool {
	metrics.RemoteCallsTotal.WithLabelValues(op, metrics.Result(callErr)).Inc()

	superseded := false
	committed := s.bus.commit(gen, func() {
		s.inflight--
		if current != nil && !current() {
			superseded = true
			return
		}
		if callErr != nil {
			s.err = domain.Message(callErr)
			return
		}
		s.err = ""
		if apply != nil {
			apply()
		}
	})
	if !committed || superseded {
		metrics.StaleResponsesTotal.WithLabelValues(s.name).Inc()
		s.log.Debug().Err(domain.ErrStaleState).
			Str("op", op).
			Uint64("generation", gen).
			Bool("superseded", superseded).
			Msg("response discarded")
		return false
	}

	if callErr != nil {
		s.log.Warn().Err(callErr).Str("op", op).Msg("remote call failed")
		if errors.Is(callErr, domain.ErrUnauthorized) {
			s.session.expire(gen, callErr)
		}
	}
	return true
}

// fail mirrors an error raised before any remote call.
func (s *slice) fail(err error) error {
	_ = s.bus.do(func() error {
		s.err = domain.Message(err)
		return nil
	})
	return err
}

func (s *slice) resetLocked() {
	s.inflight = 0
	s.err = ""
}

// ClearError resets the mirrored error of the slice.
func (s *slice) ClearError() {
	_ = s.bus.do(func() error {
		s.err = ""
		return nil
	})
}
