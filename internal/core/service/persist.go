package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pich-app/pich-core/internal/core/domain"
	"github.com/pich-app/pich-core/internal/core/ports"
	"github.com/pich-app/pich-core/internal/pkg/metrics"
)

// Persisted slices. Cards and connections are always re-fetched and never stored.
const (
	KeyAuth     = "auth"
	KeyUser     = "user"
	KeySettings = "settings"
)

const (
	defaultPrefix = "pich:"
	writeTimeout  = 5 * time.Second
)

type pendingWrite struct {
	seq    uint64
	value  string
	remove bool
}

type waiter struct {
	seq uint64
	ch  chan struct{}
}

// GateOptions tunes a Gate.
type GateOptions struct {
	// Prefix is prepended to every storage key. Defaults to "pich:".
	Prefix string
	// Debounce delays each flush to batch bursts of writes. Zero flushes immediately.
	Debounce time.Duration
}

// Gate bridges the whitelisted store slices and durable storage. Writes are
// coalesced per key and applied by a single writer goroutine in issuance
// order, so an older value never overwrites a newer one.
type Gate struct {
	kv       ports.KeyValueStore
	prefix   string
	debounce time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	pending map[string]pendingWrite
	seq     uint64
	written uint64
	waiters []waiter
	closed  bool

	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewGate starts the writer goroutine. Call Close to flush and stop it.
func NewGate(kv ports.KeyValueStore, log zerolog.Logger, opts GateOptions) *Gate {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	g := &Gate{
		kv:       kv,
		prefix:   prefix,
		debounce: opts.Debounce,
		log:      log,
		pending:  make(map[string]pendingWrite),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go g.run()
	return g
}

// Save serialises v and schedules it for key. It never blocks on storage.
func (g *Gate) Save(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("failed to encode persisted state")
		return
	}
	g.enqueue(key, pendingWrite{value: string(data)})
}

// Remove schedules the deletion of key.
func (g *Gate) Remove(key string) {
	g.enqueue(key, pendingWrite{remove: true})
}

func (g *Gate) enqueue(key string, w pendingWrite) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		g.log.Warn().Str("key", key).Msg("persistence gate closed, write dropped")
		return
	}
	g.seq++
	w.seq = g.seq
	g.pending[key] = w
	metrics.PersistPending.Set(float64(len(g.pending)))
	g.mu.Unlock()

	select {
	case g.wake <- struct{}{}:
	default:
	}
}

// Sync blocks until every write scheduled before the call has been attempted.
func (g *Gate) Sync(ctx context.Context) error {
	g.mu.Lock()
	if g.written >= g.seq {
		g.mu.Unlock()
		return nil
	}
	w := waiter{seq: g.seq, ch: make(chan struct{})}
	g.waiters = append(g.waiters, w)
	g.mu.Unlock()

	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending writes and stops the writer. Safe to call twice.
func (g *Gate) Close(ctx context.Context) error {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()
		close(g.quit)
	})
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gate) run() {
	defer close(g.done)
	for {
		select {
		case <-g.quit:
			g.flush()
			return
		case <-g.wake:
			if g.debounce > 0 {
				timer := time.NewTimer(g.debounce)
				select {
				case <-timer.C:
				case <-g.quit:
					timer.Stop()
					g.flush()
					return
				}
			}
			g.flush()
		}
	}
}

// flush drains the pending map until it is empty.
func (g *Gate) flush() {
	for {
		g.mu.Lock()
		if len(g.pending) == 0 {
			g.mu.Unlock()
			return
		}
		batch := g.pending
		upto := g.seq
		g.pending = make(map[string]pendingWrite)
		metrics.PersistPending.Set(0)
		g.mu.Unlock()

		keys := make([]string, 0, len(batch))
		for k := range batch {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return batch[keys[i]].seq < batch[keys[j]].seq })

		for _, k := range keys {
			g.write(k, batch[k])
		}

		g.mu.Lock()
		g.written = upto
		remaining := g.waiters[:0]
		for _, w := range g.waiters {
			if w.seq <= g.written {
				close(w.ch)
				continue
			}
			remaining = append(remaining, w)
		}
		g.waiters = remaining
		g.mu.Unlock()
	}
}

func (g *Gate) write(key string, w pendingWrite) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	op := "set"
	var err error
	if w.remove {
		op = "remove"
		err = g.kv.Remove(ctx, g.prefix+key)
	} else {
		err = g.kv.Set(ctx, g.prefix+key, w.value)
	}
	metrics.PersistWritesTotal.WithLabelValues(op, metrics.Result(err)).Inc()
	if err != nil {
		g.log.Warn().Err(fmt.Errorf("%w: %v", domain.ErrPersistence, err)).
			Str("key", key).
			Str("op", op).
			Msg("durable write failed, continuing in memory")
	}
}

// load decodes key into dst and reports whether a usable value was found.
// Read and decode failures are logged and treated as absent.
func (g *Gate) load(ctx context.Context, key string, dst any) bool {
	raw, ok, err := g.kv.Get(ctx, g.prefix+key)
	if err != nil {
		g.log.Warn().Err(fmt.Errorf("%w: %v", domain.ErrPersistence, err)).
			Str("key", key).
			Msg("restore failed, falling back to defaults")
		return false
	}
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("corrupt persisted state ignored")
		return false
	}
	return true
}

// LoadAuth returns the persisted session, or nil when absent or unusable.
func (g *Gate) LoadAuth(ctx context.Context) *domain.AuthRecord {
	var rec domain.AuthRecord
	if !g.load(ctx, KeyAuth, &rec) || !rec.Valid() {
		return nil
	}
	return &rec
}

// LoadProfile returns the persisted user profile, or nil.
func (g *Gate) LoadProfile(ctx context.Context) *domain.UserProfile {
	var p domain.UserProfile
	if !g.load(ctx, KeyUser, &p) || p.ID == "" {
		return nil
	}
	return &p
}

// LoadSettings returns the persisted settings, or the defaults.
func (g *Gate) LoadSettings(ctx context.Context) domain.Settings {
	s := domain.DefaultSettings()
	if !g.load(ctx, KeySettings, &s) {
		return domain.DefaultSettings()
	}
	return s
}
