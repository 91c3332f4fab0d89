package service

import "sync"

// EventKind identifies a cross-slice notification.
type EventKind int

const (
	// EventSessionEnded is published when the session leaves Authenticated,
	// by explicit logout or after an unauthorized response.
	EventSessionEnded EventKind = iota + 1
	// EventCardDeleted carries the id of a card removed from the collection.
	EventCardDeleted
	// EventMainCardChanged carries the card whose main flag was set or cleared.
	EventMainCardChanged
)

func (k EventKind) String() string {
	switch k {
	case EventSessionEnded:
		return "session_ended"
	case EventCardDeleted:
		return "card_deleted"
	case EventMainCardChanged:
		return "main_card_changed"
	}
	return "unknown"
}

// Event is delivered to handlers registered with Bus.On.
type Event struct {
	Kind   EventKind
	CardID string
	Main   bool
	Reason string
}

// Bus serialises every state change of one Store and fans out events between
// its slices. All slice state is guarded by the bus lock.
//
// The generation starts at 1 and is bumped each time a session ends. Remote
// calls capture it before suspending and commit only if it is unchanged.
type Bus struct {
	mu       sync.Mutex
	gen      uint64
	handlers map[EventKind][]func(Event)

	lmu       sync.Mutex
	listeners map[int]func()
	nextID    int
}

// NewBus returns an empty Bus at generation 1.
func NewBus() *Bus {
	return &Bus{
		gen:       1,
		handlers:  make(map[EventKind][]func(Event)),
		listeners: make(map[int]func()),
	}
}

// On registers a handler. Handlers run synchronously with the store lock held,
// so they must only touch slice state directly and never call Store methods.
func (b *Bus) On(kind EventKind, fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], fn)
}

// Generation returns the current generation.
func (b *Bus) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

// begin runs fn under the lock and returns the generation it observed.
func (b *Bus) begin(fn func() error) (uint64, error) {
	b.mu.Lock()
	gen := b.gen
	err := fn()
	b.mu.Unlock()
	if err != nil {
		return 0, err
	}
	b.notify()
	return gen, nil
}

// commit applies fn only if gen is still current and reports whether it did.
func (b *Bus) commit(gen uint64, fn func()) bool {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return false
	}
	fn()
	b.mu.Unlock()
	b.notify()
	return true
}

// do applies fn unconditionally.
func (b *Bus) do(fn func() error) error {
	b.mu.Lock()
	err := fn()
	b.mu.Unlock()
	b.notify()
	return err
}

// read runs fn under the lock without notifying listeners.
func (b *Bus) read(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn()
}

// endSession runs fn and, when it reports a transition, bumps the generation
// and publishes EventSessionEnded in the same critical section. gen 0 matches
// any generation.
func (b *Bus) endSession(gen uint64, reason string, fn func() bool) bool {
	b.mu.Lock()
	if gen != 0 && gen != b.gen {
		b.mu.Unlock()
		return false
	}
	if !fn() {
		b.mu.Unlock()
		return false
	}
	b.gen++
	b.publishLocked(Event{Kind: EventSessionEnded, Reason: reason})
	b.mu.Unlock()
	b.notify()
	return true
}

// publishLocked delivers ev to its handlers. The caller holds b.mu.
func (b *Bus) publishLocked(ev Event) {
	for _, fn := range b.handlers[ev.Kind] {
		fn(ev)
	}
}

// listen registers a change listener and returns its removal func.
func (b *Bus) listen(fn func()) func() {
	b.lmu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.lmu.Lock()
			delete(b.listeners, id)
			b.lmu.Unlock()
		})
	}
}

func (b *Bus) clearListeners() {
	b.lmu.Lock()
	b.listeners = make(map[int]func())
	b.lmu.Unlock()
}

// notify calls every change listener outside the store lock.
func (b *Bus) notify() {
	b.lmu.Lock()
	fns := make([]func(), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.lmu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
