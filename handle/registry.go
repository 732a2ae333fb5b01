package handle

import (
	"sync"

	"github.com/wippyai/view-bridge/errors"
	"go.uber.org/zap"
)

// Mode selects whether a callback survives invocation.
type Mode uint8

const (
	// Once entries are removed by the invocation that runs them.
	Once Mode = iota
	// Many entries stay until Remove.
	Many
)

// Callback is consumer logic redeemable by handle.
type Callback func()

type regEntry struct {
	cb   Callback
	mode Mode
}

// Registry maps integer handles to consumer-owned callbacks. Insert, Get,
// Remove and the lookup half of Invoke are serialized by one mutex; the
// callback body always runs outside it.
type Registry struct {
	entries map[uint64]regEntry
	obs     observers
	next    uint64
	mu      sync.Mutex
	obsMu   sync.RWMutex
	closed  bool
}

// NewRegistry creates an empty registry. Handles start at 1.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[uint64]regEntry),
	}
}

// Insert stores cb and returns its handle.
func (r *Registry) Insert(cb Callback, mode Mode) (uint64, error) {
	if cb == nil {
		return 0, errors.InvalidInput(errors.PhaseHandle, "nil callback")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, errors.New(errors.PhaseHandle, errors.KindClosed).
			Detail("registry closed").
			Build()
	}
	r.next++
	h := r.next
	r.entries[h] = regEntry{cb: cb, mode: mode}
	r.mu.Unlock()

	r.notify(Event{Type: EventCreated, Handle: h})
	return h, nil
}

// Get returns the callback behind h without running it.
func (r *Registry) Get(h uint64) (Callback, error) {
	r.mu.Lock()
	e, ok := r.entries[h]
	r.mu.Unlock()

	if !ok {
		return nil, errors.StaleHandle(h)
	}
	return e.cb, nil
}

// Remove deletes h.
func (r *Registry) Remove(h uint64) error {
	r.mu.Lock()
	_, ok := r.entries[h]
	delete(r.entries, h)
	r.mu.Unlock()

	if !ok {
		return errors.StaleHandle(h)
	}
	r.notify(Event{Type: EventRemoved, Handle: h})
	return nil
}

// Invoke runs the callback behind h, removing single-shot entries first.
// It is safe to call from any goroutine, concurrently with Remove.
func (r *Registry) Invoke(h uint64) error {
	r.mu.Lock()
	e, ok := r.entries[h]
	if ok && e.mode == Once {
		delete(r.entries, h)
	}
	r.mu.Unlock()

	if !ok {
		Logger().Debug("invoke of stale callback handle", zap.Uint64("handle", h))
		return errors.StaleHandle(h)
	}

	r.notify(Event{Type: EventInvoked, Handle: h})
	e.cb()
	return nil
}

// Len returns the number of registered callbacks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close removes every callback and rejects later inserts.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	r.entries = make(map[uint64]regEntry)
	r.mu.Unlock()
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.obs.add(o)
}

// Unsubscribe removes an observer.
func (r *Registry) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.obs.remove(o)
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.obs.list {
		o.OnHandleEvent(e)
	}
}
