package core

import "sync"

// Watchable is a value whose changes can be observed. Watch registers a
// single-shot callback and returns a function cancelling it.
type Watchable interface {
	Watch(fn func()) (cancel func())
}

// Binding is a reactive value. Watchers fire once, on the next Set.
type Binding[T any] struct {
	watchers map[uint64]func()
	value    T
	next     uint64
	mu       sync.Mutex
}

// NewBinding creates a binding holding v.
func NewBinding[T any](v T) *Binding[T] {
	return &Binding[T]{value: v, watchers: make(map[uint64]func())}
}

// Get returns the current value.
func (b *Binding[T]) Get() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Set stores v and fires every pending watcher outside the lock.
func (b *Binding[T]) Set(v T) {
	b.mu.Lock()
	b.value = v
	fire := b.drain()
	b.mu.Unlock()

	for _, fn := range fire {
		fn()
	}
}

// Update applies fn to the current value and stores the result.
func (b *Binding[T]) Update(fn func(T) T) {
	b.mu.Lock()
	b.value = fn(b.value)
	fire := b.drain()
	b.mu.Unlock()

	for _, fn := range fire {
		fn()
	}
}

// drain removes and returns every watcher. Caller holds mu.
func (b *Binding[T]) drain() []func() {
	fire := make([]func(), 0, len(b.watchers))
	for _, fn := range b.watchers {
		fire = append(fire, fn)
	}
	clear(b.watchers)
	return fire
}

// Watch implements Watchable.
func (b *Binding[T]) Watch(fn func()) func() {
	b.mu.Lock()
	b.next++
	id := b.next
	b.watchers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.watchers, id)
		b.mu.Unlock()
	}
}

// Watchers returns the number of pending watchers.
func (b *Binding[T]) Watchers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watchers)
}
