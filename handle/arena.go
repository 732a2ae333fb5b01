package handle

import (
	"sync"

	"github.com/wippyai/view-bridge/errors"
	"go.uber.org/zap"
)

// Arena holds producer-owned objects behind generation-tagged handles.
// Several handles may share one object; the object is dropped when the
// last of them is freed.
type Arena struct {
	slots    []slot
	freeList []uint32
	obs      observers
	live     int
	mu       sync.RWMutex
	obsMu    sync.RWMutex
	closed   bool
}

type slot struct {
	obj *object
	gen uint32
}

type object struct {
	value  any
	refs   int
	typeID uint32
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		slots:    make([]slot, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

func pack(idx, gen uint32) uint64 {
	return uint64(gen)<<32 | uint64(idx+1)
}

func unpack(h uint64) (idx, gen uint32, ok bool) {
	lo := uint32(h)
	if lo == 0 {
		return 0, 0, false
	}
	return lo - 1, uint32(h >> 32), true
}

// lookup returns the slot for h. Caller holds mu.
func (a *Arena) lookup(h uint64) (*slot, bool) {
	idx, gen, ok := unpack(h)
	if !ok || int(idx) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[idx]
	if s.obj == nil || s.gen != gen {
		return nil, false
	}
	return s, true
}

// alloc binds obj to a fresh slot. Caller holds mu.
func (a *Arena) alloc(obj *object) uint64 {
	a.live++
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		s := &a.slots[idx]
		s.obj = obj
		return pack(idx, s.gen)
	}
	a.slots = append(a.slots, slot{obj: obj, gen: 1})
	return pack(uint32(len(a.slots)-1), 1)
}

// Insert stores value and returns its first handle. It returns 0 once the
// arena is closed.
func (a *Arena) Insert(typeID uint32, value any) uint64 {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0
	}
	h := a.alloc(&object{value: value, typeID: typeID, refs: 1})
	a.mu.Unlock()

	a.notify(Event{Type: EventCreated, Handle: h, TypeID: typeID, Value: value})
	return h
}

// Get returns the value behind h.
func (a *Arena) Get(h uint64) (any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.lookup(h)
	if !ok {
		Logger().Debug("stale arena handle", zap.Uint64("handle", h))
		return nil, errors.StaleHandle(h)
	}
	return s.obj.value, nil
}

// GetTyped returns the value behind h if it was inserted with typeID.
func (a *Arena) GetTyped(h uint64, typeID uint32) (any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.lookup(h)
	if !ok {
		return nil, errors.StaleHandle(h)
	}
	if s.obj.typeID != typeID {
		return nil, errors.New(errors.PhaseHandle, errors.KindInvalidInput).
			Value(h).
			Detail("handle %#x has type %d, want %d", h, s.obj.typeID, typeID).
			Build()
	}
	return s.obj.value, nil
}

// TypeID returns the type the object behind h was inserted with.
func (a *Arena) TypeID(h uint64) (uint32, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.lookup(h)
	if !ok {
		return 0, false
	}
	return s.obj.typeID, true
}

// Clone returns a new, independently owned handle to the object behind h.
func (a *Arena) Clone(h uint64) (uint64, error) {
	a.mu.Lock()
	s, ok := a.lookup(h)
	if !ok {
		a.mu.Unlock()
		return 0, errors.StaleHandle(h)
	}
	obj := s.obj
	obj.refs++
	c := a.alloc(obj)
	a.mu.Unlock()

	a.notify(Event{Type: EventCloned, Handle: c, TypeID: obj.typeID, Value: obj.value})
	return c, nil
}

// Free releases h. Freeing the last handle to an object drops it.
func (a *Arena) Free(h uint64) error {
	a.mu.Lock()
	s, ok := a.lookup(h)
	if !ok {
		a.mu.Unlock()
		Logger().Debug("free of stale arena handle", zap.Uint64("handle", h))
		return errors.StaleHandle(h)
	}
	obj := s.obj
	s.obj = nil
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	idx, _, _ := unpack(h)
	a.freeList = append(a.freeList, idx)
	a.live--
	obj.refs--
	last := obj.refs == 0
	a.mu.Unlock()

	a.notify(Event{Type: EventFreed, Handle: h, TypeID: obj.typeID, Value: obj.value})
	if last {
		if d, ok := obj.value.(Dropper); ok {
			d.Drop()
		}
		a.notify(Event{Type: EventDropped, Handle: h, TypeID: obj.typeID, Value: obj.value})
	}
	return nil
}

// Len returns the number of live handles.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live
}

// Close drops every live object and rejects later inserts.
func (a *Arena) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true

	seen := make(map[*object]struct{})
	var drop []*object
	for i := range a.slots {
		obj := a.slots[i].obj
		if obj == nil {
			continue
		}
		a.slots[i].obj = nil
		if _, dup := seen[obj]; !dup {
			seen[obj] = struct{}{}
			drop = append(drop, obj)
		}
	}
	a.slots = nil
	a.freeList = nil
	a.live = 0
	a.mu.Unlock()

	for _, obj := range drop {
		if d, ok := obj.value.(Dropper); ok {
			d.Drop()
		}
	}
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (a *Arena) Subscribe(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.obs.add(o)
}

// Unsubscribe removes an observer.
func (a *Arena) Unsubscribe(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.obs.remove(o)
}

func (a *Arena) notify(e Event) {
	a.obsMu.RLock()
	defer a.obsMu.RUnlock()
	for _, o := range a.obs.list {
		o.OnHandleEvent(e)
	}
}
