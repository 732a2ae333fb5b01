package handle

import (
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/wippyai/view-bridge/errors"
)

type canary struct {
	drops atomic.Int32
}

func (c *canary) Drop() { c.drops.Add(1) }

type testObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *testObserver) OnHandleEvent(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *testObserver) count(t EventType) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func TestArena_Basic(t *testing.T) {
	a := NewArena()

	h := a.Insert(1, "test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	v, err := a.Get(h)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != "test" {
		t.Fatalf("Expected 'test', got %v", v)
	}

	if _, err := a.GetTyped(h, 1); err != nil {
		t.Fatalf("GetTyped with correct type failed: %v", err)
	}
	if _, err := a.GetTyped(h, 2); err == nil {
		t.Fatal("GetTyped with wrong type should fail")
	}

	if err := a.Free(h); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if a.Len() != 0 {
		t.Fatalf("Len = %d, want 0", a.Len())
	}
}

func TestArena_CanaryDropsOnce(t *testing.T) {
	a := NewArena()
	c := &canary{}

	h := a.Insert(1, c)
	h2, err := a.Clone(h)
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	if h2 == h {
		t.Fatal("Clone returned the same handle")
	}

	if err := a.Free(h); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if c.drops.Load() != 0 {
		t.Fatal("object dropped while a clone is live")
	}

	v, err := a.Get(h2)
	if err != nil || v != c {
		t.Fatalf("Get(clone) = %v, %v", v, err)
	}

	if err := a.Free(h2); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if got := c.drops.Load(); got != 1 {
		t.Fatalf("drops = %d, want 1", got)
	}

	for _, use := range []struct {
		name string
		fn   func() error
	}{
		{"free", func() error { return a.Free(h2) }},
		{"clone", func() error { _, err := a.Clone(h2); return err }},
		{"get", func() error { _, err := a.Get(h); return err }},
	} {
		if err := use.fn(); !stderrors.Is(err, errors.ErrStaleHandle) {
			t.Errorf("%s after free: error = %v, want stale_handle", use.name, err)
		}
	}
	if got := c.drops.Load(); got != 1 {
		t.Fatalf("drops after misuse = %d, want 1", got)
	}
}

func TestArena_GenerationPreventsAliasing(t *testing.T) {
	a := NewArena()

	old := a.Insert(1, "old")
	if err := a.Free(old); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	fresh := a.Insert(1, "new")

	if uint32(fresh) != uint32(old) {
		t.Fatalf("slot not reused: old %#x new %#x", old, fresh)
	}
	if fresh == old {
		t.Fatal("reused slot kept its generation")
	}
	if _, err := a.Get(old); !stderrors.Is(err, errors.ErrStaleHandle) {
		t.Errorf("Get(old) error = %v, want stale_handle", err)
	}
	if v, _ := a.Get(fresh); v != "new" {
		t.Errorf("Get(fresh) = %v, want new", v)
	}
}

func TestArena_InvalidHandles(t *testing.T) {
	a := NewArena()
	for _, h := range []uint64{0, 1, 0xffffffff_ffffffff} {
		if _, err := a.Get(h); !stderrors.Is(err, errors.ErrStaleHandle) {
			t.Errorf("Get(%#x) error = %v, want stale_handle", h, err)
		}
	}
}

func TestArena_Observer(t *testing.T) {
	a := NewArena()
	obs := &testObserver{}
	a.Subscribe(obs)

	h := a.Insert(7, &canary{})
	c, _ := a.Clone(h)
	_ = a.Free(h)
	_ = a.Free(c)

	if obs.count(EventCreated) != 1 || obs.count(EventCloned) != 1 ||
		obs.count(EventFreed) != 2 || obs.count(EventDropped) != 1 {
		t.Errorf("events = %+v", obs.events)
	}

	a.Unsubscribe(obs)
	a.Insert(7, nil)
	if obs.count(EventCreated) != 1 {
		t.Error("observer notified after Unsubscribe")
	}
}

func TestArena_Close(t *testing.T) {
	a := NewArena()
	c := &canary{}
	h := a.Insert(1, c)
	if _, err := a.Clone(h); err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := c.drops.Load(); got != 1 {
		t.Errorf("drops = %d, want 1", got)
	}
	if a.Insert(1, "x") != 0 {
		t.Error("Insert after Close should return 0")
	}
}

func TestOwned(t *testing.T) {
	a := NewArena()
	c := &canary{}
	o := Own(a, a.Insert(1, c))

	clone, err := o.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	if err := o.Free(); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if err := o.Free(); !stderrors.Is(err, errors.ErrUseAfterFree) {
		t.Errorf("second Free error = %v, want use_after_free", err)
	}
	if _, err := o.Raw(); !stderrors.Is(err, errors.ErrUseAfterFree) {
		t.Errorf("Raw after Free error = %v, want use_after_free", err)
	}
	if _, err := o.Clone(); !stderrors.Is(err, errors.ErrUseAfterFree) {
		t.Errorf("Clone after Free error = %v, want use_after_free", err)
	}
	if c.drops.Load() != 0 {
		t.Fatal("dropped while clone live")
	}

	if err := clone.Free(); err != nil {
		t.Fatalf("Free(clone) failed: %v", err)
	}
	if got := c.drops.Load(); got != 1 {
		t.Errorf("drops = %d, want 1", got)
	}
	if a.Len() != 0 {
		t.Errorf("Len = %d, want 0", a.Len())
	}
}

func TestOwned_ConcurrentFree(t *testing.T) {
	a := NewArena()
	c := &canary{}
	o := Own(a, a.Insert(1, c))

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if o.Free() == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 {
		t.Errorf("successful frees = %d, want 1", ok.Load())
	}
	if c.drops.Load() != 1 {
		t.Errorf("drops = %d, want 1", c.drops.Load())
	}
}
