package view

import (
	"context"
	stderrors "errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/wippyai/view-bridge/abi"
	"github.com/wippyai/view-bridge/core"
	"github.com/wippyai/view-bridge/dispatch"
	"github.com/wippyai/view-bridge/errors"
	"github.com/wippyai/view-bridge/handle"
	"go.uber.org/zap/zaptest"
)

// counting records how often each boundary function is called.
type counting struct {
	abi.Exports
	calls sync.Map
}

func (c *counting) inc(fn string) {
	v, _ := c.calls.LoadOrStore(fn, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

func (c *counting) count(fn string) int {
	v, ok := c.calls.Load(fn)
	if !ok {
		return 0
	}
	return int(v.(*atomic.Int64).Load())
}

func (c *counting) ProbeText(h uint64, st *dispatch.Status) []byte {
	c.inc(abi.FnProbeText)
	return c.Exports.ProbeText(h, st)
}

func (c *counting) ProbeButton(h uint64, st *dispatch.Status) []byte {
	c.inc(abi.FnProbeButton)
	return c.Exports.ProbeButton(h, st)
}

func (c *counting) ProbeToggle(h uint64, st *dispatch.Status) []byte {
	c.inc(abi.FnProbeToggle)
	return c.Exports.ProbeToggle(h, st)
}

func (c *counting) ProbeDivider(h uint64, st *dispatch.Status) []byte {
	c.inc(abi.FnProbeDivider)
	return c.Exports.ProbeDivider(h, st)
}

func (c *counting) Materialize(h uint64, st *dispatch.Status) uint64 {
	c.inc(abi.FnMaterialize)
	return c.Exports.Materialize(h, st)
}

func (c *counting) Subscribe(h uint64, sub abi.Subscriber, st *dispatch.Status) {
	c.inc(abi.FnSubscribe)
	c.Exports.Subscribe(h, sub, st)
}

type fixture struct {
	core *core.Core
	x    *counting
	s    *Session
}

func newFixture(t *testing.T, v core.View, opts ...Option) *fixture {
	t.Helper()
	c := core.New()
	x := &counting{Exports: c}
	d := dispatch.New(x, abi.ExpectedContract(), dispatch.WithLogger(zaptest.NewLogger(t)))
	cl := NewClient(x, d, handle.NewRegistry())
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	return &fixture{core: c, x: x, s: NewSession(cl, cl.Own(c.Root(v)), opts...)}
}

func (f *fixture) resolve(t *testing.T) *Node {
	t.Helper()
	root, err := f.s.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return root
}

func (f *fixture) close(t *testing.T) {
	t.Helper()
	if err := f.s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if n := f.core.Arena().Len(); n != 0 {
		t.Errorf("live producer objects after Close = %d, want 0", n)
	}
}

func textOf(t *testing.T, n *Node) string {
	t.Helper()
	txt, ok := n.Prim.(Text)
	if !ok {
		t.Fatalf("node kind = %v, want text", n.Kind())
	}
	return txt.Content
}

func TestResolveText(t *testing.T) {
	f := newFixture(t, core.Text{Content: "hello", Font: abi.Font{Bold: true}})
	root := f.resolve(t)

	if root.State != Resolved {
		t.Errorf("state = %v, want resolved", root.State)
	}
	if got := textOf(t, root); got != "hello" {
		t.Errorf("content = %q, want hello", got)
	}
	if got := f.x.count(abi.FnProbeText); got != 1 {
		t.Errorf("probe_text calls = %d, want 1", got)
	}
	if got := f.x.count(abi.FnProbeButton); got != 0 {
		t.Errorf("probe_button calls = %d, want 0", got)
	}

	font := root.Prim.(Text).Font
	if font == nil {
		t.Fatal("text has no font handle")
	}
	style, err := f.s.Font(context.Background(), font)
	if err != nil {
		t.Fatalf("ComputeFont failed: %v", err)
	}
	if !style.Bold || style.Size != core.DefaultFontSize {
		t.Errorf("font = %+v", style)
	}
	if f.s.Nodes() != 1 || len(root.Children) != 0 {
		t.Errorf("nodes = %d, children = %d", f.s.Nodes(), len(root.Children))
	}

	again, err := f.s.Resolve(context.Background())
	if err != nil || again != root {
		t.Errorf("second Resolve = %v, %v; want same root", again, err)
	}
	f.close(t)
}

func TestResolveStack(t *testing.T) {
	f := newFixture(t, core.Stack{
		Mode:     abi.StackHorizontal,
		Children: []core.View{core.Text{Content: "a"}, core.Text{Content: "b"}},
	})
	root := f.resolve(t)

	st, ok := root.Prim.(Stack)
	if !ok || st.Mode != abi.StackHorizontal {
		t.Fatalf("root = %#v, want horizontal stack", root.Prim)
	}
	if len(root.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(root.Children))
	}
	for i, want := range []string{"a", "b"} {
		c := root.Children[i]
		if got := textOf(t, c); got != want {
			t.Errorf("child %d = %q, want %q", i, got, want)
		}
		if c.Parent != root {
			t.Errorf("child %d parent mismatch", i)
		}
	}
	if root.Children[0].ID == root.Children[1].ID {
		t.Error("children share an ID")
	}
	if f.s.Nodes() != 3 {
		t.Errorf("nodes = %d, want 3", f.s.Nodes())
	}

	var order []string
	Walk(root, func(n *Node, depth int) bool {
		order = append(order, n.Kind().String()+"@"+strconv.Itoa(depth))
		return true
	})
	want := []string{"stack@0", "text@1", "text@1"}
	if len(order) != len(want) {
		t.Fatalf("walk = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("walk[%d] = %s, want %s", i, order[i], want[i])
		}
	}
	f.close(t)
}

func TestResolveNested(t *testing.T) {
	f := newFixture(t, core.Frame{
		Spec: abi.FrameSpec{Alignment: abi.AlignCenter},
		Content: core.TapGesture{
			Content: core.Menu{
				Label:   core.Text{Content: "file"},
				Actions: []core.MenuItem{{Label: "open"}, {Label: "save"}},
			},
		},
	})
	root := f.resolve(t)

	if root.Kind() != KindFrame || root.Prim.(Frame).Spec.Alignment != abi.AlignCenter {
		t.Fatalf("root = %#v", root.Prim)
	}
	tap := root.Child()
	if tap == nil || tap.Kind() != KindTapGesture || tap.Prim.(TapGesture).Action == nil {
		t.Fatalf("frame content = %#v", tap)
	}
	menu := tap.Child()
	if menu == nil || menu.Kind() != KindMenu {
		t.Fatalf("tap content = %#v", menu)
	}
	actions := menu.Prim.(Menu).Actions
	if len(actions) != 2 || actions[0].Label != "open" || actions[1].Label != "save" {
		t.Errorf("menu actions = %+v", actions)
	}
	if got := textOf(t, menu.Child()); got != "file" {
		t.Errorf("menu label = %q", got)
	}
	f.close(t)
}

func TestResolveToggle(t *testing.T) {
	on := core.NewBinding(true)
	f := newFixture(t, core.Toggle{Label: core.Text{Content: "loud"}, Value: on, Style: abi.ToggleSwitch})
	root := f.resolve(t)
	ctx := context.Background()

	tg, ok := root.Prim.(Toggle)
	if !ok || tg.Style != abi.ToggleSwitch || tg.Value == nil {
		t.Fatalf("root = %#v, want switch toggle", root.Prim)
	}
	if got := textOf(t, root.Child()); got != "loud" {
		t.Errorf("toggle label = %q, want loud", got)
	}
	if got := f.x.count(abi.FnProbeToggle); got != 1 {
		t.Errorf("probe_toggle calls = %d, want 1", got)
	}
	if got := f.x.count(abi.FnProbeDivider); got != 0 {
		t.Errorf("probe_divider calls = %d, want 0", got)
	}

	v, err := f.s.ReadBoolBinding(ctx, tg.Value)
	if err != nil || !v {
		t.Fatalf("ReadBoolBinding = %v, %v; want true", v, err)
	}
	if err := f.s.WriteBoolBinding(ctx, tg.Value, false); err != nil {
		t.Fatalf("WriteBoolBinding failed: %v", err)
	}
	if on.Get() {
		t.Error("binding still true after write")
	}
	if _, err := f.s.ReadBinding(ctx, tg.Value); err == nil {
		t.Error("ReadBinding on a bool binding succeeded")
	}
	f.close(t)
}

func TestResolveDividerIsProbedLast(t *testing.T) {
	f := newFixture(t, core.Divider{})
	root := f.resolve(t)

	if root.Kind() != KindDivider || root.State != Resolved || len(root.Children) != 0 {
		t.Fatalf("root = %v/%v with %d children", root.Kind(), root.State, len(root.Children))
	}
	for _, fn := range []string{abi.FnProbeText, abi.FnProbeButton, abi.FnProbeToggle, abi.FnProbeDivider} {
		if got := f.x.count(fn); got != 1 {
			t.Errorf("%s calls = %d, want 1", fn, got)
		}
	}
	if got := f.x.count(abi.FnMaterialize); got != 0 {
		t.Errorf("materialize calls = %d, want 0", got)
	}

	var kinds []Kind
	for _, p := range Probes() {
		kinds = append(kinds, p.Kind)
	}
	want := []Kind{KindEmpty, KindText, KindButton, KindStack, KindTapGesture,
		KindFrame, KindMenu, KindTextField, KindToggle, KindDivider}
	if len(kinds) != len(want) {
		t.Fatalf("probe kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("probe %d = %v, want %v", i, kinds[i], want[i])
		}
	}
	f.close(t)
}

// shadow answers probe_button for every view, on top of the real core.
type shadow struct {
	*counting
}

func (s *shadow) ProbeButton(h uint64, st *dispatch.Status) []byte {
	s.inc(abi.FnProbeButton)
	return abi.EncodeProbe(abi.Button{})
}

func TestProbePriority(t *testing.T) {
	c := core.New()
	x := &shadow{&counting{Exports: c}}
	d := dispatch.New(x, abi.ExpectedContract())
	cl := NewClient(x, d, handle.NewRegistry())

	s := NewSession(cl, cl.Own(c.Root(core.Text{Content: "first"})))
	root, err := s.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if root.Kind() != KindText {
		t.Errorf("kind = %v, want text", root.Kind())
	}
	if got := x.count(abi.FnProbeButton); got != 0 {
		t.Errorf("probe_button calls = %d, want 0", got)
	}
	s.Close()

	s = NewSession(cl, cl.Own(c.Root(core.Stack{})))
	root, err = s.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if root.Kind() != KindButton {
		t.Errorf("kind = %v, want button", root.Kind())
	}
	s.Close()
	if n := c.Arena().Len(); n != 0 {
		t.Errorf("live producer objects = %d, want 0", n)
	}
}

func counter(b *core.Binding[int], evals *atomic.Int64) core.Dynamic {
	return core.Dynamic{
		Deps: []core.Watchable{b},
		Body: func() core.View {
			if evals != nil {
				evals.Add(1)
			}
			return core.Text{Content: strconv.Itoa(b.Get())}
		},
	}
}

func TestComputedView(t *testing.T) {
	b := core.NewBinding(0)
	f := newFixture(t, counter(b, nil))
	root := f.resolve(t)

	if root.Kind() != KindComputed || root.State != AwaitingChange {
		t.Fatalf("root = %v/%v, want computed/awaiting_change", root.Kind(), root.State)
	}
	if got := f.x.count(abi.FnMaterialize); got != 1 {
		t.Errorf("materialize calls = %d, want 1", got)
	}
	if got := f.x.count(abi.FnSubscribe); got != 1 {
		t.Errorf("subscribe calls = %d, want 1", got)
	}
	body := root.Child()
	if got := textOf(t, body); got != "0" {
		t.Errorf("body = %q, want 0", got)
	}
	if _, ok := f.s.Lookup(root.ID); !ok {
		t.Error("computed root not indexed")
	}
	live := f.core.Arena().Len()

	b.Set(1)
	select {
	case <-f.s.Invalidated():
	default:
		t.Fatal("no invalidation signalled")
	}
	if f.s.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", f.s.Pending())
	}

	n, err := f.s.Flush(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Flush = %d, %v; want 1, nil", n, err)
	}
	if got := f.x.count(abi.FnMaterialize); got != 2 {
		t.Errorf("materialize calls = %d, want 2", got)
	}
	if got := f.x.count(abi.FnSubscribe); got != 2 {
		t.Errorf("subscribe calls = %d, want 2", got)
	}
	fresh := root.Child()
	if fresh == body || fresh.ID == body.ID {
		t.Error("body was patched in place")
	}
	if got := textOf(t, fresh); got != "1" {
		t.Errorf("body = %q, want 1", got)
	}
	if !body.view.Freed() || body.Prim != nil {
		t.Error("old body not released")
	}
	if got := f.core.Arena().Len(); got != live {
		t.Errorf("live producer objects = %d, want %d", got, live)
	}

	if n, err := f.s.Flush(context.Background()); err != nil || n != 0 {
		t.Errorf("idle Flush = %d, %v", n, err)
	}
	f.close(t)
}

func TestStaleInvalidation(t *testing.T) {
	b := core.NewBinding(0)
	f := newFixture(t, counter(b, nil))
	root := f.resolve(t)
	firstGen := root.gen

	b.Set(1)
	if _, err := f.s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	f.s.queue.push(root.ID, firstGen)
	f.s.queue.push(uuid.New(), 1)
	n, err := f.s.Flush(context.Background())
	if err != nil || n != 0 {
		t.Errorf("Flush = %d, %v; want 0, nil", n, err)
	}
	if got := f.x.count(abi.FnMaterialize); got != 2 {
		t.Errorf("materialize calls = %d, want 2", got)
	}
	f.close(t)
}

func TestFiringDuringRefreshIsQueued(t *testing.T) {
	b := core.NewBinding(0)
	var evals atomic.Int64
	dyn := core.Dynamic{
		Deps: []core.Watchable{b},
		Body: func() core.View {
			if evals.Add(1) == 2 {
				b.Set(99)
			}
			return core.Text{Content: strconv.Itoa(b.Get())}
		},
	}
	f := newFixture(t, dyn)
	f.resolve(t)

	b.Set(1)
	if n, err := f.s.Flush(context.Background()); err != nil || n != 1 {
		t.Fatalf("Flush = %d, %v; want 1, nil", n, err)
	}
	if f.s.Pending() != 1 {
		t.Fatalf("pending after refresh = %d, want 1", f.s.Pending())
	}
	if n, err := f.s.Flush(context.Background()); err != nil || n != 1 {
		t.Fatalf("second Flush = %d, %v; want 1, nil", n, err)
	}
	if got := textOf(t, f.s.Root().Child()); got != "99" {
		t.Errorf("body = %q, want 99", got)
	}
	if f.s.Pending() != 0 {
		t.Errorf("pending = %d, want 0", f.s.Pending())
	}
	f.close(t)
}

func TestCancelledFlushKeepsInvalidations(t *testing.T) {
	a, b := core.NewBinding(0), core.NewBinding(0)
	f := newFixture(t, core.Stack{Children: []core.View{counter(a, nil), counter(b, nil)}})
	root := f.resolve(t)

	a.Set(1)
	b.Set(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := f.s.Flush(ctx)
	if !errors.IsCancelled(err) || n != 0 {
		t.Fatalf("cancelled Flush = %d, %v; want 0, cancelled", n, err)
	}
	if f.s.Pending() != 2 {
		t.Fatalf("pending after cancelled Flush = %d, want 2", f.s.Pending())
	}
	if reg := f.s.Client().Registry(); reg.Len() != 0 {
		t.Errorf("tokens after cancelled Flush = %d, want 0", reg.Len())
	}

	if n, err := f.s.Flush(context.Background()); err != nil || n != 2 {
		t.Fatalf("Flush = %d, %v; want 2, nil", n, err)
	}
	for i, want := range []string{"1", "1"} {
		if got := textOf(t, root.Children[i].Child()); got != want {
			t.Errorf("child %d body = %q, want %q", i, got, want)
		}
	}

	a.Set(2)
	b.Set(3)
	if f.s.Pending() != 2 {
		t.Fatalf("pending after Set = %d, want 2", f.s.Pending())
	}
	if n, err := f.s.Flush(context.Background()); err != nil || n != 2 {
		t.Fatalf("Flush = %d, %v; want 2, nil", n, err)
	}
	for i, want := range []string{"2", "3"} {
		if got := textOf(t, root.Children[i].Child()); got != want {
			t.Errorf("child %d body = %q, want %q", i, got, want)
		}
	}
	f.close(t)
}

// refusing rejects subscriptions while refuse is set.
type refusing struct {
	*counting
	refuse atomic.Bool
}

func (r *refusing) Subscribe(h uint64, sub abi.Subscriber, st *dispatch.Status) {
	if r.refuse.Load() {
		dispatch.Guard(st, func() error { return abi.NewRejected("busy") })
		return
	}
	r.counting.Subscribe(h, sub, st)
}

func TestFailedRefreshRetries(t *testing.T) {
	b := core.NewBinding(0)
	c := core.New()
	x := &refusing{counting: &counting{Exports: c}}
	d := dispatch.New(x, abi.ExpectedContract(), dispatch.WithLogger(zaptest.NewLogger(t)))
	cl := NewClient(x, d, handle.NewRegistry())
	s := NewSession(cl, cl.Own(c.Root(counter(b, nil))), WithLogger(zaptest.NewLogger(t)))
	root, err := s.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	x.refuse.Store(true)
	b.Set(1)
	n, err := s.Flush(context.Background())
	if errors.KindOf(err) != errors.KindRecoverable || n != 0 {
		t.Fatalf("Flush = %d, %v; want 0, recoverable", n, err)
	}
	if len(root.Children) != 0 {
		t.Errorf("children after failed refresh = %d, want 0", len(root.Children))
	}
	if cl.Registry().Len() != 0 {
		t.Errorf("tokens after failed refresh = %d, want 0", cl.Registry().Len())
	}
	if s.Pending() != 1 {
		t.Fatalf("pending after failed refresh = %d, want 1", s.Pending())
	}

	x.refuse.Store(false)
	if n, err := s.Flush(context.Background()); err != nil || n != 1 {
		t.Fatalf("retry Flush = %d, %v; want 1, nil", n, err)
	}
	if got := textOf(t, root.Child()); got != "1" {
		t.Errorf("body = %q, want 1", got)
	}

	b.Set(2)
	if n, err := s.Flush(context.Background()); err != nil || n != 1 {
		t.Fatalf("Flush = %d, %v; want 1, nil", n, err)
	}
	if got := textOf(t, root.Child()); got != "2" {
		t.Errorf("body = %q, want 2", got)
	}
	s.Close()
	if n := c.Arena().Len(); n != 0 {
		t.Errorf("live producer objects = %d, want 0", n)
	}
}

func TestConcurrentFirings(t *testing.T) {
	b := core.NewBinding(0)
	f := newFixture(t, counter(b, nil))
	f.resolve(t)

	var wg sync.WaitGroup
	for i := 1; i <= 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Set(i)
		}()
	}
	wg.Wait()

	n, err := f.s.Flush(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Flush = %d, %v; want 1, nil", n, err)
	}
	if got := f.x.count(abi.FnMaterialize); got != 2 {
		t.Errorf("materialize calls = %d, want 2", got)
	}
	f.close(t)
}

func TestAsyncFiring(t *testing.T) {
	b := core.NewBinding(0)
	c := core.New(core.WithAsyncNotify())
	d := dispatch.New(c, abi.ExpectedContract())
	cl := NewClient(c, d, handle.NewRegistry())
	s := NewSession(cl, cl.Own(c.Root(counter(b, nil))))
	if _, err := s.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	b.Set(5)
	<-s.Invalidated()
	if n, err := s.Flush(context.Background()); err != nil || n != 1 {
		t.Fatalf("Flush = %d, %v", n, err)
	}
	if got := textOf(t, s.Root().Child()); got != "5" {
		t.Errorf("body = %q, want 5", got)
	}
	s.Close()
	c.Wait()
	if n := c.Arena().Len(); n != 0 {
		t.Errorf("live producer objects = %d, want 0", n)
	}
}

func TestNestedComputedDiscard(t *testing.T) {
	outer := core.NewBinding(0)
	inner := core.NewBinding(0)
	dyn := core.Dynamic{
		Deps: []core.Watchable{outer},
		Body: func() core.View {
			return core.Stack{Children: []core.View{
				core.Text{Content: strconv.Itoa(outer.Get())},
				counter(inner, nil),
			}}
		},
	}
	f := newFixture(t, dyn)
	root := f.resolve(t)
	reg := f.s.Client().Registry()
	if reg.Len() != 2 {
		t.Fatalf("tokens = %d, want 2", reg.Len())
	}
	oldInner := root.Child().Children[1]

	outer.Set(1)
	if n, err := f.s.Flush(context.Background()); err != nil || n != 1 {
		t.Fatalf("Flush = %d, %v", n, err)
	}
	if _, ok := f.s.Lookup(oldInner.ID); ok {
		t.Error("discarded computed node still indexed")
	}
	if reg.Len() != 2 {
		t.Errorf("tokens = %d, want 2", reg.Len())
	}

	// Both the discarded and the live inner subscriptions fire; only the
	// live one refreshes.
	inner.Set(1)
	if n, err := f.s.Flush(context.Background()); err != nil || n != 1 {
		t.Fatalf("Flush = %d, %v", n, err)
	}
	if got := textOf(t, root.Child().Children[1].Child()); got != "1" {
		t.Errorf("inner body = %q, want 1", got)
	}
	f.close(t)
}

func TestMaxNodes(t *testing.T) {
	f := newFixture(t, core.Stack{Children: []core.View{
		core.Empty{}, core.Empty{}, core.Empty{},
	}}, WithMaxNodes(2))

	_, err := f.s.Resolve(context.Background())
	if errors.KindOf(err) != errors.KindMalformedData {
		t.Fatalf("Resolve error = %v, want malformed_data", err)
	}
	if f.s.Root().State != Unresolved || f.s.Nodes() != 1 {
		t.Errorf("root = %v, nodes = %d", f.s.Root().State, f.s.Nodes())
	}
	if n := f.core.Arena().Len(); n != 1 {
		t.Errorf("live producer objects = %d, want 1", n)
	}
	f.close(t)
}

func TestProducerFailures(t *testing.T) {
	t.Run("unknown object", func(t *testing.T) {
		c := core.New()
		d := dispatch.New(c, abi.ExpectedContract())
		cl := NewClient(c, d, handle.NewRegistry())
		s := NewSession(cl, cl.Own(999))

		_, err := s.Resolve(context.Background())
		if errors.KindOf(err) != errors.KindRecoverable {
			t.Fatalf("error = %v, want recoverable", err)
		}
		var ce *abi.CoreError
		if !stderrors.As(err, &ce) || ce.Kind != abi.ErrUnknownObject {
			t.Errorf("cause = %v, want unknown object", err)
		}
	})

	t.Run("body panics", func(t *testing.T) {
		f := newFixture(t, core.Dynamic{Body: func() core.View { panic("broken body") }})
		_, err := f.s.Resolve(context.Background())
		if errors.KindOf(err) != errors.KindPanic {
			t.Fatalf("error = %v, want panic", err)
		}
		if f.s.Client().Registry().Len() != 0 {
			t.Error("token left behind after failed resolution")
		}
		f.close(t)
	})

	t.Run("cancelled", func(t *testing.T) {
		f := newFixture(t, core.Empty{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := f.s.Resolve(ctx); !errors.IsCancelled(err) {
			t.Fatalf("error = %v, want cancelled", err)
		}
		f.close(t)
	})

	t.Run("closed", func(t *testing.T) {
		f := newFixture(t, core.Empty{})
		f.close(t)
		if _, err := f.s.Resolve(context.Background()); !stderrors.Is(err, errors.ErrClosed) {
			t.Errorf("error = %v, want closed", err)
		}
	})
}

// trailing appends a stray byte to every probe_text result.
type trailing struct {
	*counting
}

func (x *trailing) ProbeText(h uint64, st *dispatch.Status) []byte {
	return append(x.counting.ProbeText(h, st), 0)
}

func TestMalformedProbeReleasesHandles(t *testing.T) {
	c := core.New()
	x := &trailing{&counting{Exports: c}}
	d := dispatch.New(x, abi.ExpectedContract(), dispatch.WithLogger(zaptest.NewLogger(t)))
	cl := NewClient(x, d, handle.NewRegistry())
	s := NewSession(cl, cl.Own(c.Root(core.Text{Content: "x"})))

	_, err := s.Resolve(context.Background())
	if !stderrors.Is(err, errors.ErrTrailingData) {
		t.Fatalf("Resolve error = %v, want trailing_data", err)
	}
	if n := c.Arena().Len(); n != 1 {
		t.Errorf("live producer objects = %d, want only the root", n)
	}
	s.Close()
	if n := c.Arena().Len(); n != 0 {
		t.Errorf("live producer objects after Close = %d, want 0", n)
	}
}

func TestActionsAndBindings(t *testing.T) {
	var taps atomic.Int64
	value := core.NewBinding("draft")
	f := newFixture(t, core.Stack{Children: []core.View{
		core.Button{Label: core.Text{Content: "go"}, Action: func() { taps.Add(1) }},
		core.TextField{Label: "name", Prompt: "type here", Value: value},
	}})
	root := f.resolve(t)
	ctx := context.Background()
	cl := f.s.Client()

	btn := root.Children[0]
	if got := textOf(t, btn.Child()); got != "go" {
		t.Errorf("button label = %q", got)
	}
	if err := f.s.Invoke(ctx, btn.Prim.(Button).Action); err != nil {
		t.Fatalf("InvokeAction failed: %v", err)
	}
	if taps.Load() != 1 {
		t.Errorf("taps = %d, want 1", taps.Load())
	}

	field, ok := root.Children[1].Prim.(TextField)
	if !ok || field.Label != "name" || field.Prompt != "type here" {
		t.Fatalf("field = %#v", root.Children[1].Prim)
	}
	got, err := f.s.ReadBinding(ctx, field.Value)
	if err != nil || got != "draft" {
		t.Fatalf("ReadBinding = %q, %v", got, err)
	}
	if err := f.s.WriteBinding(ctx, field.Value, "final"); err != nil {
		t.Fatalf("WriteBinding failed: %v", err)
	}
	if value.Get() != "final" {
		t.Errorf("binding = %q, want final", value.Get())
	}

	err = cl.InvokeAction(ctx, field.Value)
	var ce *abi.CoreError
	if !stderrors.As(err, &ce) || ce.Kind != abi.ErrWrongKind {
		t.Errorf("InvokeAction on binding = %v, want wrong kind", err)
	}
	f.close(t)
}

func TestQueueCoalesces(t *testing.T) {
	q := newQueue()
	a, b := uuid.New(), uuid.New()
	if !q.push(a, 1) || q.push(a, 1) || q.push(a, 2) {
		t.Error("duplicate pushes not coalesced")
	}
	q.push(b, 7)
	got := q.drain()
	if len(got) != 2 || got[0].id != a || got[0].gen != 2 || got[1].id != b {
		t.Errorf("drain = %+v", got)
	}
	if q.drain() != nil || q.len() != 0 {
		t.Error("queue not empty after drain")
	}

	c := uuid.New()
	q.push(b, 9)
	q.requeue(invalidation{id: a, gen: 3}, invalidation{id: b, gen: 8}, invalidation{id: c, gen: 1})
	got = q.drain()
	if len(got) != 3 || got[0].id != a || got[1].id != c || got[2].id != b || got[2].gen != 9 {
		t.Errorf("drain after requeue = %+v", got)
	}
}
