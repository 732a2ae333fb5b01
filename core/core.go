package core

import (
	"sync"

	"github.com/wippyai/view-bridge/abi"
	"github.com/wippyai/view-bridge/codec"
	"github.com/wippyai/view-bridge/dispatch"
	"github.com/wippyai/view-bridge/handle"
	"go.uber.org/zap"
)

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the core's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Core) { c.log = l }
}

// WithAsyncNotify makes subscriber tokens fire on their own goroutine
// instead of the goroutine that changed the dependency.
func WithAsyncNotify() Option {
	return func(c *Core) { c.async = true }
}

// WithContractVersion overrides the reported contract version.
func WithContractVersion(v uint32) Option {
	return func(c *Core) { c.version = v }
}

// WithChecksum overrides the reported checksum of one function.
func WithChecksum(fn string, sum uint16) Option {
	return func(c *Core) { c.checksums[fn] = sum }
}

// Core is an in-process producer implementing abi.Exports.
type Core struct {
	arena     *handle.Arena
	log       *zap.Logger
	checksums map[string]uint16
	pending   sync.WaitGroup
	version   uint32
	async     bool
}

var _ abi.Exports = (*Core)(nil)

// New creates an empty core.
func New(opts ...Option) *Core {
	c := &Core{
		arena:     handle.NewArena(),
		log:       zap.NewNop(),
		checksums: make(map[string]uint16),
		version:   abi.ContractVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root inserts v and returns an owned view handle for the consumer.
func (c *Core) Root(v View) uint64 {
	return c.arena.Insert(typeView, v)
}

// Arena exposes the object arena, for leak accounting.
func (c *Core) Arena() *handle.Arena {
	return c.arena
}

// Wait blocks until every asynchronous notification has been delivered.
func (c *Core) Wait() {
	c.pending.Wait()
}

// Close drops every object.
func (c *Core) Close() error {
	c.pending.Wait()
	return c.arena.Close()
}

func (c *Core) ContractVersion() uint32 { return c.version }

func (c *Core) Checksum(fn string) uint16 {
	if sum, ok := c.checksums[fn]; ok {
		return sum
	}
	return abi.Checksum(fn)
}

func (c *Core) view(h uint64) (View, error) {
	v, err := c.arena.Get(h)
	if err != nil {
		return nil, abi.NewUnknownObject(h)
	}
	vw, ok := v.(View)
	if !ok {
		return nil, abi.NewWrongKind("view")
	}
	return vw, nil
}

func (c *Core) child(v View) uint64 {
	if v == nil {
		v = Empty{}
	}
	return c.arena.Insert(typeView, v)
}

func (c *Core) action(fn func()) uint64 {
	if fn == nil {
		fn = func() {}
	}
	return c.arena.Insert(typeAction, fn)
}

// probe runs match against the view behind h. match returns nil when the
// view is not of its shape.
func (c *Core) probe(h uint64, st *dispatch.Status, match func(View) codec.Marshaler) []byte {
	return dispatch.GuardValue(st, func() ([]byte, error) {
		v, err := c.view(h)
		if err != nil {
			return nil, err
		}
		return abi.EncodeProbe(match(v)), nil
	})
}

func (c *Core) ProbeEmpty(h uint64, st *dispatch.Status) []byte {
	return c.probe(h, st, func(v View) codec.Marshaler {
		if _, ok := v.(Empty); ok {
			return abi.Empty{}
		}
		return nil
	})
}

func (c *Core) ProbeText(h uint64, st *dispatch.Status) []byte {
	return c.probe(h, st, func(v View) codec.Marshaler {
		t, ok := v.(Text)
		if !ok {
			return nil
		}
		return abi.Text{
			Content:    t.Content,
			Selectable: t.Selectable,
			Font:       c.arena.Insert(typeFont, t.Font),
		}
	})
}

func (c *Core) ProbeButton(h uint64, st *dispatch.Status) []byte {
	return c.probe(h, st, func(v View) codec.Marshaler {
		b, ok := v.(Button)
		if !ok {
			return nil
		}
		return abi.Button{Label: c.child(b.Label), Action: c.action(b.Action)}
	})
}

func (c *Core) ProbeStack(h uint64, st *dispatch.Status) []byte {
	return c.probe(h, st, func(v View) codec.Marshaler {
		s, ok := v.(Stack)
		if !ok {
			return nil
		}
		mode := s.Mode
		if mode == 0 {
			mode = abi.StackVertical
		}
		out := abi.Stack{Mode: mode, Children: make([]uint64, len(s.Children))}
		for i, ch := range s.Children {
			out.Children[i] = c.child(ch)
		}
		return out
	})
}

func (c *Core) ProbeTapGesture(h uint64, st *dispatch.Status) []byte {
	return c.probe(h, st, func(v View) codec.Marshaler {
		g, ok := v.(TapGesture)
		if !ok {
			return nil
		}
		return abi.TapGesture{Content: c.child(g.Content), Action: c.action(g.Action)}
	})
}

func (c *Core) ProbeFrame(h uint64, st *dispatch.Status) []byte {
	return c.probe(h, st, func(v View) codec.Marshaler {
		f, ok := v.(Frame)
		if !ok {
			return nil
		}
		return abi.Frame{Spec: f.Spec, Content: c.child(f.Content)}
	})
}

func (c *Core) ProbeMenu(h uint64, st *dispatch.Status) []byte {
	return c.probe(h, st, func(v View) codec.Marshaler {
		m, ok := v.(Menu)
		if !ok {
			return nil
		}
		out := abi.Menu{Label: c.child(m.Label), Actions: make([]abi.MenuAction, len(m.Actions))}
		for i, a := range m.Actions {
			out.Actions[i] = abi.MenuAction{Label: a.Label, Action: c.action(a.Action)}
		}
		return out
	})
}

func (c *Core) ProbeTextField(h uint64, st *dispatch.Status) []byte {
	return c.probe(h, st, func(v View) codec.Marshaler {
		f, ok := v.(TextField)
		if !ok {
			return nil
		}
		value := f.Value
		if value == nil {
			value = NewBinding("")
		}
		return abi.TextField{Label: f.Label, Prompt: f.Prompt, Value: c.arena.Insert(typeBinding, value)}
	})
}

func (c *Core) ProbeToggle(h uint64, st *dispatch.Status) []byte {
	return c.probe(h, st, func(v View) codec.Marshaler {
		t, ok := v.(Toggle)
		if !ok {
			return nil
		}
		value := t.Value
		if value == nil {
			value = NewBinding(false)
		}
		return abi.Toggle{
			Label: c.child(t.Label),
			Value: c.arena.Insert(typeBoolBinding, value),
			Style: t.Style,
		}
	})
}

func (c *Core) ProbeDivider(h uint64, st *dispatch.Status) []byte {
	return c.probe(h, st, func(v View) codec.Marshaler {
		if _, ok := v.(Divider); ok {
			return abi.Divider{}
		}
		return nil
	})
}

func (c *Core) dynamic(h uint64) (Dynamic, error) {
	v, err := c.view(h)
	if err != nil {
		return Dynamic{}, err
	}
	d, ok := v.(Dynamic)
	if !ok {
		return Dynamic{}, abi.NewWrongKind("dynamic view")
	}
	return d, nil
}

func (c *Core) Materialize(h uint64, st *dispatch.Status) uint64 {
	return dispatch.GuardValue(st, func() (uint64, error) {
		d, err := c.dynamic(h)
		if err != nil {
			return 0, err
		}
		var body View = Empty{}
		if d.Body != nil {
			body = d.Body()
		}
		return c.child(body), nil
	})
}

func (c *Core) Subscribe(h uint64, sub abi.Subscriber, st *dispatch.Status) {
	dispatch.Guard(st, func() error {
		d, err := c.dynamic(h)
		if err != nil {
			return err
		}
		if sub.Invoke == nil {
			return abi.NewRejected("subscriber without trampoline")
		}
		c.watch(d.Deps, sub)
		return nil
	})
}

// watch arms sub on every dependency; the first change fires it once and
// disarms the rest.
func (c *Core) watch(deps []Watchable, sub abi.Subscriber) {
	var (
		once    sync.Once
		mu      sync.Mutex
		cancels []func()
	)
	fire := func() {
		once.Do(func() {
			mu.Lock()
			for _, cancel := range cancels {
				cancel()
			}
			mu.Unlock()

			c.log.Debug("firing subscriber", zap.Uint64("state", sub.State))
			if c.async {
				c.pending.Add(1)
				go func() {
					defer c.pending.Done()
					sub.Invoke(sub.State)
				}()
				return
			}
			sub.Invoke(sub.State)
		})
	}

	mu.Lock()
	defer mu.Unlock()
	for _, dep := range deps {
		cancels = append(cancels, dep.Watch(fire))
	}
}

func (c *Core) CloneObject(h uint64, st *dispatch.Status) uint64 {
	return dispatch.GuardValue(st, func() (uint64, error) {
		n, err := c.arena.Clone(h)
		if err != nil {
			return 0, abi.NewUnknownObject(h)
		}
		return n, nil
	})
}

func (c *Core) FreeObject(h uint64, st *dispatch.Status) {
	dispatch.Guard(st, func() error {
		if err := c.arena.Free(h); err != nil {
			return abi.NewUnknownObject(h)
		}
		return nil
	})
}

func (c *Core) InvokeAction(h uint64, st *dispatch.Status) {
	dispatch.Guard(st, func() error {
		v, err := c.arena.GetTyped(h, typeAction)
		if err != nil {
			return c.lookupErr(h, "action")
		}
		v.(func())()
		return nil
	})
}

func (c *Core) ComputeFont(h uint64, st *dispatch.Status) []byte {
	return dispatch.GuardValue(st, func() ([]byte, error) {
		v, err := c.arena.GetTyped(h, typeFont)
		if err != nil {
			return nil, c.lookupErr(h, "font")
		}
		f := v.(abi.Font)
		if f.Size == 0 {
			f.Size = DefaultFontSize
		}
		return codec.Marshal(f), nil
	})
}

// DefaultFontSize is reported for fonts without an explicit size.
const DefaultFontSize = 14

func (c *Core) binding(h uint64) (*Binding[string], error) {
	v, err := c.arena.GetTyped(h, typeBinding)
	if err != nil {
		return nil, c.lookupErr(h, "binding")
	}
	return v.(*Binding[string]), nil
}

func (c *Core) ReadBinding(h uint64, st *dispatch.Status) []byte {
	return dispatch.GuardValue(st, func() ([]byte, error) {
		b, err := c.binding(h)
		if err != nil {
			return nil, err
		}
		return abi.EncodeString(b.Get()), nil
	})
}

func (c *Core) WriteBinding(h uint64, value []byte, st *dispatch.Status) {
	dispatch.Guard(st, func() error {
		b, err := c.binding(h)
		if err != nil {
			return err
		}
		s, err := abi.DecodeString(value)
		if err != nil {
			return abi.NewRejected(err.Error())
		}
		b.Set(s)
		return nil
	})
}

func (c *Core) boolBinding(h uint64) (*Binding[bool], error) {
	v, err := c.arena.GetTyped(h, typeBoolBinding)
	if err != nil {
		return nil, c.lookupErr(h, "bool binding")
	}
	return v.(*Binding[bool]), nil
}

func (c *Core) ReadBoolBinding(h uint64, st *dispatch.Status) bool {
	return dispatch.GuardValue(st, func() (bool, error) {
		b, err := c.boolBinding(h)
		if err != nil {
			return false, err
		}
		return b.Get(), nil
	})
}

func (c *Core) WriteBoolBinding(h uint64, value bool, st *dispatch.Status) {
	dispatch.Guard(st, func() error {
		b, err := c.boolBinding(h)
		if err != nil {
			return err
		}
		b.Set(value)
		return nil
	})
}

func (c *Core) lookupErr(h uint64, want string) error {
	if _, ok := c.arena.TypeID(h); ok {
		return abi.NewWrongKind(want)
	}
	return abi.NewUnknownObject(h)
}
