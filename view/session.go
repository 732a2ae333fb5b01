package view

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/wippyai/view-bridge/abi"
	"github.com/wippyai/view-bridge/errors"
	"github.com/wippyai/view-bridge/handle"
	"go.uber.org/zap"
)

// DefaultMaxNodes bounds the size of one resolved tree.
const DefaultMaxNodes = 1 << 16

// Option configures a Session.
type Option func(*Session)

// WithMaxNodes overrides DefaultMaxNodes. Values below 1 are ignored.
func WithMaxNodes(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxNodes = n
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithProbes replaces the probe list. Order is priority.
func WithProbes(p []Probe) Option {
	return func(s *Session) {
		s.probes = p
	}
}

// Session owns one resolved view tree and the handles behind it.
type Session struct {
	client   *Client
	root     *Node
	index    map[uuid.UUID]*Node
	queue    *queue
	log      *zap.Logger
	probes   []Probe
	nodes    int
	maxNodes int
	closed   bool
}

// NewSession takes ownership of root. Nothing is resolved until Resolve.
func NewSession(c *Client, root *handle.Owned, opts ...Option) *Session {
	s := &Session{
		client:   c,
		index:    make(map[uuid.UUID]*Node),
		queue:    newQueue(),
		log:      Logger(),
		probes:   probes,
		maxNodes: DefaultMaxNodes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.root = newNode(nil, root)
	s.nodes = 1
	return s
}

// Client returns the boundary client the session resolves through.
func (s *Session) Client() *Client { return s.client }

// Root returns the root node. It is unresolved until Resolve succeeds.
func (s *Session) Root() *Node { return s.root }

// Nodes returns the number of live nodes, the root included.
func (s *Session) Nodes() int { return s.nodes }

// Pending returns the number of queued invalidations.
func (s *Session) Pending() int { return s.queue.len() }

// Invalidated receives a value whenever a new invalidation is queued. It
// is safe to read from any goroutine.
func (s *Session) Invalidated() <-chan struct{} { return s.queue.signal }

// Lookup returns the live computed node with the given ID.
func (s *Session) Lookup(id uuid.UUID) (*Node, bool) {
	n, ok := s.index[id]
	return n, ok
}

// Resolve resolves the whole tree. It is a no-op once the root is
// resolved. On failure every handle acquired so far is released and the
// root is left unresolved.
func (s *Session) Resolve(ctx context.Context) (*Node, error) {
	if s.closed {
		return nil, errors.New(errors.PhaseResolve, errors.KindClosed).Detail("session closed").Build()
	}
	if s.root.State != Unresolved {
		return s.root, nil
	}
	if err := s.resolve(ctx, s.root); err != nil {
		s.reset(s.root)
		return nil, err
	}
	s.log.Debug("view tree resolved", zap.Int("nodes", s.nodes), zap.Stringer("root", s.root.Kind()))
	return s.root, nil
}

// Flush refreshes every computed node invalidated since the last flush and
// returns how many were refreshed. Invalidations for nodes discarded or
// refreshed in the meantime are dropped. Firings that arrive while Flush
// runs are kept for the next call. A node whose refresh fails stays queued,
// as does everything after a cancelled or fatal failure; Pending reports
// them and the next Flush retries.
func (s *Session) Flush(ctx context.Context) (int, error) {
	if s.closed {
		return 0, errors.New(errors.PhaseResolve, errors.KindClosed).Detail("session closed").Build()
	}
	batch := s.queue.drain()
	var (
		refreshed int
		errs      []error
	)
	for i, inv := range batch {
		n, ok := s.index[inv.id]
		if !ok || n.gen != inv.gen {
			s.log.Debug("dropping stale invalidation",
				zap.Stringer("node", inv.id), zap.Uint64("generation", inv.gen))
			continue
		}
		if err := s.refresh(ctx, n); err != nil {
			errs = append(errs, err)
			s.queue.requeue(invalidation{id: n.ID, gen: n.gen})
			if errors.IsCancelled(err) || errors.IsFatal(err) {
				s.queue.requeue(batch[i+1:]...)
				break
			}
			continue
		}
		refreshed++
	}
	return refreshed, stderrors.Join(errs...)
}

// Close releases every handle the tree holds, the root included.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.discard(s.root)
	s.release(s.root)
	return nil
}

// Invoke runs an action owned by one of the session's nodes.
func (s *Session) Invoke(ctx context.Context, action *handle.Owned) error {
	return s.client.InvokeAction(ctx, action)
}

// Font resolves a text node's font.
func (s *Session) Font(ctx context.Context, font *handle.Owned) (abi.Font, error) {
	return s.client.ComputeFont(ctx, font)
}

// ReadBinding returns a text field's current value.
func (s *Session) ReadBinding(ctx context.Context, binding *handle.Owned) (string, error) {
	return s.client.ReadBinding(ctx, binding)
}

// WriteBinding stores a text field's new value.
func (s *Session) WriteBinding(ctx context.Context, binding *handle.Owned, value string) error {
	return s.client.WriteBinding(ctx, binding, value)
}

// ReadBoolBinding returns a toggle's current value.
func (s *Session) ReadBoolBinding(ctx context.Context, binding *handle.Owned) (bool, error) {
	return s.client.ReadBoolBinding(ctx, binding)
}

// WriteBoolBinding stores a toggle's new value.
func (s *Session) WriteBoolBinding(ctx context.Context, binding *handle.Owned, value bool) error {
	return s.client.WriteBoolBinding(ctx, binding, value)
}

// refresh replaces n's body with a freshly materialized one. On failure n
// is left bodiless with no outstanding token, ready to be refreshed again.
func (s *Session) refresh(ctx context.Context, n *Node) error {
	s.discard(n)
	s.disarm(n)
	before := s.nodes

	if err := s.rearm(ctx, n); err != nil {
		s.discard(n)
		s.disarm(n)
		return err
	}
	s.log.Debug("computed view refreshed",
		zap.Stringer("node", n.ID),
		zap.Uint64("generation", n.gen),
		zap.Int("nodes", s.nodes-before))
	return nil
}

func (s *Session) rearm(ctx context.Context, n *Node) error {
	body, err := s.arm(ctx, n)
	if err != nil {
		return err
	}
	if err := s.attach(n, []*handle.Owned{body}); err != nil {
		return err
	}
	return s.resolve(ctx, n.Children...)
}

// resolve drives the work stack from the given unresolved nodes.
func (s *Session) resolve(ctx context.Context, start ...*Node) error {
	stack := make([]*Node, 0, len(start))
	for i := len(start) - 1; i >= 0; i-- {
		stack = append(stack, start[i])
	}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return errors.Cancelled("", err)
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := s.resolveOne(ctx, n); err != nil {
			return err
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return nil
}

// resolveOne settles n's primitive and creates its unresolved children.
func (s *Session) resolveOne(ctx context.Context, n *Node) error {
	v, err := n.view.Raw()
	if err != nil {
		return err
	}
	for _, p := range s.probes {
		m, err := p.try(ctx, s.client, v)
		if err != nil {
			return err
		}
		if m == nil {
			continue
		}
		n.Prim = m.prim
		n.State = Resolved
		return s.attach(n, m.children)
	}

	n.Prim = Computed{}
	body, err := s.arm(ctx, n)
	if err != nil {
		return err
	}
	return s.attach(n, []*handle.Owned{body})
}

// arm issues a fresh single-shot token for n, subscribes it and
// materializes n's current body. The subscription precedes the
// materialization so no change between the two goes unseen.
func (s *Session) arm(ctx context.Context, n *Node) (*handle.Owned, error) {
	n.gen++
	id, gen := n.ID, n.gen
	token, err := s.client.reg.Insert(func() { s.queue.push(id, gen) }, handle.Once)
	if err != nil {
		return nil, err
	}
	n.token = token
	s.index[id] = n

	if err := s.client.Subscribe(ctx, n.view, token); err != nil {
		return nil, err
	}
	n.State = AwaitingChange

	body, err := s.client.Materialize(ctx, n.view)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// disarm removes n's outstanding token. A token that already fired is
// gone from the registry and is skipped.
func (s *Session) disarm(n *Node) {
	if n.token == 0 {
		return
	}
	if err := s.client.reg.Remove(n.token); err != nil && !stderrors.Is(err, errors.ErrStaleHandle) {
		s.log.Warn("removing subscriber token", zap.Uint64("token", n.token), zap.Error(err))
	}
	n.token = 0
}

// attach creates one child per view handle. Handles that would exceed the
// node limit are released.
func (s *Session) attach(n *Node, views []*handle.Owned) error {
	for i, v := range views {
		if s.nodes >= s.maxNodes {
			for _, rest := range views[i:] {
				s.free(rest)
			}
			return errors.New(errors.PhaseResolve, errors.KindMalformedData).
				Value(s.maxNodes).
				Detail("view tree exceeds %d nodes", s.maxNodes).
				Build()
		}
		n.Children = append(n.Children, newNode(n, v))
		s.nodes++
	}
	return nil
}

// discard releases every descendant of n. n itself is kept.
func (s *Session) discard(n *Node) {
	stack := append([]*Node(nil), n.Children...)
	n.Children = nil
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, c.Children...)
		c.Children = nil
		s.release(c)
		s.nodes--
	}
}

// reset returns n to the unresolved state, keeping only its view handle.
func (s *Session) reset(n *Node) {
	s.discard(n)
	s.disarm(n)
	if n.Prim != nil {
		for _, o := range n.Prim.owned() {
			s.free(o)
		}
	}
	delete(s.index, n.ID)
	n.Prim = nil
	n.State = Unresolved
}

// release frees everything n owns, its view handle included.
func (s *Session) release(n *Node) {
	s.reset(n)
	if n.view != nil {
		s.free(n.view)
	}
}

func (s *Session) free(o *handle.Owned) {
	if o == nil || o.Freed() {
		return
	}
	if err := o.Free(); err != nil {
		s.log.Warn("releasing handle", zap.Error(err))
	}
}

func asError(err error) *errors.Error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e
	}
	return nil
}
