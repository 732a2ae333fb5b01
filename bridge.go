package viewbridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/view-bridge/abi"
	"github.com/wippyai/view-bridge/config"
	"github.com/wippyai/view-bridge/dispatch"
	"github.com/wippyai/view-bridge/errors"
	"github.com/wippyai/view-bridge/handle"
	"github.com/wippyai/view-bridge/view"
)

// Options configures a Bridge. The zero value is usable.
type Options struct {
	Logger      *zap.Logger
	MaxNodes    int
	PanicPolicy dispatch.PanicPolicy
}

// OptionsFrom derives bridge options from loaded configuration.
func OptionsFrom(cfg config.Config, log *zap.Logger) *Options {
	return &Options{
		Logger:      log,
		MaxNodes:    cfg.Boundary.MaxNodes,
		PanicPolicy: cfg.Boundary.Policy(),
	}
}

// Bridge is one consumer session against one producer.
type Bridge struct {
	producer abi.Exports
	disp     *dispatch.Dispatcher
	reg      *handle.Registry
	client   *view.Client
	session  *view.Session
	log      *zap.Logger
}

// New verifies the producer contract, takes ownership of root and resolves
// it. On a contract mismatch root is left untouched, since no call can be
// trusted to release it.
func New(ctx context.Context, producer abi.Exports, root uint64, opts *Options) (*Bridge, error) {
	if opts == nil {
		opts = &Options{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if root == 0 {
		return nil, errors.InvalidInput(errors.PhaseResolve, "root view handle is none")
	}

	d := dispatch.New(producer, abi.ExpectedContract(),
		dispatch.WithLogger(log.Named("dispatch")),
		dispatch.WithPanicPolicy(opts.PanicPolicy))
	if err := d.Handshake(); err != nil {
		return nil, err
	}

	reg := handle.NewRegistry()
	cl := view.NewClient(producer, d, reg)
	sessOpts := []view.Option{view.WithLogger(log.Named("view"))}
	if opts.MaxNodes > 0 {
		sessOpts = append(sessOpts, view.WithMaxNodes(opts.MaxNodes))
	}
	b := &Bridge{
		producer: producer,
		disp:     d,
		reg:      reg,
		client:   cl,
		session:  view.NewSession(cl, cl.Own(root), sessOpts...),
		log:      log,
	}
	if _, err := b.session.Resolve(ctx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Root returns the resolved tree.
func (b *Bridge) Root() *view.Node { return b.session.Root() }

// Session returns the underlying session.
func (b *Bridge) Session() *view.Session { return b.session }

// Client returns the boundary client.
func (b *Bridge) Client() *view.Client { return b.client }

// Invalidated signals queued refreshes. Safe from any goroutine.
func (b *Bridge) Invalidated() <-chan struct{} { return b.session.Invalidated() }

// Flush applies queued refreshes.
func (b *Bridge) Flush(ctx context.Context) (int, error) {
	n, err := b.session.Flush(ctx)
	if err != nil {
		b.log.Warn("refresh failed", zap.Int("refreshed", n), zap.Error(err))
	}
	return n, err
}

// Close releases the tree and retires every outstanding subscriber token.
// Firings that arrive afterwards are ignored.
func (b *Bridge) Close() error {
	err := b.session.Close()
	if cerr := b.reg.Close(); err == nil {
		err = cerr
	}
	return err
}
