package view

import (
	"context"

	"github.com/wippyai/view-bridge/abi"
	"github.com/wippyai/view-bridge/dispatch"
	"github.com/wippyai/view-bridge/handle"
	"go.uber.org/zap"
)

// Client issues typed boundary calls against one producer. It implements
// handle.Releaser so transferred handles can be wrapped in handle.Owned.
type Client struct {
	x   abi.Exports
	d   *dispatch.Dispatcher
	reg *handle.Registry
	log *zap.Logger
}

// NewClient binds x, its dispatcher and the registry holding subscriber
// tokens.
func NewClient(x abi.Exports, d *dispatch.Dispatcher, reg *handle.Registry) *Client {
	return &Client{x: x, d: d, reg: reg, log: Logger()}
}

// Registry returns the token registry.
func (c *Client) Registry() *handle.Registry { return c.reg }

// Trampoline is the entry point handed to the producer with every
// subscription. Stale tokens are ignored.
func (c *Client) Trampoline(state uint64) {
	if err := c.reg.Invoke(state); err != nil {
		c.log.Debug("ignoring stale subscriber token", zap.Uint64("token", state), zap.Error(err))
	}
}

// Clone duplicates a producer handle.
func (c *Client) Clone(h uint64) (uint64, error) {
	return dispatch.Invoke(context.Background(), c.d, abi.FnCloneObject, func(st *dispatch.Status) uint64 {
		return c.x.CloneObject(h, st)
	}, abi.DecodeCoreError)
}

// Free releases a producer handle.
func (c *Client) Free(h uint64) error {
	return c.d.Call(context.Background(), abi.FnFreeObject, func(st *dispatch.Status) {
		c.x.FreeObject(h, st)
	}, abi.DecodeCoreError)
}

// Own wraps a transferred handle. Zero means none and yields nil.
func (c *Client) Own(h uint64) *handle.Owned {
	if h == 0 {
		return nil
	}
	return handle.Own(c, h)
}

// release frees handles that were transferred but never wrapped.
func (c *Client) release(hs []uint64) {
	for _, h := range hs {
		if err := c.Free(h); err != nil {
			c.log.Warn("releasing transferred handle", zap.Uint64("handle", h), zap.Error(err))
		}
	}
}

func (c *Client) probe(ctx context.Context, fn string, call func(uint64, *dispatch.Status) []byte, view uint64) ([]byte, error) {
	return dispatch.Invoke(ctx, c.d, fn, func(st *dispatch.Status) []byte {
		return call(view, st)
	}, abi.DecodeCoreError)
}

// Materialize returns an owned handle to a computed view's current body.
func (c *Client) Materialize(ctx context.Context, view *handle.Owned) (*handle.Owned, error) {
	v, err := view.Raw()
	if err != nil {
		return nil, err
	}
	h, err := dispatch.Invoke(ctx, c.d, abi.FnMaterialize, func(st *dispatch.Status) uint64 {
		return c.x.Materialize(v, st)
	}, abi.DecodeCoreError)
	if err != nil {
		return nil, err
	}
	return handle.Own(c, h), nil
}

// Subscribe arms token against a computed view's dependencies.
func (c *Client) Subscribe(ctx context.Context, view *handle.Owned, token uint64) error {
	v, err := view.Raw()
	if err != nil {
		return err
	}
	sub := abi.Subscriber{Invoke: c.Trampoline, State: token}
	return c.d.Call(ctx, abi.FnSubscribe, func(st *dispatch.Status) {
		c.x.Subscribe(v, sub, st)
	}, abi.DecodeCoreError)
}

// InvokeAction runs a producer action.
func (c *Client) InvokeAction(ctx context.Context, action *handle.Owned) error {
	a, err := action.Raw()
	if err != nil {
		return err
	}
	return c.d.Call(ctx, abi.FnInvokeAction, func(st *dispatch.Status) {
		c.x.InvokeAction(a, st)
	}, abi.DecodeCoreError)
}

// ComputeFont resolves a font handle into its style.
func (c *Client) ComputeFont(ctx context.Context, font *handle.Owned) (abi.Font, error) {
	f, err := font.Raw()
	if err != nil {
		return abi.Font{}, err
	}
	return dispatch.InvokeDecode(ctx, c.d, abi.FnComputeFont, func(st *dispatch.Status) []byte {
		return c.x.ComputeFont(f, st)
	}, abi.DecodeFont, abi.DecodeCoreError)
}

// ReadBinding returns the current value of a string binding.
func (c *Client) ReadBinding(ctx context.Context, binding *handle.Owned) (string, error) {
	b, err := binding.Raw()
	if err != nil {
		return "", err
	}
	return dispatch.InvokeDecode(ctx, c.d, abi.FnReadBinding, func(st *dispatch.Status) []byte {
		return c.x.ReadBinding(b, st)
	}, abi.DecodeString, abi.DecodeCoreError)
}

// ReadBoolBinding returns the current value of a bool binding.
func (c *Client) ReadBoolBinding(ctx context.Context, binding *handle.Owned) (bool, error) {
	b, err := binding.Raw()
	if err != nil {
		return false, err
	}
	return dispatch.Invoke(ctx, c.d, abi.FnReadBoolBinding, func(st *dispatch.Status) bool {
		return c.x.ReadBoolBinding(b, st)
	}, abi.DecodeCoreError)
}

// WriteBoolBinding replaces the value of a bool binding.
func (c *Client) WriteBoolBinding(ctx context.Context, binding *handle.Owned, value bool) error {
	b, err := binding.Raw()
	if err != nil {
		return err
	}
	return c.d.Call(ctx, abi.FnWriteBoolBinding, func(st *dispatch.Status) {
		c.x.WriteBoolBinding(b, value, st)
	}, abi.DecodeCoreError)
}

// WriteBinding replaces the value of a string binding.
func (c *Client) WriteBinding(ctx context.Context, binding *handle.Owned, value string) error {
	b, err := binding.Raw()
	if err != nil {
		return err
	}
	enc := abi.EncodeString(value)
	return c.d.Call(ctx, abi.FnWriteBinding, func(st *dispatch.Status) {
		c.x.WriteBinding(b, enc, st)
	}, abi.DecodeCoreError)
}
