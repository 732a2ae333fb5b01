package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/wippyai/view-bridge/codec"
	"github.com/wippyai/view-bridge/errors"
	"go.uber.org/zap"
)

// PanicPolicy controls what a producer panic does to the consumer.
type PanicPolicy uint8

const (
	// PanicReturn surfaces the panic as an errors.KindPanic error.
	PanicReturn PanicPolicy = iota
	// PanicAbort logs the panic at fatal level, ending the process.
	PanicAbort
)

// ErrorDecoder decodes a failure payload into a typed domain error value.
type ErrorDecoder func(payload []byte) (any, error)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithPanicPolicy sets the panic policy.
func WithPanicPolicy(p PanicPolicy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

// Dispatcher performs boundary calls for one producer session.
type Dispatcher struct {
	src      ContractSource
	log      *zap.Logger
	initErr  error
	expected Contract
	initMu   sync.Mutex
	initDone atomic.Bool
	policy   PanicPolicy
}

// New creates a dispatcher for src. The handshake runs lazily on the first
// call, or eagerly via Handshake.
func New(src ContractSource, expected Contract, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		src:      src,
		expected: expected,
		log:      Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handshake verifies the producer contract exactly once. A failure is
// remembered and returned by every later call.
func (d *Dispatcher) Handshake() error {
	if d.initDone.Load() {
		return d.initErr
	}

	d.initMu.Lock()
	defer d.initMu.Unlock()

	if d.initDone.Load() {
		return d.initErr
	}

	if err := d.expected.Verify(d.src); err != nil {
		d.log.Error("producer contract mismatch", zap.Error(err))
		if d.policy == PanicAbort {
			d.log.Fatal("aborting on contract mismatch", zap.Error(err))
		}
		d.initErr = err
	} else {
		d.log.Debug("producer contract verified",
			zap.Uint32("version", d.expected.Version),
			zap.Int("functions", len(d.expected.Checksums)))
	}
	d.initDone.Store(true)
	return d.initErr
}

// Call invokes fn and converts its status into an error. dec may be nil
// when fn declares no error type.
func (d *Dispatcher) Call(ctx context.Context, fn string, invoke func(*Status), dec ErrorDecoder) error {
	if err := d.Handshake(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Cancelled(fn, err)
	}

	var st Status
	invoke(&st)
	return d.check(fn, &st, dec)
}

func (d *Dispatcher) check(fn string, st *Status, dec ErrorDecoder) error {
	switch st.Code {
	case Success:
		return nil
	case Error:
		err := d.failure(fn, st.Payload, dec)
		d.log.Debug("boundary call failed", zap.String("function", fn), zap.Error(err))
		return err
	case UnexpectedError:
		err := errors.Panic(fn, panicMessage(st.Payload))
		d.log.Error("producer panicked", zap.String("function", fn), zap.Error(err))
		if d.policy == PanicAbort {
			d.log.Fatal("aborting on producer panic", zap.String("function", fn), zap.Error(err))
		}
		return err
	case Cancelled:
		d.log.Debug("boundary call cancelled", zap.String("function", fn))
		return errors.Cancelled(fn, nil)
	default:
		return errors.New(errors.PhaseCall, errors.KindMalformedData).
			Function(fn).
			Value(uint8(st.Code)).
			Detail("unknown status code %d", st.Code).
			Build()
	}
}

func (d *Dispatcher) failure(fn string, payload []byte, dec ErrorDecoder) error {
	if dec == nil {
		return errors.New(errors.PhaseCall, errors.KindRecoverable).
			Function(fn).
			Value(payload).
			Detail("producer failure with %d byte payload", len(payload)).
			Build()
	}
	v, err := dec(payload)
	if err != nil {
		return errors.New(errors.PhaseCall, errors.KindMalformedData).
			Function(fn).
			Detail("undecodable failure payload").
			Cause(err).
			Build()
	}
	e := errors.Recoverable(fn, v)
	if cause, ok := v.(error); ok {
		e.Cause = cause
	}
	return e
}

func panicMessage(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	r := codec.NewReader(payload)
	msg, err := r.String()
	if err != nil || r.Finish() != nil {
		return "producer panicked (undecodable message)"
	}
	return msg
}

// Invoke calls fn and returns its direct result. The result is the zero
// value whenever the error is non-nil.
func Invoke[T any](ctx context.Context, d *Dispatcher, fn string, invoke func(*Status) T, dec ErrorDecoder) (T, error) {
	var out T
	err := d.Call(ctx, fn, func(st *Status) {
		out = invoke(st)
	}, dec)
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// InvokeDecode calls fn, which returns an encoded value, and decodes it.
func InvokeDecode[T any](ctx context.Context, d *Dispatcher, fn string, invoke func(*Status) []byte, decode func([]byte) (T, error), dec ErrorDecoder) (T, error) {
	var zero T
	buf, err := Invoke(ctx, d, fn, invoke, dec)
	if err != nil {
		return zero, err
	}
	v, err := decode(buf)
	if err != nil {
		d.log.Debug("undecodable return value", zap.String("function", fn), zap.Error(err))
		if e, ok := err.(*errors.Error); ok && e.Function == "" {
			e.Function = fn
		}
		return zero, err
	}
	return v, nil
}
