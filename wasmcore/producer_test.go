package wasmcore

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/wippyai/view-bridge/abi"
	"github.com/wippyai/view-bridge/codec"
	"github.com/wippyai/view-bridge/dispatch"
	"github.com/wippyai/view-bridge/errors"
	"github.com/wippyai/view-bridge/handle"
	"github.com/wippyai/view-bridge/internal/wasmtest"
	"github.com/wippyai/view-bridge/view"
	"go.uber.org/zap/zaptest"
)

func load(t *testing.T, g *wasmtest.Guest) *Producer {
	t.Helper()
	return loadCtx(t, context.Background(), g)
}

func loadCtx(t *testing.T, ctx context.Context, g *wasmtest.Guest) *Producer {
	t.Helper()
	p, err := Load(ctx, g.Bytes(), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	t.Cleanup(func() { p.Close(context.Background()) })
	return p
}

func TestLoad(t *testing.T) {
	p := load(t, wasmtest.New())

	if p.ContractVersion() != abi.ContractVersion {
		t.Errorf("ContractVersion = %d, want %d", p.ContractVersion(), abi.ContractVersion)
	}
	for _, fn := range abi.Functions {
		if got, want := p.Checksum(fn), abi.Checksum(fn); got != want {
			t.Errorf("Checksum(%s) = %#x, want %#x", fn, got, want)
		}
	}
	if err := dispatch.New(p, abi.ExpectedContract()).Handshake(); err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := Load(context.Background(), []byte("not wasm"), nil)
	if errors.KindOf(err) != errors.KindMalformedData {
		t.Fatalf("Load error = %v, want malformed_data", err)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Phase != errors.PhaseLoad {
		t.Errorf("error = %#v, want load phase", err)
	}
}

func TestHandshakeMismatch(t *testing.T) {
	tests := []struct {
		guest *wasmtest.Guest
		name  string
		fn    string
	}{
		{name: "version", guest: wasmtest.New().Version(abi.ContractVersion + 1)},
		{name: "checksum", guest: wasmtest.New().Checksum(abi.FnProbeMenu, abi.Checksum(abi.FnProbeMenu)+1), fn: abi.FnProbeMenu},
		{name: "missing", guest: wasmtest.New().Omit(abi.FnReadBinding), fn: abi.FnReadBinding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := load(t, tt.guest)
			d := dispatch.New(p, abi.ExpectedContract())
			err := d.Handshake()
			if !stderrors.Is(err, errors.ErrContractMismatch) {
				t.Fatalf("Handshake = %v, want contract mismatch", err)
			}
			if tt.fn != "" {
				var e *errors.Error
				if !stderrors.As(err, &e) || e.Function != tt.fn {
					t.Errorf("mismatch function = %v, want %s", err, tt.fn)
				}
			}
			callErr := d.Call(context.Background(), abi.FnProbeEmpty, func(st *dispatch.Status) {
				p.ProbeEmpty(1, st)
			}, nil)
			if !stderrors.Is(callErr, errors.ErrContractMismatch) {
				t.Errorf("Call after mismatch = %v, want contract mismatch", callErr)
			}
		})
	}
}

func TestStatusCodes(t *testing.T) {
	unknown := codec.Marshal(abi.NewUnknownObject(5))
	p := load(t, wasmtest.New().
		Fail(abi.FnProbeEmpty, 7, dispatch.Error, unknown).
		Trap(abi.FnInvokeAction, 0).
		Omit(abi.FnComputeFont))

	var st dispatch.Status
	if out := p.ProbeEmpty(1, &st); st.Code != dispatch.Success || len(out) != 1 || out[0] != 0 {
		t.Fatalf("ProbeEmpty(1) = %x, %v", out, st.Code)
	}

	st.Reset()
	p.ProbeEmpty(7, &st)
	if st.Code != dispatch.Error {
		t.Fatalf("ProbeEmpty(7) code = %v, want error", st.Code)
	}
	v, err := abi.DecodeCoreError(st.Payload)
	if err != nil {
		t.Fatalf("DecodeCoreError failed: %v", err)
	}
	if ce := v.(*abi.CoreError); ce.Kind != abi.ErrUnknownObject || ce.Object != 5 {
		t.Errorf("core error = %+v", ce)
	}

	st.Reset()
	p.InvokeAction(1, &st)
	if st.Code != dispatch.UnexpectedError {
		t.Fatalf("trap code = %v, want unexpected_error", st.Code)
	}
	msg, err := abi.DecodeString(st.Payload)
	if err != nil || !strings.Contains(msg, "unreachable") {
		t.Errorf("trap message = %q, %v", msg, err)
	}

	st.Reset()
	p.ComputeFont(1, &st)
	if st.Code != dispatch.UnexpectedError {
		t.Errorf("missing export code = %v, want unexpected_error", st.Code)
	}

	// A trap leaves the instance usable.
	st.Reset()
	p.ProbeEmpty(1, &st)
	if st.Code != dispatch.Success {
		t.Errorf("call after trap = %v, want success", st.Code)
	}

	trapping := load(t, wasmtest.New().Trap(abi.FnInvokeAction, 0))
	d := dispatch.New(trapping, abi.ExpectedContract(), dispatch.WithLogger(zaptest.NewLogger(t)))
	err = d.Call(context.Background(), abi.FnInvokeAction, func(st *dispatch.Status) {
		trapping.InvokeAction(1, st)
	}, abi.DecodeCoreError)
	if errors.KindOf(err) != errors.KindPanic {
		t.Errorf("dispatched trap = %v, want panic", err)
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	p := loadCtx(t, ctx, wasmtest.New().Loop(abi.FnInvokeAction, 0))

	var st dispatch.Status
	p.InvokeAction(1, &st)
	if st.Code != dispatch.Cancelled {
		t.Fatalf("code = %v, want cancelled", st.Code)
	}
}

func TestSubscribeFires(t *testing.T) {
	p := load(t, wasmtest.New().Fire(abi.FnSubscribe))

	var fired []uint64
	sub := abi.Subscriber{State: 42, Invoke: func(state uint64) { fired = append(fired, state) }}
	var st dispatch.Status
	p.Subscribe(1, sub, &st)
	if st.Code != dispatch.Success {
		t.Fatalf("Subscribe code = %v", st.Code)
	}
	if len(fired) != 1 || fired[0] != 42 {
		t.Fatalf("fired = %v, want [42]", fired)
	}

	// The trampoline was consumed; a second firing of the same state is
	// dropped.
	p.invokeSubscriber(context.Background(), nil, []uint64{42})
	if len(fired) != 1 {
		t.Errorf("fired = %v after consumed token", fired)
	}

	st.Reset()
	p.Subscribe(1, abi.Subscriber{State: 1}, &st)
	if st.Code != dispatch.UnexpectedError {
		t.Errorf("nil trampoline code = %v", st.Code)
	}
}

func TestWriteBinding(t *testing.T) {
	p := load(t, wasmtest.New())

	var st dispatch.Status
	p.WriteBinding(3, []byte("hi"), &st)
	if st.Code != dispatch.Success {
		t.Fatalf("WriteBinding code = %v", st.Code)
	}
	// The status record takes the first heap slot; the value follows.
	got, ok := p.Memory().Read(1024+statusSize, 2)
	if !ok || string(got) != "hi" {
		t.Errorf("guest memory = %q, %v", got, ok)
	}
}

func TestBoolBinding(t *testing.T) {
	p := load(t, wasmtest.New().
		Value(abi.FnReadBoolBinding, 5, 1).
		Value(abi.FnReadBoolBinding, 6, 7))

	var st dispatch.Status
	if v := p.ReadBoolBinding(5, &st); st.Code != dispatch.Success || !v {
		t.Errorf("ReadBoolBinding(5) = %v, %v; want true", v, st.Code)
	}
	st.Reset()
	if v := p.ReadBoolBinding(1, &st); st.Code != dispatch.Success || v {
		t.Errorf("ReadBoolBinding(1) = %v, %v; want false", v, st.Code)
	}
	st.Reset()
	p.ReadBoolBinding(6, &st)
	if st.Code != dispatch.UnexpectedError {
		t.Errorf("ReadBoolBinding(6) code = %v, want unexpected_error", st.Code)
	}
	st.Reset()
	p.WriteBoolBinding(5, true, &st)
	if st.Code != dispatch.Success {
		t.Errorf("WriteBoolBinding code = %v", st.Code)
	}
}

func TestToggleThroughWasm(t *testing.T) {
	const (
		root    = 1
		label   = 2
		binding = 3
	)
	g := wasmtest.New().
		Buffer(abi.FnProbeToggle, root, abi.EncodeProbe(abi.Toggle{Label: label, Value: binding, Style: abi.ToggleSwitch})).
		Buffer(abi.FnProbeDivider, label, abi.EncodeProbe(abi.Divider{})).
		Value(abi.FnReadBoolBinding, binding, 1)
	p := load(t, g)

	d := dispatch.New(p, abi.ExpectedContract(), dispatch.WithLogger(zaptest.NewLogger(t)))
	cl := view.NewClient(p, d, handle.NewRegistry())
	s := view.NewSession(cl, cl.Own(root), view.WithLogger(zaptest.NewLogger(t)))
	ctx := context.Background()

	n, err := s.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	tg, ok := n.Prim.(view.Toggle)
	if !ok || tg.Style != abi.ToggleSwitch {
		t.Fatalf("root = %#v, want switch toggle", n.Prim)
	}
	if n.Child() == nil || n.Child().Kind() != view.KindDivider {
		t.Fatalf("toggle label = %#v, want divider", n.Child())
	}
	on, err := s.ReadBoolBinding(ctx, tg.Value)
	if err != nil || !on {
		t.Errorf("ReadBoolBinding = %v, %v; want true", on, err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestResolveThroughWasm(t *testing.T) {
	const (
		dynamic = 1
		body    = 2
		binding = 4
	)
	g := wasmtest.New().
		Value(abi.FnMaterialize, dynamic, body).
		Fire(abi.FnSubscribe).
		Buffer(abi.FnProbeText, body, abi.EncodeProbe(abi.Text{Content: "wasm", Selectable: true})).
		Buffer(abi.FnReadBinding, binding, abi.EncodeString("from wasm")).
		Buffer(abi.FnComputeFont, 0, codec.Marshal(abi.Font{Size: 12, Bold: true}))
	p := load(t, g)

	d := dispatch.New(p, abi.ExpectedContract(), dispatch.WithLogger(zaptest.NewLogger(t)))
	cl := view.NewClient(p, d, handle.NewRegistry())
	s := view.NewSession(cl, cl.Own(dynamic), view.WithLogger(zaptest.NewLogger(t)))
	ctx := context.Background()

	root, err := s.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if root.Kind() != view.KindComputed {
		t.Fatalf("root kind = %v, want computed", root.Kind())
	}
	txt, ok := root.Child().Prim.(view.Text)
	if !ok || txt.Content != "wasm" || !txt.Selectable || txt.Font != nil {
		t.Fatalf("body = %#v", root.Child().Prim)
	}

	// The guest fires during subscribe, so one refresh is already queued.
	if s.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", s.Pending())
	}
	if n, err := s.Flush(ctx); err != nil || n != 1 {
		t.Fatalf("Flush = %d, %v", n, err)
	}

	got, err := s.ReadBinding(ctx, cl.Own(binding))
	if err != nil || got != "from wasm" {
		t.Errorf("ReadBinding = %q, %v", got, err)
	}
	font, err := s.Font(ctx, cl.Own(9))
	if err != nil || font.Size != 12 || !font.Bold {
		t.Errorf("Font = %+v, %v", font, err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
