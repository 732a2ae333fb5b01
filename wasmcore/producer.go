package wasmcore

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/view-bridge/abi"
	"github.com/wippyai/view-bridge/dispatch"
	"github.com/wippyai/view-bridge/errors"
)

// statusSize is the guest status record: code u8 at 0, payload at 8.
const statusSize = 16

// Config holds configuration for loading a producer.
type Config struct {
	// Name is the module name inside the runtime. Default "producer".
	Name string

	// MemoryLimitPages caps guest memory in 64KiB pages. 0 keeps the
	// wazero default.
	MemoryLimitPages uint32
}

// Producer is a loaded WebAssembly producer.
type Producer struct {
	ctx       context.Context
	runtime   wazero.Runtime
	mod       api.Module
	mem       api.Memory
	realloc   api.Function
	fns       map[string]api.Function
	checksums map[string]uint16
	subs      map[uint64]abi.Trampoline
	log       *zap.Logger
	status    uint32
	version   uint32
	mu        sync.Mutex
	subsMu    sync.Mutex
}

var _ abi.Exports = (*Producer)(nil)

// Load compiles and instantiates wasm. ctx bounds the producer's lifetime:
// every call into the guest runs under it.
func Load(ctx context.Context, wasm []byte, cfg *Config) (*Producer, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	name := cfg.Name
	if name == "" {
		name = "producer"
	}

	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, rc)

	p := &Producer{
		ctx:       ctx,
		runtime:   r,
		fns:       make(map[string]api.Function, len(abi.Functions)),
		checksums: make(map[string]uint16, len(abi.Functions)),
		subs:      make(map[uint64]abi.Trampoline),
		log:       Logger(),
	}
	if err := p.instantiate(ctx, name, wasm); err != nil {
		r.Close(ctx)
		return nil, err
	}
	p.log.Debug("producer loaded",
		zap.String("module", name),
		zap.Uint32("contract_version", p.version),
		zap.Int("functions", len(p.fns)))
	return p, nil
}

func (p *Producer) instantiate(ctx context.Context, name string, wasm []byte) error {
	_, err := p.runtime.NewHostModuleBuilder(abi.HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(p.invokeSubscriber),
			[]api.ValueType{api.ValueTypeI64}, []api.ValueType{}).
		Export(abi.HostInvokeSubscriber).
		Instantiate(ctx)
	if err != nil {
		return errors.Load("instantiate host module", err)
	}

	compiled, err := p.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return errors.Load("compile producer", err)
	}
	mod, err := p.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return errors.Load("instantiate producer", err)
	}
	p.mod = mod

	if p.mem = mod.Memory(); p.mem == nil {
		return errors.Load("producer exports no memory", nil)
	}
	if p.realloc = mod.ExportedFunction(abi.ExportRealloc); p.realloc == nil {
		return errors.Load("producer exports no "+abi.ExportRealloc, nil)
	}
	if p.status, err = p.alloc(ctx, statusSize, 8); err != nil {
		return errors.Load("allocate status record", err)
	}

	if fn := mod.ExportedFunction(abi.ExportContractVersion); fn != nil {
		res, err := fn.Call(ctx)
		if err != nil {
			return errors.Load("read contract version", err)
		}
		p.version = uint32(res[0])
	}
	for _, fn := range abi.Functions {
		if f := mod.ExportedFunction(fn); f != nil {
			p.fns[fn] = f
		}
		sum := mod.ExportedFunction(abi.ChecksumPrefix + fn)
		if sum == nil {
			continue
		}
		res, err := sum.Call(ctx)
		if err != nil {
			return errors.Load("read checksum of "+fn, err)
		}
		p.checksums[fn] = uint16(res[0])
	}
	return nil
}

// Close tears down the runtime and the guest with it.
func (p *Producer) Close(ctx context.Context) error {
	return p.runtime.Close(ctx)
}

// ContractVersion returns the version the guest reported at load time,
// or 0 when it exports none.
func (p *Producer) ContractVersion() uint32 { return p.version }

// Checksum returns the checksum the guest reported for fn, or 0.
func (p *Producer) Checksum(fn string) uint16 { return p.checksums[fn] }

func (p *Producer) alloc(ctx context.Context, size, align uint32) (uint32, error) {
	res, err := p.realloc.Call(ctx, 0, 0, uint64(align), uint64(size))
	if err != nil {
		return 0, err
	}
	return uint32(res[0]), nil
}

func (p *Producer) invokeSubscriber(_ context.Context, _ api.Module, stack []uint64) {
	state := stack[0]
	p.subsMu.Lock()
	tr := p.subs[state]
	delete(p.subs, state)
	p.subsMu.Unlock()

	if tr == nil {
		p.log.Debug("guest fired unknown subscriber", zap.Uint64("state", state))
		return
	}
	tr(state)
}

// call runs fn with args and the status pointer and fills st from the
// guest's status record. The caller holds p.mu.
func (p *Producer) call(fn string, st *dispatch.Status, args ...uint64) uint64 {
	f := p.fns[fn]
	if f == nil {
		fail(st, dispatch.UnexpectedError, fmt.Sprintf("producer does not export %s", fn))
		return 0
	}
	if !p.mem.WriteByte(p.status, 0) || !p.mem.WriteUint64Le(p.status+8, 0) {
		fail(st, dispatch.UnexpectedError, "status record out of bounds")
		return 0
	}

	res, err := f.Call(p.ctx, append(args, uint64(p.status))...)
	if err != nil {
		p.trap(fn, err, st)
		return 0
	}

	code, ok := p.mem.ReadByte(p.status)
	packed, ok2 := p.mem.ReadUint64Le(p.status + 8)
	if !ok || !ok2 {
		fail(st, dispatch.UnexpectedError, "status record out of bounds")
		return 0
	}
	st.Code = dispatch.Code(code)
	if st.Code != dispatch.Success && packed != 0 {
		payload, ok := p.read(packed)
		if !ok {
			fail(st, dispatch.UnexpectedError, "status payload out of bounds")
			return 0
		}
		st.Payload = payload
	}
	if len(res) == 0 {
		return 0
	}
	return res[0]
}

func (p *Producer) trap(fn string, err error, st *dispatch.Status) {
	var exit *sys.ExitError
	if stderrors.As(err, &exit) {
		switch exit.ExitCode() {
		case sys.ExitCodeContextCanceled, sys.ExitCodeDeadlineExceeded:
			p.log.Debug("producer call cancelled", zap.String("function", fn), zap.Error(err))
			st.Code = dispatch.Cancelled
			st.Payload = nil
			return
		}
	}
	p.log.Warn("producer trapped", zap.String("function", fn), zap.Error(err))
	fail(st, dispatch.UnexpectedError, err.Error())
}

func fail(st *dispatch.Status, code dispatch.Code, msg string) {
	st.Code = code
	st.Payload = dispatch.Message(msg)
}

// read copies a packed guest buffer out of memory.
func (p *Producer) read(packed uint64) ([]byte, bool) {
	ptr, n := uint32(packed>>32), uint32(packed)
	if n == 0 {
		return nil, true
	}
	b, ok := p.mem.Read(ptr, n)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

func (p *Producer) scalar(fn string, st *dispatch.Status, args ...uint64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.call(fn, st, args...)
}

func (p *Producer) buffer(fn string, st *dispatch.Status, args ...uint64) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	packed := p.call(fn, st, args...)
	if st.Code != dispatch.Success {
		return nil
	}
	b, ok := p.read(packed)
	if !ok {
		fail(st, dispatch.UnexpectedError, fn+" result out of bounds")
		return nil
	}
	return b
}

func (p *Producer) ProbeEmpty(view uint64, st *dispatch.Status) []byte {
	return p.buffer(abi.FnProbeEmpty, st, view)
}

func (p *Producer) ProbeText(view uint64, st *dispatch.Status) []byte {
	return p.buffer(abi.FnProbeText, st, view)
}

func (p *Producer) ProbeButton(view uint64, st *dispatch.Status) []byte {
	return p.buffer(abi.FnProbeButton, st, view)
}

func (p *Producer) ProbeStack(view uint64, st *dispatch.Status) []byte {
	return p.buffer(abi.FnProbeStack, st, view)
}

func (p *Producer) ProbeTapGesture(view uint64, st *dispatch.Status) []byte {
	return p.buffer(abi.FnProbeTapGesture, st, view)
}

func (p *Producer) ProbeFrame(view uint64, st *dispatch.Status) []byte {
	return p.buffer(abi.FnProbeFrame, st, view)
}

func (p *Producer) ProbeMenu(view uint64, st *dispatch.Status) []byte {
	return p.buffer(abi.FnProbeMenu, st, view)
}

func (p *Producer) ProbeTextField(view uint64, st *dispatch.Status) []byte {
	return p.buffer(abi.FnProbeTextField, st, view)
}

func (p *Producer) ProbeToggle(view uint64, st *dispatch.Status) []byte {
	return p.buffer(abi.FnProbeToggle, st, view)
}

func (p *Producer) ProbeDivider(view uint64, st *dispatch.Status) []byte {
	return p.buffer(abi.FnProbeDivider, st, view)
}

func (p *Producer) Materialize(view uint64, st *dispatch.Status) uint64 {
	return p.scalar(abi.FnMaterialize, st, view)
}

// Subscribe records sub's trampoline before entering the guest, which may
// fire it before returning.
func (p *Producer) Subscribe(view uint64, sub abi.Subscriber, st *dispatch.Status) {
	if sub.Invoke == nil {
		fail(st, dispatch.UnexpectedError, "subscriber without trampoline")
		return
	}
	p.subsMu.Lock()
	p.subs[sub.State] = sub.Invoke
	p.subsMu.Unlock()

	p.scalar(abi.FnSubscribe, st, view, sub.State)
	if st.Code != dispatch.Success {
		p.subsMu.Lock()
		delete(p.subs, sub.State)
		p.subsMu.Unlock()
	}
}

func (p *Producer) CloneObject(h uint64, st *dispatch.Status) uint64 {
	return p.scalar(abi.FnCloneObject, st, h)
}

func (p *Producer) FreeObject(h uint64, st *dispatch.Status) {
	p.scalar(abi.FnFreeObject, st, h)
}

func (p *Producer) InvokeAction(action uint64, st *dispatch.Status) {
	p.scalar(abi.FnInvokeAction, st, action)
}

func (p *Producer) ComputeFont(font uint64, st *dispatch.Status) []byte {
	return p.buffer(abi.FnComputeFont, st, font)
}

func (p *Producer) ReadBinding(binding uint64, st *dispatch.Status) []byte {
	return p.buffer(abi.FnReadBinding, st, binding)
}

// WriteBinding copies value into guest memory allocated with cabi_realloc;
// the guest owns the copy.
func (p *Producer) WriteBinding(binding uint64, value []byte, st *dispatch.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var packed uint64
	if len(value) > 0 {
		ptr, err := p.alloc(p.ctx, uint32(len(value)), 1)
		if err != nil {
			p.trap(abi.FnWriteBinding, err, st)
			return
		}
		if !p.mem.Write(ptr, value) {
			fail(st, dispatch.UnexpectedError, "binding value out of bounds")
			return
		}
		packed = uint64(ptr)<<32 | uint64(len(value))
	}
	p.call(abi.FnWriteBinding, st, binding, packed)
}

// ReadBoolBinding reads a bool binding; the guest returns it as 0 or 1.
func (p *Producer) ReadBoolBinding(binding uint64, st *dispatch.Status) bool {
	v := p.scalar(abi.FnReadBoolBinding, st, binding)
	if st.Code != dispatch.Success {
		return false
	}
	switch v {
	case 0:
		return false
	case 1:
		return true
	}
	fail(st, dispatch.UnexpectedError, fmt.Sprintf("%s returned %d, want 0 or 1", abi.FnReadBoolBinding, v))
	return false
}

func (p *Producer) WriteBoolBinding(binding uint64, value bool, st *dispatch.Status) {
	var v uint64
	if value {
		v = 1
	}
	p.scalar(abi.FnWriteBoolBinding, st, binding, v)
}

// Memory exposes guest memory for inspection.
func (p *Producer) Memory() api.Memory { return p.mem }
