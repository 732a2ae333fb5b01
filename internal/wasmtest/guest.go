// Package wasmtest builds small WebAssembly producer modules for tests.
//
// A Guest answers every boundary function with canned behavior: a fixed
// buffer or value, a failure status, a trap, an endless loop or, for
// subscribe, an immediate call back into the host. Behavior can depend on
// the first handle argument.
package wasmtest

import (
	"github.com/wippyai/view-bridge/abi"
	"github.com/wippyai/view-bridge/dispatch"
)

type action uint8

const (
	actReturn action = iota
	actFail
	actTrap
	actLoop
	actFire
)

type rule struct {
	data   []byte
	value  uint64
	view   uint64
	act    action
	code   dispatch.Code
	buffer bool
}

// Guest describes a producer module.
type Guest struct {
	checksums map[string]uint16
	rules     map[string][]rule
	fallback  map[string]rule
	version   uint32
}

// New returns a guest that speaks the current contract, answers every
// probe with none and every other function with success and zero.
func New() *Guest {
	g := &Guest{
		checksums: make(map[string]uint16),
		rules:     make(map[string][]rule),
		fallback:  make(map[string]rule),
		version:   abi.ContractVersion,
	}
	for _, fn := range abi.Functions {
		g.checksums[fn] = abi.Checksum(fn)
		if abi.ReturnsBuffer(fn) {
			g.fallback[fn] = rule{buffer: true, data: abi.EncodeProbe(nil)}
		} else {
			g.fallback[fn] = rule{}
		}
	}
	return g
}

// Version overrides the reported contract version.
func (g *Guest) Version(v uint32) *Guest {
	g.version = v
	return g
}

// Checksum overrides the checksum reported for fn.
func (g *Guest) Checksum(fn string, sum uint16) *Guest {
	g.checksums[fn] = sum
	return g
}

// Omit drops fn's export entirely, checksum included.
func (g *Guest) Omit(fn string) *Guest {
	delete(g.checksums, fn)
	delete(g.fallback, fn)
	delete(g.rules, fn)
	return g
}

func (g *Guest) add(fn string, r rule) *Guest {
	if r.view == 0 {
		g.fallback[fn] = r
		return g
	}
	g.rules[fn] = append(g.rules[fn], r)
	return g
}

// Buffer makes fn return b when called with view. View 0 matches any
// handle not matched by another rule.
func (g *Guest) Buffer(fn string, view uint64, b []byte) *Guest {
	return g.add(fn, rule{view: view, buffer: true, data: b})
}

// Value makes fn return v when called with view.
func (g *Guest) Value(fn string, view, v uint64) *Guest {
	return g.add(fn, rule{view: view, value: v})
}

// Fail makes fn report code with payload when called with view.
func (g *Guest) Fail(fn string, view uint64, code dispatch.Code, payload []byte) *Guest {
	return g.add(fn, rule{view: view, act: actFail, code: code, data: payload})
}

// Trap makes fn execute unreachable when called with view.
func (g *Guest) Trap(fn string, view uint64) *Guest {
	return g.add(fn, rule{view: view, act: actTrap})
}

// Loop makes fn spin forever when called with view.
func (g *Guest) Loop(fn string, view uint64) *Guest {
	return g.add(fn, rule{view: view, act: actLoop})
}

// Fire makes fn pass its second argument to the host's
// invoke_subscriber before succeeding. It is meant for subscribe.
func (g *Guest) Fire(fn string) *Guest {
	return g.add(fn, rule{act: actFire})
}

const dataBase = 16

// Bytes encodes the module.
func (g *Guest) Bytes() []byte {
	var (
		types   []funcType
		typeIdx = map[string]uint32{}
		funcs   []uint32
		exports writer
		nexport int
		code    writer
		data    writer
		ndata   int
	)
	typeOf := func(t funcType) uint32 {
		if i, ok := typeIdx[t.key()]; ok {
			return i
		}
		i := uint32(len(types))
		types = append(types, t)
		typeIdx[t.key()] = i
		return i
	}

	// Lay out every blob in one data area.
	next := uint32(dataBase)
	place := func(b []byte) uint64 {
		if len(b) == 0 {
			return 0
		}
		ptr := next
		data.WriteByte(0)
		data.WriteByte(opI32Const)
		data.s32(int32(ptr))
		data.WriteByte(opEnd)
		data.vec(b)
		ndata++
		next = (next + uint32(len(b)) + 7) &^ 7
		return uint64(ptr)<<32 | uint64(len(b))
	}

	importType := typeOf(funcType{params: []byte{valI64}})

	export := func(name string, kind byte, idx uint32) {
		exports.name(name)
		exports.WriteByte(kind)
		exports.u32(idx)
		nexport++
	}
	define := func(name string, t funcType, locals []byte, body []byte) {
		funcs = append(funcs, typeOf(t))
		var fn writer
		if len(locals) == 0 {
			fn.u32(0)
		} else {
			fn.u32(uint32(len(locals)))
			for _, l := range locals {
				fn.u32(1)
				fn.WriteByte(l)
			}
		}
		fn.Write(body)
		code.vec(fn.Bytes())
		export(name, kindFunc, uint32(len(funcs)))
	}

	define(abi.ExportRealloc, funcType{
		params:  []byte{valI32, valI32, valI32, valI32},
		results: []byte{valI32},
	}, []byte{valI32}, reallocBody())

	define(abi.ExportContractVersion, funcType{results: []byte{valI32}}, nil, constI32(int32(g.version)))

	for _, fn := range abi.Functions {
		if sum, ok := g.checksums[fn]; ok {
			define(abi.ChecksumPrefix+fn, funcType{results: []byte{valI32}}, nil, constI32(int32(sum)))
		}
	}

	for _, fn := range abi.Functions {
		fallback, ok := g.fallback[fn]
		if !ok {
			continue
		}
		arity := abi.Arity(fn)
		params := make([]byte, 0, arity+1)
		for range arity {
			params = append(params, valI64)
		}
		params = append(params, valI32)

		var body writer
		st := uint32(arity)
		for _, r := range g.rules[fn] {
			body.WriteByte(opLocalGet)
			body.u32(0)
			body.WriteByte(opI64Const)
			body.s64(int64(r.view))
			body.WriteByte(opI64Eq)
			body.WriteByte(opIf)
			body.WriteByte(blockEmpty)
			emit(&body, r, st, place)
			body.WriteByte(opEnd)
		}
		emit(&body, fallback, st, place)
		body.WriteByte(opEnd)

		define(fn, funcType{params: params, results: []byte{valI64}}, nil, body.Bytes())
	}

	var m writer
	m.le32(magic)
	m.le32(version)

	var sec writer
	for _, t := range types {
		t.encode(&sec)
	}
	m.section(secType, len(types), sec.Bytes())

	sec.Reset()
	sec.name(abi.HostModule)
	sec.name(abi.HostInvokeSubscriber)
	sec.WriteByte(kindFunc)
	sec.u32(importType)
	m.section(secImport, 1, sec.Bytes())

	sec.Reset()
	for _, t := range funcs {
		sec.u32(t)
	}
	m.section(secFunction, len(funcs), sec.Bytes())

	// Two pages, no maximum.
	m.section(secMemory, 1, []byte{0x00, 0x02})

	heap := (next + 1023) &^ 1023
	sec.Reset()
	sec.WriteByte(valI32)
	sec.WriteByte(0x01)
	sec.WriteByte(opI32Const)
	sec.s32(int32(heap))
	sec.WriteByte(opEnd)
	m.section(secGlobal, 1, sec.Bytes())

	export(abi.ExportMemory, kindMemory, 0)
	m.section(secExport, nexport, exports.Bytes())
	m.section(secCode, len(funcs), code.Bytes())
	m.section(secData, ndata, data.Bytes())
	return m.Bytes()
}

func constI32(v int32) []byte {
	var w writer
	w.WriteByte(opI32Const)
	w.s32(v)
	w.WriteByte(opEnd)
	return w.Bytes()
}

// reallocBody is a bump allocator over global 0 with 8 byte alignment.
// It never frees.
func reallocBody() []byte {
	var w writer
	w.WriteByte(opGlobalGet)
	w.u32(0)
	w.WriteByte(opI32Const)
	w.s32(7)
	w.WriteByte(opI32Add)
	w.WriteByte(opI32Const)
	w.s32(-8)
	w.WriteByte(opI32And)
	w.WriteByte(opLocalSet)
	w.u32(4)
	w.WriteByte(opLocalGet)
	w.u32(4)
	w.WriteByte(opLocalGet)
	w.u32(3)
	w.WriteByte(opI32Add)
	w.WriteByte(opGlobalSet)
	w.u32(0)
	w.WriteByte(opLocalGet)
	w.u32(4)
	w.WriteByte(opEnd)
	return w.Bytes()
}

// emit writes one rule's behavior. Every path leaves the function.
func emit(w *writer, r rule, st uint32, place func([]byte) uint64) {
	status := func(code dispatch.Code, payload uint64) {
		w.WriteByte(opLocalGet)
		w.u32(st)
		w.WriteByte(opI32Const)
		w.s32(int32(code))
		w.WriteByte(opI32Store8)
		w.memarg(0, 0)
		w.WriteByte(opLocalGet)
		w.u32(st)
		w.WriteByte(opI64Const)
		w.s64(int64(payload))
		w.WriteByte(opI64Store)
		w.memarg(3, 8)
	}
	ret := func(v uint64) {
		w.WriteByte(opI64Const)
		w.s64(int64(v))
		w.WriteByte(opReturn)
	}

	switch r.act {
	case actReturn:
		status(dispatch.Success, 0)
		if r.buffer {
			ret(place(r.data))
		} else {
			ret(r.value)
		}
	case actFail:
		status(r.code, place(r.data))
		ret(0)
	case actTrap:
		w.WriteByte(opUnreachable)
	case actLoop:
		w.WriteByte(opLoop)
		w.WriteByte(blockEmpty)
		w.WriteByte(opBr)
		w.u32(0)
		w.WriteByte(opEnd)
		w.WriteByte(opUnreachable)
	case actFire:
		w.WriteByte(opLocalGet)
		w.u32(1)
		w.WriteByte(opCall)
		w.u32(0)
		status(dispatch.Success, 0)
		ret(0)
	}
}
