package wasmtest

import "bytes"

const (
	magic   = 0x6d736100
	version = 1
)

// Section IDs
const (
	secType     = 1
	secImport   = 2
	secFunction = 3
	secMemory   = 5
	secGlobal   = 6
	secExport   = 7
	secCode     = 10
	secData     = 11
)

const (
	valI32 = 0x7f
	valI64 = 0x7e

	funcTypeByte = 0x60
	blockEmpty   = 0x40

	kindFunc   = 0x00
	kindMemory = 0x02
)

// Opcodes used by generated bodies.
const (
	opUnreachable = 0x00
	opLoop        = 0x03
	opIf          = 0x04
	opEnd         = 0x0b
	opBr          = 0x0c
	opReturn      = 0x0f
	opCall        = 0x10
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI64Store    = 0x37
	opI32Store8   = 0x3a
	opI32Const    = 0x41
	opI64Const    = 0x42
	opI64Eq       = 0x51
	opI32Add      = 0x6a
	opI32And      = 0x71
)

type writer struct {
	bytes.Buffer
}

func (w *writer) u32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

func (w *writer) s64(v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		w.WriteByte(b)
		if done {
			return
		}
	}
}

func (w *writer) s32(v int32) { w.s64(int64(v)) }

func (w *writer) le32(v uint32) {
	w.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func (w *writer) name(s string) {
	w.u32(uint32(len(s)))
	w.WriteString(s)
}

func (w *writer) vec(b []byte) {
	w.u32(uint32(len(b)))
	w.Write(b)
}

func (w *writer) section(id byte, count int, body []byte) {
	if count == 0 {
		return
	}
	var sec writer
	sec.u32(uint32(count))
	sec.Write(body)
	w.WriteByte(id)
	w.vec(sec.Bytes())
}

// memarg writes the alignment exponent and offset of a load or store.
func (w *writer) memarg(align, offset uint32) {
	w.u32(align)
	w.u32(offset)
}

type funcType struct {
	params  []byte
	results []byte
}

func (t funcType) key() string {
	return string(t.params) + "|" + string(t.results)
}

func (t funcType) encode(w *writer) {
	w.WriteByte(funcTypeByte)
	w.vec(t.params)
	w.vec(t.results)
}
