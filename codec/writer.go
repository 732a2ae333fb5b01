package codec

import (
	"encoding/binary"
	"math"
)

// Writer appends encoded values to a growing buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity hint n.
func NewWriter(n int) *Writer {
	return &Writer{buf: make([]byte, 0, n)}
}

// Bytes returns a copy of the encoded bytes.
func (w *Writer) Bytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Reset discards written bytes, keeping capacity.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

func (w *Writer) Bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) U8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) S8(v int8)    { w.buf = append(w.buf, uint8(v)) }
func (w *Writer) U16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *Writer) S16(v int16)  { w.U16(uint16(v)) }
func (w *Writer) U32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *Writer) S32(v int32)  { w.U32(uint32(v)) }
func (w *Writer) U64(v uint64) { w.buf = binary.BigEndian.AppendUint64(w.buf, v) }
func (w *Writer) S64(v int64)  { w.U64(uint64(v)) }

func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }
func (w *Writer) F64(v float64) { w.U64(math.Float64bits(v)) }

// Handle writes an opaque 8-byte handle.
func (w *Writer) Handle(h uint64) { w.U64(h) }

// String writes a u32 length prefix and the raw UTF-8 bytes.
func (w *Writer) String(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Blob writes a u32 length prefix and raw bytes.
func (w *Writer) Blob(b []byte) {
	w.U32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// Raw appends an already encoded value.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Present writes an option tag.
func (w *Writer) Present(ok bool) { w.Bool(ok) }

// Case writes a 1-based variant discriminant.
func (w *Writer) Case(disc uint32) { w.U32(disc) }

// Count writes a list element count.
func (w *Writer) Count(n int) { w.U32(uint32(n)) }
