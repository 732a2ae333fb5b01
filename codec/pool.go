package codec

import "sync"

const (
	// Pool limits to prevent memory bloat
	poolMaxCap  = 64 << 10
	poolInitCap = 256
)

var writerPool = sync.Pool{
	New: func() any {
		return &Writer{buf: make([]byte, 0, poolInitCap)}
	},
}

// GetWriter returns an empty pooled Writer. Release it with PutWriter.
func GetWriter() *Writer {
	return writerPool.Get().(*Writer)
}

// PutWriter returns w to the pool. w must not be used afterwards.
func PutWriter(w *Writer) {
	if w == nil || cap(w.buf) > poolMaxCap {
		return // reject oversized
	}
	w.buf = w.buf[:0]
	writerPool.Put(w)
}
