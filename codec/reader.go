package codec

import (
	"encoding/binary"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/view-bridge/errors"
)

const (
	// MaxStringSize bounds string and byte buffer length prefixes.
	MaxStringSize = 16 << 20
	// MaxListLength bounds list element counts.
	MaxListLength = 1 << 20
)

// Reader decodes values from a buffer. It never reads past the end: every
// accessor checks the remaining length first and reports
// errors.KindBufferOverflow with the current field path.
type Reader struct {
	buf  []byte
	path []string
	off  int
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Enter pushes a path segment used in error reports.
func (r *Reader) Enter(name string) { r.path = append(r.path, name) }

// EnterIndex pushes an element index path segment.
func (r *Reader) EnterIndex(i int) { r.path = append(r.path, "["+strconv.Itoa(i)+"]") }

// Leave pops the last path segment.
func (r *Reader) Leave() {
	if len(r.path) > 0 {
		r.path = r.path[:len(r.path)-1]
	}
}

// Path returns a copy of the current field path.
func (r *Reader) Path() []string {
	return append([]string(nil), r.path...)
}

// Finish fails with errors.KindTrailingData unless every byte was consumed.
func (r *Reader) Finish() error {
	if r.off != len(r.buf) {
		return errors.TrailingData(r.off, len(r.buf))
	}
	return nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, errors.BufferOverflow(r.Path(), n, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) Bool() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errors.New(errors.PhaseDecode, errors.KindMalformedData).
		Path(r.Path()...).
		Value(b[0]).
		Detail("bool byte %d is neither 0 nor 1", b[0]).
		Build()
}

func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) S8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) S16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) S32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

func (r *Reader) U64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *Reader) S64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	return math.Float64frombits(v), err
}

// Handle reads an opaque 8-byte handle.
func (r *Reader) Handle() (uint64, error) {
	return r.U64()
}

func (r *Reader) length() (int, error) {
	n, err := r.U32()
	if err != nil {
		return 0, err
	}
	if n > MaxStringSize {
		return 0, errors.Malformed(errors.PhaseDecode, r.Path(),
			"length "+strconv.FormatUint(uint64(n), 10)+" exceeds limit")
	}
	return int(n), nil
}

// String reads a length-prefixed UTF-8 string. Invalid UTF-8 is rejected,
// never replaced.
func (r *Reader) String() (string, error) {
	n, err := r.length()
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.InvalidUTF8(r.Path(), b)
	}
	return string(b), nil
}

// Blob reads a length-prefixed byte buffer. The result is a copy.
func (r *Reader) Blob() ([]byte, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Present reads an option tag.
func (r *Reader) Present() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errors.New(errors.PhaseDecode, errors.KindMalformedData).
		Path(r.Path()...).
		Value(b[0]).
		Detail("option tag %d is neither 0 nor 1", b[0]).
		Build()
}

// Case reads a variant discriminant and checks it against the number of
// declared cases.
func (r *Reader) Case(cases int) (uint32, error) {
	disc, err := r.U32()
	if err != nil {
		return 0, err
	}
	if disc == 0 || int64(disc) > int64(cases) {
		return 0, errors.UnknownVariant(r.Path(), disc, cases)
	}
	return disc, nil
}

// Count reads a list element count.
func (r *Reader) Count() (int, error) {
	n, err := r.U32()
	if err != nil {
		return 0, err
	}
	if n > MaxListLength {
		return 0, errors.Malformed(errors.PhaseDecode, r.Path(),
			"list length "+strconv.FormatUint(uint64(n), 10)+" exceeds limit")
	}
	return int(n), nil
}
