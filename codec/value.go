package codec

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/view-bridge/errors"
)

// Dynamic value representations used by Encode and Decode:
//
//	bool, uint8..uint64, int8..int64, float32, float64, string, []byte
//	Handle         handle
//	Option         option<T>
//	Variant        variant
//	[]any          record (fields in order) and list
type (
	// Handle is an opaque 8-byte reference.
	Handle uint64

	// Option is a possibly absent value.
	Option struct {
		Value any
		Valid bool
	}

	// Variant is a tagged union value. Case is the 1-based discriminant.
	Variant struct {
		Fields []any
		Case   uint32
	}
)

// Some returns a present Option.
func Some(v any) Option { return Option{Value: v, Valid: true} }

// None returns an absent Option.
func None() Option { return Option{} }

// Encode encodes v according to t.
func Encode(t *Type, v any) ([]byte, error) {
	w := GetWriter()
	defer PutWriter(w)
	if err := encodeValue(w, t, v, nil); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Decode decodes one value of type t. The whole buffer must be consumed;
// consumed is reported even on failure.
func Decode(t *Type, b []byte) (v any, consumed int, err error) {
	r := NewReader(b)
	v, err = decodeValue(r, t)
	if err != nil {
		return nil, r.Offset(), err
	}
	if err := r.Finish(); err != nil {
		return nil, r.Offset(), err
	}
	return v, r.Offset(), nil
}

func mismatch(path []string, t *Type, v any) error {
	return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
		Path(path...).
		Detail("cannot encode %T as %s", v, t.Kind).
		Build()
}

func oversized(path []string, what string, n, limit int) error {
	return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
		Path(path...).
		Value(n).
		Detail("%s length %d exceeds limit %d", what, n, limit).
		Build()
}

func encodeValue(w *Writer, t *Type, v any, path []string) error {
	switch t.Kind {
	case KindBool:
		x, ok := v.(bool)
		if !ok {
			return mismatch(path, t, v)
		}
		w.Bool(x)
	case KindU8:
		x, ok := v.(uint8)
		if !ok {
			return mismatch(path, t, v)
		}
		w.U8(x)
	case KindS8:
		x, ok := v.(int8)
		if !ok {
			return mismatch(path, t, v)
		}
		w.S8(x)
	case KindU16:
		x, ok := v.(uint16)
		if !ok {
			return mismatch(path, t, v)
		}
		w.U16(x)
	case KindS16:
		x, ok := v.(int16)
		if !ok {
			return mismatch(path, t, v)
		}
		w.S16(x)
	case KindU32:
		x, ok := v.(uint32)
		if !ok {
			return mismatch(path, t, v)
		}
		w.U32(x)
	case KindS32:
		x, ok := v.(int32)
		if !ok {
			return mismatch(path, t, v)
		}
		w.S32(x)
	case KindU64:
		x, ok := v.(uint64)
		if !ok {
			return mismatch(path, t, v)
		}
		w.U64(x)
	case KindS64:
		x, ok := v.(int64)
		if !ok {
			return mismatch(path, t, v)
		}
		w.S64(x)
	case KindF32:
		x, ok := v.(float32)
		if !ok {
			return mismatch(path, t, v)
		}
		w.F32(x)
	case KindF64:
		x, ok := v.(float64)
		if !ok {
			return mismatch(path, t, v)
		}
		w.F64(x)
	case KindString:
		x, ok := v.(string)
		if !ok {
			return mismatch(path, t, v)
		}
		if len(x) > MaxStringSize {
			return oversized(path, "string", len(x), MaxStringSize)
		}
		if !utf8.ValidString(x) {
			return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Path(path...).
				Detail("string is not valid UTF-8").
				Build()
		}
		w.String(x)
	case KindBytes:
		x, ok := v.([]byte)
		if !ok {
			return mismatch(path, t, v)
		}
		if len(x) > MaxStringSize {
			return oversized(path, "bytes", len(x), MaxStringSize)
		}
		w.Blob(x)
	case KindHandle:
		x, ok := v.(Handle)
		if !ok {
			return mismatch(path, t, v)
		}
		w.Handle(uint64(x))
	case KindOption:
		x, ok := v.(Option)
		if !ok {
			return mismatch(path, t, v)
		}
		w.Present(x.Valid)
		if x.Valid {
			return encodeValue(w, t.Elem, x.Value, append(path, "some"))
		}
	case KindList:
		xs, ok := v.([]any)
		if !ok {
			return mismatch(path, t, v)
		}
		if len(xs) > MaxListLength {
			return oversized(path, "list", len(xs), MaxListLength)
		}
		w.Count(len(xs))
		for i, x := range xs {
			if err := encodeValue(w, t.Elem, x, append(path, "["+strconv.Itoa(i)+"]")); err != nil {
				return err
			}
		}
	case KindRecord:
		xs, ok := v.([]any)
		if !ok {
			return mismatch(path, t, v)
		}
		if len(xs) != len(t.Fields) {
			return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Path(path...).
				Detail("record %s has %d fields, got %d values", t.Name, len(t.Fields), len(xs)).
				Build()
		}
		for i, f := range t.Fields {
			if err := encodeValue(w, f.Type, xs[i], append(path, f.Name)); err != nil {
				return err
			}
		}
	case KindVariant:
		x, ok := v.(Variant)
		if !ok {
			return mismatch(path, t, v)
		}
		if x.Case == 0 || int(x.Case) > len(t.Cases) {
			return errors.New(errors.PhaseEncode, errors.KindUnknownVariant).
				Path(path...).
				Value(x.Case).
				Detail("discriminant %d out of range (1..%d)", x.Case, len(t.Cases)).
				Build()
		}
		c := t.Cases[x.Case-1]
		if len(x.Fields) != len(c.Payload) {
			return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Path(path...).
				Detail("case %s has %d payload fields, got %d", c.Name, len(c.Payload), len(x.Fields)).
				Build()
		}
		w.Case(x.Case)
		for i, p := range c.Payload {
			if err := encodeValue(w, p, x.Fields[i], append(path, c.Name)); err != nil {
				return err
			}
		}
	default:
		return errors.Unsupported(errors.PhaseEncode, fmt.Sprintf("kind %s", t.Kind))
	}
	return nil
}

func decodeValue(r *Reader, t *Type) (any, error) {
	switch t.Kind {
	case KindBool:
		return r.Bool()
	case KindU8:
		return r.U8()
	case KindS8:
		return r.S8()
	case KindU16:
		return r.U16()
	case KindS16:
		return r.S16()
	case KindU32:
		return r.U32()
	case KindS32:
		return r.S32()
	case KindU64:
		return r.U64()
	case KindS64:
		return r.S64()
	case KindF32:
		return r.F32()
	case KindF64:
		return r.F64()
	case KindString:
		return r.String()
	case KindBytes:
		return r.Blob()
	case KindHandle:
		h, err := r.Handle()
		return Handle(h), err
	case KindOption:
		ok, err := r.Present()
		if err != nil || !ok {
			return Option{}, err
		}
		r.Enter("some")
		v, err := decodeValue(r, t.Elem)
		r.Leave()
		if err != nil {
			return nil, err
		}
		return Some(v), nil
	case KindList:
		n, err := r.Count()
		if err != nil {
			return nil, err
		}
		hint := r.Remaining()
		if sz := t.Elem.Kind.FixedSize(); sz > 0 {
			hint /= sz
		}
		xs := make([]any, 0, min(n, hint))
		for i := 0; i < n; i++ {
			r.EnterIndex(i)
			v, err := decodeValue(r, t.Elem)
			r.Leave()
			if err != nil {
				return nil, err
			}
			xs = append(xs, v)
		}
		return xs, nil
	case KindRecord:
		xs := make([]any, len(t.Fields))
		for i, f := range t.Fields {
			r.Enter(f.Name)
			v, err := decodeValue(r, f.Type)
			r.Leave()
			if err != nil {
				return nil, err
			}
			xs[i] = v
		}
		return xs, nil
	case KindVariant:
		disc, err := r.Case(len(t.Cases))
		if err != nil {
			return nil, err
		}
		c := t.Cases[disc-1]
		v := Variant{Case: disc}
		if len(c.Payload) > 0 {
			v.Fields = make([]any, len(c.Payload))
			r.Enter(c.Name)
			for i, p := range c.Payload {
				x, err := decodeValue(r, p)
				if err != nil {
					r.Leave()
					return nil, err
				}
				v.Fields[i] = x
			}
			r.Leave()
		}
		return v, nil
	default:
		return nil, errors.Unsupported(errors.PhaseDecode, fmt.Sprintf("kind %s", t.Kind))
	}
}
