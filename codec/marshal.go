package codec

// Marshaler is implemented by values with a fixed boundary encoding.
type Marshaler interface {
	MarshalBoundary(w *Writer)
}

// Unmarshaler is implemented by values decodable from a boundary encoding.
type Unmarshaler interface {
	UnmarshalBoundary(r *Reader) error
}

// Marshal encodes m into a fresh buffer.
func Marshal(m Marshaler) []byte {
	w := GetWriter()
	defer PutWriter(w)
	m.MarshalBoundary(w)
	return w.Bytes()
}

// Unmarshal decodes b into u. The whole buffer must be consumed.
func Unmarshal(b []byte, u Unmarshaler) error {
	r := NewReader(b)
	if err := u.UnmarshalBoundary(r); err != nil {
		return err
	}
	return r.Finish()
}

// UnmarshalPrefix decodes one value from the front of b and returns the
// number of bytes consumed.
func UnmarshalPrefix(b []byte, u Unmarshaler) (int, error) {
	r := NewReader(b)
	if err := u.UnmarshalBoundary(r); err != nil {
		return r.Offset(), err
	}
	return r.Offset(), nil
}
