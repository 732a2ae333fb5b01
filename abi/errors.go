package abi

import (
	"fmt"

	"github.com/wippyai/view-bridge/codec"
)

// CoreErrorKind is the discriminant of CoreError.
type CoreErrorKind uint32

const (
	ErrUnknownObject CoreErrorKind = iota + 1
	ErrWrongKind
	ErrRejected
)

// CoreError is the typed failure every boundary function may report.
type CoreError struct {
	Message string
	Object  uint64
	Kind    CoreErrorKind
}

func (e *CoreError) Error() string {
	switch e.Kind {
	case ErrUnknownObject:
		return fmt.Sprintf("unknown object %#x", e.Object)
	case ErrWrongKind:
		return "wrong object kind: " + e.Message
	case ErrRejected:
		return "rejected: " + e.Message
	}
	return fmt.Sprintf("core error %d", e.Kind)
}

// NewUnknownObject reports a handle the producer does not know.
func NewUnknownObject(h uint64) *CoreError {
	return &CoreError{Kind: ErrUnknownObject, Object: h}
}

// NewWrongKind reports a handle of the wrong object kind.
func NewWrongKind(want string) *CoreError {
	return &CoreError{Kind: ErrWrongKind, Message: want}
}

// NewRejected reports a request the producer refused.
func NewRejected(msg string) *CoreError {
	return &CoreError{Kind: ErrRejected, Message: msg}
}

func (e *CoreError) MarshalBoundary(w *codec.Writer) {
	w.Case(uint32(e.Kind))
	switch e.Kind {
	case ErrUnknownObject:
		w.Handle(e.Object)
	default:
		w.String(e.Message)
	}
}

func (e *CoreError) UnmarshalBoundary(r *codec.Reader) error {
	disc, err := r.Case(3)
	if err != nil {
		return err
	}
	e.Kind = CoreErrorKind(disc)
	if e.Kind == ErrUnknownObject {
		e.Object, err = r.Handle()
	} else {
		e.Message, err = r.String()
	}
	return err
}

// DecodeCoreError is the dispatch.ErrorDecoder for every boundary function.
func DecodeCoreError(payload []byte) (any, error) {
	e := new(CoreError)
	if err := codec.Unmarshal(payload, e); err != nil {
		return nil, err
	}
	return e, nil
}
