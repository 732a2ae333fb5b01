package dispatch

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/wippyai/view-bridge/codec"
	"github.com/wippyai/view-bridge/errors"
)

// Guard runs producer logic and records its outcome in st:
//
//	nil                          Success
//	context cancellation         Cancelled
//	error implementing Marshaler Error, payload is its encoding
//	any other error, a panic     UnexpectedError with the message
func Guard(st *Status, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			st.Code = UnexpectedError
			st.Payload = Message(fmt.Sprint(r))
		}
	}()

	err := fn()
	if err == nil {
		st.Code = Success
		st.Payload = nil
		return
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) || errors.IsCancelled(err) {
		st.Code = Cancelled
		st.Payload = nil
		return
	}

	var m codec.Marshaler
	if stderrors.As(err, &m) {
		st.Code = Error
		st.Payload = codec.Marshal(m)
		return
	}

	st.Code = UnexpectedError
	st.Payload = Message(err.Error())
}

// GuardValue is Guard for producer logic with a result. The zero value is
// returned unless the call succeeded.
func GuardValue[T any](st *Status, fn func() (T, error)) T {
	var out T
	Guard(st, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if st.Code != Success {
		var zero T
		return zero
	}
	return out
}
