package dispatch

import "github.com/wippyai/view-bridge/codec"

// Code is the status code of a boundary call.
type Code uint8

const (
	Success         Code = 0
	Error           Code = 1
	UnexpectedError Code = 2
	Cancelled       Code = 3
)

var codeNames = [...]string{
	Success:         "success",
	Error:           "error",
	UnexpectedError: "unexpected_error",
	Cancelled:       "cancelled",
}

func (c Code) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "unknown"
}

// Status is the out-parameter of every boundary call. Payload is empty on
// Success.
type Status struct {
	Payload []byte
	Code    Code
}

// Reset clears s for reuse.
func (s *Status) Reset() {
	s.Code = Success
	s.Payload = nil
}

// MarshalBoundary encodes s as {code: u8, payload: bytes}.
func (s *Status) MarshalBoundary(w *codec.Writer) {
	w.U8(uint8(s.Code))
	w.Blob(s.Payload)
}

// UnmarshalBoundary decodes s.
func (s *Status) UnmarshalBoundary(r *codec.Reader) error {
	code, err := r.U8()
	if err != nil {
		return err
	}
	payload, err := r.Blob()
	if err != nil {
		return err
	}
	s.Code = Code(code)
	s.Payload = payload
	return nil
}

// Message encodes a panic message payload.
func Message(msg string) []byte {
	if msg == "" {
		return nil
	}
	w := codec.GetWriter()
	defer codec.PutWriter(w)
	w.String(msg)
	return w.Bytes()
}
