package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode    Phase = "encode"    // value to bytes
	PhaseDecode    Phase = "decode"    // bytes to value
	PhaseSchema    Phase = "schema"    // schema compilation
	PhaseHandle    Phase = "handle"    // handle and registry operations
	PhaseCall      Phase = "call"      // boundary call dispatch
	PhaseHandshake Phase = "handshake" // contract verification
	PhaseResolve   Phase = "resolve"   // view resolution
	PhaseLoad      Phase = "load"      // producer module loading
	PhaseConfig    Phase = "config"    // configuration
)

// Kind categorizes the error
type Kind string

const (
	KindMalformedData    Kind = "malformed_data"
	KindBufferOverflow   Kind = "buffer_overflow"
	KindTrailingData     Kind = "trailing_data"
	KindUnknownVariant   Kind = "unknown_variant"
	KindStaleHandle      Kind = "stale_handle"
	KindUseAfterFree     Kind = "use_after_free"
	KindContractMismatch Kind = "contract_mismatch"
	KindRecoverable      Kind = "recoverable_failure"
	KindPanic            Kind = "panic"
	KindCancelled        Kind = "cancelled"
	KindUnsupported      Kind = "unsupported"
	KindInvalidInput     Kind = "invalid_input"
	KindClosed           Kind = "closed"
)

// Sentinels for errors.Is. They carry no phase and match by Kind only.
var (
	ErrMalformedData    = &Error{Kind: KindMalformedData}
	ErrBufferOverflow   = &Error{Kind: KindBufferOverflow}
	ErrTrailingData     = &Error{Kind: KindTrailingData}
	ErrUnknownVariant   = &Error{Kind: KindUnknownVariant}
	ErrStaleHandle      = &Error{Kind: KindStaleHandle}
	ErrUseAfterFree     = &Error{Kind: KindUseAfterFree}
	ErrContractMismatch = &Error{Kind: KindContractMismatch}
	ErrRecoverable      = &Error{Kind: KindRecoverable}
	ErrPanic            = &Error{Kind: KindPanic}
	ErrCancelled        = &Error{Kind: KindCancelled}
	ErrClosed           = &Error{Kind: KindClosed}
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Function string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Function != "" {
		b.WriteString(" in ")
		b.WriteString(e.Function)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches any phase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && e.Phase != t.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Function sets the boundary function name
func (b *Builder) Function(name string) *Builder {
	b.err.Function = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsCancelled reports whether err is a cancellation. Cancellation is neither
// success nor failure and callers must check it before treating err as one.
func IsCancelled(err error) bool {
	return stderrors.Is(err, ErrCancelled)
}

// IsFatal reports whether err must abort the session or operation.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindContractMismatch, KindPanic:
		return true
	}
	return false
}

// Convenience constructors for common error patterns

// BufferOverflow creates an error for a read past the end of a buffer
func BufferOverflow(path []string, need, have int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindBufferOverflow,
		Path:   path,
		Detail: fmt.Sprintf("need %d bytes, have %d", need, have),
	}
}

// TrailingData creates an error for unconsumed bytes after a decode
func TrailingData(consumed, total int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindTrailingData,
		Detail: fmt.Sprintf("%d of %d bytes left unconsumed", total-consumed, total),
		Value:  total - consumed,
	}
}

// UnknownVariant creates an error for an unrecognized union discriminant
func UnknownVariant(path []string, disc uint32, cases int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnknownVariant,
		Path:   path,
		Detail: fmt.Sprintf("discriminant %d out of range (1..%d)", disc, cases),
		Value:  disc,
	}
}

// InvalidUTF8 creates a malformed data error for a non-UTF-8 string
func InvalidUTF8(path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindMalformedData,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// Malformed creates a malformed data error
func Malformed(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformedData,
		Path:   path,
		Detail: detail,
	}
}

// StaleHandle creates an error for a lookup of a removed or unknown handle
func StaleHandle(h uint64) *Error {
	return &Error{
		Phase:  PhaseHandle,
		Kind:   KindStaleHandle,
		Detail: fmt.Sprintf("handle %#x is not live", h),
		Value:  h,
	}
}

// UseAfterFree creates an error for use of a handle the caller already freed
func UseAfterFree(h uint64) *Error {
	return &Error{
		Phase:  PhaseHandle,
		Kind:   KindUseAfterFree,
		Detail: fmt.Sprintf("handle %#x used after free", h),
		Value:  h,
	}
}

// Cancelled creates a cancellation error for a boundary function
func Cancelled(fn string, cause error) *Error {
	return &Error{
		Phase:    PhaseCall,
		Kind:     KindCancelled,
		Function: fn,
		Detail:   "operation cancelled",
		Cause:    cause,
	}
}

// Panic creates an error for an unexpected producer fault
func Panic(fn, message string) *Error {
	if message == "" {
		message = "producer panicked"
	}
	return &Error{
		Phase:    PhaseCall,
		Kind:     KindPanic,
		Function: fn,
		Detail:   message,
	}
}

// Recoverable creates an error carrying a typed producer failure
func Recoverable(fn string, value any) *Error {
	return &Error{
		Phase:    PhaseCall,
		Kind:     KindRecoverable,
		Function: fn,
		Detail:   fmt.Sprint(value),
		Value:    value,
	}
}

// ContractMismatch creates a handshake failure error
func ContractMismatch(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseHandshake,
		Kind:   KindContractMismatch,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a producer loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMalformedData,
		Detail: detail,
		Cause:  cause,
	}
}
