// Package errors provides structured error types for the view boundary.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Kind is what callers branch on: codec bounds violations, stale
// handles, contract skew, producer failures, panics and cancellation each
// have their own Kind.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindBufferOverflow).
//		Path("text", "content").
//		Detail("need 5 bytes, have 2").
//		Build()
//
// Sentinels match any error of the same Kind, regardless of phase:
//
//	if errors.Is(err, errors.ErrStaleHandle) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
