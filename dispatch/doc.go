// Package dispatch runs boundary calls and turns their status records into
// Go results.
//
// Every call carries a Status out-parameter. The producer sets a code and,
// for failures, an encoded payload:
//
//	Success          the return value is valid
//	Error            payload decodes, via the call's ErrorDecoder, into a
//	                 typed failure (errors.KindRecoverable)
//	UnexpectedError  payload is an optional encoded message; the call
//	                 panicked (errors.KindPanic)
//	Cancelled        the call was abandoned (errors.KindCancelled);
//	                 neither success nor failure
//
// A Dispatcher verifies the producer's contract version and per-function
// checksums once, before the first call. A mismatch fails that and every
// later call with errors.KindContractMismatch.
//
// Guard is the producer-side half: it runs producer logic and fills the
// Status from its outcome, recovering Go panics.
package dispatch
