// Package abi defines the boundary surface shared by producer and consumer:
// function names, wire records, the Exports interface and the compiled-in
// contract.
//
// # Ownership
//
// Handle arguments are borrowed for the duration of the call unless noted.
// Handles inside returned records (child views, fonts, actions, bindings)
// and the handle returned by Materialize are transferred: the consumer owns
// them and must release each exactly once with FreeObject.
//
// # Probes
//
// Each Probe* function answers one question about a view handle and
// returns an encoded option of its record: none means "not this shape".
// Failing a probe is not an error.
//
// # WebAssembly linkage
//
// A WebAssembly producer exports its memory, cabi_realloc,
// contract_version, one checksum_<fn> per function and every function
// under its own name. Functions take their handle arguments as i64 plus a
// trailing i32 pointer to a 16 byte status record (code u8 at 0, payload
// at 8) and return one i64. Buffers, both returned values and status
// payloads, travel as ptr<<32 | len into guest memory and stay valid until
// the next call. The host provides viewbridge.invoke_subscriber(state i64).
package abi
