// Package wasmcore runs a WebAssembly producer under wazero and exposes it
// as abi.Exports.
//
// The guest module follows the linkage described in package abi. Calls
// into the guest are serialized; subscriber firings arrive through the
// host function viewbridge.invoke_subscriber, possibly in the middle of
// another call, and are routed to the trampoline registered with the
// matching Subscribe. A trampoline must not call back into the producer.
//
// A guest trap is reported as dispatch.UnexpectedError with the trap
// message. When the context passed to Load is done the runtime closes the
// module and every later call reports dispatch.Cancelled.
package wasmcore
