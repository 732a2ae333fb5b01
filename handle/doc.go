// Package handle manages objects that cannot cross the boundary by value.
//
// Two ownership directions exist, with one mechanism each:
//
//	Arena     producer-owned objects, referenced by generation-tagged
//	          handles; reference counted, destroyed on the last Free
//	Owned     the consumer's wrapper around one such handle; enforces
//	          clone-before-store and free-exactly-once
//	Registry  consumer-owned callbacks, keyed by monotonically increasing
//	          integers; the producer only ever holds the integer
//
// # Arena handles
//
// An arena handle packs a slot index and the slot's generation:
//
//	handle = generation<<32 | (slot+1)
//
// Freeing a handle bumps the slot's generation before the slot is reused,
// so a freed handle can never alias a later object. Stale handles fail
// with errors.KindStaleHandle.
//
//	arena := handle.NewArena()
//	h := arena.Insert(textType, text)
//	h2, _ := arena.Clone(h) // same object, refcount 2
//	arena.Free(h)           // object still alive through h2
//	arena.Free(h2)          // Dropper.Drop runs here, exactly once
//
// # Callback registry
//
// Registry.Invoke is the trampoline target: it looks up the handle, removes
// single-shot entries, releases the lock and only then runs the callback.
// A token fired concurrently from many goroutines runs at most once.
//
// Handles are not garbage collected. Every handle must be freed or
// removed explicitly.
package handle
