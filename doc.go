// Package viewbridge connects a UI consumer to a view producer across a
// stable binary boundary.
//
// The producer owns every view object and hands the consumer opaque
// handles. The consumer learns what a handle is by probing it, keeps the
// result as a tree of primitives and re-resolves computed parts of that
// tree when the producer reports a change.
//
// # Architecture Overview
//
//	viewbridge/          Root package tying one producer to one session
//	├── codec/           Big-endian boundary encoding, schemas, checksums
//	├── handle/          Generational object arena, ownership, callback registry
//	├── dispatch/        Status codes, contract handshake, failure propagation
//	├── abi/             Function names, wire records, the Exports interface
//	├── view/            Probe-based resolution, subscriptions, refresh
//	├── core/            In-process reference producer
//	├── wasmcore/        WebAssembly producer under wazero
//	├── config/          TOML configuration and logger construction
//	├── errors/          Structured error types
//	└── cmd/viewbridge/  Terminal shell rendering a resolved tree
//
// # Quick Start
//
// Resolve an in-process view:
//
//	c := core.New()
//	root := c.Root(core.Text{Content: "hello"})
//
//	b, err := viewbridge.New(ctx, c, root, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//
//	view.Walk(b.Root(), func(n *view.Node, depth int) bool {
//	    fmt.Println(strings.Repeat("  ", depth), n.Kind())
//	    return true
//	})
//
// # Change Propagation
//
// A computed view is subscribed before it is materialized. When one of its
// dependencies changes the producer calls the consumer trampoline, which
// only queues the node. The owner of the Bridge waits on Invalidated and
// calls Flush from its own goroutine:
//
//	for range b.Invalidated() {
//	    if _, err := b.Flush(ctx); err != nil {
//	        return err
//	    }
//	    redraw(b.Root())
//	}
//
// # Error Handling
//
// Errors are *errors.Error values carrying a phase and kind. Contract
// mismatches and producer panics are fatal to the bridge; recoverable
// producer failures wrap the decoded *abi.CoreError; cancellation is
// reported as errors.ErrCancelled and is neither success nor failure.
package viewbridge
