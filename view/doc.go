// Package view resolves opaque producer view handles into a tree of known
// primitives and keeps that tree live.
//
// Resolution tries a fixed, ordered list of probes against each view
// handle: empty, text, button, stack, tap gesture, frame, menu, text
// field, toggle, divider. The first probe that matches wins. A handle no probe matches is a
// computed view: the resolver registers a single-shot subscriber token for
// it, materializes its current body with one blocking call and resolves
// that body as the computed node's only child.
//
// Tokens fire on producer goroutines. Firing only enqueues the node's ID;
// Session.Flush, called from the render goroutine, discards the node's
// subtree and resolves a freshly materialized body. Resolved subtrees are
// never patched in place. A refresh that fails stays queued for the next
// Flush.
//
// Resolution is iterative over an explicit work stack, so nesting depth is
// bounded by memory only, and the total number of nodes by MaxNodes.
//
// A Session is owned by one goroutine. Only the channel returned by
// Session.Invalidated may be used from others.
package view
