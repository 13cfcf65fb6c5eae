// Package engine compiles rule trees and runs the listener runtime.
//
// ARCHITECTURE:
//
// Compile:
// Compile validates the rule tree, resolves the initial document with
// package resolve and then dry-runs every listener binding it can reach.
// Any problem aborts with a *resolve.BuildError; a Runtime is only returned
// for trees whose effects are all known to stage cleanly.
//
// Listener Runtime:
// Runtime.Dispatch drives the per-binding state machine
// Idle -> Staged -> Committed (or Rejected). Effects are staged on a clone
// of the element/variable state and swapped in only when staging succeeds,
// so a dispatch is atomic: observers see the whole effect or none of it.
//
// Single-Writer Event Loop:
// Engine wraps a Runtime with a FIFO queue. Events are applied strictly one
// at a time, in arrival order, and every reactive variable propagation an
// effect triggers has settled before the next event is dequeued.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every dispatch is stamped with a monotonic seq from Clock.Next().
// NEVER use wall-clock timestamps for ordering.
//
// Deterministic Replay:
// With a Journal attached, every dispatch is recorded with the hash of the
// resulting document. Replay re-applies a session and compares hashes.
package engine
