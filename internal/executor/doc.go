// Package executor evaluates a validated operation against an executable
// schema. Field resolvers produce action values; the executor interprets
// every variant, suspends asynchronous and deferred branches, and assembles
// the response envelope through the generic marshaling capability.
//
// # Execution model
//
// Execution proceeds in waves. The synchronous frontier expands immediately:
// Value, TryValue and PartialValue outcomes complete inline, and object
// results recurse without adding wave depth. A FutureValue, a
// PartialFutureValue or a FutureDeferredValue suspends its branch as a
// future; a DeferredValue registers its placeholder with the wave's
// collector. When the frontier is drained, one wave runs:
//
//  1. All futures collected so far settle concurrently. Their completions
//     expand synchronously, which may register next-wave futures — and may
//     register deferred placeholders that join the current wave's batch.
//  2. The collector flushes ONCE, handing every pending placeholder to the
//     configured deferred resolver in a single positional batch call.
//
// The loop repeats until no futures and no placeholders remain, so a branch
// suspended at any depth is never starved. For an operation whose deepest
// deferred chain has depth d, the resolver is called exactly d times.
//
// # Errors and null propagation
//
// Failures local to a field convert to a located error node plus a null
// field value. When the field's type is Non-Null, the null bubbles to the
// nearest nullable ancestor; that ancestor's subtree is tombstoned so queued
// work underneath can no longer write, while branches already in flight still
// settle and keep their errors. Values always reassemble at their declared
// positions regardless of completion order.
//
// # Context threading
//
// An UpdateCtx outcome computes a new operation-context value from the
// resolved field value; that value, not the original, is handed to the
// resolvers of the field's children. Contexts travel by parameter and are
// never mutated in place.
//
// # Projection mode
//
// A field carrying a projected resolver runs it instead of the ordinary one
// while the field sits within the configured maximum depth, receiving the
// projected names of its subselections collected down to that depth. Deeper
// fields fall back to the ordinary resolver.
package executor
