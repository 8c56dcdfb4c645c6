// Package inflight de-duplicates concurrent executions of the same request.
//
// A Registry maps a request identity key to the Call currently executing it.
// The first caller for a key becomes the leader and performs the work; later
// callers join the pending Call and receive the leader's value or error once
// it settles. Settling removes the entry, so nothing is remembered after the
// call completes: failures are shared while in flight but never cached.
//
// Waiting honors the waiter's own context. A waiter that gives up never
// cancels or removes the shared call.
package inflight
