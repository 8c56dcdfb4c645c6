// Package executor runs methods through the response cache, the in-flight
// registry and the transport.
//
// For each execution the executor resolves the method's cache policy and
// sharing setting, serves fresh cache hits directly, attaches to a pending
// call for the same key when sharing is on, and otherwise calls the
// transport. Successful results are transformed, written to the cache per
// policy and delivered to every waiter. Failures are delivered to every
// waiter and never cached.
package executor
