// Package observe provides observability primitives for method execution.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. The executor wraps transport calls with a
// Middleware and reports cache and sharing decisions through it.
package observe
