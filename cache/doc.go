// Package cache provides the response cache for method executions.
//
// It provides a Cache interface, a memory tier with lazy TTL expiry, a
// ResponseCache that mirrors selected entries into a persisted storage tier,
// and per-method Policy values (TTL, never-expire, disabled).
package cache
