// Package health reports whether the engine's collaborators are usable.
//
// Checkers cover the persisted cache tier (any storage adapter that can be
// pinged) and the in-flight registry (degraded when too many calls are
// pending, which usually means a slow or stuck transport). An Aggregator
// runs registered checkers concurrently under a timeout and folds their
// results into one status.
package health
