// Package client ties the engine together.
//
// A Runtime is the long-lived state shared by every client of a process: the
// memory cache tier, the in-flight registry, the snapshot store, the bound
// states hook, the storage adapters in use and the global configuration.
// Clients are created from a Runtime, get sequential ids ("1", "2", ...) and
// build methods through verb constructors. Named methods are registered as
// snapshots when they are created.
//
// Several runtimes can coexist, e.g. one per test.
package client
