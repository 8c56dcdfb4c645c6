// Package storage defines the key-value contract behind the persisted
// response cache tier, with in-memory and SQLite implementations.
package storage
