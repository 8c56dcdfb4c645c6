package storage

import (
	"context"
	"errors"
)

// Sentinel errors for storage operations.
var (
	ErrClosed     = errors.New("storage: adapter is closed")
	ErrInvalidKey = errors.New("storage: key is invalid")
)

// Adapter is a pluggable key-value store for serialized cache records.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get returns (nil, false, nil) on miss; errors are reserved for
// backend failures.
// - Remove is idempotent.
type Adapter interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Pinger is implemented by adapters backed by a remote or on-disk store that
// can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Clearer is implemented by adapters that can drop every stored record.
type Clearer interface {
	Clear(ctx context.Context) error
}
