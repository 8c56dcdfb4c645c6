package client

import (
	"fmt"
	"time"

	"github.com/jonwraymond/reqcache/cache"
	"github.com/jonwraymond/reqcache/method"
	"github.com/jonwraymond/reqcache/observe"
	"github.com/jonwraymond/reqcache/storage"
	"github.com/jonwraymond/reqcache/transport"
)

// StatesHook identifies the state binding integration a client is used
// with. A runtime accepts only one, compared by name.
type StatesHook interface {
	Name() string
}

// HookName is a StatesHook known only by its name.
type HookName string

// Name returns h.
func (h HookName) Name() string {
	return string(h)
}

// Options configures one client.
type Options struct {
	// BaseURL is prepended to every method target.
	BaseURL string

	// Transport performs requests. Required.
	Transport transport.Transport

	// Storage is the persisted cache tier.
	// Default: the runtime's shared in-memory adapter
	Storage storage.Adapter

	// StatesHook must match the hook already bound to the runtime, if any.
	StatesHook StatesHook

	// LocalCache overrides the runtime's per-verb cache policies.
	LocalCache map[method.Verb]cache.Policy

	// ShareRequest overrides the runtime's sharing default.
	ShareRequest *bool

	// Timeout is the default per-method timeout. Zero means none.
	Timeout time.Duration

	// Logger overrides the runtime's logger.
	Logger observe.Logger
}

// Validate checks the options.
func (o *Options) Validate() error {
	if o.Transport == nil {
		return fmt.Errorf("%w: transport is required", ErrConfiguration)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrConfiguration)
	}
	return validateLocalCache(o.LocalCache)
}
