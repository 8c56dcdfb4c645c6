package client

import (
	"fmt"
	"maps"
	"slices"

	"github.com/jonwraymond/reqcache/cache"
	"github.com/jonwraymond/reqcache/method"
	"github.com/jonwraymond/reqcache/observe"
	"github.com/jonwraymond/reqcache/snapshot"
)

// Config is the process-wide configuration of a Runtime.
type Config struct {
	// LimitSnapshots caps snapshots per owner and name.
	// Default: snapshot.DefaultLimit
	LimitSnapshots int

	// ShareRequest is the default for in-flight sharing.
	// Default: true
	ShareRequest bool

	// LocalCache is the default cache policy per verb. Verbs not listed are
	// not cached.
	// Default: GET cached in memory for cache.DefaultTTL
	LocalCache map[method.Verb]cache.Policy

	// LogLevel is used when no logger is supplied.
	// Default: "info"
	LogLevel string
}

// DefaultConfig returns the default runtime configuration.
func DefaultConfig() Config {
	return Config{
		LimitSnapshots: snapshot.DefaultLimit,
		ShareRequest:   true,
		LocalCache: map[method.Verb]cache.Policy{
			method.Get: cache.DefaultPolicy(),
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.LimitSnapshots < 0 {
		return fmt.Errorf("%w: limit snapshots must not be negative, got %d", ErrConfiguration, c.LimitSnapshots)
	}
	if err := validateLocalCache(c.LocalCache); err != nil {
		return err
	}
	if !slices.Contains(observe.ValidLogLevels, c.LogLevel) {
		return fmt.Errorf("%w: %w: %q", ErrConfiguration, observe.ErrInvalidLogLevel, c.LogLevel)
	}
	return nil
}

// PolicyFor returns the default policy for verb.
func (c Config) PolicyFor(verb method.Verb) cache.Policy {
	if p, ok := c.LocalCache[verb]; ok {
		return p
	}
	return cache.Disabled()
}

func (c Config) clone() Config {
	c.LocalCache = maps.Clone(c.LocalCache)
	return c
}

func validateLocalCache(policies map[method.Verb]cache.Policy) error {
	for verb, p := range policies {
		if !verb.Valid() {
			return fmt.Errorf("%w: %w: %q", ErrConfiguration, method.ErrInvalidVerb, verb)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrConfiguration, verb, err)
		}
	}
	return nil
}

// GlobalOptions changes a running Runtime. Nil fields are left unchanged.
type GlobalOptions struct {
	LimitSnapshots *int
	ShareRequest   *bool
	LocalCache     map[method.Verb]cache.Policy
}

// Int returns a pointer to n, for GlobalOptions.LimitSnapshots.
func Int(n int) *int {
	return &n
}
