package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/reqcache/observe"
	"github.com/jonwraymond/reqcache/storage"
)

// ResponseCache is the two-tier response cache of one client.
//
// The memory tier is authoritative for freshness. Entries written with a
// persisted policy are mirrored into the storage adapter and restored from
// it when the memory tier misses, e.g. after a restart. Values restored from
// storage are JSON-decoded, so they come back as generic JSON values.
type ResponseCache struct {
	memory    *MemoryCache
	storage   storage.Adapter
	namespace string
	logger    observe.Logger
	restores  singleflight.Group // coalesces concurrent storage reads per key
}

// ResponseOption configures a ResponseCache.
type ResponseOption func(*ResponseCache)

// WithStorage sets the persisted tier.
func WithStorage(a storage.Adapter) ResponseOption {
	return func(c *ResponseCache) {
		c.storage = a
	}
}

// WithNamespace prefixes every key, so several clients can share one memory tier.
func WithNamespace(ns string) ResponseOption {
	return func(c *ResponseCache) {
		c.namespace = ns
	}
}

// WithLogger sets the logger used for storage failures.
func WithLogger(l observe.Logger) ResponseOption {
	return func(c *ResponseCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewResponseCache creates a response cache over memory. A nil memory tier
// gets a fresh MemoryCache.
func NewResponseCache(memory *MemoryCache, opts ...ResponseOption) *ResponseCache {
	if memory == nil {
		memory = NewMemoryCache()
	}
	c := &ResponseCache{
		memory: memory,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// record is the persisted form of an entry.
type record struct {
	Value    json.RawMessage `json:"value"`
	ExpireAt int64           `json:"expireAt,omitempty"` // epoch millis
	Never    bool            `json:"never,omitempty"`
}

type restored struct {
	value any
	ok    bool
}

func (c *ResponseCache) scoped(key string) string {
	if c.namespace == "" {
		return key
	}
	return c.namespace + ":" + key
}

// Get returns the cached value for key. Expired entries are removed from
// whichever tier holds them and reported absent.
func (c *ResponseCache) Get(ctx context.Context, key string) (any, bool) {
	if ValidateKey(key) != nil {
		return nil, false
	}
	k := c.scoped(key)

	if v, ok := c.memory.Get(ctx, k); ok {
		return v, true
	}
	if c.storage == nil {
		return nil, false
	}

	v, err, _ := c.restores.Do(k, func() (any, error) {
		return c.restore(ctx, k)
	})
	if err != nil {
		c.logger.Warn(ctx, "persisted cache read failed", observe.F("key", k), observe.F("error", err))
		return nil, false
	}
	r := v.(restored)
	return r.value, r.ok
}

// restore loads k from storage into the memory tier.
func (c *ResponseCache) restore(ctx context.Context, k string) (restored, error) {
	raw, ok, err := c.storage.Get(ctx, k)
	if err != nil || !ok {
		return restored{}, err
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.logger.Warn(ctx, "dropping corrupt persisted cache record", observe.F("key", k), observe.F("error", err))
		return restored{}, c.storage.Remove(ctx, k)
	}

	policy := NeverExpire()
	if !rec.Never {
		remaining := time.UnixMilli(rec.ExpireAt).Sub(c.memory.now())
		if remaining <= 0 {
			return restored{}, c.storage.Remove(ctx, k)
		}
		policy = TTL(remaining)
	}

	var value any
	if err := json.Unmarshal(rec.Value, &value); err != nil {
		return restored{}, fmt.Errorf("cache: decode %q: %w", k, err)
	}

	_ = c.memory.Set(ctx, k, value, policy)
	return restored{value: value, ok: true}, nil
}

// Set stores value under policy. A disabled policy is a no-op. When the
// policy is persisted and a storage adapter is configured, the entry is
// mirrored into storage; a memory-only write removes any persisted record
// for the key instead. A storage failure is returned but the memory tier
// keeps the entry.
func (c *ResponseCache) Set(ctx context.Context, key string, value any, policy Policy) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	if !policy.ShouldCache() {
		return nil
	}

	k := c.scoped(key)
	c.restores.Forget(k)
	if err := c.memory.Set(ctx, k, value, policy); err != nil {
		return err
	}

	if c.storage == nil {
		return nil
	}
	if policy.Tier != TierPersisted {
		// A stale persisted record would resurface once this entry expires.
		if err := c.storage.Remove(ctx, k); err != nil {
			c.logger.Warn(ctx, "persisted cache remove failed", observe.F("key", k), observe.F("error", err))
			return fmt.Errorf("cache: persist %q: %w", k, err)
		}
		return nil
	}

	raw, err := c.encode(value, policy)
	if err != nil {
		c.logger.Warn(ctx, "response is not persistable", observe.F("key", k), observe.F("error", err))
		return err
	}
	if err := c.storage.Set(ctx, k, raw); err != nil {
		c.logger.Warn(ctx, "persisted cache write failed", observe.F("key", k), observe.F("error", err))
		return fmt.Errorf("cache: persist %q: %w", k, err)
	}
	return nil
}

func (c *ResponseCache) encode(value any, policy Policy) ([]byte, error) {
	v, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("cache: encode value: %w", err)
	}
	rec := record{Value: v, Never: policy.NeverExpire}
	if expiresAt, ok := policy.ExpiresAt(c.memory.now()); ok {
		rec.ExpireAt = expiresAt.UnixMilli()
	}
	return json.Marshal(rec)
}

// Invalidate removes key from both tiers.
func (c *ResponseCache) Invalidate(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	k := c.scoped(key)
	c.restores.Forget(k)
	_ = c.memory.Delete(ctx, k)

	if c.storage == nil {
		return nil
	}
	if err := c.storage.Remove(ctx, k); err != nil {
		return fmt.Errorf("cache: invalidate %q: %w", k, err)
	}
	return nil
}

// Delete is Invalidate, satisfying Cache.
func (c *ResponseCache) Delete(ctx context.Context, key string) error {
	return c.Invalidate(ctx, key)
}

// Storage returns the persisted tier, possibly nil.
func (c *ResponseCache) Storage() storage.Adapter {
	return c.storage
}

// Namespace returns the key prefix.
func (c *ResponseCache) Namespace() string {
	return c.namespace
}

// Ensure ResponseCache implements Cache
var _ Cache = (*ResponseCache)(nil)
