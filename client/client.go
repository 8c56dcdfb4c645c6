package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jonwraymond/reqcache/cache"
	"github.com/jonwraymond/reqcache/executor"
	"github.com/jonwraymond/reqcache/method"
	"github.com/jonwraymond/reqcache/observe"
	"github.com/jonwraymond/reqcache/snapshot"
	"github.com/jonwraymond/reqcache/storage"
)

// Client owns the methods it creates, their cached responses and their
// snapshots.
type Client struct {
	id      string
	seq     int
	runtime *Runtime
	opts    Options
	cache   *cache.ResponseCache
	exec    *executor.Executor
	logger  observe.Logger
}

func newClient(r *Runtime, seq int, opts Options) (*Client, error) {
	id := strconv.Itoa(seq)
	logger := r.logger
	if opts.Logger != nil {
		logger = opts.Logger
	}

	responses := cache.NewResponseCache(r.memory,
		cache.WithStorage(opts.Storage),
		cache.WithNamespace(id),
		cache.WithLogger(logger),
	)
	c := &Client{
		id:      id,
		seq:     seq,
		runtime: r,
		opts:    opts,
		cache:   responses,
		logger:  logger,
	}

	exec, err := executor.New(c.cache, r.registry, opts.Transport,
		executor.WithPolicyResolver(c.defaultPolicy),
		executor.WithShareResolver(c.defaultShare),
		executor.WithObserver(r.mw.WithLogger(opts.Logger)),
		executor.WithLogger(logger),
		executor.WithNamespace(id),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	c.exec = exec
	return c, nil
}

// defaultPolicy resolves the cache policy of methods without an override:
// the client's per-verb policy, else the runtime's current one.
func (c *Client) defaultPolicy(m *method.Method) cache.Policy {
	if p, ok := c.opts.LocalCache[m.Verb]; ok {
		return p
	}
	c.runtime.mu.RLock()
	defer c.runtime.mu.RUnlock()
	return c.runtime.config.PolicyFor(m.Verb)
}

func (c *Client) defaultShare(*method.Method) bool {
	if c.opts.ShareRequest != nil {
		return *c.opts.ShareRequest
	}
	c.runtime.mu.RLock()
	defer c.runtime.mu.RUnlock()
	return c.runtime.config.ShareRequest
}

// ID returns the client id.
func (c *Client) ID() string {
	return c.id
}

// BaseURL returns the base URL prepended to method targets.
func (c *Client) BaseURL() string {
	return c.opts.BaseURL
}

// Storage returns the client's persisted tier.
func (c *Client) Storage() storage.Adapter {
	return c.opts.Storage
}

// New creates a method owned by c. A method with a name is registered as a
// snapshot.
func (c *Client) New(verb method.Verb, url string, data any, cfg method.Config) (*method.Method, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = c.opts.Timeout
	}
	m, err := method.New(verb, url, data, cfg, method.WithOwner(c.id), method.WithBaseURL(c.opts.BaseURL))
	if err != nil {
		return nil, err
	}

	if m.Name() != "" {
		key := m.Key()
		if evicted := c.runtime.snapshots.Save(c.id, key, m); evicted > 0 {
			c.logger.Debug(context.Background(), "snapshots evicted",
				observe.F("method.name", m.Name()),
				observe.F("evicted", evicted),
			)
		}
	}
	return m, nil
}

// Get creates a GET method.
func (c *Client) Get(url string, cfg method.Config) (*method.Method, error) {
	return c.New(method.Get, url, nil, cfg)
}

// Head creates a HEAD method.
func (c *Client) Head(url string, cfg method.Config) (*method.Method, error) {
	return c.New(method.Head, url, nil, cfg)
}

// Options creates an OPTIONS method.
func (c *Client) Options(url string, cfg method.Config) (*method.Method, error) {
	return c.New(method.Options, url, nil, cfg)
}

// Post creates a POST method. A nil body is sent as an empty object.
func (c *Client) Post(url string, data any, cfg method.Config) (*method.Method, error) {
	return c.New(method.Post, url, data, cfg)
}

// Put creates a PUT method. A nil body is sent as an empty object.
func (c *Client) Put(url string, data any, cfg method.Config) (*method.Method, error) {
	return c.New(method.Put, url, data, cfg)
}

// Patch creates a PATCH method. A nil body is sent as an empty object.
func (c *Client) Patch(url string, data any, cfg method.Config) (*method.Method, error) {
	return c.New(method.Patch, url, data, cfg)
}

// Delete creates a DELETE method. A nil body is sent as an empty object.
func (c *Client) Delete(url string, data any, cfg method.Config) (*method.Method, error) {
	return c.New(method.Delete, url, data, cfg)
}

// Send executes m through the cache, the in-flight registry and the
// transport.
func (c *Client) Send(ctx context.Context, m *method.Method) (any, error) {
	v, _, err := c.SendWithInfo(ctx, m)
	return v, err
}

// SendWithInfo is Send, also reporting how the result was served.
func (c *Client) SendWithInfo(ctx context.Context, m *method.Method) (any, executor.Info, error) {
	if err := c.own(m); err != nil {
		return nil, executor.Info{}, err
	}
	return c.exec.ExecuteWithInfo(ctx, m, m.Key())
}

// Cached returns the cached response of m without executing it.
func (c *Client) Cached(ctx context.Context, m *method.Method) (any, bool) {
	if c.own(m) != nil {
		return nil, false
	}
	return c.cache.Get(ctx, m.Key())
}

// SetCache stores value as the response of m under m's effective policy.
// Methods whose policy is disabled are left alone.
func (c *Client) SetCache(ctx context.Context, m *method.Method, value any) error {
	if err := c.own(m); err != nil {
		return err
	}
	return c.cache.Set(ctx, m.Key(), value, c.exec.PolicyFor(m))
}

// InvalidateCache drops the cached response of m from both tiers.
func (c *Client) InvalidateCache(ctx context.Context, m *method.Method) error {
	if err := c.own(m); err != nil {
		return err
	}
	return c.InvalidateKey(ctx, m.Key())
}

// InvalidateKey drops the cached response stored under an identity key.
func (c *Client) InvalidateKey(ctx context.Context, key string) error {
	return c.cache.Invalidate(ctx, key)
}

// InvalidateMatching drops the cached responses of this client's snapshots
// selected by q.
func (c *Client) InvalidateMatching(ctx context.Context, q snapshot.Query) (int, error) {
	return c.runtime.InvalidateMatching(ctx, q.WithOwner(c.id))
}

func (c *Client) own(m *method.Method) error {
	if m == nil {
		return ErrNilMethod
	}
	if m.OwnerID != c.id {
		return fmt.Errorf("%w: %s owned by %q, not %q", ErrForeignMethod, m, m.OwnerID, c.id)
	}
	return nil
}
