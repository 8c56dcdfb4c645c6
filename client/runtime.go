package client

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jonwraymond/reqcache/cache"
	"github.com/jonwraymond/reqcache/inflight"
	"github.com/jonwraymond/reqcache/method"
	"github.com/jonwraymond/reqcache/observe"
	"github.com/jonwraymond/reqcache/snapshot"
	"github.com/jonwraymond/reqcache/storage"
)

// Runtime is the shared state behind a set of clients.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Lifecycle: state lives until Reset or until the Runtime is dropped.
type Runtime struct {
	memory    *cache.MemoryCache
	registry  *inflight.Registry
	snapshots *snapshot.Store
	mw        *observe.Middleware
	logger    observe.Logger

	mu             sync.RWMutex
	config         Config
	hook           StatesHook
	defaultStorage storage.Adapter
	adapters       []storage.Adapter
	clients        map[string]*Client
	nextID         int
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	memory   *cache.MemoryCache
	storage  storage.Adapter
	logger   observe.Logger
	observer observe.Observer
}

// WithMemoryCache sets the shared memory tier, e.g. one with a test clock.
func WithMemoryCache(m *cache.MemoryCache) RuntimeOption {
	return func(o *runtimeOptions) {
		o.memory = m
	}
}

// WithDefaultStorage sets the adapter used by clients that configure none.
// Default: a storage.MemoryStorage
func WithDefaultStorage(a storage.Adapter) RuntimeOption {
	return func(o *runtimeOptions) {
		o.storage = a
	}
}

// WithLogger sets the runtime logger. Default: a JSON logger on stderr at
// Config.LogLevel, or the observer's logger.
func WithLogger(l observe.Logger) RuntimeOption {
	return func(o *runtimeOptions) {
		o.logger = l
	}
}

// WithObserver enables tracing and metrics for every client.
func WithObserver(obs observe.Observer) RuntimeOption {
	return func(o *runtimeOptions) {
		o.observer = obs
	}
}

// NewRuntime creates a runtime.
func NewRuntime(cfg Config, opts ...RuntimeOption) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o runtimeOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		if o.observer != nil {
			logger = o.observer.Logger()
		} else {
			logger = observe.NewLogger(cfg.LogLevel)
		}
	}

	mw := observe.NewMiddleware(nil, nil, logger)
	if o.observer != nil {
		fromObserver, err := observe.MiddlewareFromObserver(o.observer)
		if err != nil {
			return nil, fmt.Errorf("client: observer: %w", err)
		}
		mw = fromObserver.WithLogger(logger)
	}

	if o.memory == nil {
		o.memory = cache.NewMemoryCache()
	}
	if o.storage == nil {
		o.storage = storage.NewMemoryStorage()
	}

	snapshots, err := snapshot.NewStore(cfg.LimitSnapshots)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return &Runtime{
		memory:         o.memory,
		registry:       inflight.New(),
		snapshots:      snapshots,
		mw:             mw,
		logger:         logger,
		config:         cfg.clone(),
		defaultStorage: o.storage,
		clients:        make(map[string]*Client),
	}, nil
}

// Config returns a copy of the current configuration.
func (r *Runtime) Config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.clone()
}

// Configure changes the global configuration. Lowering LimitSnapshots trims
// existing snapshot sequences immediately.
func (r *Runtime) Configure(g GlobalOptions) error {
	if g.LimitSnapshots != nil && *g.LimitSnapshots < 0 {
		return fmt.Errorf("%w: limit snapshots must not be negative, got %d", ErrConfiguration, *g.LimitSnapshots)
	}
	if err := validateLocalCache(g.LocalCache); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if g.LimitSnapshots != nil {
		evicted, err := r.snapshots.SetLimit(*g.LimitSnapshots)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		r.config.LimitSnapshots = *g.LimitSnapshots
		r.logger.Info(context.Background(), "snapshot limit changed",
			observe.F("limit", *g.LimitSnapshots),
			observe.F("evicted", evicted),
		)
	}
	if g.ShareRequest != nil {
		r.config.ShareRequest = *g.ShareRequest
	}
	if g.LocalCache != nil {
		r.config.LocalCache = maps.Clone(g.LocalCache)
	}
	return nil
}

// NewClient creates a client with the next sequential id.
func (r *Runtime) NewClient(opts Options) (*Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if opts.StatesHook != nil && r.hook != nil && r.hook.Name() != opts.StatesHook.Name() {
		return nil, fmt.Errorf("%w: must use the same states hook in one runtime, bound %q, got %q",
			ErrConfiguration, r.hook.Name(), opts.StatesHook.Name())
	}
	if opts.Storage == nil {
		opts.Storage = r.defaultStorage
	}

	// The runtime is only mutated once the client exists.
	c, err := newClient(r, r.nextID+1, opts)
	if err != nil {
		return nil, err
	}
	r.nextID++
	if opts.StatesHook != nil {
		r.hook = opts.StatesHook
	}
	if !slices.Contains(r.adapters, opts.Storage) {
		r.adapters = append(r.adapters, opts.Storage)
	}
	r.clients[c.id] = c

	c.logger.Debug(context.Background(), "client created", observe.F("client.id", c.id), observe.F("base_url", opts.BaseURL))
	return c, nil
}

// Client returns the client with the given id.
func (r *Runtime) Client(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Clients returns every client in creation order.
func (r *Runtime) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Client) int {
		return a.seq - b.seq
	})
	return out
}

// StatesHook returns the bound states hook, or nil.
func (r *Runtime) StatesHook() StatesHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hook
}

// StorageAdapters returns the distinct adapters in use, in first-use order.
func (r *Runtime) StorageAdapters() []storage.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.adapters)
}

// Snapshots returns the snapshot store.
func (r *Runtime) Snapshots() *snapshot.Store {
	return r.snapshots
}

// InFlight returns the in-flight registry.
func (r *Runtime) InFlight() *inflight.Registry {
	return r.registry
}

// Logger returns the runtime logger.
func (r *Runtime) Logger() observe.Logger {
	return r.logger
}

// Match returns the snapshots selected by q.
func (r *Runtime) Match(q snapshot.Query) []*method.Method {
	return r.snapshots.Match(q)
}

// MatchOne returns the first snapshot selected by q.
func (r *Runtime) MatchOne(q snapshot.Query) (*method.Method, bool) {
	return r.snapshots.MatchOne(q)
}

// InvalidateMatching drops the cached responses of every snapshot selected
// by q, in the cache of the client that owns it. It returns how many methods
// were invalidated.
func (r *Runtime) InvalidateMatching(ctx context.Context, q snapshot.Query) (int, error) {
	var (
		n    int
		errs []error
	)
	for _, m := range r.snapshots.Match(q) {
		c, ok := r.Client(m.OwnerID)
		if !ok {
			continue
		}
		if err := c.InvalidateCache(ctx, m); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// Reset drops every cached response, pending call and snapshot. Persisted
// responses are dropped from every adapter in use that implements
// storage.Clearer; other adapters keep their records. Clients, the bound
// hook and the configuration are kept.
func (r *Runtime) Reset(ctx context.Context) error {
	r.memory.Clear()
	r.registry.Reset()
	r.snapshots.Reset()

	var errs []error
	for _, a := range r.StorageAdapters() {
		c, ok := a.(storage.Clearer)
		if !ok {
			continue
		}
		if err := c.Clear(ctx); err != nil {
			r.logger.Warn(ctx, "storage clear failed", observe.F("error", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
