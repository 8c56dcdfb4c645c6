package executor

import (
	"context"
	"fmt"

	"github.com/jonwraymond/reqcache/cache"
	"github.com/jonwraymond/reqcache/inflight"
	"github.com/jonwraymond/reqcache/method"
	"github.com/jonwraymond/reqcache/observe"
	"github.com/jonwraymond/reqcache/transport"
)

// PolicyResolver returns the cache policy for methods without an override.
type PolicyResolver func(m *method.Method) cache.Policy

// DefaultPolicyResolver caches GET responses for cache.DefaultTTL and
// nothing else.
func DefaultPolicyResolver(m *method.Method) cache.Policy {
	if m.Verb == method.Get {
		return cache.DefaultPolicy()
	}
	return cache.Disabled()
}

// Source tells where a result came from.
type Source int

const (
	// SourceTransport means this call performed the transport request.
	SourceTransport Source = iota
	// SourceCache means the result was a cache hit.
	SourceCache
	// SourceShared means the result was delivered by another caller's request.
	SourceShared
)

// String returns the string representation of the source.
func (s Source) String() string {
	switch s {
	case SourceTransport:
		return "transport"
	case SourceCache:
		return "cache"
	case SourceShared:
		return "shared"
	default:
		return "unknown"
	}
}

// Info describes how an execution was served.
type Info struct {
	Source Source
	Key    string
	Policy cache.Policy
}

// Executor orchestrates cache, in-flight sharing and transport.
//
// Contract:
// - Concurrency: safe for concurrent use; no lock is held across the
// transport call.
// - Errors: transport and transform errors are returned unchanged or wrapped
// and are never cached. Cache write failures are logged, not returned.
type Executor struct {
	cache     cache.Cache
	registry  *inflight.Registry
	transport transport.Transport

	share     func(m *method.Method) bool
	resolve   PolicyResolver
	mw        *observe.Middleware
	logger    observe.Logger
	namespace string
}

// Option configures an Executor.
type Option func(*Executor)

// WithShareDefault sets request sharing for methods without an override.
// Default: true
func WithShareDefault(share bool) Option {
	return WithShareResolver(func(*method.Method) bool { return share })
}

// WithShareResolver decides sharing per method for methods without an
// override, e.g. to follow a setting that changes at runtime.
func WithShareResolver(fn func(m *method.Method) bool) Option {
	return func(e *Executor) {
		if fn != nil {
			e.share = fn
		}
	}
}

// WithPolicyResolver sets the cache policy for methods without an override.
// Default: DefaultPolicyResolver
func WithPolicyResolver(r PolicyResolver) Option {
	return func(e *Executor) {
		if r != nil {
			e.resolve = r
		}
	}
}

// WithObserver wraps transport calls and records cache and share events.
func WithObserver(mw *observe.Middleware) Option {
	return func(e *Executor) {
		if mw != nil {
			e.mw = mw
		}
	}
}

// WithLogger sets the logger. Default: the observer's logger.
func WithLogger(l observe.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithNamespace prefixes in-flight keys, so one registry can serve several
// owners without sharing calls between them.
func WithNamespace(ns string) Option {
	return func(e *Executor) {
		e.namespace = ns
	}
}

// New creates an executor. A nil registry gets a private one.
func New(c cache.Cache, registry *inflight.Registry, t transport.Transport, opts ...Option) (*Executor, error) {
	if c == nil {
		return nil, cache.ErrNilCache
	}
	if t == nil {
		return nil, ErrNilTransport
	}
	if registry == nil {
		registry = inflight.New()
	}

	e := &Executor{
		cache:     c,
		registry:  registry,
		transport: t,
		share:     func(*method.Method) bool { return true },
		resolve:   DefaultPolicyResolver,
		mw:        observe.NopMiddleware(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = e.mw.Logger()
	}
	return e, nil
}

// Execute returns the response for m under key. An empty key means m.Key().
func (e *Executor) Execute(ctx context.Context, m *method.Method, key string) (any, error) {
	v, _, err := e.ExecuteWithInfo(ctx, m, key)
	return v, err
}

// ExecuteWithInfo is Execute, also reporting how the result was served.
func (e *Executor) ExecuteWithInfo(ctx context.Context, m *method.Method, key string) (any, Info, error) {
	if m == nil {
		return nil, Info{}, ErrNilMethod
	}
	if key == "" {
		key = m.Key()
	}

	info := Info{Key: key, Policy: e.PolicyFor(m)}
	meta := metaOf(m, key)

	if v, ok := e.lookup(ctx, meta, info.Policy, true); ok {
		info.Source = SourceCache
		return v, info, nil
	}

	if !e.ShareFor(m) {
		info.Source = SourceTransport
		v, err := e.fetch(ctx, m, meta, info.Policy)
		return v, info, err
	}

	led := false
	v, err, _ := e.registry.Do(ctx, e.flightKey(key), func(ctx context.Context) (any, error) {
		led = true
		// A call that settled between the first lookup and registration may
		// already have filled the cache.
		if v, ok := e.lookup(ctx, meta, info.Policy, false); ok {
			info.Source = SourceCache
			return v, nil
		}
		info.Source = SourceTransport
		return e.fetch(ctx, m, meta, info.Policy)
	})
	if !led {
		info.Source = SourceShared
		e.mw.SharedJoin(ctx, meta)
	}
	return v, info, err
}

// PolicyFor returns the effective cache policy of m.
func (e *Executor) PolicyFor(m *method.Method) cache.Policy {
	if m.Config.LocalCache != nil {
		return *m.Config.LocalCache
	}
	return e.resolve(m)
}

// ShareFor reports whether m shares in-flight calls.
func (e *Executor) ShareFor(m *method.Method) bool {
	if m.Config.ShareRequest != nil {
		return *m.Config.ShareRequest
	}
	return e.share(m)
}

func (e *Executor) lookup(ctx context.Context, meta observe.MethodMeta, policy cache.Policy, record bool) (any, bool) {
	if !policy.ShouldCache() {
		return nil, false
	}
	v, ok := e.cache.Get(ctx, meta.Key)
	if record || ok {
		e.mw.CacheLookup(ctx, meta, ok)
	}
	return v, ok
}

func (e *Executor) fetch(ctx context.Context, m *method.Method, meta observe.MethodMeta, policy cache.Policy) (any, error) {
	call := e.mw.Wrap(func(ctx context.Context, _ observe.MethodMeta) (any, error) {
		return e.transport.Execute(ctx, m)
	})

	v, err := call(ctx, meta)
	if err != nil {
		return nil, err
	}

	if m.Config.Transform != nil {
		if v, err = m.Config.Transform(v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTransform, err)
		}
	}

	if policy.ShouldCache() {
		if err := e.cache.Set(ctx, meta.Key, v, policy); err != nil {
			e.logger.WithMethod(meta).Warn(ctx, "response not cached", observe.F("error", err))
		}
	}
	return v, nil
}

func (e *Executor) flightKey(key string) string {
	if e.namespace == "" {
		return key
	}
	return e.namespace + ":" + key
}

func metaOf(m *method.Method, key string) observe.MethodMeta {
	return observe.MethodMeta{
		OwnerID: m.OwnerID,
		Verb:    m.Verb.String(),
		URL:     m.FullURL(),
		Name:    m.Name(),
		Key:     key,
	}
}
