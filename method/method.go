package method

import (
	"maps"
	"time"

	"github.com/jonwraymond/reqcache/cache"
)

// TransformFunc converts a raw transport result before it is cached and
// returned to callers.
type TransformFunc func(data any) (any, error)

// Config is the per-method configuration bag.
//
// Only Params and Headers take part in key derivation. Everything else is
// call behavior or metadata.
type Config struct {
	// Name registers the method as a snapshot when set.
	Name string

	// Params are the query parameters.
	Params map[string]any

	// Headers are the request headers.
	Headers map[string]string

	// Timeout is passed to the transport as a deadline. Zero means the
	// owner's default.
	Timeout time.Duration

	// LocalCache overrides the owner's cache policy for this method.
	LocalCache *cache.Policy

	// ShareRequest overrides the owner's request sharing setting.
	ShareRequest *bool

	// Transform is applied to successful transport results.
	Transform TransformFunc

	// Extra carries caller metadata. Never part of the key.
	Extra map[string]any
}

// Method describes one callable operation.
//
// Methods are immutable by convention: New copies the maps it is given and
// callers needing a variant should use Clone.
type Method struct {
	Verb    Verb
	BaseURL string
	URL     string
	Data    any
	Config  Config
	OwnerID string
}

// Option configures a Method at construction.
type Option func(*Method)

// WithOwner sets the owning client id.
func WithOwner(id string) Option {
	return func(m *Method) {
		m.OwnerID = id
	}
}

// WithBaseURL sets the base URL the target is resolved against.
func WithBaseURL(baseURL string) Option {
	return func(m *Method) {
		m.BaseURL = baseURL
	}
}

// New creates a method. Verbs that carry a body default Data to an empty
// object when data is nil.
func New(verb Verb, url string, data any, cfg Config, opts ...Option) (*Method, error) {
	if !verb.Valid() {
		return nil, ErrInvalidVerb
	}
	if data == nil && verb.HasBody() {
		data = map[string]any{}
	}

	cfg.Params = maps.Clone(cfg.Params)
	cfg.Headers = maps.Clone(cfg.Headers)
	cfg.Extra = maps.Clone(cfg.Extra)

	m := &Method{
		Verb:   verb,
		URL:    url,
		Data:   data,
		Config: cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Name returns the snapshot name, possibly empty.
func (m *Method) Name() string {
	return m.Config.Name
}

// FullURL joins the base URL and the target.
func (m *Method) FullURL() string {
	return m.BaseURL + m.URL
}

// Key returns the identity key using the default keyer.
func (m *Method) Key() string {
	return defaultKeyer.Key(m)
}

// Clone returns a deep-enough copy: maps are copied, Data is shared.
func (m *Method) Clone() *Method {
	c := *m
	c.Config.Params = maps.Clone(m.Config.Params)
	c.Config.Headers = maps.Clone(m.Config.Headers)
	c.Config.Extra = maps.Clone(m.Config.Extra)
	return &c
}

// String returns "VERB url", with the name when present.
func (m *Method) String() string {
	s := string(m.Verb) + " " + m.FullURL()
	if m.Config.Name != "" {
		s += " (" + m.Config.Name + ")"
	}
	return s
}

// Bool returns a pointer to v, for Config.ShareRequest.
func Bool(v bool) *bool {
	return &v
}
