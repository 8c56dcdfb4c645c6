package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/jonwraymond/reqcache/method"
)

// DefaultMaxResponseBytes caps how much of a response body is read.
const DefaultMaxResponseBytes = 10 << 20

// HTTPConfig configures an HTTPTransport.
type HTTPConfig struct {
	// Client performs the requests.
	// Default: http.DefaultClient
	Client *http.Client

	// Timeout applies when the method sets none. Zero means no deadline.
	Timeout time.Duration

	// Tokens, when set, adds "Authorization: Bearer <token>" to each request.
	Tokens TokenSource

	// MaxResponseBytes caps the response body.
	// Default: DefaultMaxResponseBytes
	MaxResponseBytes int64
}

// HTTPTransport executes methods over HTTP.
type HTTPTransport struct {
	config HTTPConfig
}

// NewHTTPTransport creates an HTTP transport.
func NewHTTPTransport(config HTTPConfig) *HTTPTransport {
	if config.Client == nil {
		config.Client = http.DefaultClient
	}
	if config.MaxResponseBytes <= 0 {
		config.MaxResponseBytes = DefaultMaxResponseBytes
	}
	return &HTTPTransport{config: config}
}

// Execute sends m and decodes the response. JSON bodies decode into generic
// values, other bodies are returned as strings and empty bodies as nil.
func (t *HTTPTransport) Execute(ctx context.Context, m *method.Method) (any, error) {
	if m == nil {
		return nil, ErrNilMethod
	}

	timeout := m.Config.Timeout
	if timeout <= 0 {
		timeout = t.config.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := t.newRequest(ctx, m)
	if err != nil {
		return nil, err
	}

	resp, err := t.config.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: %s: %w", m, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.config.MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("transport: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: body}
	}
	return decodeBody(resp.Header.Get("Content-Type"), body)
}

func (t *HTTPTransport) newRequest(ctx context.Context, m *method.Method) (*http.Request, error) {
	u, err := url.Parse(m.FullURL())
	if err != nil {
		return nil, fmt.Errorf("transport: parse url: %w", err)
	}
	if len(m.Config.Params) > 0 {
		q := u.Query()
		for k, v := range m.Config.Params {
			q.Set(k, fmt.Sprint(v))
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if m.Verb.HasBody() && m.Data != nil {
		raw, err := json.Marshal(m.Data)
		if err != nil {
			return nil, fmt.Errorf("transport: encode body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, m.Verb.String(), u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range m.Config.Headers {
		req.Header.Set(k, v)
	}

	if t.config.Tokens != nil {
		token, err := t.config.Tokens.Token(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("transport: sign request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func decodeBody(contentType string, body []byte) (any, error) {
	if len(body) == 0 {
		return nil, nil
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "application/json" {
		return string(body), nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("transport: decode response: %w", err)
	}
	return v, nil
}

var _ Transport = (*HTTPTransport)(nil)
