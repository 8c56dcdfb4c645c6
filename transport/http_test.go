package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/reqcache/method"
)

func newMethod(t *testing.T, verb method.Verb, baseURL, path string, data any, cfg method.Config) *method.Method {
	t.Helper()
	m, err := method.New(verb, path, data, cfg, method.WithBaseURL(baseURL), method.WithOwner("1"))
	if err != nil {
		t.Fatalf("method.New failed: %v", err)
	}
	return m
}

func TestHTTPTransport_GetWithParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Query().Get("a") != "1" || r.URL.Query().Get("b") != "x" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-Trace") != "abc" {
			t.Errorf("missing custom header")
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"id":1,"name":"ada"}`))
	}))
	defer srv.Close()

	m := newMethod(t, method.Get, srv.URL, "/users", nil, method.Config{
		Params:  map[string]any{"a": 1, "b": "x"},
		Headers: map[string]string{"X-Trace": "abc"},
	})
	got, err := NewHTTPTransport(HTTPConfig{}).Execute(context.Background(), m)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	obj, ok := got.(map[string]any)
	if !ok || obj["name"] != "ada" || obj["id"] != float64(1) {
		t.Errorf("decoded = %#v", got)
	}
}

func TestHTTPTransport_PostBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["title"] != "hello" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	m := newMethod(t, method.Post, srv.URL, "/posts", map[string]any{"title": "hello"}, method.Config{})
	got, err := NewHTTPTransport(HTTPConfig{}).Execute(context.Background(), m)
	if err != nil || got != nil {
		t.Errorf("Execute = %v, %v; want nil, nil for an empty body", got, err)
	}
}

func TestHTTPTransport_DefaultEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if string(raw) != "{}" {
			t.Errorf("body = %q, want {}", raw)
		}
	}))
	defer srv.Close()

	m := newMethod(t, method.Delete, srv.URL, "/posts/1", nil, method.Config{})
	if _, err := NewHTTPTransport(HTTPConfig{}).Execute(context.Background(), m); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
}

func TestHTTPTransport_TextBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	}))
	defer srv.Close()

	got, err := NewHTTPTransport(HTTPConfig{}).Execute(context.Background(), newMethod(t, method.Get, srv.URL, "/ping", nil, method.Config{}))
	if err != nil || got != "pong" {
		t.Errorf("Execute = %v, %v", got, err)
	}
}

func TestHTTPTransport_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPTransport(HTTPConfig{}).Execute(context.Background(), newMethod(t, method.Get, srv.URL, "/missing", nil, method.Config{}))
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("Execute = %v, want 404 StatusError", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || !strings.Contains(string(se.Body), "nope") {
		t.Errorf("StatusError body = %q", se.Body)
	}
}

func TestHTTPTransport_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	m := newMethod(t, method.Get, srv.URL, "/slow", nil, method.Config{Timeout: 20 * time.Millisecond})
	_, err := NewHTTPTransport(HTTPConfig{}).Execute(context.Background(), m)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Execute = %v, want deadline exceeded", err)
	}
}

func TestHTTPTransport_BearerToken(t *testing.T) {
	key := []byte("test-signing-key")
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	signer, err := NewJWTSigner(JWTConfig{Key: key, Issuer: "reqcache", Audience: "api"})
	if err != nil {
		t.Fatalf("NewJWTSigner failed: %v", err)
	}
	tr := NewHTTPTransport(HTTPConfig{Tokens: signer})
	if _, err := tr.Execute(context.Background(), newMethod(t, method.Get, srv.URL, "/me", nil, method.Config{})); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	raw, ok := strings.CutPrefix(gotAuth, "Bearer ")
	if !ok {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithIssuer("reqcache"), jwt.WithAudience("api"))
	if err != nil || !token.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if sub, _ := token.Claims.GetSubject(); sub != "1" {
		t.Errorf("sub = %q, want owner id", sub)
	}
}

func TestNewJWTSigner_RequiresKey(t *testing.T) {
	if _, err := NewJWTSigner(JWTConfig{}); !errors.Is(err, ErrMissingSigningKey) {
		t.Errorf("NewJWTSigner = %v, want ErrMissingSigningKey", err)
	}
}

func TestHTTPTransport_NilMethod(t *testing.T) {
	if _, err := NewHTTPTransport(HTTPConfig{}).Execute(context.Background(), nil); !errors.Is(err, ErrNilMethod) {
		t.Errorf("Execute(nil) = %v", err)
	}
}

func TestFunc(t *testing.T) {
	var tr Transport = Func(func(_ context.Context, m *method.Method) (any, error) {
		return m.URL, nil
	})
	got, err := tr.Execute(context.Background(), &method.Method{URL: "/x"})
	if err != nil || got != "/x" {
		t.Errorf("Func.Execute = %v, %v", got, err)
	}
}
