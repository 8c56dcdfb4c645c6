package transport

import (
	"context"

	"github.com/jonwraymond/reqcache/method"
)

// Transport executes a method and returns its decoded response.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: implementations must honor cancellation and deadlines.
// - Errors: a returned error is delivered to every caller sharing the call
// and is never cached.
type Transport interface {
	Execute(ctx context.Context, m *method.Method) (any, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, m *method.Method) (any, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, m *method.Method) (any, error) {
	return f(ctx, m)
}

var _ Transport = Func(nil)
