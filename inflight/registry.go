package inflight

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Call is one pending execution shared by every caller of the same key.
type Call struct {
	done chan struct{}

	// Guarded by the owning Registry's mutex until done is closed.
	value   any
	err     error
	settled bool
	waiters int
}

func newCall() *Call {
	return &Call{done: make(chan struct{})}
}

// Done is closed when the call settles.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call settles or ctx is done. Returning early on ctx
// leaves the call untouched for its leader and other waiters.
func (c *Call) Wait(ctx context.Context) (any, error) {
	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Registry tracks pending calls by key. The zero value is not usable; use New.
type Registry struct {
	mu    sync.Mutex
	calls map[string]*Call
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{calls: make(map[string]*Call)}
}

// Join returns the pending call for key, if any, and counts the caller as
// one of its waiters.
func (r *Registry) Join(key string) (*Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.calls[key]
	if ok {
		c.waiters++
	}
	return c, ok
}

// Register creates a pending call for key. The caller becomes its leader and
// must eventually Settle it.
func (r *Registry) Register(key string) (*Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.calls[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, key)
	}
	c := newCall()
	r.calls[key] = c
	return c, nil
}

// JoinOrRegister atomically joins the pending call for key or registers a
// new one. leader reports whether the caller registered it.
func (r *Registry) JoinOrRegister(key string) (call *Call, leader bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.calls[key]; ok {
		c.waiters++
		return c, false
	}
	c := newCall()
	r.calls[key] = c
	return c, true
}

// Settle records the outcome of call, removes it from the registry and
// releases its waiters. Only the first Settle of a call has any effect; later
// ones return false.
func (r *Registry) Settle(key string, call *Call, value any, err error) bool {
	ok, _ := r.settle(key, call, value, err)
	return ok
}

func (r *Registry) settle(key string, call *Call, value any, err error) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if call == nil || call.settled {
		return false, 0
	}
	if r.calls[key] == call {
		delete(r.calls, key)
	}
	call.value = value
	call.err = err
	call.settled = true
	close(call.done)
	return true, call.waiters
}

// Do runs fn once per key among concurrent callers. The leader runs fn with
// its own ctx; joiners wait for the leader's outcome under theirs. shared
// reports whether the outcome was delivered to more than one caller.
//
// If fn panics, waiters receive ErrCallPanicked and the panic continues in
// the leader's goroutine.
func (r *Registry) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (value any, err error, shared bool) {
	call, leader := r.JoinOrRegister(key)
	if !leader {
		value, err = call.Wait(ctx)
		return value, err, true
	}

	returned := false
	defer func() {
		if returned {
			return
		}
		p := recover()
		r.Settle(key, call, nil, fmt.Errorf("%w: %v", ErrCallPanicked, p))
		if p != nil {
			panic(p)
		}
	}()

	value, err = fn(ctx)
	returned = true

	_, waiters := r.settle(key, call, value, err)
	return value, err, waiters > 0
}

// Waiters returns how many callers joined the pending call for key.
func (r *Registry) Waiters(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.calls[key]; ok {
		return c.waiters
	}
	return 0
}

// Keys returns the keys of pending calls, sorted.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	keys := slices.Collect(maps.Keys(r.calls))
	r.mu.Unlock()
	slices.Sort(keys)
	return keys
}

// Len returns the number of pending calls.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Reset forgets every pending call. Calls already handed out still settle
// their own waiters; new callers start fresh ones.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.calls = make(map[string]*Call)
	r.mu.Unlock()
}
