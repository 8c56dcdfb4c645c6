package transport

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jonwraymond/reqcache/method"
)

// LimitConfig configures a concurrency limited transport.
type LimitConfig struct {
	// MaxConcurrent is the number of calls allowed at once.
	// Default: 10
	MaxConcurrent int

	// MaxWait bounds how long a call waits for a slot. Zero fails
	// immediately when every slot is taken.
	MaxWait time.Duration
}

// Limited bounds the number of concurrent calls reaching the next transport.
// Shared calls occupy one slot for all of their waiters.
type Limited struct {
	next     Transport
	sem      *semaphore.Weighted
	maxWait  time.Duration
	active   atomic.Int64
	rejected atomic.Int64
}

// NewLimited wraps next.
func NewLimited(next Transport, cfg LimitConfig) *Limited {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	return &Limited{
		next:    next,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		maxWait: cfg.MaxWait,
	}
}

// Execute runs m once a slot is free.
func (l *Limited) Execute(ctx context.Context, m *method.Method) (any, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	l.active.Add(1)
	defer func() {
		l.active.Add(-1)
		l.sem.Release(1)
	}()
	return l.next.Execute(ctx, m)
}

func (l *Limited) acquire(ctx context.Context) error {
	if l.sem.TryAcquire(1) {
		return nil
	}
	if l.maxWait <= 0 {
		l.rejected.Add(1)
		return ErrLimitReached
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()
	err := l.sem.Acquire(waitCtx, 1)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		l.rejected.Add(1)
		return ErrLimitReached
	default:
		return err
	}
}

// Active returns the number of calls currently running.
func (l *Limited) Active() int {
	return int(l.active.Load())
}

// Rejected returns how many calls failed with ErrLimitReached.
func (l *Limited) Rejected() int64 {
	return l.rejected.Load()
}

var _ Transport = (*Limited)(nil)
