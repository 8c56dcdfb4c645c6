package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/reqcache/method"
)

func blockingTransport(started chan<- struct{}, release <-chan struct{}) Transport {
	return Func(func(ctx context.Context, m *method.Method) (any, error) {
		started <- struct{}{}
		<-release
		return m.URL, nil
	})
}

func TestLimited_RejectsWhenFull(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	l := NewLimited(blockingTransport(started, release), LimitConfig{MaxConcurrent: 1})
	m := newMethod(t, method.Get, "http://api", "/a", nil, method.Config{})

	done := make(chan error, 1)
	go func() {
		_, err := l.Execute(context.Background(), m)
		done <- err
	}()
	<-started

	if l.Active() != 1 {
		t.Errorf("Active() = %d, want 1", l.Active())
	}
	if _, err := l.Execute(context.Background(), m); !errors.Is(err, ErrLimitReached) {
		t.Errorf("second call = %v, want ErrLimitReached", err)
	}
	if l.Rejected() != 1 {
		t.Errorf("Rejected() = %d, want 1", l.Rejected())
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if l.Active() != 0 {
		t.Errorf("Active() = %d after release", l.Active())
	}
}

func TestLimited_WaitsForSlot(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	l := NewLimited(blockingTransport(started, release), LimitConfig{MaxConcurrent: 1, MaxWait: time.Second})
	m := newMethod(t, method.Get, "http://api", "/a", nil, method.Config{})

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := l.Execute(context.Background(), m)
			done <- err
		}()
	}
	<-started
	close(release)
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Errorf("call failed: %v", err)
		}
	}
}

func TestLimited_WaitTimeoutAndCancel(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	defer close(release)
	l := NewLimited(blockingTransport(started, release), LimitConfig{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})
	m := newMethod(t, method.Get, "http://api", "/a", nil, method.Config{})

	go func() { _, _ = l.Execute(context.Background(), m) }()
	<-started

	if _, err := l.Execute(context.Background(), m); !errors.Is(err, ErrLimitReached) {
		t.Errorf("timed out wait = %v, want ErrLimitReached", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Execute(ctx, m); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled wait = %v, want context.Canceled", err)
	}
}
