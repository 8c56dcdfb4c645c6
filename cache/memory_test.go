package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k", map[string]any{"id": 1}, DefaultPolicy()); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("Get should return ok=true after Set")
	}
	if got.(map[string]any)["id"] != 1 {
		t.Errorf("Get returned %v", got)
	}
}

func TestMemoryCache_Miss(t *testing.T) {
	c := NewMemoryCache()
	val, ok := c.Get(context.Background(), "missing")
	if ok || val != nil {
		t.Errorf("Get(missing) = %v, %v; want nil, false", val, ok)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	clock := newFakeClock()
	c := NewMemoryCache(WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "k", "v", TTL(time.Second))

	clock.Advance(999 * time.Millisecond)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("entry should still be fresh just before its TTL")
	}

	clock.Advance(time.Millisecond)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry should be absent once its TTL has elapsed")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed by the reader, Len() = %d", c.Len())
	}
}

func TestMemoryCache_NeverExpire(t *testing.T) {
	clock := newFakeClock()
	c := NewMemoryCache(WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "k", "v", NeverExpire())
	clock.Advance(1000 * time.Hour)

	if got, ok := c.Get(ctx, "k"); !ok || got != "v" {
		t.Errorf("never-expiring entry lost: %v, %v", got, ok)
	}
}

func TestMemoryCache_DisabledPolicyIsNoop(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "k", "old", DefaultPolicy())
	if err := c.Set(ctx, "k", "new", Disabled()); err != nil {
		t.Fatalf("Set with disabled policy failed: %v", err)
	}

	got, ok := c.Get(ctx, "k")
	if !ok || got != "old" {
		t.Errorf("disabled Set should leave existing entry, got %v, %v", got, ok)
	}
}

func TestMemoryCache_Overwrite(t *testing.T) {
	clock := newFakeClock()
	c := NewMemoryCache(WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "k", "v1", TTL(time.Second))
	clock.Advance(900 * time.Millisecond)
	_ = c.Set(ctx, "k", "v2", TTL(time.Second))
	clock.Advance(900 * time.Millisecond)

	got, ok := c.Get(ctx, "k")
	if !ok || got != "v2" {
		t.Errorf("overwrite should restart the TTL, got %v, %v", got, ok)
	}
}

func TestMemoryCache_NilValue(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "k", nil, DefaultPolicy())
	got, ok := c.Get(ctx, "k")
	if !ok || got != nil {
		t.Errorf("a cached nil is a hit, got %v, %v", got, ok)
	}
}

func TestMemoryCache_DeleteIdempotent(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "k", "v", DefaultPolicy())
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("deleted entry still present")
	}
}

func TestMemoryCache_Sweep(t *testing.T) {
	clock := newFakeClock()
	c := NewMemoryCache(WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "short", 1, TTL(time.Second))
	_ = c.Set(ctx, "long", 2, TTL(time.Hour))
	_ = c.Set(ctx, "never", 3, NeverExpire())
	clock.Advance(time.Minute)

	if removed := c.Sweep(ctx); removed != 1 {
		t.Errorf("Sweep removed %d entries, want 1", removed)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d after sweep, want 2", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	const numGoroutines = 50
	const opsPerGoroutine = 500

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				switch j % 3 {
				case 0:
					_ = c.Set(ctx, "concurrent-key", j, DefaultPolicy())
				case 1:
					_, _ = c.Get(ctx, "concurrent-key")
				case 2:
					_ = c.Delete(ctx, "concurrent-key")
				}
			}
		}()
	}
	wg.Wait()
}
