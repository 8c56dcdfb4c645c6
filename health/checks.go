package health

import (
	"context"

	"github.com/jonwraymond/reqcache/inflight"
	"github.com/jonwraymond/reqcache/storage"
)

// StorageChecker pings a storage adapter. Adapters that cannot be pinged are
// always healthy.
type StorageChecker struct {
	name    string
	adapter storage.Adapter
}

// NewStorageChecker creates a checker for adapter.
func NewStorageChecker(name string, adapter storage.Adapter) *StorageChecker {
	return &StorageChecker{name: name, adapter: adapter}
}

// Name returns the checker name.
func (c *StorageChecker) Name() string {
	return c.name
}

// Check pings the adapter.
func (c *StorageChecker) Check(ctx context.Context) Result {
	p, ok := c.adapter.(storage.Pinger)
	if !ok {
		return Healthy("storage has no ping")
	}
	if err := p.Ping(ctx); err != nil {
		return Unhealthy("storage unreachable", err)
	}
	return Healthy("storage reachable")
}

// InFlightChecker reports a degraded status when more than Threshold calls
// are pending.
type InFlightChecker struct {
	registry  *inflight.Registry
	threshold int
}

// DefaultInFlightThreshold is the pending call count above which the
// registry is reported degraded.
const DefaultInFlightThreshold = 1000

// NewInFlightChecker creates a checker. A non-positive threshold means
// DefaultInFlightThreshold.
func NewInFlightChecker(registry *inflight.Registry, threshold int) *InFlightChecker {
	if threshold <= 0 {
		threshold = DefaultInFlightThreshold
	}
	return &InFlightChecker{registry: registry, threshold: threshold}
}

// Name returns "inflight".
func (c *InFlightChecker) Name() string {
	return "inflight"
}

// Check compares the pending call count with the threshold.
func (c *InFlightChecker) Check(context.Context) Result {
	pending := c.registry.Len()
	details := map[string]any{"pending": pending, "threshold": c.threshold}
	if pending > c.threshold {
		return Degraded("too many pending calls").WithDetails(details)
	}
	return Healthy("ok").WithDetails(details)
}
