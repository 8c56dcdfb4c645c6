package cache

import (
	"fmt"
	"time"
)

// DefaultTTL is how long read responses are cached when nothing else is
// configured.
const DefaultTTL = 5 * time.Minute

// Tier selects where an entry is stored.
type Tier int

const (
	// TierMemory keeps the entry in process memory only.
	TierMemory Tier = iota
	// TierPersisted also mirrors the entry into the storage adapter.
	TierPersisted
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierPersisted:
		return "persisted"
	default:
		return "unknown"
	}
}

// Policy configures caching for one method.
//
// The zero value is disabled.
type Policy struct {
	// TTL is how long an entry stays fresh after it is written.
	// Zero or negative disables caching unless NeverExpire is set.
	TTL time.Duration

	// NeverExpire keeps the entry until it is invalidated.
	NeverExpire bool

	// Tier selects memory-only or memory plus persisted storage.
	Tier Tier
}

// TTL returns a policy expiring d after each write.
func TTL(d time.Duration) Policy {
	return Policy{TTL: d}
}

// NeverExpire returns a policy whose entries never expire.
func NeverExpire() Policy {
	return Policy{NeverExpire: true}
}

// Disabled returns a policy that never caches.
func Disabled() Policy {
	return Policy{}
}

// DefaultPolicy returns the policy for read methods: DefaultTTL in memory.
func DefaultPolicy() Policy {
	return TTL(DefaultTTL)
}

// Persisted returns a copy of p that is also written to the storage tier.
func (p Policy) Persisted() Policy {
	p.Tier = TierPersisted
	return p
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.NeverExpire || p.TTL > 0
}

// ExpiresAt returns the expiry for an entry written at now.
// The boolean is false for never-expiring entries.
func (p Policy) ExpiresAt(now time.Time) (time.Time, bool) {
	if p.NeverExpire {
		return time.Time{}, false
	}
	return now.Add(p.TTL), true
}

// Validate rejects unknown tiers and contradictory settings.
func (p Policy) Validate() error {
	if p.Tier != TierMemory && p.Tier != TierPersisted {
		return fmt.Errorf("%w: unknown tier %d", ErrInvalidPolicy, p.Tier)
	}
	if p.NeverExpire && p.TTL > 0 {
		return fmt.Errorf("%w: ttl set on never-expiring policy", ErrInvalidPolicy)
	}
	return nil
}

// String describes the policy, e.g. "ttl=5m0s/memory".
func (p Policy) String() string {
	switch {
	case p.NeverExpire:
		return "never/" + p.Tier.String()
	case p.TTL > 0:
		return "ttl=" + p.TTL.String() + "/" + p.Tier.String()
	default:
		return "disabled"
	}
}
