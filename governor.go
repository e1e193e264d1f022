package inferguard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Governor admits requests into fixed-size per-tier pools. There is no
// cross-tier borrowing: a full critical pool never spills into simple.
type Governor struct {
	pools    map[Tier]*semaphore.Weighted
	sizes    map[Tier]int
	inflight map[Tier]*atomic.Int64
}

// NewGovernor creates a Governor with the configured pool sizes.
func NewGovernor(cfg Config) *Governor {
	sizes := map[Tier]int{
		TierSimple:   cfg.Pools.Simple,
		TierComplex:  cfg.Pools.Complex,
		TierCritical: cfg.Pools.Critical,
	}

	g := &Governor{
		pools:    make(map[Tier]*semaphore.Weighted, len(sizes)),
		sizes:    sizes,
		inflight: make(map[Tier]*atomic.Int64, len(sizes)),
	}
	for tier, size := range sizes {
		g.pools[tier] = semaphore.NewWeighted(int64(size))
		g.inflight[tier] = &atomic.Int64{}
	}
	return g
}

// Acquire admits one request into the tier's pool, suspending until
// capacity frees or ctx is cancelled. Acquire has no intrinsic timeout;
// callers pair it with a Watchdog so a stuck downstream call cannot hold
// a slot past its limit.
func (g *Governor) Acquire(ctx context.Context, tier Tier) (*Slot, error) {
	sem, ok := g.pools[tier]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	g.inflight[tier].Add(1)

	return &Slot{governor: g, tier: tier}, nil
}

// InFlight returns the number of currently admitted requests for a tier.
func (g *Governor) InFlight(tier Tier) int64 {
	counter, ok := g.inflight[tier]
	if !ok {
		return 0
	}
	return counter.Load()
}

// PoolSize returns the configured capacity for a tier.
func (g *Governor) PoolSize(tier Tier) int {
	return g.sizes[tier]
}

// Slot is the ownership token for one unit of admitted capacity.
type Slot struct {
	governor *Governor
	tier     Tier
	once     sync.Once
}

// Release returns the slot to its pool. Safe to call more than once; only
// the first call frees capacity. Must be called on every exit path,
// including failure.
func (s *Slot) Release() {
	s.once.Do(func() {
		s.governor.pools[s.tier].Release(1)
		s.governor.inflight[s.tier].Add(-1)
	})
}

// Tier returns the tier this slot was admitted into.
func (s *Slot) Tier() Tier { return s.tier }
