package inferguard_test

import (
	"context"
	"testing"
	"time"

	ig "github.com/ineyio/inferguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test 1: For every tier, filling the pool makes the next acquire
// suspend until a slot is released.
func TestGovernor_ExtraAcquireSuspendsUntilRelease(t *testing.T) {
	cfg := ig.DefaultConfig()
	cfg.Pools = ig.PoolConfig{Simple: 3, Complex: 2, Critical: 1}
	g := ig.NewGovernor(cfg)

	for _, tier := range []ig.Tier{ig.TierSimple, ig.TierComplex, ig.TierCritical} {
		t.Run(tier.String(), func(t *testing.T) {
			ctx := context.Background()

			slots := make([]*ig.Slot, 0, g.PoolSize(tier))
			for i := 0; i < g.PoolSize(tier); i++ {
				slot, err := g.Acquire(ctx, tier)
				require.NoError(t, err)
				slots = append(slots, slot)
			}

			acquired := make(chan *ig.Slot, 1)
			go func() {
				slot, err := g.Acquire(ctx, tier)
				if err == nil {
					acquired <- slot
				}
			}()

			select {
			case <-acquired:
				t.Fatal("acquire should suspend while the pool is full")
			case <-time.After(50 * time.Millisecond):
			}

			slots[0].Release()

			select {
			case slot := <-acquired:
				slot.Release()
			case <-time.After(time.Second):
				t.Fatal("acquire did not resume after a release")
			}

			for _, slot := range slots[1:] {
				slot.Release()
			}
		})
	}
}

// Test 2: Pools are independent — a full tier never borrows from another.
func TestGovernor_NoCrossTierBorrowing(t *testing.T) {
	cfg := ig.DefaultConfig()
	cfg.Pools = ig.PoolConfig{Simple: 1, Complex: 1, Critical: 1}
	g := ig.NewGovernor(cfg)

	ctx := context.Background()

	held, err := g.Acquire(ctx, ig.TierSimple)
	require.NoError(t, err)
	defer held.Release()

	// Simple is full; complex still admits immediately.
	slot, err := g.Acquire(ctx, ig.TierComplex)
	require.NoError(t, err)
	slot.Release()
}

// Test 3: Release is idempotent — a double release frees exactly one slot.
func TestSlot_ReleaseIdempotent(t *testing.T) {
	cfg := ig.DefaultConfig()
	cfg.Pools.Critical = 1
	g := ig.NewGovernor(cfg)

	ctx := context.Background()

	slot, err := g.Acquire(ctx, ig.TierCritical)
	require.NoError(t, err)
	assert.Equal(t, int64(1), g.InFlight(ig.TierCritical))

	slot.Release()
	slot.Release()
	assert.Equal(t, int64(0), g.InFlight(ig.TierCritical))

	// The pool is intact: we can still fill it to exactly its capacity.
	again, err := g.Acquire(ctx, ig.TierCritical)
	require.NoError(t, err)
	defer again.Release()
	assert.Equal(t, int64(1), g.InFlight(ig.TierCritical))
}

// Test 4: Unknown tiers are rejected.
func TestGovernor_InvalidTier(t *testing.T) {
	g := ig.NewGovernor(ig.DefaultConfig())

	_, err := g.Acquire(context.Background(), "urgent")
	assert.ErrorIs(t, err, ig.ErrInvalidTier)
}

// Test 5: A suspended acquire honors context cancellation.
func TestGovernor_AcquireHonorsCancel(t *testing.T) {
	cfg := ig.DefaultConfig()
	cfg.Pools.Critical = 1
	g := ig.NewGovernor(cfg)

	held, err := g.Acquire(context.Background(), ig.TierCritical)
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := g.Acquire(ctx, ig.TierCritical)
		errCh <- err
	}()

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled acquire did not return")
	}
}
