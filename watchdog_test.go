package inferguard_test

import (
	"testing"
	"time"

	ig "github.com/ineyio/inferguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test 1: Soft cap ordering across tiers and escalation.
func TestSoftCap_Ordering(t *testing.T) {
	cfg := ig.DefaultConfig()

	criticalEscalated := ig.SoftCap(ig.TierCritical, true, cfg)
	critical := ig.SoftCap(ig.TierCritical, false, cfg)
	simpleEscalated := ig.SoftCap(ig.TierSimple, true, cfg)

	assert.Greater(t, criticalEscalated, critical)
	assert.Greater(t, critical, simpleEscalated)

	// Spot-check the arithmetic: 25000 * 1.8 * 1.3.
	assert.Equal(t, 58500*time.Millisecond, criticalEscalated)
}

// Test 2: The effective limit is clamped to the budget remainder, not
// the tier soft cap.
func TestWatchdog_ClampsToBudget(t *testing.T) {
	cfg := ig.DefaultConfig()
	budget := ig.NewRuntimeBudget(500 * time.Millisecond)

	wd, err := ig.NewWatchdog(ig.TierSimple, budget, false, cfg)
	require.NoError(t, err)

	assert.Equal(t, 25000*time.Millisecond, wd.SoftCap())
	assert.LessOrEqual(t, wd.EffectiveLimit(), 500*time.Millisecond)
	assert.Greater(t, wd.EffectiveLimit(), 400*time.Millisecond)
}

// Test 3: An already-exhausted budget fails before any timer is created.
func TestWatchdog_BudgetExhausted(t *testing.T) {
	cfg := ig.DefaultConfig()

	_, err := ig.NewWatchdog(ig.TierSimple, ig.NewRuntimeBudget(0), false, cfg)
	assert.ErrorIs(t, err, ig.ErrBudgetExhausted)
}

// Test 4: Check after the effective limit elapses always raises, and the
// trigger is sticky.
func TestWatchdog_StickyTrigger(t *testing.T) {
	cfg := ig.DefaultConfig()
	budget := ig.NewRuntimeBudget(20 * time.Millisecond)

	wd, err := ig.NewWatchdog(ig.TierSimple, budget, false, cfg)
	require.NoError(t, err)
	assert.False(t, wd.Triggered())

	time.Sleep(30 * time.Millisecond)

	err = wd.Check()
	require.Error(t, err)
	assert.ErrorIs(t, err, ig.ErrWatchdogExceeded)
	assert.True(t, wd.Triggered())

	var wdErr *ig.WatchdogExceededError
	require.ErrorAs(t, err, &wdErr)
	assert.GreaterOrEqual(t, wdErr.Elapsed, wdErr.Limit)

	// Still failing on the next check.
	assert.ErrorIs(t, wd.Check(), ig.ErrWatchdogExceeded)
	assert.True(t, wd.Triggered())
}

// Test 5: Check passes while inside the limit.
func TestWatchdog_PassesWithinLimit(t *testing.T) {
	cfg := ig.DefaultConfig()
	budget := ig.NewRuntimeBudget(10 * time.Second)

	wd, err := ig.NewWatchdog(ig.TierComplex, budget, false, cfg)
	require.NoError(t, err)

	assert.NoError(t, wd.Check())
	assert.False(t, wd.Triggered())
}

// Test 6: Invalid tier has no multiplier.
func TestWatchdog_InvalidTier(t *testing.T) {
	cfg := ig.DefaultConfig()

	_, err := ig.NewWatchdog("urgent", ig.NewRuntimeBudget(time.Second), false, cfg)
	assert.ErrorIs(t, err, ig.ErrInvalidTier)
}

// Test 7: RuntimeBudget remaining never goes negative.
func TestRuntimeBudget_Remaining(t *testing.T) {
	b := ig.NewRuntimeBudget(10 * time.Millisecond)
	assert.Greater(t, b.Remaining(), time.Duration(0))
	assert.False(t, b.Exhausted())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, time.Duration(0), b.Remaining())
	assert.True(t, b.Exhausted())
}
