package inferguard_test

import (
	"fmt"
	"sync"
	"testing"

	ig "github.com/ineyio/inferguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test 1: Filling the tracker to capacity, then recording one more
// distinct session, evicts exactly one prior entry — the oldest.
func TestSessionTracker_EvictsOldestAtCapacity(t *testing.T) {
	tracker := ig.NewSessionTracker(10000, 20000)

	for i := 0; i < 10000; i++ {
		require.NoError(t, tracker.Record(fmt.Sprintf("sess-%d", i), 1))
	}
	require.Equal(t, 10000, tracker.Len())

	require.NoError(t, tracker.Record("sess-10000", 1))

	assert.Equal(t, 10000, tracker.Len())
	assert.Equal(t, int64(0), tracker.Usage("sess-0"))
	assert.Equal(t, int64(1), tracker.Usage("sess-1"))
	assert.Equal(t, int64(1), tracker.Usage("sess-10000"))
}

// Test 2: Record-then-reject — crossing the limit raises, but the
// over-limit total stays recorded.
func TestSessionTracker_RecordThenReject(t *testing.T) {
	tracker := ig.NewSessionTracker(10000, 20000)

	require.NoError(t, tracker.Record("sess-1", 15000))
	require.NoError(t, tracker.Record("sess-1", 5000))

	err := tracker.Record("sess-1", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ig.ErrSessionQuotaExceeded)

	var quotaErr *ig.SessionQuotaError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, int64(20001), quotaErr.Total)
	assert.Equal(t, int64(20000), quotaErr.Limit)

	assert.Equal(t, int64(20001), tracker.Usage("sess-1"))
}

// Test 3: Eviction order is first-insertion, not last-access — updating
// an old session does not save it.
func TestSessionTracker_EvictionIsInsertionOrdered(t *testing.T) {
	tracker := ig.NewSessionTracker(2, 20000)

	require.NoError(t, tracker.Record("a", 1))
	require.NoError(t, tracker.Record("b", 1))
	require.NoError(t, tracker.Record("a", 1)) // update, not reinsert

	require.NoError(t, tracker.Record("c", 1))

	assert.Equal(t, int64(0), tracker.Usage("a"))
	assert.Equal(t, int64(1), tracker.Usage("b"))
	assert.Equal(t, int64(1), tracker.Usage("c"))
}

// Test 4: Concurrent recording keeps totals consistent.
func TestSessionTracker_Concurrent(t *testing.T) {
	tracker := ig.NewSessionTracker(100, 1000000)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = tracker.Record("shared", 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), tracker.Usage("shared"))
}

// Test 5: Register raises on the 4th attempt (max 3) but not the 3rd.
func TestLineageTracker_RaisesOnFourthAttempt(t *testing.T) {
	tracker := ig.NewLineageTracker(10000, 3)

	require.NoError(t, tracker.Register("lineage-1"))
	require.NoError(t, tracker.Register("lineage-1"))
	require.NoError(t, tracker.Register("lineage-1"))
	assert.Equal(t, 3, tracker.Attempts("lineage-1"))

	err := tracker.Register("lineage-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ig.ErrRetryLimitExceeded)

	var retryErr *ig.RetryLimitError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, "lineage-1", retryErr.LineageID)
	assert.Equal(t, 4, retryErr.Attempts)

	// The rejected attempt is still on the books.
	assert.Equal(t, 4, tracker.Attempts("lineage-1"))
}

// Test 6: Lineage eviction forgets the oldest lineage's count.
func TestLineageTracker_EvictsOldest(t *testing.T) {
	tracker := ig.NewLineageTracker(2, 3)

	require.NoError(t, tracker.Register("x"))
	require.NoError(t, tracker.Register("y"))
	require.NoError(t, tracker.Register("z"))

	assert.Equal(t, 0, tracker.Attempts("x"))
	assert.Equal(t, 1, tracker.Attempts("y"))
	assert.Equal(t, 1, tracker.Attempts("z"))
	assert.Equal(t, 2, tracker.Len())
}

// Test 7: Independent lineages do not interfere.
func TestLineageTracker_IndependentLineages(t *testing.T) {
	tracker := ig.NewLineageTracker(10000, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, tracker.Register("lineage-1"))
	}
	require.NoError(t, tracker.Register("lineage-2"))
	assert.Equal(t, 1, tracker.Attempts("lineage-2"))
}
