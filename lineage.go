package inferguard

import "sync"

// LineageTracker bounds the number of attempts per retry lineage. It
// exists so an outer caller cannot retry a failed request without bound:
// every attempt registers here first, and the ceiling is hard.
//
// Same bounded/eviction mechanics as the session tracker: at capacity,
// registering a new lineage evicts the oldest-inserted one.
type LineageTracker struct {
	mu       sync.Mutex
	attempts *boundedMap[int]
	max      int
}

// NewLineageTracker creates a tracker holding at most capacity lineages,
// each allowed max attempts.
func NewLineageTracker(capacity, max int) *LineageTracker {
	return &LineageTracker{
		attempts: newBoundedMap[int](capacity),
		max:      max,
	}
}

// Register counts one attempt for the lineage. The attempt is recorded
// before the ceiling check; exceeding max is terminal for the lineage and
// returns a RetryLimitError.
func (t *LineageTracker) Register(lineageID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	prior, _ := t.attempts.get(lineageID)
	count := prior + 1
	t.attempts.set(lineageID, count)

	if count > t.max {
		return &RetryLimitError{LineageID: lineageID, Attempts: count, Max: t.max}
	}
	return nil
}

// Attempts returns the recorded attempt count for a lineage, 0 if unknown
// or evicted.
func (t *LineageTracker) Attempts(lineageID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count, _ := t.attempts.get(lineageID)
	return count
}

// Len returns the number of tracked lineages.
func (t *LineageTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts.len()
}
