package inferguard

import "sync"

// SessionTracker tracks cumulative token usage per session in a bounded
// map. When a new session would exceed capacity, the oldest-inserted
// session is evicted first.
type SessionTracker struct {
	mu    sync.Mutex
	usage *boundedMap[int64]
	limit int64
}

// NewSessionTracker creates a tracker holding at most capacity distinct
// sessions, each limited to limit cumulative tokens.
func NewSessionTracker(capacity int, limit int64) *SessionTracker {
	return &SessionTracker{
		usage: newBoundedMap[int64](capacity),
		limit: limit,
	}
}

// Record adds tokens to the session's cumulative total. The new total is
// stored before the limit check, so the audit trail reflects true
// consumption even when the request is rejected: after a SessionQuotaError,
// Usage still returns the over-limit total.
func (t *SessionTracker) Record(sessionID string, tokens int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	prior, _ := t.usage.get(sessionID)
	total := prior + tokens
	t.usage.set(sessionID, total)

	if total > t.limit {
		return &SessionQuotaError{SessionID: sessionID, Total: total, Limit: t.limit}
	}
	return nil
}

// Usage returns the cumulative token total for a session, 0 if unknown
// or evicted.
func (t *SessionTracker) Usage(sessionID string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	total, _ := t.usage.get(sessionID)
	return total
}

// Len returns the number of tracked sessions.
func (t *SessionTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage.len()
}
