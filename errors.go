package inferguard

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors.
var (
	ErrInvalidTier          = errors.New("inferguard: invalid tier")
	ErrBudgetExhausted      = errors.New("inferguard: runtime budget already exhausted")
	ErrWatchdogExceeded     = errors.New("inferguard: watchdog limit exceeded")
	ErrSessionQuotaExceeded = errors.New("inferguard: session token quota exceeded")
	ErrRetryLimitExceeded   = errors.New("inferguard: retry limit exceeded for lineage")
	ErrProviderUnavailable  = errors.New("inferguard: provider unavailable")
)

// WatchdogExceededError reports a tripped watchdog. Always fatal to the
// in-flight call; the trigger is sticky, so later checks keep failing.
type WatchdogExceededError struct {
	Elapsed time.Duration
	Limit   time.Duration
}

func (e *WatchdogExceededError) Error() string {
	return fmt.Sprintf("inferguard: watchdog exceeded: elapsed=%s limit=%s", e.Elapsed, e.Limit)
}

func (e *WatchdogExceededError) Unwrap() error { return ErrWatchdogExceeded }

// SessionQuotaError reports a session that accumulated past its token
// limit. The usage stays recorded; the total here is the true consumption.
type SessionQuotaError struct {
	SessionID string
	Total     int64
	Limit     int64
}

func (e *SessionQuotaError) Error() string {
	return fmt.Sprintf("inferguard: session %s used %d tokens (limit %d)", e.SessionID, e.Total, e.Limit)
}

func (e *SessionQuotaError) Unwrap() error { return ErrSessionQuotaExceeded }

// RetryLimitError reports a lineage that exceeded its retry ceiling.
// Signals the caller to stop retrying that lineage.
type RetryLimitError struct {
	LineageID string
	Attempts  int
	Max       int
}

func (e *RetryLimitError) Error() string {
	return fmt.Sprintf("inferguard: lineage %s attempted %d times (max %d)", e.LineageID, e.Attempts, e.Max)
}

func (e *RetryLimitError) Unwrap() error { return ErrRetryLimitExceeded }

// ProviderError wraps an upstream failure with stage context. Surfaced only
// after both the primary and the fallback model failed.
type ProviderError struct {
	Stage    Stage
	Model    string
	Fallback string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("inferguard: stage=%s model=%s fallback=%s: %v", e.Stage, e.Model, e.Fallback, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsGuardrail returns true if the error came from a guardrail (watchdog,
// session quota, retry limit) rather than from the upstream provider.
// Guardrail errors must never be silently retried.
func IsGuardrail(err error) bool {
	return errors.Is(err, ErrWatchdogExceeded) ||
		errors.Is(err, ErrSessionQuotaExceeded) ||
		errors.Is(err, ErrRetryLimitExceeded) ||
		errors.Is(err, ErrBudgetExhausted)
}
