package inferguard

import (
	"fmt"
	"time"
)

// RuntimeBudget is the shared remaining-time counter for an enclosing
// multi-call operation. This subsystem only reads it: every watchdog
// derived from the budget clamps its own limit to what is left, so a
// chain of calls cannot cumulatively overrun the enclosing deadline.
type RuntimeBudget struct {
	start time.Time
	total time.Duration
}

// NewRuntimeBudget starts a budget of the given total duration.
func NewRuntimeBudget(total time.Duration) *RuntimeBudget {
	return &RuntimeBudget{start: time.Now(), total: total}
}

// Remaining returns the time left in the budget, never negative.
func (b *RuntimeBudget) Remaining() time.Duration {
	rem := b.total - time.Since(b.start)
	if rem < 0 {
		return 0
	}
	return rem
}

// Exhausted reports whether the budget has run out.
func (b *RuntimeBudget) Exhausted() bool { return b.Remaining() <= 0 }

// Watchdog enforces a per-call deadline derived from the tier soft cap
// clamped to the shared budget's remaining time at creation.
//
// State machine: armed -> triggered (terminal, Check keeps failing) or
// armed -> completed (caller finished in time). The trigger is sticky.
type Watchdog struct {
	start     time.Time
	softCap   time.Duration
	effective time.Duration
	budget    *RuntimeBudget
	triggered bool
}

// NewWatchdog derives a watchdog for one call. Fails with
// ErrBudgetExhausted before any timer is created if the budget is
// already spent.
func NewWatchdog(tier Tier, budget *RuntimeBudget, escalated bool, cfg Config) (*Watchdog, error) {
	mult, ok := cfg.Watchdog.TierMultipliers[tier]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}

	escalation := 1.0
	if escalated {
		escalation = cfg.Watchdog.EscalationMultiplier
	}

	softCap := time.Duration(float64(cfg.Watchdog.BaseSoftCapMS)*mult*escalation) * time.Millisecond

	remaining := budget.Remaining()
	if remaining <= 0 {
		return nil, ErrBudgetExhausted
	}

	effective := softCap
	if remaining < effective {
		effective = remaining
	}

	return &Watchdog{
		start:     time.Now(),
		softCap:   softCap,
		effective: effective,
		budget:    budget,
	}, nil
}

// Check compares elapsed time against the effective limit and the live
// budget remainder. The first exceedance sets the sticky trigger and
// returns a WatchdogExceededError; every later call keeps failing.
func (w *Watchdog) Check() error {
	elapsed := time.Since(w.start)

	if w.triggered {
		return &WatchdogExceededError{Elapsed: elapsed, Limit: w.effective}
	}

	if elapsed >= w.effective || w.budget.Exhausted() {
		w.triggered = true
		return &WatchdogExceededError{Elapsed: elapsed, Limit: w.effective}
	}

	return nil
}

// Triggered reports whether the watchdog has tripped.
func (w *Watchdog) Triggered() bool { return w.triggered }

// EffectiveLimit returns the clamped limit this watchdog enforces.
func (w *Watchdog) EffectiveLimit() time.Duration { return w.effective }

// SoftCap returns the unclamped tier soft cap.
func (w *Watchdog) SoftCap() time.Duration { return w.softCap }

// SoftCap computes the tier soft cap without creating a watchdog. Useful
// for admission planning and capacity tests.
func SoftCap(tier Tier, escalated bool, cfg Config) time.Duration {
	mult := cfg.Watchdog.TierMultipliers[tier]
	escalation := 1.0
	if escalated {
		escalation = cfg.Watchdog.EscalationMultiplier
	}
	return time.Duration(float64(cfg.Watchdog.BaseSoftCapMS)*mult*escalation) * time.Millisecond
}
