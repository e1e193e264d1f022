package inferguard

import "time"

// Meter observes governance events for monitoring/logging.
type Meter interface {
	// OnAdmit is called when a request is admitted into a tier pool.
	OnAdmit(event AdmitEvent)

	// OnStage is called when a pipeline stage attempt completes.
	OnStage(event StageEvent)

	// OnGuardrail is called when a guardrail rejects a request.
	OnGuardrail(event GuardrailEvent)
}

// AdmitEvent describes a pool admission.
type AdmitEvent struct {
	Tier     Tier
	Wait     time.Duration // time spent suspended waiting for a slot
	InFlight int64         // admitted requests in the tier after this one
}

// StageEvent describes the outcome of one model call within a stage.
type StageEvent struct {
	Stage    Stage
	Model    string
	Fallback bool // this call was the fallback attempt
	Success  bool
	Duration time.Duration
	Usage    Usage
	Error    error
}

// Guardrail kinds reported in GuardrailEvent.
const (
	GuardrailWatchdog     = "watchdog"
	GuardrailSessionQuota = "session_quota"
	GuardrailRetryLimit   = "retry_limit"
	GuardrailBudget       = "budget"
)

// GuardrailEvent describes a guardrail rejection.
type GuardrailEvent struct {
	Kind      string
	Tier      Tier
	SessionID string
	LineageID string
	Error     error
}
