package inferguard

import "time"

// Tier classifies a request for admission and deadline purposes.
type Tier string

const (
	TierSimple   Tier = "simple"
	TierComplex  Tier = "complex"
	TierCritical Tier = "critical"
)

// Valid reports whether the tier is one of the known values.
func (t Tier) Valid() bool {
	switch t {
	case TierSimple, TierComplex, TierCritical:
		return true
	}
	return false
}

func (t Tier) String() string { return string(t) }

// CognitiveDomain selects the sampling temperature for a request.
type CognitiveDomain string

const (
	DomainCreative   CognitiveDomain = "creative"
	DomainDiagnostic CognitiveDomain = "diagnostic"
	DomainCode       CognitiveDomain = "code"
	DomainExecution  CognitiveDomain = "execution"
	DomainNatural    CognitiveDomain = "natural"
)

// Stage identifies one of the three pipeline stages.
type Stage string

const (
	StageIntake    Stage = "intake"
	StageReasoning Stage = "reasoning"
	StageSynthesis Stage = "synthesis"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

func (u Usage) add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// Request is one governed pipeline invocation.
type Request struct {
	Input     string
	SessionID string

	// LineageID identifies the request across retries. Empty means a fresh
	// lineage; the runner assigns one.
	LineageID string

	Tier      Tier
	Domain    CognitiveDomain
	Escalated bool

	// MaxTokens is the requested generation length. Nil or non-positive
	// means "use the hard cap".
	MaxTokens *int

	// Budget is the remaining-time budget of the enclosing operation. Nil
	// means a fresh budget from the configured default.
	Budget *RuntimeBudget
}

// StageResult is the outcome of a single pipeline stage.
type StageResult struct {
	Stage        Stage     `json:"stage"`
	OutputText   string    `json:"output_text"`
	ModelUsed    string    `json:"model_used"`
	FallbackUsed bool      `json:"fallback_used"`
	Usage        Usage     `json:"usage"`
	ResponseID   string    `json:"response_id"`
	Timestamp    time.Time `json:"timestamp"`

	// FailureReason is set when the stage degraded (reasoning only; other
	// stages fail the request instead).
	FailureReason string `json:"failure_reason,omitempty"`
}

// PipelineResult aggregates the three stage results for one request.
type PipelineResult struct {
	RequestID  string
	LineageID  string
	Intake     StageResult
	Reasoning  StageResult
	Synthesis  StageResult
	TotalUsage Usage
	Downgraded bool
}

// IntPtr returns a pointer to the given int.
func IntPtr(v int) *int { return &v }
