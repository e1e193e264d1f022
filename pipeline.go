package inferguard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ineyio/inferguard/audit"
)

// defaultTemperatures maps cognitive domains to sampling temperatures.
var defaultTemperatures = map[CognitiveDomain]float64{
	DomainCreative:   0.9,
	DomainDiagnostic: 0.2,
	DomainCode:       0.1,
	DomainExecution:  0.3,
	DomainNatural:    0.7,
}

const (
	intakePrompt    = "Frame the user request into a structured instruction for downstream reasoning. Preserve intent; do not answer."
	reasoningPrompt = "Work through the framed instruction step by step and produce a reasoned analysis."
	synthesisPrompt = "Produce the final user-facing answer from the original request and the reasoned analysis."
)

// Runner executes the governed three-stage pipeline: intake framing,
// reasoning, final synthesis. One watchdog per request is shared by all
// three stages, so the combined work is clamped to the runtime budget.
type Runner struct {
	cfg      Config
	client   ModelClient
	memory   MemoryProvider
	governor *Governor
	sessions *SessionTracker
	lineages *LineageTracker
	detector *DowngradeDetector
	audit    *audit.Logger
	meter    Meter
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithGovernor sets the admission governor.
func WithGovernor(g *Governor) RunnerOption {
	return func(r *Runner) { r.governor = g }
}

// WithSessionTracker sets the session quota tracker.
func WithSessionTracker(t *SessionTracker) RunnerOption {
	return func(r *Runner) { r.sessions = t }
}

// WithLineageTracker sets the retry lineage tracker.
func WithLineageTracker(t *LineageTracker) RunnerOption {
	return func(r *Runner) { r.lineages = t }
}

// WithMemory sets the memory/context collaborator for the intake stage.
func WithMemory(m MemoryProvider) RunnerOption {
	return func(r *Runner) { r.memory = m }
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(l *audit.Logger) RunnerOption {
	return func(r *Runner) { r.audit = l }
}

// WithMeter sets the meter.
func WithMeter(m Meter) RunnerOption {
	return func(r *Runner) { r.meter = m }
}

// NewRunner creates a Runner with the given config and model client.
// Default components (governor, trackers, noop meter) are built from the
// config unless overridden via options.
func NewRunner(cfg Config, client ModelClient, opts ...RunnerOption) (*Runner, error) {
	if client == nil {
		return nil, fmt.Errorf("inferguard: a model client is required")
	}

	cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Models.Primary == "" || cfg.Models.Secondary == "" ||
		cfg.Models.Reasoning == "" || cfg.Models.ReasoningFallback == "" {
		return nil, fmt.Errorf("inferguard: config: all four stage models are required")
	}

	r := &Runner{cfg: cfg, client: client}

	for _, opt := range opts {
		opt(r)
	}

	// Apply defaults after options.
	if r.governor == nil {
		r.governor = NewGovernor(cfg)
	}
	if r.sessions == nil {
		r.sessions = NewSessionTracker(cfg.Capacity, cfg.SessionLimit)
	}
	if r.lineages == nil {
		r.lineages = NewLineageTracker(cfg.Capacity, cfg.MaxRetries)
	}
	if r.meter == nil {
		r.meter = noopMeter{}
	}
	if r.detector == nil {
		r.detector = NewDowngradeDetector(r.audit)
	}

	return r, nil
}

// NewAuditLogger builds an audit logger from the startup configuration,
// wiring the signer when a signing key is configured.
func NewAuditLogger(cfg Config, sink io.Writer) (*audit.Logger, error) {
	cfg.withDefaults()

	opts := []audit.Option{audit.WithQueueSize(cfg.Audit.QueueSize)}
	if cfg.Audit.SigningKey != "" {
		signer, err := audit.NewSigner(cfg.Audit.SigningKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, audit.WithSigner(signer))
	}
	return audit.New(sink, opts...), nil
}

// Run executes one governed request through all three stages. The slot is
// released on every exit path; guardrail errors surface synchronously and
// are never retried here.
func (r *Runner) Run(ctx context.Context, req Request) (*PipelineResult, error) {
	if !req.Tier.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTier, req.Tier)
	}

	lineageID := req.LineageID
	if lineageID == "" {
		lineageID = uuid.New().String()
	}

	// Every attempt counts against the lineage ceiling before anything
	// else runs, so retries cannot bypass it.
	if err := r.lineages.Register(lineageID); err != nil {
		r.meter.OnGuardrail(GuardrailEvent{
			Kind: GuardrailRetryLimit, Tier: req.Tier,
			SessionID: req.SessionID, LineageID: lineageID, Error: err,
		})
		return nil, err
	}

	budget := req.Budget
	if budget == nil {
		budget = NewRuntimeBudget(time.Duration(r.cfg.Watchdog.DefaultBudgetMS) * time.Millisecond)
	}

	waitStart := time.Now()
	slot, err := r.governor.Acquire(ctx, req.Tier)
	if err != nil {
		return nil, err
	}
	defer slot.Release()

	r.meter.OnAdmit(AdmitEvent{
		Tier:     req.Tier,
		Wait:     time.Since(waitStart),
		InFlight: r.governor.InFlight(req.Tier),
	})

	wd, err := NewWatchdog(req.Tier, budget, req.Escalated, r.cfg)
	if err != nil {
		return nil, r.reject(req, lineageID, err)
	}

	maxTokens := EnforceTokenBudget(req.MaxTokens, r.cfg.HardTokenCap)
	requestID := uuid.New().String()

	intake, resolvedPrimary, err := r.runIntake(ctx, wd, req, maxTokens)
	if err != nil {
		return nil, r.reject(req, lineageID, err)
	}

	reasoning, err := r.runReasoning(ctx, wd, intake.OutputText, maxTokens)
	if err != nil {
		return nil, r.reject(req, lineageID, err)
	}

	synthesis, err := r.runSynthesis(ctx, wd, req, resolvedPrimary, reasoning.OutputText, maxTokens)
	if err != nil {
		return nil, r.reject(req, lineageID, err)
	}

	total := intake.Usage.add(reasoning.Usage).add(synthesis.Usage)

	// Record-then-reject: consumption lands in the tracker before the
	// limit verdict, and the audit record is emitted either way.
	recordErr := r.sessions.Record(req.SessionID, total.TotalTokens)

	downgraded := r.detector.Detect(r.cfg.Models.Primary, synthesis.ModelUsed)

	if r.audit != nil {
		r.audit.Log(map[string]any{
			"type":              "pipeline_complete",
			"request_id":        requestID,
			"session_id":        req.SessionID,
			"lineage_id":        lineageID,
			"tier":              string(req.Tier),
			"input":             req.Input,
			"watchdog_limit_ms": wd.EffectiveLimit().Milliseconds(),
			"stages":            []StageResult{intake, reasoning, synthesis},
			"total_usage":       total,
			"downgraded":        downgraded,
			"quota_rejected":    recordErr != nil,
		})
	}

	if recordErr != nil {
		r.meter.OnGuardrail(GuardrailEvent{
			Kind: GuardrailSessionQuota, Tier: req.Tier,
			SessionID: req.SessionID, LineageID: lineageID, Error: recordErr,
		})
		return nil, recordErr
	}

	return &PipelineResult{
		RequestID:  requestID,
		LineageID:  lineageID,
		Intake:     intake,
		Reasoning:  reasoning,
		Synthesis:  synthesis,
		TotalUsage: total,
		Downgraded: downgraded,
	}, nil
}

// runIntake frames the raw request plus the memory summary into a
// structured instruction. The primary model is probed here, once per
// request; whatever answers becomes the family the synthesis stage
// re-invokes.
func (r *Runner) runIntake(ctx context.Context, wd *Watchdog, req Request, maxTokens int) (StageResult, string, error) {
	if err := wd.Check(); err != nil {
		return StageResult{}, "", err
	}

	summary := ""
	if r.memory != nil {
		// Memory is advisory: a recall failure degrades to an empty summary.
		if mc, err := r.memory.Recall(ctx, req.Input, req.SessionID); err == nil {
			summary = mc.Summary
		}
	}

	msgs := frameIntake(req.Input, summary)

	resp, model, primaryErr, err := r.callWithFallback(ctx, StageIntake,
		r.cfg.Models.Primary, r.cfg.Models.Secondary, msgs, r.temperature(req.Domain), maxTokens)
	if err != nil {
		return StageResult{}, "", err
	}

	return stageResult(StageIntake, resp, primaryErr != nil, ""), model, nil
}

// runReasoning invokes the high-capability reasoning model. A failure of
// both reasoning attempts is recorded on the result, not surfaced: the
// synthesis stage still runs and the caller decides what the degraded
// output is worth. Watchdog trips remain fatal.
func (r *Runner) runReasoning(ctx context.Context, wd *Watchdog, instruction string, maxTokens int) (StageResult, error) {
	if err := wd.Check(); err != nil {
		return StageResult{}, err
	}

	msgs := []Message{
		{Role: "system", Content: reasoningPrompt},
		{Role: "user", Content: instruction},
	}

	resp, _, primaryErr, err := r.callWithFallback(ctx, StageReasoning,
		r.cfg.Models.Reasoning, r.cfg.Models.ReasoningFallback, msgs, r.temperature(DomainDiagnostic), maxTokens)
	if err != nil {
		return StageResult{
			Stage:         StageReasoning,
			FallbackUsed:  true,
			Timestamp:     time.Now(),
			FailureReason: err.Error(),
		}, nil
	}

	failure := ""
	if primaryErr != nil {
		failure = primaryErr.Error()
	}
	return stageResult(StageReasoning, resp, primaryErr != nil, failure), nil
}

// runSynthesis re-invokes the model family intake resolved to, with the
// original request and the reasoning output, to produce the user-facing
// result. The stage keeps its own independent fallback.
func (r *Runner) runSynthesis(ctx context.Context, wd *Watchdog, req Request, primary, reasoningOut string, maxTokens int) (StageResult, error) {
	if err := wd.Check(); err != nil {
		return StageResult{}, err
	}

	msgs := frameSynthesis(req.Input, reasoningOut)

	fallback := r.cfg.Models.Secondary
	if primary == fallback {
		fallback = r.cfg.Models.Primary
	}

	resp, _, primaryErr, err := r.callWithFallback(ctx, StageSynthesis,
		primary, fallback, msgs, r.temperature(req.Domain), maxTokens)
	if err != nil {
		return StageResult{}, err
	}

	return stageResult(StageSynthesis, resp, primaryErr != nil, ""), nil
}

// callWithFallback tries the primary model, then the fallback on any
// provider error. One internal retry, no more: a second failure surfaces
// as a ProviderError. primaryErr reports why the fallback was taken.
func (r *Runner) callWithFallback(ctx context.Context, stage Stage, primary, fallback string, msgs []Message, temp float64, maxTokens int) (resp CompletionResponse, model string, primaryErr, err error) {
	resp, callErr := r.attempt(ctx, stage, primary, false, msgs, temp, maxTokens)
	if callErr == nil {
		return resp, primary, nil, nil
	}

	resp, fallbackErr := r.attempt(ctx, stage, fallback, true, msgs, temp, maxTokens)
	if fallbackErr != nil {
		return CompletionResponse{}, "", callErr, &ProviderError{
			Stage: stage, Model: primary, Fallback: fallback, Err: fallbackErr,
		}
	}

	return resp, fallback, callErr, nil
}

func (r *Runner) attempt(ctx context.Context, stage Stage, model string, fallback bool, msgs []Message, temp float64, maxTokens int) (CompletionResponse, error) {
	start := time.Now()
	resp, err := r.client.Complete(ctx, CompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temp,
		MaxTokens:   maxTokens,
	})
	r.meter.OnStage(StageEvent{
		Stage:    stage,
		Model:    model,
		Fallback: fallback,
		Success:  err == nil,
		Duration: time.Since(start),
		Usage:    resp.Usage,
		Error:    err,
	})
	return resp, err
}

// reject reports a fatal mid-pipeline failure before surfacing it.
func (r *Runner) reject(req Request, lineageID string, err error) error {
	if IsGuardrail(err) {
		r.meter.OnGuardrail(GuardrailEvent{
			Kind: guardrailKind(err), Tier: req.Tier,
			SessionID: req.SessionID, LineageID: lineageID, Error: err,
		})
	}
	if r.audit != nil {
		r.audit.Log(map[string]any{
			"type":       "pipeline_rejected",
			"session_id": req.SessionID,
			"lineage_id": lineageID,
			"tier":       string(req.Tier),
			"reason":     err.Error(),
		})
	}
	return err
}

func (r *Runner) temperature(domain CognitiveDomain) float64 {
	if t, ok := r.cfg.Temperatures[domain]; ok {
		return t
	}
	if t, ok := defaultTemperatures[domain]; ok {
		return t
	}
	return defaultTemperatures[DomainNatural]
}

func frameIntake(input, summary string) []Message {
	system := intakePrompt
	if summary != "" {
		system += "\n\nContext summary:\n" + summary
	}
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: input},
	}
}

func frameSynthesis(input, reasoning string) []Message {
	msgs := []Message{
		{Role: "system", Content: synthesisPrompt},
		{Role: "user", Content: input},
	}
	if reasoning != "" {
		msgs = append(msgs, Message{Role: "assistant", Content: reasoning})
	}
	return msgs
}

func stageResult(stage Stage, resp CompletionResponse, fallback bool, failure string) StageResult {
	ts := resp.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return StageResult{
		Stage:         stage,
		OutputText:    resp.Text,
		ModelUsed:     resp.Model,
		FallbackUsed:  fallback,
		Usage:         resp.Usage,
		ResponseID:    resp.ResponseID,
		Timestamp:     ts,
		FailureReason: failure,
	}
}

func guardrailKind(err error) string {
	switch {
	case errors.Is(err, ErrWatchdogExceeded):
		return GuardrailWatchdog
	case errors.Is(err, ErrSessionQuotaExceeded):
		return GuardrailSessionQuota
	case errors.Is(err, ErrRetryLimitExceeded):
		return GuardrailRetryLimit
	default:
		return GuardrailBudget
	}
}

// noopMeter is a meter that does nothing.
type noopMeter struct{}

func (noopMeter) OnAdmit(AdmitEvent)         {}
func (noopMeter) OnStage(StageEvent)         {}
func (noopMeter) OnGuardrail(GuardrailEvent) {}
