package meter

import (
	"log/slog"

	"github.com/ineyio/inferguard"
)

// LogMeter logs governance events using slog.
type LogMeter struct {
	Logger *slog.Logger
}

var _ inferguard.Meter = (*LogMeter)(nil)

// NewLogMeter creates a LogMeter with the given logger.
// If logger is nil, slog.Default() is used.
func NewLogMeter(logger *slog.Logger) *LogMeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMeter{Logger: logger}
}

func (m *LogMeter) OnAdmit(e inferguard.AdmitEvent) {
	m.Logger.Info("admit",
		"tier", e.Tier,
		"wait_ms", e.Wait.Milliseconds(),
		"in_flight", e.InFlight,
	)
}

func (m *LogMeter) OnStage(e inferguard.StageEvent) {
	if e.Success {
		m.Logger.Info("stage",
			"stage", e.Stage,
			"model", e.Model,
			"fallback", e.Fallback,
			"duration_ms", e.Duration.Milliseconds(),
			"prompt_tokens", e.Usage.PromptTokens,
			"completion_tokens", e.Usage.CompletionTokens,
		)
	} else {
		m.Logger.Warn("stage_error",
			"stage", e.Stage,
			"model", e.Model,
			"fallback", e.Fallback,
			"duration_ms", e.Duration.Milliseconds(),
			"error", e.Error,
		)
	}
}

func (m *LogMeter) OnGuardrail(e inferguard.GuardrailEvent) {
	m.Logger.Warn("guardrail",
		"kind", e.Kind,
		"tier", e.Tier,
		"session", e.SessionID,
		"lineage", e.LineageID,
		"error", e.Error,
	)
}
