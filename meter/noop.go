package meter

import "github.com/ineyio/inferguard"

// NoopMeter is a meter that does nothing.
type NoopMeter struct{}

var _ inferguard.Meter = (*NoopMeter)(nil)

func (m *NoopMeter) OnAdmit(inferguard.AdmitEvent)         {}
func (m *NoopMeter) OnStage(inferguard.StageEvent)         {}
func (m *NoopMeter) OnGuardrail(inferguard.GuardrailEvent) {}
