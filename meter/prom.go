package meter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ineyio/inferguard"
)

// PromMeter exports governance events as Prometheus metrics.
type PromMeter struct {
	admissions  *prometheus.CounterVec
	waitSeconds *prometheus.HistogramVec
	inFlight    *prometheus.GaugeVec
	stages      *prometheus.HistogramVec
	fallbacks   *prometheus.CounterVec
	guardrails  *prometheus.CounterVec
}

var _ inferguard.Meter = (*PromMeter)(nil)

// NewPromMeter registers the metrics with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewPromMeter(reg prometheus.Registerer) *PromMeter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &PromMeter{
		admissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inferguard_admissions_total",
			Help: "Requests admitted into tier pools.",
		}, []string{"tier"}),
		waitSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inferguard_admission_wait_seconds",
			Help:    "Time spent suspended waiting for a pool slot.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tier"}),
		inFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inferguard_in_flight",
			Help: "Admitted requests currently in flight per tier.",
		}, []string{"tier"}),
		stages: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inferguard_stage_duration_seconds",
			Help:    "Duration of individual stage model calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "outcome"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inferguard_stage_fallbacks_total",
			Help: "Stage calls served by the fallback model.",
		}, []string{"stage"}),
		guardrails: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inferguard_guardrail_rejections_total",
			Help: "Requests rejected by a guardrail.",
		}, []string{"kind", "tier"}),
	}
}

func (m *PromMeter) OnAdmit(e inferguard.AdmitEvent) {
	tier := e.Tier.String()
	m.admissions.WithLabelValues(tier).Inc()
	m.waitSeconds.WithLabelValues(tier).Observe(e.Wait.Seconds())
	m.inFlight.WithLabelValues(tier).Set(float64(e.InFlight))
}

func (m *PromMeter) OnStage(e inferguard.StageEvent) {
	outcome := "success"
	if !e.Success {
		outcome = "error"
	}
	m.stages.WithLabelValues(string(e.Stage), outcome).Observe(e.Duration.Seconds())
	if e.Fallback && e.Success {
		m.fallbacks.WithLabelValues(string(e.Stage)).Inc()
	}
}

func (m *PromMeter) OnGuardrail(e inferguard.GuardrailEvent) {
	m.guardrails.WithLabelValues(e.Kind, e.Tier.String()).Inc()
}
