package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ussdflow"

// Metrics holds the collectors fed by Hooks.
type Metrics struct {
	registry *prometheus.Registry

	Transitions  *prometheus.CounterVec
	Injections   *prometheus.CounterVec
	PinPrompts   prometheus.Counter
	Outcomes     *prometheus.CounterVec
	Skips        *prometheus.CounterVec
	FlowDuration *prometheus.HistogramVec
	CurrentStep  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Step transitions by source and target step.",
		}, []string{"from", "to"}),
		Injections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "injections_total",
			Help:      "Values typed into dialogs by field.",
		}, []string{"field"}),
		PinPrompts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pin_prompts_total",
			Help:      "Times the flow paused for a PIN.",
		}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Finished flows by transaction type and status.",
		}, []string{"type", "status"}),
		Skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_dialogs_total",
			Help:      "Dialog notifications dropped without acting, by reason.",
		}, []string{"reason"}),
		FlowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flow_duration_seconds",
			Help:      "Time from the first menu answer to the terminal screen.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"type"}),
		CurrentStep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_step",
			Help:      "Persisted step of the active transaction.",
		}),
	}
	m.registry.MustRegister(
		m.Transitions, m.Injections, m.PinPrompts, m.Outcomes,
		m.Skips, m.FlowDuration, m.CurrentStep,
	)
	return m
}

// Registry exposes the private registry, e.g. to add process collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks records every lifecycle event.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(e.From.String(), e.To.String()).Inc()
			m.CurrentStep.Set(float64(e.To))
		},
		OnInject: func(_ context.Context, e *domain.InjectEvent) {
			m.Injections.WithLabelValues(string(e.Field)).Inc()
		},
		OnPinPrompt: func(_ context.Context, _ *domain.PinPromptEvent) {
			m.PinPrompts.Inc()
		},
		OnOutcome: func(_ context.Context, e *domain.OutcomeEvent) {
			m.Outcomes.WithLabelValues(string(e.Outcome.Type), string(e.Outcome.Status)).Inc()
			if e.Duration > 0 {
				m.FlowDuration.WithLabelValues(string(e.Outcome.Type)).Observe(e.Duration.Seconds())
			}
		},
		OnSkip: func(_ context.Context, e *domain.SkipEvent) {
			m.Skips.WithLabelValues(skipLabel(e.Reason)).Inc()
		},
	}
}

// skipLabel keeps the reason label bounded; error texts collapse into one value.
func skipLabel(reason string) string {
	switch reason {
	case "automation disabled", "no transaction", "empty dialog",
		"send pending", "duplicate dialog", "inject failed", "handler panic":
		return reason
	}
	return "other"
}
