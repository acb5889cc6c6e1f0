// Package metrics exposes Prometheus counters for the control loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks control-loop activity. A nil *Metrics is a no-op so
// packages can take it as an optional dependency.
type Metrics struct {
	registry *prometheus.Registry

	rounds         prometheus.Counter
	recipeMatches  prometheus.Counter
	plansApplied   prometheus.Counter
	changesApplied prometheus.Counter
	changesFailed  prometheus.Counter
	rejections     prometheus.CounterVec
	reverts        prometheus.Counter
	feedback       prometheus.CounterVec
}

// New builds a Metrics recorder backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)
	m.registry = reg
	return m
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rounds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tunewise",
			Subsystem: "loop",
			Name:      "rounds_total",
			Help:      "Number of reasoning rounds completed",
		}),
		recipeMatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tunewise",
			Subsystem: "loop",
			Name:      "recipe_matches_total",
			Help:      "Number of ticks where a recipe matched the running processes",
		}),
		plansApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tunewise",
			Subsystem: "apply",
			Name:      "plans_total",
			Help:      "Number of configuration plans handed to the applier",
		}),
		changesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tunewise",
			Subsystem: "apply",
			Name:      "changes_applied_total",
			Help:      "Number of configuration changes applied successfully",
		}),
		changesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tunewise",
			Subsystem: "apply",
			Name:      "changes_failed_total",
			Help:      "Number of configuration changes that failed to apply",
		}),
		rejections: *factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunewise",
			Subsystem: "arbiter",
			Name:      "rejections_total",
			Help:      "Recommendations rejected during arbitration, by reason",
		}, []string{"reason"}),
		reverts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tunewise",
			Subsystem: "apply",
			Name:      "reverts_total",
			Help:      "Number of recipe reverts performed",
		}),
		feedback: *factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunewise",
			Subsystem: "learn",
			Name:      "feedback_total",
			Help:      "Feedback records processed, by kind",
		}, []string{"kind"}),
	}
}

// Registry returns the backing registry for the metrics endpoint. Nil for
// a nil recorder.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRound increments the reasoning round counter.
func (m *Metrics) RecordRound() {
	if m == nil {
		return
	}
	m.rounds.Inc()
}

// RecordRecipeMatch increments the recipe match counter.
func (m *Metrics) RecordRecipeMatch() {
	if m == nil {
		return
	}
	m.recipeMatches.Inc()
}

// RecordPlan counts an applied plan and its per-change outcomes.
func (m *Metrics) RecordPlan(applied, failed int) {
	if m == nil {
		return
	}
	m.plansApplied.Inc()
	m.changesApplied.Add(float64(applied))
	m.changesFailed.Add(float64(failed))
}

// RecordRejection increments the rejection counter for a reason.
func (m *Metrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// RecordRevert increments the revert counter.
func (m *Metrics) RecordRevert() {
	if m == nil {
		return
	}
	m.reverts.Inc()
}

// RecordFeedback increments the feedback counter for a kind.
func (m *Metrics) RecordFeedback(kind string) {
	if m == nil {
		return
	}
	m.feedback.WithLabelValues(kind).Inc()
}
