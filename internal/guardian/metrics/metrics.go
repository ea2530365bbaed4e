package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the guardian core.
type Metrics struct {
	Evaluations       *prometheus.CounterVec
	Findings          *prometheus.CounterVec
	BlockedActions    prometheus.Counter
	SimulatedFindings prometheus.Counter
	EvaluationSeconds prometheus.Histogram

	WorkflowsTriggered prometheus.Counter
	JobsScheduled      prometheus.Counter
	JobsFired          *prometheus.CounterVec

	FindingWriteFailures prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caseguard_evaluations_total",
			Help: "Total event evaluations, by proceed decision.",
		}, []string{"decision"}),
		Findings: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caseguard_findings_total",
			Help: "Total findings recorded, by severity.",
		}, []string{"severity"}),
		BlockedActions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseguard_blocked_actions_total",
			Help: "Total guarded actions blocked by a critical finding.",
		}),
		SimulatedFindings: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseguard_simulated_findings_total",
			Help: "Findings from rules in simulate rollout mode.",
		}),
		EvaluationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "caseguard_evaluation_duration_seconds",
			Help:    "Wall time of one EvaluationEngine.Evaluate call.",
			Buckets: prometheus.DefBuckets,
		}),
		WorkflowsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseguard_workflows_triggered_total",
			Help: "Workflows whose condition matched an event.",
		}),
		JobsScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseguard_jobs_scheduled_total",
			Help: "Scheduled jobs created for SLA-delayed workflows.",
		}),
		JobsFired: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caseguard_jobs_fired_total",
			Help: "Fired scheduled jobs, by outcome.",
		}, []string{"outcome"}),
		FindingWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseguard_finding_write_failures_total",
			Help: "Finding persistence failures after retry exhaustion.",
		}),
	}
}

// ObserveEvaluation records one evaluation's decision and latency.
func (m *Metrics) ObserveEvaluation(canProceed bool, elapsed time.Duration) {
	decision := "proceed"
	if !canProceed {
		decision = "blocked"
		m.BlockedActions.Inc()
	}
	m.Evaluations.WithLabelValues(decision).Inc()
	m.EvaluationSeconds.Observe(elapsed.Seconds())
}
