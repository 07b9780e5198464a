package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Scheduler turn metrics
	SchedulerTurns       prometheus.Counter
	SchedulerTurnLatency prometheus.Histogram
	SchedulerErrors      *prometheus.CounterVec

	// Proposal routing metrics
	ProposalsRouted *prometheus.CounterVec
	UndoRequests    *prometheus.CounterVec

	// Interpreter boundary metrics
	InterpreterCalls   *prometheus.CounterVec
	InterpreterLatency prometheus.Histogram
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		SchedulerTurns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dayflow_scheduler_turns_total",
			Help: "Total number of scheduler conversation turns processed",
		}),

		SchedulerTurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dayflow_scheduler_turn_duration_seconds",
			Help:    "Scheduler turn latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // interpreter calls can run long
		}),

		SchedulerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dayflow_scheduler_errors_total",
			Help: "Total number of scheduler errors by kind",
		}, []string{"kind"}),

		// outcome: "auto_committed", "pending", "conflicted"
		ProposalsRouted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dayflow_proposals_routed_total",
			Help: "Total number of proposals by routing outcome",
		}, []string{"outcome"}),

		// result: "undone", "expired"
		UndoRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dayflow_undo_requests_total",
			Help: "Total number of undo requests by result",
		}, []string{"result"}),

		// result: "ok", "timeout", "malformed", "fallback"
		InterpreterCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dayflow_interpreter_calls_total",
			Help: "Total number of interpreter calls by result",
		}, []string{"result"}),

		InterpreterLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dayflow_interpreter_call_duration_seconds",
			Help:    "Interpreter call latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordTurn records a processed scheduler turn
func (m *Metrics) RecordTurn(seconds float64) {
	m.SchedulerTurns.Inc()
	m.SchedulerTurnLatency.Observe(seconds)
}

// RecordSchedulerError records a scheduler error by kind
func (m *Metrics) RecordSchedulerError(kind string) {
	m.SchedulerErrors.WithLabelValues(kind).Inc()
}

// RecordProposalRouted records a proposal routing outcome
func (m *Metrics) RecordProposalRouted(outcome string) {
	m.ProposalsRouted.WithLabelValues(outcome).Inc()
}

// RecordUndo records an undo request result
func (m *Metrics) RecordUndo(result string) {
	m.UndoRequests.WithLabelValues(result).Inc()
}

// RecordInterpreterCall records an interpreter call result and latency
func (m *Metrics) RecordInterpreterCall(result string, seconds float64) {
	m.InterpreterCalls.WithLabelValues(result).Inc()
	m.InterpreterLatency.Observe(seconds)
}
