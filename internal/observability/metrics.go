package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "architect"

type moduleMetrics struct {
	modelRequestTotal    *prometheus.CounterVec
	modelRequestDuration *prometheus.HistogramVec

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec
	toolErrorsTotal       *prometheus.CounterVec

	turnTotal    *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec

	droppedToolCalls *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			modelRequestTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "model_request_total",
					Help:      "Total model requests by provider, phase and status.",
				},
				[]string{"provider", "phase", "status"},
			),
			modelRequestDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "model_request_duration_seconds",
					Help:      "Model request latency in seconds by provider and phase.",
					Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
				},
				[]string{"provider", "phase"},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "tool_execution_total",
					Help:      "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "tool_execution_duration_seconds",
					Help:      "Tool execution duration in seconds by tool.",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "tool_errors_total",
					Help:      "Total tool executions that reported an error, by tool.",
				},
				[]string{"tool"},
			),
			turnTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "turn_total",
					Help:      "Total sendMessage rounds by provider and outcome.",
				},
				[]string{"provider", "outcome"},
			),
			turnDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "turn_duration_seconds",
					Help:      "sendMessage round duration in seconds by provider.",
					Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
				},
				[]string{"provider"},
			),
			droppedToolCalls: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "dropped_tool_calls_total",
					Help:      "Tool calls returned by the model beyond the first, which are not executed.",
				},
				[]string{"provider"},
			),
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "active_sessions",
					Help:      "Current active session count.",
				},
			),
		}

		prometheus.MustRegister(
			m.modelRequestTotal,
			m.modelRequestDuration,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.toolErrorsTotal,
			m.turnTotal,
			m.turnDuration,
			m.droppedToolCalls,
			m.activeSessions,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordModelRequest records one chat completion round trip. phase is
// "initial" or "final".
func RecordModelRequest(provider, phase string, duration time.Duration, success bool) {
	m := getMetrics()
	m.modelRequestTotal.WithLabelValues(provider, phase, statusLabel(success)).Inc()
	m.modelRequestDuration.WithLabelValues(provider, phase).Observe(duration.Seconds())
}

func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	m.toolExecutionTotal.WithLabelValues(tool, statusLabel(success)).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if !success {
		m.toolErrorsTotal.WithLabelValues(tool).Inc()
	}
}

// RecordTurn records a completed sendMessage call. outcome is one of
// "reply", "tool", "transport_error" or "error".
func RecordTurn(provider, outcome string, duration time.Duration) {
	m := getMetrics()
	m.turnTotal.WithLabelValues(provider, outcome).Inc()
	m.turnDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func RecordDroppedToolCalls(provider string, count int) {
	if count <= 0 {
		return
	}
	getMetrics().droppedToolCalls.WithLabelValues(provider).Add(float64(count))
}

func SessionOpened() {
	getMetrics().activeSessions.Inc()
}

func SessionClosed() {
	getMetrics().activeSessions.Dec()
}
