package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for hmcctl. Its observation methods
// satisfy the engine's Metrics interface; a disabled instance is a no-op.
type Metrics struct {
	config MetricsConfig

	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	mutatingCalls      *prometheus.CounterVec
	pollTicks          *prometheus.CounterVec
	consoleCommands    *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DurationBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		invocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of lifecycle action invocations",
			},
			[]string{"action", "status"},
		),
		invocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "End-to-end invocation duration including convergence waits",
				Buckets:   buckets,
			},
			[]string{"action"},
		),
		mutatingCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutating_calls_total",
				Help:      "Total number of mutating console calls issued",
			},
			[]string{"action"},
		),
		pollTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "poll_ticks_total",
				Help:      "Total number of convergence poll iterations",
			},
			[]string{"action"},
		),
		consoleCommands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "console_commands_total",
				Help:      "Total number of console command executions",
			},
			[]string{"command", "status"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.invocationsTotal,
		m.invocationDuration,
		m.mutatingCalls,
		m.pollTicks,
		m.consoleCommands,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveInvocation records one finished invocation.
func (m *Metrics) ObserveInvocation(action, status string, d time.Duration) {
	if m.registry == nil {
		return
	}
	m.invocationsTotal.WithLabelValues(action, status).Inc()
	m.invocationDuration.WithLabelValues(action).Observe(d.Seconds())
}

// CountMutation records one mutating console call.
func (m *Metrics) CountMutation(action string) {
	if m.registry == nil {
		return
	}
	m.mutatingCalls.WithLabelValues(action).Inc()
}

// CountPoll records one convergence poll iteration.
func (m *Metrics) CountPoll(action string) {
	if m.registry == nil {
		return
	}
	m.pollTicks.WithLabelValues(action).Inc()
}

// CountConsoleCommand records one console command execution by outcome.
func (m *Metrics) CountConsoleCommand(command, status string) {
	if m.registry == nil {
		return
	}
	m.consoleCommands.WithLabelValues(command, status).Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint, or nil when
// metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the Prometheus registry for test scraping.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
