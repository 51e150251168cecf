// Package metrics exposes Prometheus collectors for tool invocations, the
// registry size and dependency availability.
//
// Every method is safe to call on a nil *Metrics, so components can take an
// optional collector without guarding each call site.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Call outcome label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the toolbelt collectors.
type Metrics struct {
	// ToolCalls counts invocations by tool, category and outcome.
	ToolCalls *prometheus.CounterVec

	// ToolCallDuration measures handler latency by tool.
	ToolCallDuration *prometheus.HistogramVec

	// RegistryTools is the number of registered tools.
	RegistryTools prometheus.Gauge

	// DependencyLoaded is 1 for loaded dependencies and 0 otherwise.
	DependencyLoaded *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. When reg is nil a fresh registry is
// used.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		ToolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolbelt_tool_calls_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool", "category", "status"},
		),
		ToolCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolbelt_tool_call_duration_seconds",
				Help:    "Duration of tool invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		RegistryTools: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "toolbelt_registry_tools",
				Help: "Number of tools in the registry",
			},
		),
		DependencyLoaded: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "toolbelt_dependency_loaded",
				Help: "Whether a dependency is loaded (1) or not (0)",
			},
			[]string{"name", "required"},
		),
		gatherer: reg,
	}
}

// ObserveToolCall records one invocation.
func (m *Metrics) ObserveToolCall(tool, category string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	m.ToolCalls.WithLabelValues(tool, category, status).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RegistrySize sets the registry gauge.
func (m *Metrics) RegistrySize(n int) {
	if m == nil {
		return
	}
	m.RegistryTools.Set(float64(n))
}

// DependencyState sets the dependency gauge.
func (m *Metrics) DependencyState(name string, required, loaded bool) {
	if m == nil {
		return
	}
	value := 0.0
	if loaded {
		value = 1
	}
	m.DependencyLoaded.WithLabelValues(name, strconv.FormatBool(required)).Set(value)
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
