package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Import outcomes
const (
	OutcomeSkipped   = "skipped"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
	OutcomeCompleted = "completed"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Proxy metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	HeadersStripped *prometheus.CounterVec

	// Download interception metrics
	Interceptions  prometheus.Counter
	Imports        *prometheus.CounterVec
	ImportDuration prometheus.Histogram

	// Panel metrics
	PanelsActive  prometheus.Gauge
	PanelsCreated prometheus.Counter
	PanelReveals  prometheus.Counter

	startTime time.Time
}

// NewMetrics creates a new metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_proxy_requests_total",
				Help: "Total number of requests handled by the local proxy",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_proxy_request_duration_seconds",
				Help:    "Local proxy request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		HeadersStripped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_proxy_headers_stripped_total",
				Help: "Response headers removed before reaching the panel",
			},
			[]string{"header"},
		),

		Interceptions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_download_interceptions_total",
				Help: "Requests matching the download trigger",
			},
		),
		Imports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_project_imports_total",
				Help: "Project imports by outcome",
			},
			[]string{"outcome"},
		),
		ImportDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bridge_project_import_duration_seconds",
				Help:    "Time spent downloading and extracting a project",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		PanelsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_panels_active",
				Help: "Number of live panels (0 or 1)",
			},
		),
		PanelsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_panels_created_total",
				Help: "Total number of panels created or revived",
			},
		),
		PanelReveals: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_panel_reveals_total",
				Help: "Start invocations that revealed an existing panel",
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "bridge_uptime_seconds",
			Help: "Bridge uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)
	reg.MustRegister(collectors.NewGoCollector())

	return m
}

// Registry exposes the underlying registry for gathering in tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordProxyRequest records a request served by the local proxy
func (m *Metrics) RecordProxyRequest(method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordHeaderStripped records one removed response header
func (m *Metrics) RecordHeaderStripped(header string) {
	if m == nil {
		return
	}
	m.HeadersStripped.WithLabelValues(header).Inc()
}

// IncInterceptions increments the intercepted download counter
func (m *Metrics) IncInterceptions() {
	if m == nil {
		return
	}
	m.Interceptions.Inc()
}

// RecordImport records the outcome of a project import
func (m *Metrics) RecordImport(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Imports.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCompleted || outcome == OutcomeFailed {
		m.ImportDuration.Observe(duration.Seconds())
	}
}

// SetPanelActive sets the live panel gauge
func (m *Metrics) SetPanelActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.PanelsActive.Set(1)
	} else {
		m.PanelsActive.Set(0)
	}
}

// IncPanelsCreated increments the created panel counter
func (m *Metrics) IncPanelsCreated() {
	if m == nil {
		return
	}
	m.PanelsCreated.Inc()
}

// IncPanelReveals increments the reveal counter
func (m *Metrics) IncPanelReveals() {
	if m == nil {
		return
	}
	m.PanelReveals.Inc()
}
