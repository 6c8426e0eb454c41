package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/prismfin/prism/internal/core"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Presentation metrics
	chartsRendered     *prometheus.CounterVec
	chartsDisposed     *prometheus.CounterVec
	presentCycles      prometheus.Counter
	staleBuildsDropped prometheus.Counter
	optimizationsTotal *prometheus.CounterVec
	optimizeDuration   prometheus.Histogram
	chartsLive         *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Presentation metrics
	r.chartsRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_charts_rendered_total",
			Help: "Total number of charts rendered, by slot",
		},
		[]string{"slot"},
	)
	r.chartsDisposed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_charts_disposed_total",
			Help: "Total number of chart instances disposed, by slot",
		},
		[]string{"slot"},
	)
	r.presentCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prism_present_cycles_total",
			Help: "Total number of presentation cycles completed",
		},
	)
	r.staleBuildsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prism_stale_builds_dropped_total",
			Help: "Total number of deferred chart builds dropped as stale",
		},
	)
	r.optimizationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_optimizations_total",
			Help: "Total number of optimization requests",
		},
		[]string{"status"},
	)
	r.optimizeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prism_optimize_duration_seconds",
			Help:    "Upstream optimization request duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)
	r.chartsLive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prism_charts_live",
			Help: "Number of live chart instances, by slot",
		},
		[]string{"slot"},
	)

	reg.MustRegister(r.chartsRendered)
	reg.MustRegister(r.chartsDisposed)
	reg.MustRegister(r.presentCycles)
	reg.MustRegister(r.staleBuildsDropped)
	reg.MustRegister(r.optimizationsTotal)
	reg.MustRegister(r.optimizeDuration)
	reg.MustRegister(r.chartsLive)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// ChartBound records a chart bound into a slot.
func (r *Registry) ChartBound(slot core.ChartSlot) {
	r.chartsRendered.WithLabelValues(string(slot)).Inc()
	r.chartsLive.WithLabelValues(string(slot)).Inc()
}

// ChartDisposed records a chart instance disposal.
func (r *Registry) ChartDisposed(slot core.ChartSlot) {
	r.chartsDisposed.WithLabelValues(string(slot)).Inc()
	r.chartsLive.WithLabelValues(string(slot)).Dec()
}

// PresentCycle records a completed presentation cycle.
func (r *Registry) PresentCycle() {
	r.presentCycles.Inc()
}

// StaleBuildDropped records a deferred build dropped as stale.
func (r *Registry) StaleBuildDropped() {
	r.staleBuildsDropped.Inc()
}

// RecordOptimization records an upstream optimization request.
func (r *Registry) RecordOptimization(status string, duration float64) {
	r.optimizationsTotal.WithLabelValues(status).Inc()
	r.optimizeDuration.Observe(duration)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
