package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors, labeled by camera.
type Metrics struct {
	FramesRead          *prometheus.CounterVec
	TicksRun            *prometheus.CounterVec
	DetectorErrors      *prometheus.CounterVec
	AlertsRaised        *prometheus.CounterVec
	AlertsSuppressed    *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec
	Reconnects          *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		FramesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sisa_frames_read_total",
			Help: "Frames read from camera streams",
		}, []string{"camera"}),
		TicksRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sisa_detection_ticks_total",
			Help: "Detection ticks executed",
		}, []string{"camera"}),
		DetectorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sisa_detector_errors_total",
			Help: "Detector invocation failures (tick skipped)",
		}, []string{"camera"}),
		AlertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sisa_alerts_raised_total",
			Help: "Alert events accepted and persisted",
		}, []string{"camera"}),
		AlertsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sisa_alerts_suppressed_total",
			Help: "Alerts suppressed by the per-camera cooldown",
		}, []string{"camera"}),
		PersistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sisa_persistence_failures_total",
			Help: "Alert events lost to disk or store failures",
		}, []string{"camera"}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sisa_stream_reconnects_total",
			Help: "Stream reconnection attempts",
		}, []string{"camera"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.FramesRead,
		m.TicksRun,
		m.DetectorErrors,
		m.AlertsRaised,
		m.AlertsSuppressed,
		m.PersistenceFailures,
		m.Reconnects,
	)

	return m
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
