package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters for the compositor and frame drivers.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	framesComposed       prometheus.Counter
	composeSeconds       prometheus.Histogram
	previewSuperseded    prometheus.Counter
	previewDegraded      prometheus.Counter
	captionReshapes      prometheus.Counter
	captionPrepareErrors prometheus.Counter
	exportFrames         prometheus.Counter
	httpRequests         prometheus.Counter
	httpErrors           prometheus.Counter
}

// New creates and registers the metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		framesComposed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frameforge_frames_composed_total",
			Help: "Total number of frames composed",
		}),
		composeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "frameforge_compose_seconds",
			Help:    "Time spent preparing and rendering one frame",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		previewSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frameforge_preview_superseded_total",
			Help: "Preview frames discarded because a newer request arrived",
		}),
		previewDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frameforge_preview_degraded_total",
			Help: "Preview requests answered with a fallback frame",
		}),
		captionReshapes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frameforge_caption_reshapes_total",
			Help: "Caption text buffer rebuilds",
		}),
		captionPrepareErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frameforge_caption_prepare_errors_total",
			Help: "Caption text preparation failures",
		}),
		exportFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frameforge_export_frames_total",
			Help: "Frames written by export jobs",
		}),
		httpRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frameforge_http_requests_total",
			Help: "Total number of preview API requests",
		}),
		httpErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frameforge_http_errors_total",
			Help: "Preview API responses with status >= 400",
		}),
	}

	registry.MustRegister(
		m.framesComposed,
		m.composeSeconds,
		m.previewSuperseded,
		m.previewDegraded,
		m.captionReshapes,
		m.captionPrepareErrors,
		m.exportFrames,
		m.httpRequests,
		m.httpErrors,
	)
	return m
}

// ObserveCompose records one composed frame and its duration in seconds.
func (m *Metrics) ObserveCompose(seconds float64) {
	if m == nil {
		return
	}
	m.framesComposed.Inc()
	m.composeSeconds.Observe(seconds)
}

func (m *Metrics) IncPreviewSuperseded() {
	if m != nil {
		m.previewSuperseded.Inc()
	}
}

func (m *Metrics) IncPreviewDegraded() {
	if m != nil {
		m.previewDegraded.Inc()
	}
}

func (m *Metrics) IncCaptionReshapes() {
	if m != nil {
		m.captionReshapes.Inc()
	}
}

func (m *Metrics) IncCaptionPrepareErrors() {
	if m != nil {
		m.captionPrepareErrors.Inc()
	}
}

func (m *Metrics) IncExportFrames() {
	if m != nil {
		m.exportFrames.Inc()
	}
}

func (m *Metrics) IncRequests() {
	if m != nil {
		m.httpRequests.Inc()
	}
}

func (m *Metrics) IncErrors() {
	if m != nil {
		m.httpErrors.Inc()
	}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
