package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики воркеров.
var (
	RegionsDequeued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaic_worker_regions_dequeued_total",
		Help: "Work messages taken from the work stream.",
	})

	ResultsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaic_worker_results_published_total",
		Help: "Results appended to the result stream.",
	})

	RegionsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaic_worker_regions_enqueued_total",
		Help: "Sub-regions appended to the work stream.",
	})

	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaic_worker_decode_failures_total",
		Help: "Work messages that could not be decoded or evaluated.",
	})

	TransportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mosaic_transport_errors_total",
		Help: "Broker operations that failed.",
	}, []string{"component"})

	EvaluateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mosaic_worker_evaluate_seconds",
		Help:    "Time spent evaluating one region.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	})

	WorkersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mosaic_worker_running",
		Help: "Workers currently polling in this process.",
	})
)

// Метрики компоновщика.
var (
	ResultsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaic_collector_results_applied_total",
		Help: "Result messages painted onto the raster.",
	})

	ResultsMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaic_collector_results_malformed_total",
		Help: "Result messages skipped as malformed.",
	})

	RegionsPainted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mosaic_collector_regions_painted",
		Help: "Regions painted onto the raster so far.",
	})

	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mosaic_collector_exports_total",
		Help: "Raster exports by outcome.",
	}, []string{"status"})
)

// Метрики координатора.
var (
	RegionsSeeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mosaic_coordinator_regions_seeded_total",
		Help: "Initial quadrants appended to the work stream.",
	})
)

// Метрики HTTP API.
var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mosaic_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mosaic_http_request_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)
