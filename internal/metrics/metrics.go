// Package metrics defines the Prometheus instrumentation for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics
var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffmix_pipeline_runs_total",
			Help: "Total number of pipeline runs by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ffmix_pipeline_duration_seconds",
			Help:    "End-to-end pipeline run duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"operation"},
	)
)

// Fetch metrics
var (
	FetchBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffmix_fetch_bytes_total",
			Help: "Total bytes downloaded from remote asset URLs",
		},
	)

	FetchFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffmix_fetch_failures_total",
			Help: "Total failed asset downloads by reason",
		},
		[]string{"reason"},
	)
)

// Encoder metrics
var (
	EncodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ffmix_encode_duration_seconds",
			Help:    "Duration of individual ffmpeg invocations in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	EncodeFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ffmix_encode_failures_total",
			Help: "Total ffmpeg invocations that exited non-zero",
		},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ffmix_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
