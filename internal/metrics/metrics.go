// Package metrics defines the prometheus collectors for pipeline runs.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "podcast_agent"

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs, labeled by whether every requested stage succeeded.",
		},
		[]string{"outcome"},
	)

	StageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_total",
			Help:      "Total number of stage outcomes, labeled by stage and status.",
		},
		[]string{"stage", "status"},
	)

	StageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Total number of stage failures, labeled by stage and error kind.",
		},
		[]string{"stage", "kind"},
	)

	StageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each stage (seconds).",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	VideoPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_polls_total",
			Help:      "Total number of video job status queries, labeled by observed status.",
		},
		[]string{"status"},
	)

	TransientRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transient_retries_total",
			Help:      "Total number of immediate retries after a connection-level failure.",
		},
		[]string{"stage"},
	)

	SegmentWarningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_warnings_total",
			Help:      "Total number of scripts whose part count did not match the request.",
		},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests, labeled by route pattern and status code.",
		},
		[]string{"route", "code"},
	)
)

func init() {
	prometheus.MustRegister(
		RunsTotal,
		StageTotal,
		StageErrorsTotal,
		StageDurationSeconds,
		VideoPollsTotal,
		TransientRetriesTotal,
		SegmentWarningsTotal,
		HTTPRequestsTotal,
	)
}
