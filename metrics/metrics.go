// Package metrics exposes the Prometheus counters, histograms, and gauges
// the worker emits while running the pipeline: per-stage timings, client
// retry/failure accounting for the LM and blob store clients, and
// job-in-flight capacity gauges, the same shape the teacher uses for its
// own CatalystAPIMetrics / ClientMetrics types.
package metrics

import (
	"github.com/clipmind/video-report/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ClientMetrics is the common shape used for any retrying external client
// (LM calls, blob store uploads): how many times it retried, how many
// times it ultimately failed, and how long requests took.
type ClientMetrics struct {
	RetryCount      *prometheus.GaugeVec
	FailureCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// StageMetrics tracks one pipeline stage's throughput and latency.
type StageMetrics struct {
	Count    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

type WorkerMetrics struct {
	Version *prometheus.CounterVec

	JobsInFlight  prometheus.Gauge
	JobsCompleted *prometheus.CounterVec

	StageDuration StageMetrics

	LMClient        ClientMetrics
	BlobStoreClient ClientMetrics

	TranscribeSemaphoreWait prometheus.Histogram
	VisionSemaphoreWait     prometheus.Histogram
	UploadSemaphoreWait     prometheus.Histogram

	JSONRepairCount *prometheus.CounterVec
}

var stageBuckets = []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

func NewMetrics() *WorkerMetrics {
	m := &WorkerMetrics{
		Version: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "version",
			Help: "Current Git SHA / Tag that's running. Incremented once on app startup.",
		}, []string{"app", "version"}),

		JobsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "jobs_in_flight",
			Help: "A count of the report jobs currently being processed",
		}),
		JobsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "The total number of jobs that reached a terminal status",
		}, []string{"status"}),

		StageDuration: StageMetrics{
			Count: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "pipeline_stage_total",
				Help: "Number of times a pipeline stage ran, by outcome",
			}, []string{"stage", "outcome"}),
			Duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Time taken to run a pipeline stage",
				Buckets: stageBuckets,
			}, []string{"stage"}),
		},

		LMClient: ClientMetrics{
			RetryCount: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "lm_client_retry_count",
				Help: "The number of retried LM requests",
			}, []string{"host"}),
			FailureCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "lm_client_failure_count",
				Help: "The total number of failed LM requests",
			}, []string{"host", "status_code"}),
			RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "lm_client_request_duration_seconds",
				Help:    "Time taken to complete an LM request",
				Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 20, 40, 80},
			}, []string{"host"}),
		},

		BlobStoreClient: ClientMetrics{
			RetryCount: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "blob_store_retry_count",
				Help: "The number of retried blob store requests",
			}, []string{"operation", "bucket"}),
			FailureCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "blob_store_failure_count",
				Help: "The total number of failed blob store requests",
			}, []string{"operation", "bucket"}),
			RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "blob_store_request_duration_seconds",
				Help:    "Time taken to complete a blob store request",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			}, []string{"operation", "bucket"}),
		},

		TranscribeSemaphoreWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcribe_semaphore_wait_seconds",
			Help:    "Time a chunk spent waiting to acquire the transcribe semaphore",
			Buckets: []float64{.01, .1, .5, 1, 5, 15, 30, 60},
		}),
		VisionSemaphoreWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vision_semaphore_wait_seconds",
			Help:    "Time a task spent waiting to acquire the vision semaphore",
			Buckets: []float64{.01, .1, .5, 1, 5, 15, 30, 60},
		}),
		UploadSemaphoreWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_semaphore_wait_seconds",
			Help:    "Time an upload spent waiting to acquire the upload semaphore",
			Buckets: []float64{.01, .1, .5, 1, 5, 15, 30, 60},
		}),

		JSONRepairCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lm_json_repair_total",
			Help: "Number of LM responses that could not be parsed as JSON even after repair (technique=\"failed\")",
		}, []string{"technique"}),
	}

	m.Version.WithLabelValues("video-report", config.Version).Inc()

	return m
}

var Metrics = NewMetrics()
