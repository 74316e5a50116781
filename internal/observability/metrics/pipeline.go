package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics records background stage outcomes and poller results.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	registry *prometheus.Registry

	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	jobsInFlight  prometheus.Gauge
	queueLag      prometheus.Histogram
	detachedJobs  prometheus.Counter
	pollTotal     *prometheus.CounterVec
}

func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	stageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lumen",
			Subsystem: "pipeline",
			Name:      "stage_total",
			Help:      "Finished background stages by stage and resulting status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lumen",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Background stage duration in seconds by stage and status.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"stage", "status"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lumen",
			Subsystem: "pipeline",
			Name:      "jobs_in_flight",
			Help:      "Number of artifact jobs currently running.",
		},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lumen",
			Subsystem: "pipeline",
			Name:      "queue_lag_seconds",
			Help:      "Delay between submission and the start of background work.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	detachedJobs := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lumen",
			Subsystem: "pipeline",
			Name:      "detached_jobs_total",
			Help:      "Jobs started outside the worker pool because the queue was full.",
		},
	)
	pollTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lumen",
			Subsystem: "poller",
			Name:      "poll_total",
			Help:      "Diagram status polls by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(stageTotal, stageDuration, jobsInFlight, queueLag, detachedJobs, pollTotal)

	return &PipelineMetrics{
		registry:      registry,
		stageTotal:    stageTotal,
		stageDuration: stageDuration,
		jobsInFlight:  jobsInFlight,
		queueLag:      queueLag,
		detachedJobs:  detachedJobs,
		pollTotal:     pollTotal,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartJob(lag time.Duration) {
	if m == nil {
		return
	}
	m.jobsInFlight.Inc()
	if lag >= 0 {
		m.queueLag.Observe(lag.Seconds())
	}
}

func (m *PipelineMetrics) FinishJob() {
	if m == nil {
		return
	}
	m.jobsInFlight.Dec()
}

func (m *PipelineMetrics) JobDetached() {
	if m == nil {
		return
	}
	m.detachedJobs.Inc()
}

func (m *PipelineMetrics) ObserveStage(stage, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageTotal.WithLabelValues(stage, status).Inc()
	m.stageDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObservePoll(outcome string) {
	if m == nil {
		return
	}
	m.pollTotal.WithLabelValues(outcome).Inc()
}
