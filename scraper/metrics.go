package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for one run.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   prometheus.Histogram
	RetriesTotal      prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
	MatchesTotal      *prometheus.CounterVec
	ObservationsTotal *prometheus.CounterVec
	LastRunTimestamp  prometheus.Gauge
	LastRunSuccess    prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)
	matches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extract_matches_total",
			Help: "Field extractions by the rule that matched (\"none\" on a miss).",
		},
		[]string{"field", "rule"},
	)
	observations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_observations_total",
			Help: "Observations handed to the log store by outcome.",
		},
		[]string{"outcome"},
	)
	lastRun := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		},
	)
	lastSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_last_run_success",
			Help: "1 if the last run recorded an observation, 0 otherwise.",
		},
	)

	registry.MustRegister(requests, requestDuration, retries, errorsTotal, matches, observations, lastRun, lastSuccess)

	return &Metrics{
		Registry:          registry,
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		RetriesTotal:      retries,
		ErrorsTotal:       errorsTotal,
		MatchesTotal:      matches,
		ObservationsTotal: observations,
		LastRunTimestamp:  lastRun,
		LastRunSuccess:    lastSuccess,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncMatch counts a field extraction. An empty rule is recorded as "none".
func (m *Metrics) IncMatch(field, rule string) {
	if m == nil {
		return
	}
	if rule == "" {
		rule = "none"
	}
	m.MatchesTotal.WithLabelValues(field, rule).Inc()
}

// IncObservation counts what the store did with the run's value.
func (m *Metrics) IncObservation(outcome string) {
	if m == nil {
		return
	}
	m.ObservationsTotal.WithLabelValues(outcome).Inc()
}

// MarkRun stamps the run completion time and outcome.
func (m *Metrics) MarkRun(at time.Time, success bool) {
	if m == nil {
		return
	}
	m.LastRunTimestamp.Set(float64(at.Unix()))
	if success {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
}
