package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for FunnelPulse.
type Metrics struct {
	// Ingest metrics
	EventsIngested *prometheus.CounterVec
	EventsSkipped  prometheus.Counter
	IngestBatches  prometheus.Counter

	// Aggregation metrics
	MetricsRequests     *prometheus.CounterVec
	AggregationDuration prometheus.Histogram
	WindowEvents        prometheus.Histogram

	// Liveness metrics
	ActiveSessionQueries *prometheus.CounterVec

	// Collaborator metrics
	EventStoreErrors *prometheus.CounterVec
	AdPlatformCalls  *prometheus.CounterVec
	TokenRefreshes   prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		EventsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_ingested_total",
				Help:      "Total number of funnel events accepted for storage",
			},
			[]string{"step", "event_type"},
		),
		EventsSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_skipped_total",
				Help:      "Total number of malformed events dropped at ingest",
			},
		),
		IngestBatches: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_batches_total",
				Help:      "Total number of ingest batches processed",
			},
		),
		MetricsRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metrics_requests_total",
				Help:      "Total number of funnel metrics queries",
			},
			[]string{"status"},
		),
		AggregationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "aggregation_duration_seconds",
				Help:      "Time spent aggregating one event window",
				Buckets:   prometheus.DefBuckets,
			},
		),
		WindowEvents: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "window_events",
				Help:      "Number of events fetched per aggregation window",
				Buckets:   prometheus.ExponentialBuckets(10, 10, 7),
			},
		),
		ActiveSessionQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "active_session_queries_total",
				Help:      "Total number of live-session counts by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		EventStoreErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_store_errors_total",
				Help:      "Total number of event store failures by operation",
			},
			[]string{"op"},
		),
		AdPlatformCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ad_platform_calls_total",
				Help:      "Total number of ad platform API calls by outcome",
			},
			[]string{"outcome"},
		),
		TokenRefreshes: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refreshes_total",
				Help:      "Total number of ad platform token refreshes",
			},
		),
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of requests rejected by rate limiting",
			},
			[]string{"path"},
		),
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Nil-safe recording helpers; services hold a possibly-nil *Metrics.

func (m *Metrics) RecordIngestedEvent(step, eventType string) {
	if m == nil {
		return
	}
	m.EventsIngested.WithLabelValues(step, eventType).Inc()
}

func (m *Metrics) RecordSkippedEvent() {
	if m == nil {
		return
	}
	m.EventsSkipped.Inc()
}

func (m *Metrics) RecordIngestBatch() {
	if m == nil {
		return
	}
	m.IngestBatches.Inc()
}

func (m *Metrics) RecordMetricsRequest(status string) {
	if m == nil {
		return
	}
	m.MetricsRequests.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordAggregation(events int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AggregationDuration.Observe(elapsed.Seconds())
	m.WindowEvents.Observe(float64(events))
}

func (m *Metrics) RecordActiveSessionQuery(source, outcome string) {
	if m == nil {
		return
	}
	m.ActiveSessionQueries.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) RecordEventStoreError(op string) {
	if m == nil {
		return
	}
	m.EventStoreErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordAdPlatformCall(outcome string) {
	if m == nil {
		return
	}
	m.AdPlatformCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordTokenRefresh() {
	if m == nil {
		return
	}
	m.TokenRefreshes.Inc()
}

func (m *Metrics) RecordHTTPRequest(path, method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(path, method, status).Inc()
	m.HTTPDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordRateLimitHit(path string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(path).Inc()
}
