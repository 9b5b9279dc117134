// Package metrics exposes Prometheus instrumentation for analyses, the
// result cache, ffprobe runs and the HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis outcome statuses.
const (
	StatusSuccess            = "success"
	StatusMalformedInput     = "malformed_input"
	StatusInsufficientSignal = "insufficient_signal"
	StatusError              = "error"
)

var (
	// Engine metrics
	analysisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidqa_analysis_total",
		Help: "Total analysis operations by outcome",
	}, []string{"operation", "status"})

	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidqa_analysis_duration_seconds",
		Help:    "Analysis duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
	}, []string{"operation"})

	analysisInputRecords = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidqa_analysis_input_records",
		Help:    "Frames or samples per analysis request",
		Buckets: prometheus.ExponentialBuckets(1, 4, 12),
	}, []string{"operation"})

	verdictTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidqa_verdict_total",
		Help: "Transcode report verdicts",
	}, []string{"verdict"})

	lowConfidenceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidqa_low_confidence_total",
		Help: "Results flagged low-confidence",
	}, []string{"operation"})

	// Cache metrics
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidqa_cache_hits_total",
		Help: "Result cache hits",
	}, []string{"operation"})

	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidqa_cache_misses_total",
		Help: "Result cache misses",
	}, []string{"operation"})

	cacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidqa_cache_errors_total",
		Help: "Result cache backend errors",
	}, []string{"op"})

	// Probe metrics
	probeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidqa_probe_duration_seconds",
		Help:    "ffprobe run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	}, []string{"kind"})

	probeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidqa_probe_errors_total",
		Help: "Failed ffprobe runs",
	}, []string{"kind"})

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidqa_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidqa_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidqa_http_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

// RecordAnalysis records one engine operation outcome.
func RecordAnalysis(operation, status string, seconds float64) {
	analysisTotal.WithLabelValues(operation, status).Inc()
	analysisDuration.WithLabelValues(operation).Observe(seconds)
}

// ObserveInputRecords records how many frames or samples a request carried.
func ObserveInputRecords(operation string, n int) {
	analysisInputRecords.WithLabelValues(operation).Observe(float64(n))
}

// RecordVerdict counts a report verdict.
func RecordVerdict(verdict string) {
	verdictTotal.WithLabelValues(verdict).Inc()
}

// RecordLowConfidence counts a low-confidence result.
func RecordLowConfidence(operation string) {
	lowConfidenceTotal.WithLabelValues(operation).Inc()
}

// RecordCacheResult counts a cache lookup.
func RecordCacheResult(operation string, hit bool) {
	if hit {
		cacheHitsTotal.WithLabelValues(operation).Inc()
		return
	}
	cacheMissesTotal.WithLabelValues(operation).Inc()
}

// IncrementCacheError counts a failed cache get or set.
func IncrementCacheError(op string) {
	cacheErrorsTotal.WithLabelValues(op).Inc()
}

// RecordProbe records an ffprobe run.
func RecordProbe(kind string, seconds float64, failed bool) {
	probeDuration.WithLabelValues(kind).Observe(seconds)
	if failed {
		probeErrorsTotal.WithLabelValues(kind).Inc()
	}
}

// RecordHTTPRequest records a served request.
func RecordHTTPRequest(method, route, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// IncrementRateLimited counts a request rejected by the rate limiter.
func IncrementRateLimited() {
	rateLimitedTotal.Inc()
}
