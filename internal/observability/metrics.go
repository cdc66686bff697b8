// File path: internal/observability/metrics.go
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlquery",
			Name:      "resolutions_total",
			Help:      "Query resolutions by terminal status.",
		},
		[]string{"status"},
	)
	resolutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nlquery",
			Name:      "resolution_duration_seconds",
			Help:      "End-to-end resolution latency by terminal status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	synthesisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlquery",
			Name:      "synthesis_total",
			Help:      "SQL synthesis outcomes by strategy source.",
		},
		[]string{"source"},
	)
	guardrailViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlquery",
			Name:      "guardrail_violations_total",
			Help:      "Rejected SQL statements by violation kind.",
		},
		[]string{"kind"},
	)
	retrievalFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nlquery",
			Name:      "retrieval_keyword_fallbacks_total",
			Help:      "Retrievals served by the keyword fallback path.",
		},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nlquery",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP handler latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "code"},
	)
)

func init() {
	prometheus.MustRegister(
		resolutionsTotal,
		resolutionDuration,
		synthesisTotal,
		guardrailViolationsTotal,
		retrievalFallbacksTotal,
		httpRequestDuration,
	)
}

func ObserveResolution(status string, elapsed time.Duration) {
	resolutionsTotal.WithLabelValues(status).Inc()
	resolutionDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func ObserveSynthesis(source string) {
	synthesisTotal.WithLabelValues(source).Inc()
}

func ObserveGuardrailViolation(kind string) {
	guardrailViolationsTotal.WithLabelValues(kind).Inc()
}

func ObserveKeywordFallback() {
	retrievalFallbacksTotal.Inc()
}

func ObserveHTTPRequest(route, code string, elapsed time.Duration) {
	httpRequestDuration.WithLabelValues(route, code).Observe(elapsed.Seconds())
}
