package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Brief metrics
	BriefRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finbrief_brief_requests_total",
			Help: "Total number of brief requests",
		},
		[]string{"status"}, // status: complete|partial|failed|invalid|unavailable
	)

	BriefDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finbrief_brief_duration_seconds",
			Help:    "End-to-end brief generation duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
	)

	BriefSymbols = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finbrief_brief_symbols_total",
			Help: "Per-symbol outcomes across all briefs",
		},
		[]string{"status"}, // status: complete|partial|failed
	)

	// Source agent metrics
	SourceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finbrief_source_fetches_total",
			Help: "Total number of source agent fetches",
		},
		[]string{"source", "status"}, // status: success|error|timeout
	)

	SourceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finbrief_source_latency_seconds",
			Help:    "Source fetch latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"source"},
	)

	// Cache metrics
	CacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finbrief_cache_ops_total",
			Help: "Cache lookups by outcome",
		},
		[]string{"outcome"}, // outcome: hit|miss|error
	)

	// Retriever metrics
	IndexSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "finbrief_index_records",
			Help: "Current number of embedding records in the index",
		},
	)

	IndexQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finbrief_index_queries_total",
			Help: "Total number of nearest-neighbor queries",
		},
		[]string{"status"},
	)

	// External AI metrics
	AICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finbrief_ai_calls_total",
			Help: "Total number of generation/embedding/speech calls",
		},
		[]string{"service", "provider", "status"},
	)

	AILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finbrief_ai_latency_seconds",
			Help:    "External AI call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"service", "provider"},
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finbrief_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finbrief_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"worker"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(BriefRequests)
	prometheus.MustRegister(BriefDuration)
	prometheus.MustRegister(BriefSymbols)

	prometheus.MustRegister(SourceFetches)
	prometheus.MustRegister(SourceLatency)

	prometheus.MustRegister(CacheOps)

	prometheus.MustRegister(IndexSize)
	prometheus.MustRegister(IndexQueries)

	prometheus.MustRegister(AICalls)
	prometheus.MustRegister(AILatency)

	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordBrief records one finished brief request
func RecordBrief(status string, elapsed time.Duration) {
	BriefRequests.WithLabelValues(status).Inc()
	BriefDuration.Observe(elapsed.Seconds())
}

// RecordSymbolOutcome records the final status of one symbol within a brief
func RecordSymbolOutcome(status string) {
	BriefSymbols.WithLabelValues(status).Inc()
}

// RecordSourceFetch records a source agent fetch
func RecordSourceFetch(source string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	SourceFetches.WithLabelValues(source, status).Inc()
	SourceLatency.WithLabelValues(source).Observe(latency.Seconds())
}

// RecordCacheLookup records a cache lookup outcome
func RecordCacheLookup(hit bool, err error) {
	switch {
	case err != nil:
		CacheOps.WithLabelValues("error").Inc()
	case hit:
		CacheOps.WithLabelValues("hit").Inc()
	default:
		CacheOps.WithLabelValues("miss").Inc()
	}
}

// RecordAICall records an external AI service call
func RecordAICall(service, provider string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	AICalls.WithLabelValues(service, provider, status).Inc()
	AILatency.WithLabelValues(service, provider).Observe(latency.Seconds())
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
}
