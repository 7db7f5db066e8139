// Package metrics exposes the Prometheus collectors for the ingestion
// pipeline. Collectors register on the default registry; the ops server
// serves them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderRequests counts HTTP attempts per provider and outcome
	// (success, transient, client_error, parse_error).
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petroflow_provider_requests_total",
		Help: "HTTP requests issued to upstream providers",
	}, []string{"provider", "outcome"})

	// ProviderRequestDuration observes round-trip latency per provider.
	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "petroflow_provider_request_duration_seconds",
		Help:    "Upstream provider request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	// CacheHits counts series-cache hits per provider.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petroflow_cache_hits_total",
		Help: "Series cache hits",
	}, []string{"provider"})

	// CacheMisses counts series-cache misses per provider.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petroflow_cache_misses_total",
		Help: "Series cache misses",
	}, []string{"provider"})

	// PipelineRuns counts completed runs per terminal status.
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petroflow_pipeline_runs_total",
		Help: "Pipeline runs by terminal status",
	}, []string{"status"})

	// RecordsStored counts rows upserted per source.
	RecordsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petroflow_records_stored_total",
		Help: "Price records upserted per source",
	}, []string{"source"})

	// QualityScore tracks the most recent overall quality score per source.
	QualityScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "petroflow_quality_score",
		Help: "Overall quality score from the last run",
	}, []string{"source"})
)
