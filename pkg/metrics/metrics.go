// Package metrics defines the Prometheus metric collectors used across the
// search service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsIndexedTotal     prometheus.Counter
	IndexTerms           prometheus.Gauge
	IndexBuildDuration   prometheus.Histogram
	SourceFetchesTotal   *prometheus.CounterVec
}

// New creates all collectors and registers them with reg. A nil reg uses
// the default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by mode and result type (hit, zero_result).",
			},
			[]string{"mode", "result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"mode"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"mode"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents indexed.",
			},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_terms",
				Help: "Number of distinct terms in the inverted index.",
			},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Time spent building the index from the corpus.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		SourceFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "source_fetches_total",
				Help: "Document source fetches by source and status (ok, failed).",
			},
			[]string{"source", "status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.IndexTerms,
		m.IndexBuildDuration,
		m.SourceFetchesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
