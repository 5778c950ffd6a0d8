// Package metrics defines the Prometheus metric collectors used across the
// services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	QueriesTotal         *prometheus.CounterVec
	QueryLatency         *prometheus.HistogramVec
	QueryResultsCount    *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocumentsIndexed     *prometheus.CounterVec
	IndexBuildDuration   prometheus.Histogram
	CatalogDocuments     prometheus.Gauge
	DocumentUniqueWords  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg
// registers with the Prometheus default registry.
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
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "text_queries_total",
				Help: "Total index queries by operation and outcome (hit, zero_result, error).",
			},
			[]string{"operation", "outcome"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "text_query_latency_seconds",
				Help:    "Index query latency in seconds.",
				Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"operation"},
		),
		QueryResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "text_query_results_count",
				Help:    "Number of hits per query.",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 1000, 10000},
			},
			[]string{"operation"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		DocumentsIndexed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_indexed_total",
				Help: "Documents indexed by status (indexed, unchanged, failed).",
			},
			[]string{"status"},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Time to scan a document and build its trie.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 9),
			},
		),
		CatalogDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_documents",
				Help: "Number of documents currently searchable.",
			},
		),
		DocumentUniqueWords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "document_unique_words",
				Help: "Distinct words indexed per document.",
			},
			[]string{"document"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocumentsIndexed,
		m.IndexBuildDuration,
		m.CatalogDocuments,
		m.DocumentUniqueWords,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
