package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ModeStorePaged   = "store_paged"
	ModePostFiltered = "post_filtered"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	SalesQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_queries_total",
			Help: "Sales queries by pagination mode",
		},
		[]string{"mode"},
	)

	PostFilterCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sales_post_filter_candidates",
			Help:    "Rows fetched from the store for in-process filtering",
			Buckets: []float64{10, 100, 1000, 5000, 10000, 25000, 50000},
		},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_store_errors_total",
			Help: "Record store failures by operation",
		},
		[]string{"operation"},
	)

	FilterOptionsCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_filter_options_cache_total",
			Help: "Filter option cache lookups by result",
		},
		[]string{"result"}, // hit | miss | error
	)
)
