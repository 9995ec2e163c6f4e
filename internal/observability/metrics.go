package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace defines the global prefix for all metrics (folkvang_...).
const namespace = "folkvang"

// evalBuckets gives sub-millisecond resolution for evaluation latency.
// Filtering an in-memory collection finishes far below the 5ms floor of the
// default buckets. Range: 0.1ms to 500ms.
var evalBuckets = []float64{.0001, .0005, .001, .002, .005, .010, .025, .050, .100, .500}

var (
	// -------------------------------------------------------------------------
	// CONTROL PLANE (HTTP)
	// -------------------------------------------------------------------------

	// HTTPReqDuration measures the latency of HTTP requests.
	// Metric: folkvang_http_handling_seconds
	HTTPReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests",
		Buckets:   prometheus.DefBuckets, // Admin API traffic moves at human speed
	}, []string{"method", "path"})

	// HTTPReqTotal counts HTTP requests by outcome.
	// Metric: folkvang_http_requests_total
	HTTPReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests handled",
	}, []string{"method", "path", "code"})

	// -------------------------------------------------------------------------
	// SEGMENTATION ENGINE
	// -------------------------------------------------------------------------

	// EvalDuration measures filter+aggregate latency over the customer
	// collection, labeled by rule kind (segment, quick, preview).
	// Metric: folkvang_evaluation_seconds
	EvalDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "evaluation_seconds",
		Help:      "Time taken to evaluate criteria over the customer collection",
		Buckets:   evalBuckets,
	}, []string{"rule_kind"})

	// CatalogOpsTotal counts catalog operations by outcome.
	// Metric: folkvang_catalog_operations_total
	CatalogOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_operations_total",
		Help:      "Total catalog operations",
	}, []string{"operation", "outcome"}) // outcome: success, error

	// PersistDuration measures durable store round trips for the catalog blob.
	// Metric: folkvang_catalog_persist_seconds
	PersistDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "catalog_persist_seconds",
		Help:      "Time taken to read/write the catalog blob in the durable store",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"}) // read, write
)
