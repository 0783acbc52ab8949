package metrics

import "github.com/prometheus/client_golang/prometheus"

// Storage and cache Prometheus metrics.
var (
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mddb",
			Name:      "store_operation_duration_seconds",
			Help:      "Document store operation duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"op", "status"},
	)

	DocumentCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mddb",
			Name:      "document_cache_total",
			Help:      "Document cache lookups by result",
		},
		[]string{"result"}, // "hit" / "miss" / "error" / "stale"
	)

	BatchItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mddb",
			Name:      "batch_items_total",
			Help:      "Batch items processed by operation and outcome",
		},
		[]string{"op", "status"},
	)
)

var storeMetricsRegistered bool

// RegisterStoreMetrics registers storage metrics. Must be called once from main.
func RegisterStoreMetrics() {
	if storeMetricsRegistered {
		return
	}
	prometheus.MustRegister(StoreOperationDuration, DocumentCacheTotal, BatchItemsTotal)
	storeMetricsRegistered = true
}
