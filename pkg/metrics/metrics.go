package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RunsInQueue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvest_runs_in_queue",
			Help: "Current number of harvest runs waiting in the queue.",
		},
	)

	// outcome: success, retry, failed, timeout
	NavigationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigation_attempts_total",
			Help: "Total number of page navigation attempts.",
		},
		[]string{"outcome"},
	)

	// outcome: succeeded, navigation_failed, harvest_failed, skipped
	SitesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sites_processed_total",
			Help: "Total number of candidate sites processed.",
		},
		[]string{"outcome"},
	)

	ProductsExtractedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "products_extracted_total",
			Help: "Total number of validated products returned by extraction.",
		},
	)

	ProductsPersistedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "products_persisted_total",
			Help: "Total number of newly inserted products.",
		},
	)

	// reason: validation, format, oracle
	RecordsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "records_dropped_total",
			Help: "Total number of extraction records or responses discarded.",
		},
		[]string{"reason"},
	)

	OracleRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_request_duration_seconds",
			Help:    "Duration of extraction oracle calls.",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"provider"},
	)

	HarvestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvest_duration_seconds",
			Help:    "Duration of page open plus harvest per site.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
		[]string{"domain"},
	)
)

var once sync.Once

// Init registers all collectors with the default registry. Calling it more
// than once is a no-op.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			RunsInQueue,
			NavigationAttemptsTotal,
			SitesProcessedTotal,
			ProductsExtractedTotal,
			ProductsPersistedTotal,
			RecordsDroppedTotal,
			OracleRequestDuration,
			HarvestDuration,
		)
	})
}
