package observability

import (
	"strconv"
	"time"

	"github.com/boddenberg/insightedge-bfa-go/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Failure kinds recorded by IncrIngestFailure.
const (
	FailureUnsupported = "unsupported_format"
	FailureMalformed   = "malformed_input"
	FailureInvalid     = "invalid_record"
	FailurePersistence = "persistence"
)

var sourceTypes = []domain.SourceType{domain.SourceCSV, domain.SourceExcel, domain.SourceJSON, domain.SourceManual}

var failureKinds = []string{FailureUnsupported, FailureMalformed, FailureInvalid, FailurePersistence}

// Metrics holds all Prometheus metrics for the API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	recordsIngested   *prometheus.CounterVec
	ingestFailures    *prometheus.CounterVec
	storeErrors       *prometheus.CounterVec
	dashboardDuration prometheus.Histogram
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insightedge_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by method and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
		recordsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insightedge_records_ingested_total",
				Help: "Total financial records persisted, by source type.",
			},
			[]string{"source_type"},
		),
		ingestFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insightedge_ingest_failures_total",
				Help: "Total rejected ingestion batches, by failure kind.",
			},
			[]string{"kind"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insightedge_store_errors_total",
				Help: "Total record store errors, by operation.",
			},
			[]string{"operation"},
		),
		dashboardDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "insightedge_dashboard_summarize_seconds",
				Help:    "Time spent computing a dashboard summary.",
				Buckets: prometheus.DefBuckets,
			},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insightedge_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insightedge_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRequestDuration records the duration of an HTTP request.
func (m *Metrics) RecordRequestDuration(method string, status int, d time.Duration) {
	m.requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}

// AddRecordsIngested adds n persisted records for a source type.
func (m *Metrics) AddRecordsIngested(source domain.SourceType, n int) {
	m.recordsIngested.WithLabelValues(string(source)).Add(float64(n))
}

// IncrIngestFailure counts a rejected batch.
func (m *Metrics) IncrIngestFailure(kind string) {
	m.ingestFailures.WithLabelValues(kind).Inc()
}

// IncrStoreError counts a failed store operation.
func (m *Metrics) IncrStoreError(operation string) {
	m.storeErrors.WithLabelValues(operation).Inc()
}

// ObserveDashboard records how long a summary took.
func (m *Metrics) ObserveDashboard(d time.Duration) {
	m.dashboardDuration.Observe(d.Seconds())
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IngestionSnapshot returns cumulative ingestion counters for the admin
// stats endpoint.
func (m *Metrics) IngestionSnapshot() *domain.IngestionStats {
	stats := &domain.IngestionStats{
		RecordsIngested: make(map[string]int64, len(sourceTypes)),
		IngestFailures:  make(map[string]int64, len(failureKinds)),
		Period:          "all_time",
	}

	for _, st := range sourceTypes {
		stats.RecordsIngested[string(st)] = int64(getCounterValue(m.recordsIngested, string(st)))
	}
	for _, kind := range failureKinds {
		stats.IngestFailures[kind] = int64(getCounterValue(m.ingestFailures, kind))
	}
	for _, op := range []string{"append", "list", "find"} {
		stats.StoreErrors += int64(getCounterValue(m.storeErrors, op))
	}

	return stats
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
