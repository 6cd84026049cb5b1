package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "energysquare_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestionRuns    *prometheus.CounterVec
	ingestionLatency *prometheus.HistogramVec
	sourceRecords    *prometheus.GaugeVec
	sourceMissing    *prometheus.CounterVec

	metricFallbacks *prometheus.CounterVec

	configUpdates    *prometheus.CounterVec
	configCacheLoads *prometheus.CounterVec

	dashboardTotal   *prometheus.CounterVec
	dashboardLatency *prometheus.HistogramVec

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec

	eventBridgeTotal *prometheus.CounterVec
)

// Init registers metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestionRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingestion_runs_total",
				Help: "Total ingestion runs by result",
			},
			[]string{"result"},
		)
		ingestionLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingestion_latency_seconds",
				Help:    "Ingestion run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		sourceRecords = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "source_records",
				Help: "Records per source in the current snapshot",
			},
			[]string{"source"},
		)
		sourceMissing = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "source_unavailable_total",
				Help: "Raw sources that could not be read",
			},
			[]string{"source"},
		)

		metricFallbacks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "metric_fallback_total",
				Help: "Metric computations replaced by their neutral default",
			},
			[]string{"metric"},
		)

		configUpdates = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "config_updates_total",
				Help: "Community config writes by operation and result",
			},
			[]string{"operation", "result"},
		)
		configCacheLoads = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "config_cache_loads_total",
				Help: "Config cache lookups by outcome",
			},
			[]string{"outcome"},
		)

		dashboardTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dashboard_builds_total",
				Help: "Dashboard responses by view and result",
			},
			[]string{"view", "result"},
		)
		dashboardLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "dashboard_latency_seconds",
				Help:    "Dashboard build latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"view"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		eventBridgeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "event_bridge_messages_total",
				Help: "Events bridged to or from Kafka by direction and result",
			},
			[]string{"direction", "result"},
		)

		prometheus.MustRegister(
			ingestionRuns,
			ingestionLatency,
			sourceRecords,
			sourceMissing,
			metricFallbacks,
			configUpdates,
			configCacheLoads,
			dashboardTotal,
			dashboardLatency,
			reportExportTotal,
			reportExportLatency,
			eventBridgeTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngestion records an ingestion run.
func ObserveIngestion(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestionRuns != nil {
		ingestionRuns.WithLabelValues(result).Inc()
	}
	if ingestionLatency != nil {
		ingestionLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// SetSourceRecords sets the record count of a source.
func SetSourceRecords(source string, count int) {
	if source == "" {
		source = "unknown"
	}
	if sourceRecords != nil {
		sourceRecords.WithLabelValues(source).Set(float64(count))
	}
}

// IncSourceUnavailable counts a source that could not be read.
func IncSourceUnavailable(source string) {
	if source == "" {
		source = "unknown"
	}
	if sourceMissing != nil {
		sourceMissing.WithLabelValues(source).Inc()
	}
}

// IncMetricFallback counts a metric replaced by its default.
func IncMetricFallback(metric string) {
	if metric == "" {
		metric = "unknown"
	}
	if metricFallbacks != nil {
		metricFallbacks.WithLabelValues(metric).Inc()
	}
}

// IncConfigUpdate counts a config write.
func IncConfigUpdate(operation, result string) {
	if operation == "" {
		operation = "update"
	}
	if result == "" {
		result = resultSuccess
	}
	if configUpdates != nil {
		configUpdates.WithLabelValues(operation, result).Inc()
	}
}

// IncConfigCache counts a config cache lookup outcome (hit, miss, invalidate).
func IncConfigCache(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if configCacheLoads != nil {
		configCacheLoads.WithLabelValues(outcome).Inc()
	}
}

// ObserveDashboard records a dashboard build.
func ObserveDashboard(view, result string, duration time.Duration) {
	if view == "" {
		view = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if dashboardTotal != nil {
		dashboardTotal.WithLabelValues(view, result).Inc()
	}
	if dashboardLatency != nil {
		dashboardLatency.WithLabelValues(view).Observe(duration.Seconds())
	}
}

// ObserveReportExport records export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncEventBridge counts a bridged event.
func IncEventBridge(direction, result string) {
	if direction == "" {
		direction = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if eventBridgeTotal != nil {
		eventBridgeTotal.WithLabelValues(direction, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess  = resultSuccess
	ResultError    = resultError
	ResultDegraded = "degraded"
)
