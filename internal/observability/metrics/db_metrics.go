package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "community_config_version",
			Help: "Version of the stored community config",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COALESCE(MAX(version), 0) FROM community_config")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "notices_count",
			Help: "Stored notices",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM notices")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "user_devices_count",
			Help: "Registered user device records",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM user_devices")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
