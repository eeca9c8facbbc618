package maintenance

import "github.com/prometheus/client_golang/prometheus"

var (
	retentionRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plainsql_retention_runs_total",
			Help: "Total number of session retention runs by status.",
		},
		[]string{"status"},
	)
	sessionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plainsql_sessions_expired_total",
			Help: "Total number of sessions removed by retention runs.",
		},
	)
	objectsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plainsql_session_objects_deleted_total",
			Help: "Total number of stored objects removed by retention runs.",
		},
	)
	integrityRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plainsql_integrity_runs_total",
			Help: "Total number of session integrity check runs by status.",
		},
		[]string{"status"},
	)
	integrityMissingFilesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plainsql_integrity_missing_files_total",
			Help: "Total number of session database files found missing.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		retentionRunsTotal,
		sessionsExpiredTotal,
		objectsDeletedTotal,
		integrityRunsTotal,
		integrityMissingFilesTotal,
	)
}
