package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeRecognized   = "recognized"
	OutcomeUnrecognized = "unrecognized"
)

var (
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plainsql_translations_total",
			Help: "Total number of natural language translations by intent, origin and outcome.",
		},
		[]string{"intent", "origin", "outcome"},
	)
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plainsql_executions_total",
			Help: "Total number of statements executed against session databases.",
		},
		[]string{"kind", "status"},
	)
	executionLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plainsql_execution_latency_ms",
			Help:    "Statement execution latency in milliseconds, including database file transfer.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)
	uploadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plainsql_uploads_total",
			Help: "Total number of database files uploaded.",
		},
	)
	uploadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plainsql_upload_bytes_total",
			Help: "Total number of database file bytes uploaded.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		translationsTotal,
		executionsTotal,
		executionLatencyMs,
		uploadsTotal,
		uploadBytesTotal,
	)
}

func ObserveTranslation(intent, origin string, recognized bool) {
	outcome := OutcomeUnrecognized
	if recognized {
		outcome = OutcomeRecognized
	}
	if intent == "" {
		intent = "unknown"
	}
	translationsTotal.WithLabelValues(intent, origin, outcome).Inc()
}

// ObserveExecution records one statement run. kind is "query" or "mutation".
func ObserveExecution(kind string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	executionsTotal.WithLabelValues(kind, status).Inc()
	executionLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveUpload(sizeBytes int64) {
	uploadsTotal.Inc()
	if sizeBytes > 0 {
		uploadBytesTotal.Add(float64(sizeBytes))
	}
}
