package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlagent_queries_total",
			Help: "Total number of handled natural language queries by outcome.",
		},
		[]string{"outcome"},
	)
	generationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlagent_generation_duration_seconds",
			Help:    "SQL generation (model call) latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"status"},
	)
	executionSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlagent_execution_duration_seconds",
			Help:    "SQL execution latency against the configured backend.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"status"},
	)
	exportedRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlagent_exported_rows_total",
			Help: "Total number of rows written to the object store by exports.",
		},
	)
	exportedBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlagent_exported_bytes_total",
			Help: "Total Parquet bytes written to the object store by exports.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		generationSeconds,
		executionSeconds,
		exportedRowsTotal,
		exportedBytesTotal,
	)
}

func ObserveQuery(outcome string) {
	queriesTotal.WithLabelValues(outcome).Inc()
}

func ObserveGeneration(elapsed time.Duration, err error) {
	generationSeconds.WithLabelValues(statusLabel(err)).Observe(elapsed.Seconds())
}

func ObserveExecution(elapsed time.Duration, err error) {
	executionSeconds.WithLabelValues(statusLabel(err)).Observe(elapsed.Seconds())
}

func ObserveExport(rows int, bytes int64) {
	if rows > 0 {
		exportedRowsTotal.Add(float64(rows))
	}
	if bytes > 0 {
		exportedBytesTotal.Add(float64(bytes))
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
