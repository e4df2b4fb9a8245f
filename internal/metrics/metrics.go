// Package metrics exports Prometheus metrics for matrix runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deixis/testen/internal/matrix"
)

const MetricsNamespace = "testen"

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of version runs by terminal status",
	}, []string{
		"version",
		"status",
	})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of a version run",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{
		"version",
	})

	matrixRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "matrix_runs_total",
		Help:      "Count of matrix runs by mode and exit code",
	}, []string{
		"mode",
		"exit_code",
	})
)

// Recorder implements matrix.Recorder on the package metrics.
type Recorder struct{}

var _ matrix.Recorder = Recorder{}

// RecordRun counts a finished version run.
func (Recorder) RecordRun(version string, status matrix.Status, d time.Duration) {
	runsTotal.WithLabelValues(version, string(status)).Inc()
	runDuration.WithLabelValues(version).Observe(d.Seconds())
}

// RecordMatrix counts a finished matrix run.
func (Recorder) RecordMatrix(mode matrix.Mode, exitCode int) {
	matrixRunsTotal.WithLabelValues(string(mode), strconv.Itoa(exitCode)).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
