// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Import outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeParseError = "parse_error"
	OutcomePartial    = "partial"
	OutcomeRejected   = "rejected"
	OutcomeError      = "error"
)

var (
	importsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_imports_total",
			Help: "CSV imports by outcome",
		},
		[]string{"outcome"},
	)

	importRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_import_rows_total",
			Help: "Rows seen by the import pipeline, by disposition",
		},
		[]string{"disposition"},
	)

	importDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prospector_import_duration_seconds",
			Help:    "Wall time of an import pass",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	importsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prospector_imports_active",
			Help: "Imports currently holding a limiter slot",
		},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_http_requests_total",
			Help: "HTTP requests by method, route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prospector_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prospector_http_requests_in_flight",
			Help: "HTTP requests being served",
		},
	)

	prospectCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_prospect_commands_total",
			Help: "Prospect commands by action and result",
		},
		[]string{"action", "result"},
	)
)

// RowCounts is the per-disposition breakdown of one import.
type RowCounts struct {
	Imported      int
	Duplicates    int
	SkippedNoName int
	Malformed     int
}

// RecordImport records one finished import attempt.
func RecordImport(outcome string, rows RowCounts, elapsed time.Duration) {
	importsTotal.WithLabelValues(outcome).Inc()
	importDuration.Observe(elapsed.Seconds())
	importRows.WithLabelValues("imported").Add(float64(rows.Imported))
	importRows.WithLabelValues("duplicate").Add(float64(rows.Duplicates))
	importRows.WithLabelValues("no_first_name").Add(float64(rows.SkippedNoName))
	importRows.WithLabelValues("malformed").Add(float64(rows.Malformed))
}

// ImportStarted and ImportFinished track imports in flight.
func ImportStarted()  { importsActive.Inc() }
func ImportFinished() { importsActive.Dec() }

// RecordCommand counts one dispatched prospect command.
func RecordCommand(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	prospectCommands.WithLabelValues(action, result).Inc()
}

// RequestStarted and RequestFinished track HTTP requests in flight.
func RequestStarted()  { httpInFlight.Inc() }
func RequestFinished() { httpInFlight.Dec() }

// RecordRequest records one served request. route is the chi pattern, not
// the raw path, so ids do not explode the label set.
func RecordRequest(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
