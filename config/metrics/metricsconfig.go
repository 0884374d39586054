package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "water_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	importTotal   *prometheus.CounterVec
	importLatency *prometheus.HistogramVec
	rowsTotal     *prometheus.CounterVec
	writeErrors   prometheus.Counter
	fallbackTotal prometheus.Counter
	lossLatency   prometheus.Histogram
)

// Init registers the import metrics with the default registry. Helpers are
// no-ops until Init runs.
func Init() {
	registerOnce.Do(func() {
		importTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_total",
				Help: "Total CSV imports by result",
			},
			[]string{"result"},
		)
		importLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "import_latency_seconds",
				Help:    "CSV import latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		rowsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_rows_total",
				Help: "Rows seen by imports by outcome",
			},
			[]string{"outcome"},
		)
		writeErrors = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "write_errors_total",
				Help: "Errors reported by the persistence writer",
			},
		)
		fallbackTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "write_fallback_total",
				Help: "Writes that switched from upsert to delete+insert",
			},
		)
		lossLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "loss_aggregate_latency_seconds",
				Help:    "Loss aggregation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)

		prometheus.MustRegister(
			importTotal,
			importLatency,
			rowsTotal,
			writeErrors,
			fallbackTotal,
			lossLatency,
		)
	})
}

// ObserveImport records one import with its row outcomes.
func ObserveImport(result string, duration time.Duration, imported, skipped int) {
	if result == "" {
		result = ResultError
	}
	if importTotal != nil {
		importTotal.WithLabelValues(result).Inc()
	}
	if importLatency != nil {
		importLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if rowsTotal != nil {
		rowsTotal.WithLabelValues("imported").Add(float64(imported))
		rowsTotal.WithLabelValues("skipped").Add(float64(skipped))
	}
}

func AddWriteErrors(count int) {
	if count <= 0 || writeErrors == nil {
		return
	}
	writeErrors.Add(float64(count))
}

func IncFallback() {
	if fallbackTotal != nil {
		fallbackTotal.Inc()
	}
}

func ObserveAggregate(duration time.Duration) {
	if lossLatency != nil {
		lossLatency.Observe(duration.Seconds())
	}
}
