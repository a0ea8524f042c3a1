package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects dashboard metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	summaries         *prometheus.CounterVec
	summaryDuration   prometheus.Histogram
	chartsRendered    *prometheus.CounterVec
	exportsWritten    *prometheus.CounterVec
	reportsPublished  *prometheus.CounterVec
	reportsProcessed  *prometheus.CounterVec
	datasetRows       prometheus.Gauge
	datasetSkipped    prometheus.Gauge
	datasetYears prometheus.Gauge
}

// New creates a Recorder with process and Go collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesdash_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "salesdash_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		summaries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesdash_summaries_total",
				Help: "Total number of summaries served",
			},
			[]string{"cache"},
		),
		summaryDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "salesdash_summary_duration_milliseconds",
				Help:    "Pipeline run duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
			},
		),
		chartsRendered: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesdash_charts_rendered_total",
				Help: "Total number of chart images rendered",
			},
			[]string{"chart", "status"},
		),
		exportsWritten: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesdash_exports_total",
				Help: "Total number of row exports written",
			},
			[]string{"format"},
		),
		reportsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesdash_report_requests_published_total",
				Help: "Total number of report requests published",
			},
			[]string{"status"},
		),
		reportsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesdash_reports_processed_total",
				Help: "Total number of report requests processed by the worker",
			},
			[]string{"status"},
		),
		datasetRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "salesdash_dataset_orders",
			Help: "Number of orders in the loaded dataset",
		}),
		datasetSkipped: f.NewGauge(prometheus.GaugeOpts{
			Name: "salesdash_dataset_skipped_rows",
			Help: "Rows skipped while loading the dataset",
		}),
		datasetYears: f.NewGauge(prometheus.GaugeOpts{
			Name: "salesdash_dataset_years",
			Help: "Distinct purchase years in the loaded dataset",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveHTTP(method, path string, status int, d time.Duration) {
	r.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (r *Recorder) ObserveSummary(cacheHit bool, d time.Duration) {
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	r.summaries.WithLabelValues(label).Inc()
	if !cacheHit {
		r.summaryDuration.Observe(float64(d.Microseconds()) / 1000)
	}
}

func (r *Recorder) ChartRendered(chart string, err error) {
	r.chartsRendered.WithLabelValues(chart, status(err)).Inc()
}

func (r *Recorder) ExportWritten(format string) {
	r.exportsWritten.WithLabelValues(format).Inc()
}

func (r *Recorder) ReportPublished(err error) {
	r.reportsPublished.WithLabelValues(status(err)).Inc()
}

func (r *Recorder) ReportProcessed(err error) {
	r.reportsProcessed.WithLabelValues(status(err)).Inc()
}

// SetDataset records the size of the loaded dataset.
func (r *Recorder) SetDataset(orders, skipped, years int) {
	r.datasetRows.Set(float64(orders))
	r.datasetSkipped.Set(float64(skipped))
	r.datasetYears.Set(float64(years))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
