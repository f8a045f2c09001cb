package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"PivotMirror/internal/recorder"
)

const namespace = "pivot_mirror"

// Metrics holds the Prometheus instruments of the pipeline. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec // labels: status
	LoadsTotal    *prometheus.CounterVec // labels: source (cache, fetch)
	PublishErrors *prometheus.CounterVec // labels: sink
	RunDuration   prometheus.Histogram
	ProjectedRows prometheus.Histogram
	LastBatch     prometheus.Gauge
}

// NewMetrics creates the pipeline metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Instrument runs by outcome",
		}, []string{"status"}),
		LoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_loads_total",
			Help:      "Series loads by source",
		}, []string{"source"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed publications by sink",
		}, []string{"sink"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of one instrument run",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		ProjectedRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "projected_rows",
			Help:      "Projected business days per run",
			Buckets:   prometheus.LinearBuckets(0, 10, 10),
		}),
		LastBatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_timestamp_seconds",
			Help:      "Unix time the last batch finished",
		}),
	}
	reg.MustRegister(m.RunsTotal, m.LoadsTotal, m.PublishErrors, m.RunDuration, m.ProjectedRows, m.LastBatch)
	return m
}

func (m *Metrics) observeRun(status string, seconds float64, projected int) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(seconds)
	if status == recorder.StatusOK {
		m.ProjectedRows.Observe(float64(projected))
	}
}

func (m *Metrics) observeLoad(fetched bool) {
	if m == nil {
		return
	}
	source := "cache"
	if fetched {
		source = "fetch"
	}
	m.LoadsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) observePublishError(sink string) {
	if m == nil {
		return
	}
	m.PublishErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) observeBatch(unix float64) {
	if m == nil {
		return
	}
	m.LastBatch.Set(unix)
}
