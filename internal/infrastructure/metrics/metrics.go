package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "stance"

// Metrics holds the collectors of one classification process
type Metrics struct {
	registry *prometheus.Registry

	rowsLoaded     prometheus.Counter
	rowsDropped    prometheus.Counter
	rowsClassified *prometheus.CounterVec
	batches        prometheus.Counter
	batchDuration  prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
	runs           *prometheus.CounterVec
	lastRunSeconds prometheus.Gauge
}

// New creates the collectors on a dedicated registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		rowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Number of data rows read from the input table",
		}),
		rowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Number of rows removed because their text was missing",
		}),
		rowsClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_classified_total",
			Help:      "Number of rows annotated, by predicted label",
		}, []string{"label"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Number of batches sent to the model service",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Latency of one zero-shot batch",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups, by outcome",
		}, []string{"result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Classification runs, by final status",
		}, []string{"status"}),
		lastRunSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}

	m.registry.MustRegister(
		m.rowsLoaded,
		m.rowsDropped,
		m.rowsClassified,
		m.batches,
		m.batchDuration,
		m.cacheLookups,
		m.runs,
		m.lastRunSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveLoad records the loader's row counts
func (m *Metrics) ObserveLoad(read, dropped int) {
	m.rowsLoaded.Add(float64(read))
	m.rowsDropped.Add(float64(dropped))
}

// ObserveBatch records one model service round trip
func (m *Metrics) ObserveBatch(size int, elapsed time.Duration) {
	if size == 0 {
		return
	}
	m.batches.Inc()
	m.batchDuration.Observe(elapsed.Seconds())
}

// ObserveLabel records one annotated row
func (m *Metrics) ObserveLabel(label string) {
	m.rowsClassified.WithLabelValues(label).Inc()
}

// ObserveCache records cache hits and misses of one lookup round
func (m *Metrics) ObserveCache(hits, misses int) {
	m.cacheLookups.WithLabelValues("hit").Add(float64(hits))
	m.cacheLookups.WithLabelValues("miss").Add(float64(misses))
}

// ObserveRun records the final status of a run
func (m *Metrics) ObserveRun(status string, finishedAt time.Time) {
	m.runs.WithLabelValues(status).Inc()
	m.lastRunSeconds.Set(float64(finishedAt.Unix()))
}

// WriteTextfile writes the registry in the text exposition format for the
// node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
