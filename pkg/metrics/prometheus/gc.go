// Package prometheus provides Prometheus-backed implementations of the
// interfaces in pkg/metrics.
package prometheus

import (
	"time"

	"github.com/marmos91/mediagc/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// gcMetrics is the Prometheus implementation of metrics.GCMetrics.
type gcMetrics struct {
	sweepsTotal    *prometheus.CounterVec
	sweepDuration  *prometheus.HistogramVec
	lastSweepTime  *prometheus.GaugeVec
	classification *prometheus.GaugeVec
	deletedAssets  prometheus.Counter
	deletedFiles   prometheus.Counter
	freedBytes     prometheus.Counter
	failuresTotal  *prometheus.CounterVec
	activeLeases   prometheus.Gauge
}

// NewGCMetrics creates a Prometheus-backed GCMetrics on the global registry.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewGCMetrics() metrics.GCMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopGCMetrics()
	}
	return NewGCMetricsWith(metrics.GetRegistry())
}

// NewGCMetricsWith registers the GC metrics on reg.
func NewGCMetricsWith(reg prometheus.Registerer) metrics.GCMetrics {
	factory := promauto.With(reg)

	return &gcMetrics{
		sweepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediagc_sweeps_total",
				Help: "Total number of sweeps by outcome",
			},
			[]string{"outcome"},
		),
		sweepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mediagc_sweep_duration_seconds",
				Help: "Duration of sweeps in seconds",
				Buckets: []float64{
					0.1, // 100ms
					1,   // 1s
					10,  // 10s
					60,  // 1m
					600, // 10m
				},
			},
			[]string{"outcome"},
		),
		lastSweepTime: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mediagc_last_sweep_timestamp_seconds",
				Help: "Unix time of the last sweep by outcome",
			},
			[]string{"outcome"},
		),
		classification: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mediagc_classification_items",
				Help: "Item counts from the most recent classification",
			},
			[]string{"class"},
		),
		deletedAssets: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mediagc_deleted_assets_total",
				Help: "Total asset rows deleted by sweeps",
			},
		),
		deletedFiles: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mediagc_deleted_files_total",
				Help: "Total stored files deleted by sweeps",
			},
		),
		freedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mediagc_freed_bytes_total",
				Help: "Total bytes reclaimed by sweeps",
			},
		),
		failuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediagc_deletion_failures_total",
				Help: "Total per-candidate deletion failures by stage",
			},
			[]string{"stage"},
		),
		activeLeases: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mediagc_active_leases",
				Help: "Active edit leases seen by the most recent lease check",
			},
		),
	}
}

func (m *gcMetrics) ObserveSweep(outcome string, duration time.Duration) {
	m.sweepsTotal.WithLabelValues(outcome).Inc()
	m.sweepDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.lastSweepTime.WithLabelValues(outcome).SetToCurrentTime()
}

func (m *gcMetrics) RecordClassification(reachable, orphaned, broken, stale, untracked int) {
	m.classification.WithLabelValues("reachable").Set(float64(reachable))
	m.classification.WithLabelValues("orphaned").Set(float64(orphaned))
	m.classification.WithLabelValues("broken").Set(float64(broken))
	m.classification.WithLabelValues("stale").Set(float64(stale))
	m.classification.WithLabelValues("untracked").Set(float64(untracked))
}

func (m *gcMetrics) RecordDeletions(assets, files int, freedBytes int64) {
	m.deletedAssets.Add(float64(assets))
	m.deletedFiles.Add(float64(files))
	if freedBytes > 0 {
		m.freedBytes.Add(float64(freedBytes))
	}
}

func (m *gcMetrics) RecordFailures(stage string, count int) {
	if count <= 0 {
		return
	}
	m.failuresTotal.WithLabelValues(stage).Add(float64(count))
}

func (m *gcMetrics) SetActiveLeases(count int) {
	m.activeLeases.Set(float64(count))
}
