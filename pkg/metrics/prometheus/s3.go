package prometheus

import (
	"time"

	s3store "github.com/marmos91/mediagc/pkg/filestore/s3"
	"github.com/marmos91/mediagc/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// s3Metrics is the Prometheus implementation of s3store.Metrics.
type s3Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	objectsTotal      *prometheus.CounterVec
}

// NewS3Metrics creates Prometheus-backed S3 file store metrics.
//
// Returns nil if metrics are not enabled, which makes the S3 store use its
// built-in no-op implementation.
func NewS3Metrics() s3store.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return NewS3MetricsWith(metrics.GetRegistry())
}

// NewS3MetricsWith registers the S3 metrics on reg.
func NewS3MetricsWith(reg prometheus.Registerer) s3store.Metrics {
	factory := promauto.With(reg)

	return &s3Metrics{
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediagc_s3_operations_total",
				Help: "Total number of S3 operations by operation type and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mediagc_s3_operation_duration_seconds",
				Help: "Duration of S3 operations in seconds",
				Buckets: []float64{
					0.01, // 10ms
					0.05, // 50ms
					0.1,  // 100ms
					0.5,  // 500ms
					1.0,  // 1s
					5.0,  // 5s
					30.0, // 30s
				},
			},
			[]string{"operation"},
		),
		objectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediagc_s3_objects_total",
				Help: "Total objects listed or deleted by operation",
			},
			[]string{"operation"},
		),
	}
}

func (m *s3Metrics) ObserveOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *s3Metrics) RecordObjects(operation string, count int) {
	if count <= 0 {
		return
	}
	m.objectsTotal.WithLabelValues(operation).Add(float64(count))
}
