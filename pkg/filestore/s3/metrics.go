package s3

import "time"

// Metrics receives per-request S3 observations.
//
// A nil Metrics in Config selects the no-op implementation.
type Metrics interface {
	// ObserveOperation records one S3 API call with its duration and outcome.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordObjects counts objects touched by a call (listed, deleted).
	RecordObjects(operation string, count int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(operation string, duration time.Duration, err error) {}
func (noopMetrics) RecordObjects(operation string, count int)                            {}
