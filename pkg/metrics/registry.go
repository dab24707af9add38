// Package metrics provides Prometheus metrics collection for mediagc.
//
// All metrics are optional - if the registry is not initialized, components
// use no-op implementations with zero overhead.
//
// Usage:
//
//	// Initialize global registry (typically in the serve command)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	gcMetrics := prometheus.NewGCMetrics()
//
//	// Or pass nil for no-op behavior
//	collector, _ := gc.NewCollector(..., nil)
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is the global Prometheus registry for all mediagc metrics.
	// Protected by registryOnce for write-once, read-many.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// This must be called before creating any metrics instances. It's safe to call
// multiple times - subsequent calls are ignored. The Go runtime and process
// collectors are registered alongside the mediagc metrics.
//
// If not called, GetRegistry() will return nil and all metrics constructors
// will return no-op implementations.
//
// Thread safety:
// sync.Once provides the necessary memory barriers to ensure the registry
// write is visible to all subsequent reads.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// GetRegistry returns the global registry, or nil if InitRegistry has not
// been called (metrics disabled).
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
