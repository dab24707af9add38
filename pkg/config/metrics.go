package config

import (
	s3store "github.com/marmos91/mediagc/pkg/filestore/s3"
	"github.com/marmos91/mediagc/pkg/metrics"
	promMetrics "github.com/marmos91/mediagc/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// GCMetrics is the sweep metrics collector (never nil, uses noop if disabled)
	GCMetrics metrics.GCMetrics

	// S3Metrics instruments the S3 file store (nil if disabled)
	S3Metrics s3store.Metrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed GC and S3 metrics
//
// If metrics are disabled:
//   - Returns nil server and nil S3 metrics
//   - Returns no-op GC metrics (zero overhead)
//
// Parameters:
//   - cfg: The complete mediagc configuration
//
// Returns:
//   - MetricsResult containing all metrics components
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			GCMetrics: metrics.NewNoopGCMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Server.Metrics.Port,
	})

	return &MetricsResult{
		Server:    server,
		GCMetrics: promMetrics.NewGCMetrics(),
		S3Metrics: promMetrics.NewS3Metrics(),
	}
}
