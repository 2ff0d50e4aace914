// Package telemetry provides OpenTelemetry instrumentation for the federation server.
// It supports configurable tracing (OTLP) and metrics (OTLP or Prometheus scrape).
package telemetry

import (
	"errors"
	"fmt"
)

const (
	// DefaultServiceName is the default service name for telemetry
	DefaultServiceName = "federation-api"

	// DefaultEndpoint is the default OTLP endpoint for telemetry
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the default trace sampling rate (5%)
	DefaultSampling = 0.05

	// ExporterOTLP pushes metrics to the OTLP endpoint
	ExporterOTLP = "otlp"

	// ExporterPrometheus exposes metrics on the /metrics endpoint
	ExporterPrometheus = "prometheus"
)

// Config represents the root telemetry configuration
type Config struct {
	// Enabled controls whether telemetry is enabled globally
	Enabled bool `yaml:"enabled"`

	// ServiceName is the name of the service for telemetry identification
	ServiceName string `yaml:"serviceName,omitempty"`

	// ServiceVersion is the version of the service for telemetry identification
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the OTLP collector endpoint ("host:port")
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure allows HTTP connections to the collector
	Insecure bool `yaml:"insecure,omitempty"`

	// Tracing contains tracing-specific configuration
	Tracing *TracingConfig `yaml:"tracing,omitempty"`

	// Metrics contains metrics-specific configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig defines tracing-specific configuration
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the trace sampling rate (0.0 to 1.0)
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig defines metrics-specific configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter is "otlp" (default) or "prometheus"
	Exporter string `yaml:"exporter,omitempty"`
}

// GetServiceName returns the service name, using default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the service version, using "unknown" if not specified
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the endpoint, using default if not specified
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio; 0 means "use default".
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// GetExporter returns the metrics exporter, defaulting to OTLP
func (c *MetricsConfig) GetExporter() string {
	if c.Exporter == "" {
		return ExporterOTLP
	}
	return c.Exporter
}

// Validate validates the telemetry configuration
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error

	if c.Tracing != nil && c.Tracing.Enabled {
		if c.Tracing.Sampling < 0 || c.Tracing.Sampling > 1.0 {
			errs = append(errs, fmt.Errorf("tracing: sampling must be between 0.0 and 1.0, got %f", c.Tracing.Sampling))
		}
	}

	if c.Metrics != nil && c.Metrics.Enabled {
		switch c.Metrics.GetExporter() {
		case ExporterOTLP, ExporterPrometheus:
		default:
			errs = append(errs, fmt.Errorf("metrics: unsupported exporter %q", c.Metrics.Exporter))
		}
	}

	return errors.Join(errs...)
}
