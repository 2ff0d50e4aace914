package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// FederationMetricsMeterName is the name used for the federation metrics meter
	FederationMetricsMeterName = "github.com/stacklok/toolhive-federation/federation"
)

// FederationMetrics holds the instruments for token polling and remote repository calls
type FederationMetrics struct {
	tokenPolls         metric.Int64Counter
	remoteCallDuration metric.Float64Histogram
	repositoryFailures metric.Int64Counter
}

// NewFederationMetrics creates a new FederationMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewFederationMetrics(provider metric.MeterProvider) (*FederationMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(FederationMetricsMeterName)

	tokenPolls, err := meter.Int64Counter(
		"federation_token_poll_attempts_total",
		metric.WithDescription("Number of coordination store reads made while resolving a token"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, err
	}

	remoteCallDuration, err := meter.Float64Histogram(
		"federation_remote_call_duration_seconds",
		metric.WithDescription("Duration of calls to remote repositories in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	repositoryFailures, err := meter.Int64Counter(
		"federation_list_repository_failures_total",
		metric.WithDescription("Repositories skipped during a federated list because they failed"),
		metric.WithUnit("{repository}"),
	)
	if err != nil {
		return nil, err
	}

	return &FederationMetrics{
		tokenPolls:         tokenPolls,
		remoteCallDuration: remoteCallDuration,
		repositoryFailures: repositoryFailures,
	}, nil
}

// RecordTokenPoll records one read of the coordination store
func (m *FederationMetrics) RecordTokenPoll(ctx context.Context, protocol string, found bool) {
	if m == nil || m.tokenPolls == nil {
		return
	}

	m.tokenPolls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("protocol", protocol),
		attribute.Bool("found", found),
	))
}

// RecordRemoteCall records the duration and outcome of a call to a remote repository
func (m *FederationMetrics) RecordRemoteCall(
	ctx context.Context, repository, operation string, duration time.Duration, success bool,
) {
	if m == nil || m.remoteCallDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("repository", repository),
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	}

	m.remoteCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRepositoryFailure counts a repository dropped from a federated list
func (m *FederationMetrics) RecordRepositoryFailure(ctx context.Context, repository string) {
	if m == nil || m.repositoryFailures == nil {
		return
	}

	m.repositoryFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("repository", repository)))
}
