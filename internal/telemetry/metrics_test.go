package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewFederationMetrics(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when provider is nil", func(t *testing.T) {
		t.Parallel()

		metrics, err := NewFederationMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("nil metrics are a no-op", func(t *testing.T) {
		t.Parallel()

		var metrics *FederationMetrics
		metrics.RecordTokenPoll(context.Background(), "consul", false)
		metrics.RecordRemoteCall(context.Background(), "marketplace", "get", time.Second, true)
		metrics.RecordRepositoryFailure(context.Background(), "marketplace")
	})
}

func TestFederationMetrics_RecordTokenPoll(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewFederationMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordTokenPoll(ctx, "consul", false)
	metrics.RecordTokenPoll(ctx, "consul", false)
	metrics.RecordTokenPoll(ctx, "consul", true)

	got := collect(t, reader)
	polls, ok := got["federation_token_poll_attempts_total"]
	require.True(t, ok)

	sum, ok := polls.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := map[bool]int64{}
	for _, dp := range sum.DataPoints {
		found, _ := dp.Attributes.Value(attribute.Key("found"))
		counts[found.AsBool()] = dp.Value
	}
	assert.Equal(t, int64(2), counts[false])
	assert.Equal(t, int64(1), counts[true])
}

func TestFederationMetrics_RecordRemoteCall(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewFederationMetrics(mp)
	require.NoError(t, err)

	metrics.RecordRemoteCall(context.Background(), "marketplace", "list", 250*time.Millisecond, true)
	metrics.RecordRepositoryFailure(context.Background(), "marketplace")

	got := collect(t, reader)

	hist, ok := got["federation_remote_call_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	dp := hist.DataPoints[0]
	assert.Equal(t, uint64(1), dp.Count)
	assert.InDelta(t, 0.25, dp.Sum, 1e-9)
	repo, _ := dp.Attributes.Value(attribute.Key("repository"))
	assert.Equal(t, "marketplace", repo.AsString())
	op, _ := dp.Attributes.Value(attribute.Key("operation"))
	assert.Equal(t, "list", op.AsString())

	failures, ok := got["federation_list_repository_failures_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, failures.DataPoints, 1)
	assert.Equal(t, int64(1), failures.DataPoints[0].Value)
}
