package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, mp.Enabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestNewBusinessMetrics_NilMeter(t *testing.T) {
	_, err := NewBusinessMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestBusinessMetrics_Record(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	bm, err := NewBusinessMetrics(provider.Meter("test"))
	require.NoError(t, err)
	bm.RecordRedistribution(ctx, "lot", decimal.NewFromInt(2))
	bm.RecordConflictRetry(ctx, "allocate_order")
	bm.RecordConflictRetry(ctx, "allocate_order")
	bm.RecordConflictGiveUp(ctx, "allocate_order")
	bm.RecordSnapshot(ctx, 150*time.Millisecond, 3, nil)
	bm.RecordBucket(ctx, 50*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := make(map[string]metricdata.Metrics)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}
	retries, ok := byName["sellerpnl_conflict_retries_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, retries.DataPoints, 1)
	assert.Equal(t, int64(2), retries.DataPoints[0].Value)

	gap, ok := byName["sellerpnl_redistribution_discrepancy"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, gap.DataPoints, 1)
	assert.Equal(t, 2.0, gap.DataPoints[0].Sum)

	snapshots, ok := byName["sellerpnl_snapshot_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, snapshots.DataPoints, 1)
	buckets, ok := snapshots.DataPoints[0].Attributes.Value(AttrBuckets)
	require.True(t, ok)
	assert.Equal(t, int64(3), buckets.AsInt64())

	assert.Contains(t, byName, "sellerpnl_redistribution_runs_total")
	assert.Contains(t, byName, "sellerpnl_conflict_give_ups_total")
	assert.Contains(t, byName, "sellerpnl_snapshot_bucket_seconds")
}
