package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrOperation = attribute.Key("operation")
	AttrTrigger   = attribute.Key("trigger")
	AttrOutcome   = attribute.Key("outcome")
	AttrBuckets   = attribute.Key("buckets")
)

// BusinessMetrics records costing and reporting activity: redistribution runs,
// optimistic-lock conflicts and P&L snapshot latency.
type BusinessMetrics struct {
	redistributionRuns    *Counter
	redistributionGap     *Histogram
	conflictRetries       *Counter
	conflictGiveUps       *Counter
	snapshotDuration      *Histogram
	snapshotBucketLatency *Histogram
}

// NewBusinessMetrics creates the instruments on meter
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	bm := &BusinessMetrics{}
	var err error

	if bm.redistributionRuns, err = NewCounter(meter,
		"sellerpnl_redistribution_runs_total",
		"Consumption index rebuilds that replayed sales",
		"{runs}",
	); err != nil {
		return nil, err
	}
	if bm.redistributionGap, err = NewHistogram(meter, HistogramOpts{
		Name:        "sellerpnl_redistribution_discrepancy",
		Description: "Units sold but not backed by the rebuilt index",
		Unit:        "{units}",
		Boundaries:  []float64{0, 1, 5, 10, 50, 100, 500},
	}); err != nil {
		return nil, err
	}
	if bm.conflictRetries, err = NewCounter(meter,
		"sellerpnl_conflict_retries_total",
		"Optimistic-lock conflicts that were retried",
		"{retries}",
	); err != nil {
		return nil, err
	}
	if bm.conflictGiveUps, err = NewCounter(meter,
		"sellerpnl_conflict_give_ups_total",
		"Operations that exhausted their conflict retries",
		"{operations}",
	); err != nil {
		return nil, err
	}
	if bm.snapshotDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "sellerpnl_snapshot_duration_seconds",
		Description: "Time to build a P&L snapshot",
		Unit:        "s",
		Boundaries:  ReportDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.snapshotBucketLatency, err = NewHistogram(meter, HistogramOpts{
		Name:        "sellerpnl_snapshot_bucket_seconds",
		Description: "Time to compute one bucket of a snapshot",
		Unit:        "s",
		Boundaries:  BucketDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordRedistribution counts a replay and records its discrepancy. trigger is
// "lot" when a lot change caused it and "full" for a manual replay.
func (bm *BusinessMetrics) RecordRedistribution(ctx context.Context, trigger string, discrepancy decimal.Decimal) {
	bm.redistributionRuns.Inc(ctx, AttrTrigger.String(trigger))
	bm.redistributionGap.Record(ctx, discrepancy.InexactFloat64(), AttrTrigger.String(trigger))
}

// RecordConflictRetry counts one retried optimistic-lock conflict
func (bm *BusinessMetrics) RecordConflictRetry(ctx context.Context, op string) {
	bm.conflictRetries.Inc(ctx, AttrOperation.String(op))
}

// RecordConflictGiveUp counts an operation that ran out of retries
func (bm *BusinessMetrics) RecordConflictGiveUp(ctx context.Context, op string) {
	bm.conflictGiveUps.Inc(ctx, AttrOperation.String(op))
}

// RecordSnapshot records how long a snapshot took over its buckets
func (bm *BusinessMetrics) RecordSnapshot(ctx context.Context, d time.Duration, buckets int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	bm.snapshotDuration.RecordDuration(ctx, d, AttrBuckets.Int(buckets), AttrOutcome.String(outcome))
}

// RecordBucket records the latency of one snapshot bucket
func (bm *BusinessMetrics) RecordBucket(ctx context.Context, d time.Duration) {
	bm.snapshotBucketLatency.RecordDuration(ctx, d)
}
