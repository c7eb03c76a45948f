package report

import (
	"context"
	"time"

	"github.com/sellerpnl/backend/internal/domain/report"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/infrastructure/logger"
	"github.com/sellerpnl/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MultiPeriodComposer builds trend reports out of independent period snapshots
type MultiPeriodComposer struct {
	aggregator *PeriodAggregator
}

// NewMultiPeriodComposer creates a new MultiPeriodComposer
func NewMultiPeriodComposer(aggregator *PeriodAggregator) *MultiPeriodComposer {
	return &MultiPeriodComposer{aggregator: aggregator}
}

// GetMultiPeriodSnapshot returns Count consecutive snapshots of the given period type,
// oldest first, the last one containing today. Buckets are computed in parallel.
func (c *MultiPeriodComposer) GetMultiPeriodSnapshot(ctx context.Context, q MultiPeriodQuery) (result *MultiPeriodResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerService, "GetMultiPeriodSnapshot",
		attribute.String("store.id", q.StoreID.String()),
		attribute.String("period.type", string(q.PeriodType)),
		attribute.Int("period.count", q.Count),
	)
	defer func() { telemetry.End(span, err) }()

	a := c.aggregator
	started := time.Now()
	bucketCount := 0
	if a.metrics != nil {
		defer func() { a.metrics.RecordSnapshot(ctx, time.Since(started), bucketCount, err) }()
	}
	if !q.PeriodType.IsValid() {
		return nil, shared.ErrInvalidPeriodType
	}
	store, err := a.repos.Stores.FindByID(ctx, q.StoreID)
	if err != nil {
		return nil, err
	}
	loc := q.Location
	if loc == nil {
		loc = store.Location(a.options.DefaultLocation)
	}
	now := q.Now
	if now.IsZero() {
		now = a.now()
	}

	buckets, err := report.Buckets(q.PeriodType, q.Count, a.options.MaxBuckets, now, loc)
	if err != nil {
		return nil, err
	}

	bucketCount = len(buckets)
	periods := make([]*report.PeriodSnapshot, len(buckets))
	g, gctx := errgroup.WithContext(ctx)
	if a.options.MaxParallelBuckets > 0 {
		g.SetLimit(a.options.MaxParallelBuckets)
	}
	for i, b := range buckets {
		g.Go(func() error {
			s, err := a.bucket(gctx, SnapshotQuery{
				StoreID:  q.StoreID,
				Start:    b.Range.Start,
				End:      b.Range.End,
				Barcode:  q.Barcode,
				Now:      now,
				Location: loc,
			})
			if err != nil {
				return err
			}
			s.Label = b.Label
			periods[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.L(ctx, a.logger).Debug("multi-period report computed",
		zap.String("store_id", q.StoreID.String()),
		zap.String("period_type", string(q.PeriodType)),
		zap.Int("buckets", len(periods)),
	)
	return &MultiPeriodResult{
		StoreID:    q.StoreID,
		PeriodType: q.PeriodType,
		Periods:    periods,
		Totals:     report.Totals(periods),
	}, nil
}
