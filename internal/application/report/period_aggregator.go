package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/sellerpnl/backend/internal/domain/report"
	"github.com/sellerpnl/backend/internal/domain/seller"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/sellerpnl/backend/internal/infrastructure/logger"
	"github.com/sellerpnl/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const tracerService = "report"

// Repositories are the read models the aggregator loads from
type Repositories struct {
	Stores     seller.StoreRepository
	Orders     trade.OrderRepository
	Returns    trade.ReturnClaimRepository
	Invoices   finance.InvoiceRepository
	Expenses   finance.ExpenseRepository
	References finance.ProductReferenceRepository
	AdMetrics  finance.AdMetricRepository
	Lots       costing.CostLotRepository
}

// PeriodAggregator computes P&L snapshots. It only reads.
type PeriodAggregator struct {
	repos       Repositories
	distributor *report.Distributor
	options     Options
	logger      *zap.Logger
	metrics     *telemetry.BusinessMetrics
	now         func() time.Time
}

// NewPeriodAggregator creates a new PeriodAggregator
func NewPeriodAggregator(repos Repositories, distributor *report.Distributor, options Options, log *zap.Logger) *PeriodAggregator {
	if log == nil {
		log = zap.NewNop()
	}
	if options.DefaultLocation == nil {
		options.DefaultLocation = time.UTC
	}
	return &PeriodAggregator{
		repos:       repos,
		distributor: distributor,
		options:     options,
		logger:      log,
		now:         time.Now,
	}
}

// SetClock replaces the clock used when a query carries no Now
func (a *PeriodAggregator) SetClock(now func() time.Time) {
	a.now = now
}

// SetBusinessMetrics sets the snapshot latency recorder
func (a *PeriodAggregator) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	a.metrics = bm
}

// GetPeriodSnapshot aggregates the store's P&L over the query range
func (a *PeriodAggregator) GetPeriodSnapshot(ctx context.Context, q SnapshotQuery) (snapshot *report.PeriodSnapshot, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerService, "GetPeriodSnapshot",
		attribute.String("store.id", q.StoreID.String()),
		attribute.String("barcode", q.Barcode),
	)
	defer func() { telemetry.End(span, err) }()

	started := time.Now()
	snapshot, err = a.bucket(ctx, q)
	if a.metrics != nil {
		a.metrics.RecordSnapshot(ctx, time.Since(started), 1, err)
	}
	return snapshot, err
}

// bucket computes one period. Every call is timed as a bucket.
func (a *PeriodAggregator) bucket(ctx context.Context, q SnapshotQuery) (*report.PeriodSnapshot, error) {
	started := time.Now()
	if a.metrics != nil {
		defer func() { a.metrics.RecordBucket(ctx, time.Since(started)) }()
	}

	ds, err := a.load(ctx, q)
	if err != nil {
		return nil, err
	}
	parts, err := compute(ctx, ds)
	if err != nil {
		return nil, err
	}
	snapshot := ds.Assemble(parts)

	logger.L(ctx, a.logger).Debug("period snapshot computed",
		zap.String("store_id", q.StoreID.String()),
		zap.Time("start", ds.Period.Start),
		zap.Time("end", ds.Period.End),
		zap.Int("orders", snapshot.OrderCount),
		zap.Int("skipped_lines", snapshot.SkippedLines),
	)
	return snapshot, nil
}

// GetProductBreakdown returns the period's P&L per product, highest revenue first
func (a *PeriodAggregator) GetProductBreakdown(ctx context.Context, q SnapshotQuery) (rows []report.ProductProfit, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerService, "GetProductBreakdown",
		attribute.String("store.id", q.StoreID.String()),
	)
	defer func() { telemetry.End(span, err) }()

	q.Barcode = ""
	ds, err := a.load(ctx, q)
	if err != nil {
		return nil, err
	}
	parts, err := compute(ctx, ds)
	if err != nil {
		return nil, err
	}
	snapshot := ds.Assemble(parts)
	return a.distributor.Breakdown(ctx, snapshot, parts.Lines, ds.AdvertisingByProduct(parts.Lines))
}

// resolve validates the query and fixes its clock, location and whole-day range
func (a *PeriodAggregator) resolve(ctx context.Context, q SnapshotQuery) (shared.DateRange, *time.Location, time.Time, error) {
	if q.End.Before(q.Start) {
		return shared.DateRange{}, nil, time.Time{}, shared.ErrInvalidDateRange
	}
	store, err := a.repos.Stores.FindByID(ctx, q.StoreID)
	if err != nil {
		return shared.DateRange{}, nil, time.Time{}, err
	}
	loc := q.Location
	if loc == nil {
		loc = store.Location(a.options.DefaultLocation)
	}
	now := q.Now
	if now.IsZero() {
		now = a.now()
	}
	period, err := report.DayRange(q.Start, q.End, loc)
	if err != nil {
		return shared.DateRange{}, nil, time.Time{}, err
	}
	return period, loc, now, nil
}

// load reads everything the period needs. Independent reads run concurrently.
func (a *PeriodAggregator) load(ctx context.Context, q SnapshotQuery) (*report.Dataset, error) {
	period, loc, now, err := a.resolve(ctx, q)
	if err != nil {
		return nil, err
	}

	grace := time.Duration(a.options.CargoInvoiceGraceDays) * 24 * time.Hour
	ds := &report.Dataset{
		StoreID:               q.StoreID,
		Period:                period,
		Location:              loc,
		Barcode:               q.Barcode,
		CargoInvoicesComplete: now.Sub(period.End) > grace,
		References:            make(map[string]finance.ProductReference),
		LastLotCost:           make(map[string]decimal.Decimal),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ds.Orders, err = a.repos.Orders.FindRevenueOrders(gctx, q.StoreID, period)
		return wrap("orders", err)
	})
	g.Go(func() (err error) {
		ds.Returns, err = a.repos.Returns.FindByReturnDate(gctx, q.StoreID, period)
		return wrap("return claims", err)
	})
	g.Go(func() (err error) {
		ds.CommissionInvoices, err = a.repos.Invoices.FindByDateRange(gctx, q.StoreID, period, finance.InvoiceKindCommission)
		return wrap("commission invoices", err)
	})
	g.Go(func() (err error) {
		ds.DeductionInvoices, err = a.repos.Invoices.FindByDateRange(gctx, q.StoreID, period, finance.InvoiceKindDeduction)
		return wrap("deduction invoices", err)
	})
	g.Go(func() (err error) {
		ds.Expenses, err = a.repos.Expenses.FindActive(gctx, q.StoreID)
		return wrap("expenses", err)
	})
	g.Go(func() error {
		refs, err := a.repos.References.FindByStore(gctx, q.StoreID)
		if err != nil {
			return wrap("product references", err)
		}
		for _, r := range refs {
			ds.References[r.Barcode] = r
		}
		return nil
	})
	g.Go(func() error {
		metrics, err := a.repos.AdMetrics.FindOverlapping(gctx, q.StoreID, period)
		if err != nil {
			return wrap("ad metrics", err)
		}
		ds.AdMetrics = finance.LatestAdMetrics(metrics)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := a.loadReturnContext(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// loadReturnContext reads the orders, cargo invoices and last lot costs that return
// estimates and shipping resolution depend on
func (a *PeriodAggregator) loadReturnContext(ctx context.Context, ds *report.Dataset) error {
	orderIDs := make([]uuid.UUID, 0, len(ds.Orders)+len(ds.Returns))
	seen := make(map[uuid.UUID]struct{})
	for _, o := range ds.Orders {
		seen[o.ID] = struct{}{}
		orderIDs = append(orderIDs, o.ID)
	}
	var missing []uuid.UUID
	barcodes := make(map[string]struct{})
	for _, c := range ds.Returns {
		barcodes[c.Barcode] = struct{}{}
		if _, ok := seen[c.OrderID]; !ok {
			seen[c.OrderID] = struct{}{}
			missing = append(missing, c.OrderID)
			orderIDs = append(orderIDs, c.OrderID)
		}
	}

	ds.ReturnOrders = make(map[uuid.UUID]*trade.Order, len(ds.Returns))
	for _, o := range ds.Orders {
		ds.ReturnOrders[o.ID] = o
	}

	g, gctx := errgroup.WithContext(ctx)
	var returned []*trade.Order
	g.Go(func() (err error) {
		returned, err = a.repos.Orders.FindByIDs(gctx, ds.StoreID, missing)
		return wrap("returned orders", err)
	})
	g.Go(func() (err error) {
		ds.Cargo, err = a.repos.Invoices.FindByOrders(gctx, ds.StoreID, finance.InvoiceKindCargo, orderIDs)
		return wrap("cargo invoices", err)
	})
	var mu sync.Mutex
	for barcode := range barcodes {
		g.Go(func() error {
			lots, err := a.repos.Lots.FindByBarcode(gctx, ds.StoreID, barcode)
			if err != nil {
				return wrap("cost lots", err)
			}
			cost, _, ok := costing.NewLotLedger(ds.StoreID, barcode, lots).LastKnownCost()
			if ok {
				mu.Lock()
				ds.LastLotCost[barcode] = cost
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, o := range returned {
		ds.ReturnOrders[o.ID] = o
	}
	return nil
}

// compute runs the independent sub-computations concurrently
func compute(ctx context.Context, ds *report.Dataset) (report.Parts, error) {
	var p report.Parts
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.Lines, p.SkippedLines = ds.LineFigures()
		return nil
	})
	g.Go(func() error {
		p.InvoiceCommission = ds.InvoiceCommission()
		return nil
	})
	g.Go(func() error {
		p.Returns = ds.ReturnCosts()
		return nil
	})
	g.Go(func() error {
		p.Fees = ds.Fees()
		return nil
	})
	g.Go(func() error {
		p.Discounts = ds.DiscountTotals()
		return nil
	})
	g.Go(func() error {
		p.Expenses = ds.ExpenseTotals()
		return nil
	})
	return p, g.Wait()
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
