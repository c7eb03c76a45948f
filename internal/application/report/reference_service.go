package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/sellerpnl/backend/internal/domain/seller"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/sellerpnl/backend/internal/infrastructure/logger"
	"github.com/sellerpnl/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReferenceService maintains the per-product fallback rates used when
// settled commission or cargo data is missing
type ReferenceService struct {
	stores     seller.StoreRepository
	orders     trade.OrderRepository
	invoices   finance.InvoiceRepository
	references finance.ProductReferenceRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewReferenceService creates a new ReferenceService
func NewReferenceService(repos Repositories, log *zap.Logger) *ReferenceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReferenceService{
		stores:     repos.Stores,
		orders:     repos.Orders,
		invoices:   repos.Invoices,
		references: repos.References,
		logger:     log,
		now:        time.Now,
	}
}

// RefreshProductReferences recomputes commission rates and shipping per unit
// from the store's invoices and upserts them
func (s *ReferenceService) RefreshProductReferences(ctx context.Context, storeID uuid.UUID) (result *RefreshResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerService, "RefreshProductReferences",
		attribute.String("store.id", storeID.String()),
	)
	defer func() { telemetry.End(span, err) }()

	if _, err := s.stores.FindByID(ctx, storeID); err != nil {
		return nil, err
	}

	var commissions, cargo []finance.InvoiceLine
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		commissions, err = s.invoices.FindByKind(gctx, storeID, finance.InvoiceKindCommission)
		return wrap("commission invoices", err)
	})
	g.Go(func() (err error) {
		cargo, err = s.invoices.FindByKind(gctx, storeID, finance.InvoiceKindCargo)
		return wrap("cargo invoices", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	units, err := s.unitsByOrder(ctx, storeID, cargo)
	if err != nil {
		return nil, err
	}

	refs := finance.ReferenceBuilder{StoreID: storeID, Units: units, Now: s.now()}.Build(commissions, cargo)
	result = &RefreshResult{StoreID: storeID, Updated: len(refs)}
	for _, r := range refs {
		if r.CommissionRate != nil {
			result.CommissionRates++
		}
		if r.ShippingCostPerUnit != nil {
			result.ShippingCosts++
		}
	}
	if len(refs) > 0 {
		if err := s.references.Upsert(ctx, refs); err != nil {
			return nil, err
		}
	}

	logger.L(ctx, s.logger).Info("product references refreshed",
		zap.String("store_id", storeID.String()),
		zap.Int("updated", result.Updated),
	)
	return result, nil
}

// unitsByOrder loads the orders outbound cargo lines point at and counts their units per barcode
func (s *ReferenceService) unitsByOrder(ctx context.Context, storeID uuid.UUID, cargo []finance.InvoiceLine) (map[uuid.UUID]map[string]decimal.Decimal, error) {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for i := range cargo {
		l := &cargo[i]
		if !l.IsOutboundCargo() || l.OrderID == nil {
			continue
		}
		if _, ok := seen[*l.OrderID]; ok {
			continue
		}
		seen[*l.OrderID] = struct{}{}
		ids = append(ids, *l.OrderID)
	}

	orders, err := s.orders.FindByIDs(ctx, storeID, ids)
	if err != nil {
		return nil, wrap("orders", err)
	}
	units := make(map[uuid.UUID]map[string]decimal.Decimal, len(orders))
	for _, o := range orders {
		perBarcode := make(map[string]decimal.Decimal)
		for i := range o.Lines {
			line := &o.Lines[i]
			if line.Validate() != nil {
				continue
			}
			perBarcode[line.Barcode] = perBarcode[line.Barcode].Add(line.Quantity)
		}
		units[o.ID] = perBarcode
	}
	return units, nil
}
