package costing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/domain/shared/strategy"
)

// Allocator assigns lot costs to sold quantities. It walks the ledger through a
// cost strategy (FIFO in production) and prices any shortfall with the last
// known cost, or zero when the product has no cost history.
type Allocator struct {
	costStrategy strategy.CostCalculationStrategy
}

// NewAllocator creates an allocator backed by the given cost strategy
func NewAllocator(costStrategy strategy.CostCalculationStrategy) *Allocator {
	return &Allocator{costStrategy: costStrategy}
}

// Consume allocates the sale against the ledger, mutating lot consumption and
// recording ledger rows. The sale's date is kept on the rows for traceability;
// it does not restrict which lots are eligible.
func (a *Allocator) Consume(ctx context.Context, ledger *LotLedger, sale Sale) (*CostStamp, error) {
	if !sale.Quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Sale quantity must be positive")
	}

	result, err := a.costStrategy.CalculateCost(ctx, strategy.CostContext{
		StoreID:  ledger.StoreID().String(),
		Barcode:  ledger.Barcode(),
		Quantity: sale.Quantity,
		Date:     sale.OrderDate,
	}, ledger.StockEntries())
	if err != nil {
		return nil, fmt.Errorf("calculate cost for %s: %w", ledger.Barcode(), err)
	}

	rows := make([]LotConsumption, 0, len(result.Usages)+1)
	for _, usage := range result.Usages {
		lotID, err := uuid.Parse(usage.EntryID)
		if err != nil {
			return nil, fmt.Errorf("parse lot id %q: %w", usage.EntryID, err)
		}
		lot, ok := ledger.Lot(lotID)
		if !ok {
			return nil, fmt.Errorf("lot %s not in ledger for %s", lotID, ledger.Barcode())
		}
		if err := lot.Consume(usage.Quantity); err != nil {
			return nil, err
		}
		id := lotID
		rows = append(rows, LotConsumption{
			ID:          uuid.New(),
			StoreID:     ledger.StoreID(),
			Barcode:     ledger.Barcode(),
			OrderID:     sale.OrderID,
			OrderLineID: sale.LineID,
			LotID:       &id,
			Quantity:    usage.Quantity,
			UnitCost:    usage.UnitCost,
			VATRate:     usage.VATRate,
			ConsumedAt:  sale.OrderDate,
			Source:      ConsumptionFromLot,
		})
	}

	if !result.Covered() {
		shortfall := LotConsumption{
			StoreID:     ledger.StoreID(),
			Barcode:     ledger.Barcode(),
			OrderID:     sale.OrderID,
			OrderLineID: sale.LineID,
			ConsumedAt:  sale.OrderDate,
		}
		rows = append(rows, ledger.fallbackRow(shortfall, result.RemainingQty))
	}

	ledger.Record(rows...)
	return StampFromConsumptions(sale.LineID, rows), nil
}
