package costing

import (
	"context"

	"github.com/sellerpnl/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// ProductValuation is the stock value of one product across its lots
type ProductValuation struct {
	Barcode           string          `json:"barcode"`
	LotCount          int             `json:"lot_count"`
	ReceivedQuantity  decimal.Decimal `json:"received_quantity"`
	ConsumedQuantity  decimal.Decimal `json:"consumed_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Value             decimal.Decimal `json:"value"`
	AverageUnitCost   decimal.Decimal `json:"average_unit_cost"`
	LastKnownCost     decimal.Decimal `json:"last_known_cost"`
	Depleted          bool            `json:"depleted"`
}

// Value computes the valuation of a ledger's remaining stock
func Value(ctx context.Context, costStrategy strategy.CostCalculationStrategy, ledger *LotLedger) ProductValuation {
	v := ProductValuation{
		Barcode:           ledger.Barcode(),
		LotCount:          len(ledger.Lots()),
		ReceivedQuantity:  decimal.Zero,
		ConsumedQuantity:  decimal.Zero,
		RemainingQuantity: decimal.Zero,
		Value:             decimal.Zero,
		AverageUnitCost:   decimal.Zero,
	}
	for _, lot := range ledger.Lots() {
		v.ReceivedQuantity = v.ReceivedQuantity.Add(lot.Quantity)
		v.ConsumedQuantity = v.ConsumedQuantity.Add(lot.ConsumedQuantity)
		v.RemainingQuantity = v.RemainingQuantity.Add(lot.Remaining())
		v.Value = v.Value.Add(lot.RemainingValue())
	}
	v.Value = v.Value.Round(CostPrecision)
	v.LastKnownCost, _, _ = ledger.LastKnownCost()
	v.Depleted = !v.RemainingQuantity.IsPositive()

	if avg, err := costStrategy.CalculateAverageCost(ctx, ledger.StockEntries()); err == nil {
		v.AverageUnitCost = avg.Round(CostPrecision)
	}
	return v
}
