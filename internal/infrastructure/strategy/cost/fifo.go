package cost

import (
	"context"
	"errors"
	"sort"

	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// FIFOCostStrategy implements First-In-First-Out cost calculation over receipt lots.
// Entries are consumed in (EntryDate, Seq) order; entries with no remaining quantity are skipped.
type FIFOCostStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOCostStrategy creates a new FIFO cost strategy
func NewFIFOCostStrategy() *FIFOCostStrategy {
	return &FIFOCostStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fifo",
			strategy.StrategyTypeCost,
			"First-In-First-Out cost calculation",
		),
	}
}

// Method returns the costing method
func (s *FIFOCostStrategy) Method() strategy.CostMethod {
	return strategy.CostMethodFIFO
}

// CalculateCost calculates the cost using FIFO method.
// Unlike a hard failure on exhausted stock, the uncovered quantity is reported in
// RemainingQty so the caller can price it with a fallback cost.
func (s *FIFOCostStrategy) CalculateCost(
	ctx context.Context,
	costCtx strategy.CostContext,
	entries []strategy.StockEntry,
) (strategy.CostResult, error) {
	if !costCtx.Quantity.IsPositive() {
		return strategy.CostResult{}, shared.ErrInvalidQuantity
	}

	sortedEntries := SortEntries(entries)

	remainingQty := costCtx.Quantity
	totalCost := decimal.Zero
	vatWeighted := decimal.Zero
	usages := make([]strategy.EntryUsage, 0)

	for _, entry := range sortedEntries {
		if remainingQty.IsZero() {
			break
		}
		if !entry.Quantity.IsPositive() {
			continue
		}

		usedQty := decimal.Min(remainingQty, entry.Quantity)
		totalCost = totalCost.Add(usedQty.Mul(entry.UnitCost))
		vatWeighted = vatWeighted.Add(usedQty.Mul(entry.VATRate))
		remainingQty = remainingQty.Sub(usedQty)
		usages = append(usages, strategy.EntryUsage{
			EntryID:  entry.ID,
			Quantity: usedQty,
			UnitCost: entry.UnitCost,
			VATRate:  entry.VATRate,
		})
	}

	usedQty := costCtx.Quantity.Sub(remainingQty)
	var unitCost, vatRate decimal.Decimal
	if !usedQty.IsZero() {
		unitCost = totalCost.Div(usedQty)
		vatRate = vatWeighted.Div(usedQty)
	}

	return strategy.CostResult{
		UnitCost:     unitCost,
		VATRate:      vatRate,
		TotalCost:    totalCost,
		CostedQty:    usedQty,
		Method:       strategy.CostMethodFIFO,
		Usages:       usages,
		RemainingQty: remainingQty,
	}, nil
}

// CalculateAverageCost calculates the weighted average cost of the remaining quantity (for valuation)
func (s *FIFOCostStrategy) CalculateAverageCost(
	ctx context.Context,
	entries []strategy.StockEntry,
) (decimal.Decimal, error) {
	if len(entries) == 0 {
		return decimal.Zero, errors.New("no stock entries provided")
	}

	totalQty := decimal.Zero
	totalCost := decimal.Zero

	for _, entry := range entries {
		totalQty = totalQty.Add(entry.Quantity)
		totalCost = totalCost.Add(entry.Quantity.Mul(entry.UnitCost))
	}

	if totalQty.IsZero() {
		return decimal.Zero, errors.New("total quantity is zero")
	}

	return totalCost.Div(totalQty), nil
}

// SortEntries returns a copy of entries ordered oldest first, ties broken by insertion sequence
func SortEntries(entries []strategy.StockEntry) []strategy.StockEntry {
	sorted := make([]strategy.StockEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].EntryDate.Equal(sorted[j].EntryDate) {
			return sorted[i].EntryDate.Before(sorted[j].EntryDate)
		}
		return sorted[i].Seq < sorted[j].Seq
	})
	return sorted
}

var _ strategy.CostCalculationStrategy = (*FIFOCostStrategy)(nil)
