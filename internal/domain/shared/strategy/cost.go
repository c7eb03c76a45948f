package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CostMethod represents the inventory costing method
type CostMethod string

const (
	CostMethodFIFO CostMethod = "fifo"
)

// String returns the string representation of the cost method
func (m CostMethod) String() string {
	return string(m)
}

// StockEntry is one receipt lot as seen by a cost strategy.
// Quantity is the quantity still available on the lot, not the original receipt quantity.
type StockEntry struct {
	ID        string
	Seq       int64
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	VATRate   decimal.Decimal
	EntryDate time.Time
}

// CostContext provides context for cost calculation
type CostContext struct {
	StoreID  string
	Barcode  string
	Quantity decimal.Decimal
	Date     time.Time
}

// EntryUsage records how much of one stock entry a calculation drew on
type EntryUsage struct {
	EntryID  string
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
	VATRate  decimal.Decimal
}

// CostResult contains the result of cost calculation.
// UnitCost and VATRate are weighted over CostedQty only; RemainingQty is the
// part of the request no entry could cover.
type CostResult struct {
	UnitCost     decimal.Decimal
	VATRate      decimal.Decimal
	TotalCost    decimal.Decimal
	CostedQty    decimal.Decimal
	Method       CostMethod
	Usages       []EntryUsage
	RemainingQty decimal.Decimal
}

// Covered reports whether the entries satisfied the whole request
func (r CostResult) Covered() bool {
	return r.RemainingQty.IsZero()
}

// CostCalculationStrategy defines the interface for inventory cost calculation
type CostCalculationStrategy interface {
	Strategy
	// Method returns the costing method used by this strategy
	Method() CostMethod
	// CalculateCost calculates the cost for a given quantity of product
	CalculateCost(ctx context.Context, costCtx CostContext, entries []StockEntry) (CostResult, error)
	// CalculateAverageCost calculates the average cost for all entries
	CalculateAverageCost(ctx context.Context, entries []StockEntry) (decimal.Decimal, error)
}
