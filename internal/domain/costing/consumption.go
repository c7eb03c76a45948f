package costing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConsumptionSource tells how a consumed quantity was priced
type ConsumptionSource string

const (
	// ConsumptionFromLot is drawn from a real lot
	ConsumptionFromLot ConsumptionSource = "lot"
	// ConsumptionFallback is priced at the last known unit cost because stock ran out
	ConsumptionFallback ConsumptionSource = "fallback"
	// ConsumptionMissing has no cost history at all and is priced at zero
	ConsumptionMissing ConsumptionSource = "missing"
)

// CostSource is the cost origin stamped on an order line
type CostSource string

const (
	CostSourceFIFO      CostSource = "fifo"
	CostSourceLastKnown CostSource = "last_known"
	CostSourceMissing   CostSource = "missing"
)

// LotConsumption is one row of the consumption index: which lot (if any) a sold
// quantity was drawn from and at what cost.
type LotConsumption struct {
	ID          uuid.UUID
	StoreID     uuid.UUID
	Barcode     string
	OrderID     uuid.UUID
	OrderLineID uuid.UUID
	LotID       *uuid.UUID
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	VATRate     decimal.Decimal
	ConsumedAt  time.Time
	Source      ConsumptionSource
}

// Sale is one order line as seen by the allocator
type Sale struct {
	OrderID   uuid.UUID
	LineID    uuid.UUID
	OrderDate time.Time
	Quantity  decimal.Decimal
}

// SaleLess orders sales chronologically, ties broken by order then line ID
func SaleLess(a, b Sale) bool {
	if !a.OrderDate.Equal(b.OrderDate) {
		return a.OrderDate.Before(b.OrderDate)
	}
	if a.OrderID != b.OrderID {
		return a.OrderID.String() < b.OrderID.String()
	}
	return a.LineID.String() < b.LineID.String()
}

// CostStamp is the cost assigned to one sold line
type CostStamp struct {
	OrderLineID   uuid.UUID
	UnitCost      decimal.Decimal
	VATRate       decimal.Decimal
	Source        CostSource
	StockDepleted bool
	MissingCost   bool
	Consumptions  []LotConsumption
}

// TotalCost returns the line's cost value
func (s *CostStamp) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, c := range s.Consumptions {
		total = total.Add(c.Quantity.Mul(c.UnitCost))
	}
	return total
}

// Equal compares the stamped values, ignoring the ledger rows
func (s *CostStamp) Equal(other *CostStamp) bool {
	if other == nil {
		return false
	}
	return s.UnitCost.Equal(other.UnitCost) &&
		s.VATRate.Equal(other.VATRate) &&
		s.Source == other.Source &&
		s.StockDepleted == other.StockDepleted &&
		s.MissingCost == other.MissingCost
}

// StampFromConsumptions derives a line's stamp from its ledger rows
func StampFromConsumptions(lineID uuid.UUID, rows []LotConsumption) *CostStamp {
	stamp := &CostStamp{
		OrderLineID:  lineID,
		UnitCost:     decimal.Zero,
		VATRate:      decimal.Zero,
		Source:       CostSourceFIFO,
		Consumptions: rows,
	}

	qty := decimal.Zero
	total := decimal.Zero
	vat := decimal.Zero
	for _, r := range rows {
		qty = qty.Add(r.Quantity)
		total = total.Add(r.Quantity.Mul(r.UnitCost))
		vat = vat.Add(r.Quantity.Mul(r.VATRate))
		switch r.Source {
		case ConsumptionFallback:
			stamp.StockDepleted = true
		case ConsumptionMissing:
			stamp.MissingCost = true
		}
	}

	switch {
	case stamp.MissingCost:
		stamp.Source = CostSourceMissing
	case stamp.StockDepleted:
		stamp.Source = CostSourceLastKnown
	}

	if qty.IsPositive() {
		stamp.UnitCost = total.Div(qty).Round(CostPrecision)
		stamp.VATRate = vat.Div(qty).Round(CostPrecision)
	}
	return stamp
}

// GroupByLine indexes consumption rows by order line, preserving row order
func GroupByLine(rows []LotConsumption) map[uuid.UUID][]LotConsumption {
	out := make(map[uuid.UUID][]LotConsumption)
	for _, r := range rows {
		out[r.OrderLineID] = append(out[r.OrderLineID], r)
	}
	return out
}
