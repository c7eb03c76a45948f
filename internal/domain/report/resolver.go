package report

import (
	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// Source tags where a resolved figure came from
type Source string

const (
	SourceSettled   Source = "settled"
	SourceReference Source = "reference"
	SourceEstimated Source = "estimated"
	SourceNone      Source = "none"
)

// Strategy resolves a value from T, reporting whether it was present
type Strategy[T any] struct {
	Source  Source
	Resolve func(T) (decimal.Decimal, bool)
}

// Resolution is a resolved value and its source
type Resolution struct {
	Value  decimal.Decimal
	Source Source
}

// FirstPresent returns the first strategy result that is present, or zero with SourceNone
func FirstPresent[T any](input T, strategies ...Strategy[T]) Resolution {
	for _, s := range strategies {
		if v, ok := s.Resolve(input); ok {
			return Resolution{Value: v, Source: s.Source}
		}
	}
	return Resolution{Value: decimal.Zero, Source: SourceNone}
}

// LineInput carries what the commission and shipping strategies look at for one order line
type LineInput struct {
	Order         *trade.Order
	Line          *trade.OrderLine
	Reference     *finance.ProductReference
	OutboundCargo *decimal.Decimal // invoiced outbound cargo of the whole order
}

var commissionStrategies = []Strategy[LineInput]{
	{Source: SourceSettled, Resolve: func(in LineInput) (decimal.Decimal, bool) {
		if !in.Order.Settled || in.Line.ActualCommission == nil {
			return decimal.Zero, false
		}
		return *in.Line.ActualCommission, true
	}},
	{Source: SourceReference, Resolve: func(in LineInput) (decimal.Decimal, bool) {
		if in.Reference == nil || in.Reference.CommissionRate == nil {
			return decimal.Zero, false
		}
		return in.Line.GrossAmount().Mul(*in.Reference.CommissionRate).Div(hundred), true
	}},
	{Source: SourceEstimated, Resolve: func(in LineInput) (decimal.Decimal, bool) {
		if in.Line.EstimatedCommission == nil {
			return decimal.Zero, false
		}
		return *in.Line.EstimatedCommission, true
	}},
}

var settledShipping = Strategy[LineInput]{Source: SourceSettled, Resolve: func(in LineInput) (decimal.Decimal, bool) {
	if in.OutboundCargo == nil {
		return decimal.Zero, false
	}
	units := in.Order.Units()
	if !units.IsPositive() {
		return decimal.Zero, false
	}
	return in.OutboundCargo.Mul(in.Line.Quantity).Div(units), true
}}

// estimatedShipping splits the order-time shipping estimate over the order's units
var estimatedShipping = Strategy[LineInput]{Source: SourceEstimated, Resolve: func(in LineInput) (decimal.Decimal, bool) {
	if in.Order.EstimatedShippingCost == nil {
		return decimal.Zero, false
	}
	units := in.Order.Units()
	if !units.IsPositive() {
		return decimal.Zero, false
	}
	return in.Order.EstimatedShippingCost.Mul(in.Line.Quantity).Div(units), true
}}

var referenceShipping = Strategy[LineInput]{Source: SourceReference, Resolve: func(in LineInput) (decimal.Decimal, bool) {
	if in.Reference == nil || in.Reference.ShippingCostPerUnit == nil {
		return decimal.Zero, false
	}
	return in.Reference.ShippingCostPerUnit.Mul(in.Line.Quantity), true
}}

// ResolveCommission resolves a line's commission: settled, then reference rate, then estimate
func ResolveCommission(in LineInput) Resolution {
	return FirstPresent(in, commissionStrategies...)
}

// ResolveShipping resolves a line's outbound shipping: cargo invoice, then the
// order estimate, then the reference per-unit cost. Until cargo invoices are
// considered complete the invoice is not consulted.
func ResolveShipping(in LineInput, invoicesComplete bool) Resolution {
	if invoicesComplete {
		return FirstPresent(in, settledShipping, estimatedShipping, referenceShipping)
	}
	return FirstPresent(in, estimatedShipping, referenceShipping)
}
