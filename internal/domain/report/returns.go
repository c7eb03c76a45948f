package report

import (
	"sort"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// ReturnInput is what the estimator knows about one return claim
type ReturnInput struct {
	Claim       trade.ReturnClaim
	Order       *trade.Order
	Reference   *finance.ProductReference
	LastLotCost *decimal.Decimal
	// invoiced cargo of the whole order
	OutboundCargo *decimal.Decimal
	ReturnCargo   *decimal.Decimal
	// order-level return shipping was already charged to an earlier claim
	ReturnShippingAttributed bool
}

// ReturnCost is the cost booked for one return claim. Commission is never part of it.
type ReturnCost struct {
	ClaimID          uuid.UUID       `json:"claim_id"`
	OrderID          uuid.UUID       `json:"order_id"`
	Barcode          string          `json:"barcode"`
	Quantity         decimal.Decimal `json:"quantity"`
	Explicit         bool            `json:"explicit"`
	Product          decimal.Decimal `json:"product"`
	OutboundShipping decimal.Decimal `json:"outbound_shipping"`
	ReturnShipping   decimal.Decimal `json:"return_shipping"`
	Total            decimal.Decimal `json:"total"`
	OutboundSource   Source          `json:"outbound_source"`
	ReturnSource     Source          `json:"return_source"`
}

// order share of the claim, by units
func claimShare(in ReturnInput) decimal.Decimal {
	if in.Order == nil {
		return decimal.Zero
	}
	return Share(in.Claim.Quantity, in.Order.Units())
}

var outboundStrategies = []Strategy[ReturnInput]{
	{Source: SourceSettled, Resolve: func(in ReturnInput) (decimal.Decimal, bool) {
		if in.OutboundCargo == nil || in.Order == nil {
			return decimal.Zero, false
		}
		return in.OutboundCargo.Mul(claimShare(in)), true
	}},
	{Source: SourceEstimated, Resolve: func(in ReturnInput) (decimal.Decimal, bool) {
		if in.Order == nil || in.Order.EstimatedShippingCost == nil {
			return decimal.Zero, false
		}
		return in.Order.EstimatedShippingCost.Mul(claimShare(in)), true
	}},
	{Source: SourceReference, Resolve: func(in ReturnInput) (decimal.Decimal, bool) {
		if in.Reference == nil || in.Reference.ShippingCostPerUnit == nil {
			return decimal.Zero, false
		}
		return in.Reference.ShippingCostPerUnit.Mul(in.Claim.Quantity), true
	}},
}

func returnStrategies(outbound decimal.Decimal) []Strategy[ReturnInput] {
	orderLevel := func(v *decimal.Decimal, attributed bool) (decimal.Decimal, bool) {
		if v == nil {
			return decimal.Zero, false
		}
		if attributed {
			return decimal.Zero, true
		}
		return *v, true
	}
	return []Strategy[ReturnInput]{
		{Source: SourceSettled, Resolve: func(in ReturnInput) (decimal.Decimal, bool) {
			return orderLevel(in.ReturnCargo, in.ReturnShippingAttributed)
		}},
		{Source: SourceEstimated, Resolve: func(in ReturnInput) (decimal.Decimal, bool) {
			if in.Order == nil {
				return decimal.Zero, false
			}
			return orderLevel(in.Order.ReturnShippingCost, in.ReturnShippingAttributed)
		}},
		{Source: SourceReference, Resolve: func(ReturnInput) (decimal.Decimal, bool) {
			return outbound, true
		}},
	}
}

// EstimateReturn books a claim at its explicit loss when recorded, otherwise at
// product cost (unless resalable) plus outbound and return shipping.
func EstimateReturn(in ReturnInput) ReturnCost {
	c := ReturnCost{
		ClaimID:        in.Claim.ID,
		OrderID:        in.Claim.OrderID,
		Barcode:        in.Claim.Barcode,
		Quantity:       in.Claim.Quantity,
		OutboundSource: SourceNone,
		ReturnSource:   SourceNone,
	}
	if in.Claim.LossAmount != nil {
		c.Explicit = true
		c.Total = *in.Claim.LossAmount
		return c
	}

	if !in.Claim.Resalable {
		c.Product = in.Claim.Quantity.Mul(unitCostFor(in))
	}

	outbound := FirstPresent(in, outboundStrategies...)
	c.OutboundShipping = outbound.Value
	c.OutboundSource = outbound.Source

	ret := FirstPresent(in, returnStrategies(outbound.Value)...)
	c.ReturnShipping = ret.Value
	c.ReturnSource = ret.Source

	c.Total = c.Product.Add(c.OutboundShipping).Add(c.ReturnShipping)
	return c
}

func unitCostFor(in ReturnInput) decimal.Decimal {
	if in.Order != nil {
		var line *trade.OrderLine
		if in.Claim.OrderLineID != nil {
			line = in.Order.Line(*in.Claim.OrderLineID)
		}
		if line == nil {
			line = in.Order.LineByBarcode(in.Claim.Barcode)
		}
		if line != nil && line.CostStamped && line.UnitCost.IsPositive() {
			return line.UnitCost
		}
	}
	if in.LastLotCost != nil {
		return *in.LastLotCost
	}
	return decimal.Zero
}

// EstimateReturns books every claim in return-date order, charging order-level
// return shipping to the first claim of each order only.
func EstimateReturns(claims []trade.ReturnClaim, build func(trade.ReturnClaim) ReturnInput) []ReturnCost {
	sorted := append([]trade.ReturnClaim(nil), claims...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ReturnDate.Before(sorted[j].ReturnDate)
	})

	attributed := make(map[uuid.UUID]bool)
	out := make([]ReturnCost, 0, len(sorted))
	for _, claim := range sorted {
		in := build(claim)
		in.ReturnShippingAttributed = attributed[claim.OrderID]
		cost := EstimateReturn(in)
		if cost.ReturnSource == SourceSettled || cost.ReturnSource == SourceEstimated {
			attributed[claim.OrderID] = true
		}
		out = append(out, cost)
	}
	return out
}
