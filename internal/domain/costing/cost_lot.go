package costing

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CostPrecision is the number of decimals kept on stamped unit costs
const CostPrecision int32 = 4

// LotSource tells where a cost lot came from
type LotSource string

const (
	LotSourcePurchaseOrder LotSource = "purchase_order"
	LotSourceManual        LotSource = "manual"
)

// IsValid returns true if the lot source is known
func (s LotSource) IsValid() bool {
	return s == LotSourcePurchaseOrder || s == LotSourceManual
}

// CostLot is one inventory receipt of a product with its own unit cost.
// Lots are never deleted; a fully consumed lot is marked depleted.
type CostLot struct {
	shared.StoreAggregateRoot
	Barcode          string
	Seq              int64 // insertion order, breaks receipt-date ties
	Quantity         decimal.Decimal
	UnitCost         decimal.Decimal
	VATRate          decimal.Decimal
	ReceiptDate      time.Time
	ConsumedQuantity decimal.Decimal
	Source           LotSource
	SourceRef        *uuid.UUID // purchase order item that produced the lot
	Depleted         bool
}

// ReceiveLotInput carries the attributes of a new lot
type ReceiveLotInput struct {
	StoreID     uuid.UUID
	Barcode     string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	VATRate     decimal.Decimal
	ReceiptDate time.Time
	Source      LotSource
	SourceRef   *uuid.UUID
	Seq         int64
}

// NewCostLot validates the input and creates a lot with nothing consumed
func NewCostLot(in ReceiveLotInput) (*CostLot, error) {
	if in.StoreID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Store ID cannot be empty")
	}
	if in.Barcode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Barcode cannot be empty")
	}
	if !in.Quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Lot quantity must be positive")
	}
	if in.UnitCost.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidCost, "Unit cost cannot be negative")
	}
	if in.VATRate.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidCost, "VAT rate cannot be negative")
	}
	if in.ReceiptDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Receipt date is required")
	}
	source := in.Source
	if source == "" {
		source = LotSourceManual
	}
	if !source.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown lot source: "+string(source))
	}

	return &CostLot{
		StoreAggregateRoot: shared.NewStoreAggregateRoot(in.StoreID),
		Barcode:            in.Barcode,
		Seq:                in.Seq,
		Quantity:           in.Quantity,
		UnitCost:           in.UnitCost,
		VATRate:            in.VATRate,
		ReceiptDate:        in.ReceiptDate,
		ConsumedQuantity:   decimal.Zero,
		Source:             source,
		SourceRef:          in.SourceRef,
	}, nil
}

// Remaining returns the quantity still available on the lot
func (l *CostLot) Remaining() decimal.Decimal {
	return l.Quantity.Sub(l.ConsumedQuantity)
}

// HasStock returns true if the lot can still be consumed
func (l *CostLot) HasStock() bool {
	return l.Remaining().IsPositive()
}

// Consume takes quantity off the lot; it never consumes beyond the original quantity
func (l *CostLot) Consume(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Consumed quantity must be positive")
	}
	if quantity.GreaterThan(l.Remaining()) {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Cannot consume more than the lot's remaining quantity")
	}
	l.ConsumedQuantity = l.ConsumedQuantity.Add(quantity)
	l.Depleted = !l.HasStock()
	l.UpdatedAt = time.Now()
	return nil
}

// ResetConsumption clears consumption ahead of a replay
func (l *CostLot) ResetConsumption() {
	l.ConsumedQuantity = decimal.Zero
	l.Depleted = false
}

// Revise applies an edit of the source document to the lot.
// The quantity may not drop below what has already been consumed.
func (l *CostLot) Revise(quantity, unitCost, vatRate decimal.Decimal, receiptDate time.Time) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Lot quantity must be positive")
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidCost, "Unit cost cannot be negative")
	}
	if quantity.LessThan(l.ConsumedQuantity) {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Lot quantity cannot drop below the consumed quantity")
	}
	l.Quantity = quantity
	l.UnitCost = unitCost
	l.VATRate = vatRate
	l.ReceiptDate = receiptDate
	l.Depleted = !l.HasStock()
	l.UpdatedAt = time.Now()
	return nil
}

// Differs reports whether revising with the given values would change the lot
func (l *CostLot) Differs(quantity, unitCost, vatRate decimal.Decimal, receiptDate time.Time) bool {
	return !l.Quantity.Equal(quantity) ||
		!l.UnitCost.Equal(unitCost) ||
		!l.VATRate.Equal(vatRate) ||
		!l.ReceiptDate.Equal(receiptDate)
}

// SortsBefore reports whether l is consumed before other under FIFO
func (l *CostLot) SortsBefore(other *CostLot) bool {
	if !l.ReceiptDate.Equal(other.ReceiptDate) {
		return l.ReceiptDate.Before(other.ReceiptDate)
	}
	return l.Seq < other.Seq
}

// RemainingValue returns the cost value of the unconsumed quantity
func (l *CostLot) RemainingValue() decimal.Decimal {
	return l.Remaining().Mul(l.UnitCost)
}
