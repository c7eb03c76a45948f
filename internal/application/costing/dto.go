package costing

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// Options tunes the costing service
type Options struct {
	// MaxConflictRetries is how many times an optimistic-lock conflict is retried
	MaxConflictRetries int
	// MaxReplayDays caps how far back a redistribution replays (0 = no cap)
	MaxReplayDays int
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{MaxConflictRetries: 3}
}

// ReceiveLotCommand adds a lot outside of a purchase order
type ReceiveLotCommand struct {
	StoreID     uuid.UUID
	Barcode     string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	VATRate     decimal.Decimal
	ReceiptDate time.Time
	Source      costing.LotSource
}

// AllocationResult reports the stamps written for one order
type AllocationResult struct {
	StoreID uuid.UUID        `json:"store_id"`
	OrderID uuid.UUID        `json:"order_id"`
	Lines   []trade.LineCost `json:"lines"`
	// AlreadyCosted counts lines skipped because they carried a stamp
	AlreadyCosted int      `json:"already_costed"`
	StockDepleted []string `json:"stock_depleted_barcodes,omitempty"`
	MissingCost   []string `json:"missing_cost_barcodes,omitempty"`
}

// ClosureResult reports what closing a purchase order did to the lot log
type ClosureResult struct {
	PurchaseOrderID uuid.UUID                      `json:"purchase_order_id"`
	CreatedLots     []uuid.UUID                    `json:"created_lots"`
	RevisedLots     []uuid.UUID                    `json:"revised_lots"`
	Redistributions []*costing.RedistributionResult `json:"redistributions"`
}

// CreatePurchaseOrderCommand opens a draft purchase order
type CreatePurchaseOrderCommand struct {
	StoreID             uuid.UUID
	OrderNumber         string
	OrderDate           time.Time
	ReceiptDateOverride *time.Time
	Items               []PurchaseOrderItemInput
}

// PurchaseOrderItemInput is one product line of a purchase order command
type PurchaseOrderItemInput struct {
	Barcode             string
	Quantity            decimal.Decimal
	ManufacturingCost   decimal.Decimal
	TransportationCost  decimal.Decimal
	VATRate             decimal.Decimal
	ReceiptDateOverride *time.Time
}

// UpdatePurchaseOrderItemCommand edits one item of a purchase order
type UpdatePurchaseOrderItemCommand struct {
	StoreID         uuid.UUID
	PurchaseOrderID uuid.UUID
	ItemID          uuid.UUID
	PurchaseOrderItemInput
}

func lineCost(stamp *costing.CostStamp) trade.LineCost {
	return trade.LineCost{
		LineID:        stamp.OrderLineID,
		UnitCost:      stamp.UnitCost,
		VATRate:       stamp.VATRate,
		Source:        string(stamp.Source),
		StockDepleted: stamp.StockDepleted,
		MissingCost:   stamp.MissingCost,
	}
}
