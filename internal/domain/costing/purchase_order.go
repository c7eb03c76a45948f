package costing

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypePurchaseOrder is the aggregate type name used on events
const AggregateTypePurchaseOrder = "PurchaseOrder"

// PurchaseOrderStatus represents the lifecycle state of a purchase order
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft   PurchaseOrderStatus = "draft"
	PurchaseOrderStatusOrdered PurchaseOrderStatus = "ordered"
	PurchaseOrderStatusShipped PurchaseOrderStatus = "shipped"
	PurchaseOrderStatusClosed  PurchaseOrderStatus = "closed"
)

// IsValid returns true if the status is known
func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderStatusDraft, PurchaseOrderStatusOrdered, PurchaseOrderStatusShipped, PurchaseOrderStatusClosed:
		return true
	}
	return false
}

// PurchaseOrder is the source document of cost lots. Only closing it creates or
// updates lots; a closed order may be edited and closed again.
type PurchaseOrder struct {
	shared.StoreAggregateRoot
	OrderNumber         string
	OrderDate           time.Time
	ReceiptDateOverride *time.Time
	Status              PurchaseOrderStatus
	Items               []PurchaseOrderItem
	ClosedAt            *time.Time
	Revision            int // incremented on every edit after closing
	ClosedRevision      int
}

// PurchaseOrderItem is one product line of a purchase order
type PurchaseOrderItem struct {
	ID                  uuid.UUID
	PurchaseOrderID     uuid.UUID
	Barcode             string
	Quantity            decimal.Decimal
	ManufacturingCost   decimal.Decimal
	TransportationCost  decimal.Decimal
	VATRate             decimal.Decimal
	ReceiptDateOverride *time.Time
}

// UnitCost returns the landed unit cost of the item
func (i PurchaseOrderItem) UnitCost() decimal.Decimal {
	return i.ManufacturingCost.Add(i.TransportationCost)
}

// NewPurchaseOrder creates a draft purchase order
func NewPurchaseOrder(storeID uuid.UUID, orderNumber string, orderDate time.Time) (*PurchaseOrder, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Store ID cannot be empty")
	}
	if orderNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order number cannot be empty")
	}
	if orderDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order date is required")
	}
	return &PurchaseOrder{
		StoreAggregateRoot: shared.NewStoreAggregateRoot(storeID),
		OrderNumber:        orderNumber,
		OrderDate:          orderDate,
		Status:             PurchaseOrderStatusDraft,
		Items:              make([]PurchaseOrderItem, 0),
	}, nil
}

// AddItem appends a product line
func (po *PurchaseOrder) AddItem(barcode string, quantity, manufacturingCost, transportationCost, vatRate decimal.Decimal, receiptDate *time.Time) (*PurchaseOrderItem, error) {
	if err := validateItem(barcode, quantity, manufacturingCost, transportationCost, vatRate); err != nil {
		return nil, err
	}
	item := PurchaseOrderItem{
		ID:                  uuid.New(),
		PurchaseOrderID:     po.ID,
		Barcode:             barcode,
		Quantity:            quantity,
		ManufacturingCost:   manufacturingCost,
		TransportationCost:  transportationCost,
		VATRate:             vatRate,
		ReceiptDateOverride: receiptDate,
	}
	po.Items = append(po.Items, item)
	po.touch()
	return &po.Items[len(po.Items)-1], nil
}

// UpdateItem edits an existing line; on a closed order this marks it for re-closing
func (po *PurchaseOrder) UpdateItem(itemID uuid.UUID, quantity, manufacturingCost, transportationCost, vatRate decimal.Decimal, receiptDate *time.Time) error {
	for i := range po.Items {
		if po.Items[i].ID != itemID {
			continue
		}
		if err := validateItem(po.Items[i].Barcode, quantity, manufacturingCost, transportationCost, vatRate); err != nil {
			return err
		}
		po.Items[i].Quantity = quantity
		po.Items[i].ManufacturingCost = manufacturingCost
		po.Items[i].TransportationCost = transportationCost
		po.Items[i].VATRate = vatRate
		po.Items[i].ReceiptDateOverride = receiptDate
		po.touch()
		return nil
	}
	return shared.NewDomainError(shared.CodeNotFound, "Purchase order item not found")
}

// SetReceiptDateOverride sets the order-level receipt date
func (po *PurchaseOrder) SetReceiptDateOverride(date *time.Time) {
	po.ReceiptDateOverride = date
	po.touch()
}

// EffectiveReceiptDate resolves item override, then order override, then order date
func (po *PurchaseOrder) EffectiveReceiptDate(item PurchaseOrderItem) time.Time {
	if item.ReceiptDateOverride != nil {
		return *item.ReceiptDateOverride
	}
	if po.ReceiptDateOverride != nil {
		return *po.ReceiptDateOverride
	}
	return po.OrderDate
}

// MarkOrdered moves a draft to ordered
func (po *PurchaseOrder) MarkOrdered() error {
	if po.Status != PurchaseOrderStatusDraft {
		return shared.NewDomainError(shared.CodeInvalidState, "Only draft purchase orders can be ordered")
	}
	if len(po.Items) == 0 {
		return shared.NewDomainError(shared.CodeInvalidState, "Purchase order has no items")
	}
	po.Status = PurchaseOrderStatusOrdered
	po.IncrementVersion()
	return nil
}

// MarkShipped moves an ordered purchase order to shipped
func (po *PurchaseOrder) MarkShipped() error {
	if po.Status != PurchaseOrderStatusOrdered {
		return shared.NewDomainError(shared.CodeInvalidState, "Only ordered purchase orders can be shipped")
	}
	po.Status = PurchaseOrderStatusShipped
	po.IncrementVersion()
	return nil
}

// Close finalizes the costs. Closing a shipped order raises a closed event; closing
// an already closed order is allowed when it was edited since, and is flagged as a re-close.
func (po *PurchaseOrder) Close(now time.Time) error {
	reclose := false
	switch po.Status {
	case PurchaseOrderStatusShipped:
	case PurchaseOrderStatusClosed:
		if po.Revision == po.ClosedRevision {
			return shared.NewDomainError(shared.CodeInvalidState, "Purchase order is already closed and unchanged")
		}
		reclose = true
	default:
		return shared.NewDomainError(shared.CodeInvalidState, "Only shipped purchase orders can be closed")
	}
	if len(po.Items) == 0 {
		return shared.NewDomainError(shared.CodeInvalidState, "Purchase order has no items")
	}

	po.Status = PurchaseOrderStatusClosed
	po.ClosedAt = &now
	po.ClosedRevision = po.Revision
	po.IncrementVersion()
	po.AddDomainEvent(NewPurchaseOrderClosedEvent(po, reclose))
	return nil
}

// Barcodes returns the distinct products on the order in item order
func (po *PurchaseOrder) Barcodes() []string {
	seen := make(map[string]bool, len(po.Items))
	out := make([]string, 0, len(po.Items))
	for _, item := range po.Items {
		if !seen[item.Barcode] {
			seen[item.Barcode] = true
			out = append(out, item.Barcode)
		}
	}
	return out
}

func (po *PurchaseOrder) touch() {
	if po.Status == PurchaseOrderStatusClosed {
		po.Revision++
	}
	po.UpdatedAt = time.Now()
}

func validateItem(barcode string, quantity, manufacturingCost, transportationCost, vatRate decimal.Decimal) error {
	if barcode == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Barcode cannot be empty")
	}
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Item quantity must be positive")
	}
	if manufacturingCost.IsNegative() || transportationCost.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidCost, "Item costs cannot be negative")
	}
	if vatRate.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidCost, "VAT rate cannot be negative")
	}
	return nil
}
