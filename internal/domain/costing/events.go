package costing

import (
	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
)

// Event type constants
const (
	EventTypePurchaseOrderClosed = "PurchaseOrderClosed"
)

// PurchaseOrderClosedEvent is raised when a purchase order's costs are finalized
type PurchaseOrderClosedEvent struct {
	shared.BaseDomainEvent
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	OrderNumber     string    `json:"order_number"`
	Barcodes        []string  `json:"barcodes"`
	Reclose         bool      `json:"reclose"`
}

// NewPurchaseOrderClosedEvent creates a new PurchaseOrderClosedEvent
func NewPurchaseOrderClosedEvent(po *PurchaseOrder, reclose bool) *PurchaseOrderClosedEvent {
	return &PurchaseOrderClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderClosed, AggregateTypePurchaseOrder, po.ID, po.StoreID),
		PurchaseOrderID: po.ID,
		OrderNumber:     po.OrderNumber,
		Barcodes:        po.Barcodes(),
		Reclose:         reclose,
	}
}

// EventType returns the event type name
func (e *PurchaseOrderClosedEvent) EventType() string {
	return EventTypePurchaseOrderClosed
}
