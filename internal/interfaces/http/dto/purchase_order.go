package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/shopspring/decimal"
)

// PurchaseOrderItemRequest is one product line of a purchase order
type PurchaseOrderItemRequest struct {
	Barcode            string          `json:"barcode" binding:"required,max=64"`
	Quantity           decimal.Decimal `json:"quantity"`
	ManufacturingCost  decimal.Decimal `json:"manufacturing_cost"`
	TransportationCost decimal.Decimal `json:"transportation_cost"`
	VATRate            decimal.Decimal `json:"vat_rate"`
	ReceiptDate        string          `json:"receipt_date" binding:"omitempty,datetime=2006-01-02"`
}

// CreatePurchaseOrderRequest opens a draft purchase order
type CreatePurchaseOrderRequest struct {
	OrderNumber string                     `json:"order_number" binding:"required,max=64"`
	OrderDate   string                     `json:"order_date" binding:"required,datetime=2006-01-02"`
	ReceiptDate string                     `json:"receipt_date" binding:"omitempty,datetime=2006-01-02"`
	Items       []PurchaseOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// PurchaseOrderItemResponse is the API view of a purchase order item
type PurchaseOrderItemResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Barcode            string          `json:"barcode"`
	Quantity           decimal.Decimal `json:"quantity"`
	ManufacturingCost  decimal.Decimal `json:"manufacturing_cost"`
	TransportationCost decimal.Decimal `json:"transportation_cost"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	VATRate            decimal.Decimal `json:"vat_rate"`
	ReceiptDate        time.Time       `json:"receipt_date"`
}

// PurchaseOrderResponse is the API view of a purchase order
type PurchaseOrderResponse struct {
	ID             uuid.UUID                   `json:"id"`
	StoreID        uuid.UUID                   `json:"store_id"`
	OrderNumber    string                      `json:"order_number"`
	OrderDate      time.Time                   `json:"order_date"`
	Status         string                      `json:"status"`
	ClosedAt       *time.Time                  `json:"closed_at,omitempty"`
	Revision       int                         `json:"revision"`
	ClosedRevision int                         `json:"closed_revision"`
	Items          []PurchaseOrderItemResponse `json:"items"`
}

// ToPurchaseOrderResponse converts a domain purchase order
func ToPurchaseOrderResponse(po *costing.PurchaseOrder) PurchaseOrderResponse {
	items := make([]PurchaseOrderItemResponse, 0, len(po.Items))
	for _, item := range po.Items {
		items = append(items, PurchaseOrderItemResponse{
			ID:                 item.ID,
			Barcode:            item.Barcode,
			Quantity:           item.Quantity,
			ManufacturingCost:  item.ManufacturingCost,
			TransportationCost: item.TransportationCost,
			UnitCost:           item.UnitCost(),
			VATRate:            item.VATRate,
			ReceiptDate:        po.EffectiveReceiptDate(item),
		})
	}
	return PurchaseOrderResponse{
		ID:             po.ID,
		StoreID:        po.StoreID,
		OrderNumber:    po.OrderNumber,
		OrderDate:      po.OrderDate,
		Status:         string(po.Status),
		ClosedAt:       po.ClosedAt,
		Revision:       po.Revision,
		ClosedRevision: po.ClosedRevision,
		Items:          items,
	}
}

// ParseOptionalDate parses a calendar date, returning nil for an empty string
func ParseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
