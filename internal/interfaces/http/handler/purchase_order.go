package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	costingapp "github.com/sellerpnl/backend/internal/application/costing"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/interfaces/http/dto"
)

// PurchaseOrderHandler drives the purchase order lifecycle
type PurchaseOrderHandler struct {
	BaseHandler
	purchaseOrderService *costingapp.PurchaseOrderService
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(purchaseOrderService *costingapp.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{purchaseOrderService: purchaseOrderService}
}

// Create handles POST /stores/:store_id/purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	var req dto.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	orderDate, err := time.Parse(dto.DateLayout, req.OrderDate)
	if err != nil {
		h.BadRequest(c, "Invalid order_date")
		return
	}
	receiptDate, err := dto.ParseOptionalDate(req.ReceiptDate)
	if err != nil {
		h.BadRequest(c, "Invalid receipt_date")
		return
	}
	cmd := costingapp.CreatePurchaseOrderCommand{
		StoreID:             storeID,
		OrderNumber:         req.OrderNumber,
		OrderDate:           orderDate,
		ReceiptDateOverride: receiptDate,
	}
	for _, item := range req.Items {
		input, err := itemInput(item)
		if err != nil {
			h.BadRequest(c, "Invalid receipt_date for item "+item.Barcode)
			return
		}
		cmd.Items = append(cmd.Items, input)
	}

	po, err := h.purchaseOrderService.Create(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToPurchaseOrderResponse(po))
}

// MarkOrdered handles POST /stores/:store_id/purchase-orders/:po_id/order
func (h *PurchaseOrderHandler) MarkOrdered(c *gin.Context) {
	h.transition(c, h.purchaseOrderService.MarkOrdered)
}

// MarkShipped handles POST /stores/:store_id/purchase-orders/:po_id/ship
func (h *PurchaseOrderHandler) MarkShipped(c *gin.Context) {
	h.transition(c, h.purchaseOrderService.MarkShipped)
}

// Close handles POST /stores/:store_id/purchase-orders/:po_id/close.
// Lot creation and redistribution run synchronously in the closed-event handler.
func (h *PurchaseOrderHandler) Close(c *gin.Context) {
	h.transition(c, h.purchaseOrderService.Close)
}

// UpdateItem handles PUT /stores/:store_id/purchase-orders/:po_id/items/:item_id
func (h *PurchaseOrderHandler) UpdateItem(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	poID, ok := h.uuidParam(c, "po_id")
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "item_id")
	if !ok {
		return
	}
	var req dto.PurchaseOrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	input, err := itemInput(req)
	if err != nil {
		h.BadRequest(c, "Invalid receipt_date")
		return
	}
	po, err := h.purchaseOrderService.UpdateItem(c.Request.Context(), costingapp.UpdatePurchaseOrderItemCommand{
		StoreID:                storeID,
		PurchaseOrderID:        poID,
		ItemID:                 itemID,
		PurchaseOrderItemInput: input,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToPurchaseOrderResponse(po))
}

func (h *PurchaseOrderHandler) transition(c *gin.Context, fn func(ctx context.Context, storeID, poID uuid.UUID) (*costing.PurchaseOrder, error)) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	poID, ok := h.uuidParam(c, "po_id")
	if !ok {
		return
	}
	po, err := fn(c.Request.Context(), storeID, poID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToPurchaseOrderResponse(po))
}

func itemInput(req dto.PurchaseOrderItemRequest) (costingapp.PurchaseOrderItemInput, error) {
	receiptDate, err := dto.ParseOptionalDate(req.ReceiptDate)
	if err != nil {
		return costingapp.PurchaseOrderItemInput{}, err
	}
	return costingapp.PurchaseOrderItemInput{
		Barcode:             req.Barcode,
		Quantity:            req.Quantity,
		ManufacturingCost:   req.ManufacturingCost,
		TransportationCost:  req.TransportationCost,
		VATRate:             req.VATRate,
		ReceiptDateOverride: receiptDate,
	}, nil
}
