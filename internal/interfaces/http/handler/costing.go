package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	costingapp "github.com/sellerpnl/backend/internal/application/costing"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/interfaces/http/dto"
)

// CostingHandler serves lot allocation and valuation endpoints
type CostingHandler struct {
	BaseHandler
	costingService *costingapp.CostingService
}

// NewCostingHandler creates a new CostingHandler
func NewCostingHandler(costingService *costingapp.CostingService) *CostingHandler {
	return &CostingHandler{costingService: costingService}
}

// AllocateOrder handles POST /stores/:store_id/orders/:order_id/allocate
func (h *CostingHandler) AllocateOrder(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "order_id")
	if !ok {
		return
	}
	result, err := h.costingService.AllocateOrder(c.Request.Context(), storeID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Redistribute handles POST /stores/:store_id/products/:barcode/redistribute
func (h *CostingHandler) Redistribute(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	result, err := h.costingService.Redistribute(c.Request.Context(), storeID, c.Param("barcode"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToRedistributionResponse(result))
}

// GetCostHistory handles GET /stores/:store_id/products/:barcode/cost-history
func (h *CostingHandler) GetCostHistory(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	lots, err := h.costingService.GetCostHistory(c.Request.Context(), storeID, c.Param("barcode"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToCostLotResponses(lots))
}

// GetStockValuation handles GET /stores/:store_id/stock-valuation
func (h *CostingHandler) GetStockValuation(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	valuation, err := h.costingService.GetStockValuation(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if valuation == nil {
		valuation = []costing.ProductValuation{}
	}
	h.Success(c, valuation)
}

// ReceiveLot handles POST /stores/:store_id/products/:barcode/lots
func (h *CostingHandler) ReceiveLot(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	var req dto.ReceiveLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	receiptDate, err := time.Parse(dto.DateLayout, req.ReceiptDate)
	if err != nil {
		h.BadRequest(c, "Invalid receipt_date")
		return
	}
	lot, err := h.costingService.ReceiveLot(c.Request.Context(), costingapp.ReceiveLotCommand{
		StoreID:     storeID,
		Barcode:     c.Param("barcode"),
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		VATRate:     req.VATRate,
		ReceiptDate: receiptDate,
		Source:      costing.LotSourceManual,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToCostLotResponse(lot))
}
