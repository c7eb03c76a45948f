package handler

import (
	"github.com/gin-gonic/gin"
	reportapp "github.com/sellerpnl/backend/internal/application/report"
	"github.com/sellerpnl/backend/internal/domain/report"
	"github.com/sellerpnl/backend/internal/interfaces/http/dto"
)

// ReportHandler serves the P&L endpoints
type ReportHandler struct {
	BaseHandler
	aggregator *reportapp.PeriodAggregator
	composer   *reportapp.MultiPeriodComposer
	references *reportapp.ReferenceService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(
	aggregator *reportapp.PeriodAggregator,
	composer *reportapp.MultiPeriodComposer,
	references *reportapp.ReferenceService,
) *ReportHandler {
	return &ReportHandler{
		aggregator: aggregator,
		composer:   composer,
		references: references,
	}
}

// GetPnL handles GET /stores/:store_id/pnl
func (h *ReportHandler) GetPnL(c *gin.Context) {
	q, ok := h.snapshotQuery(c)
	if !ok {
		return
	}
	snapshot, err := h.aggregator.GetPeriodSnapshot(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, snapshot)
}

// GetProductBreakdown handles GET /stores/:store_id/pnl/products
func (h *ReportHandler) GetProductBreakdown(c *gin.Context) {
	q, ok := h.snapshotQuery(c)
	if !ok {
		return
	}
	rows, err := h.aggregator.GetProductBreakdown(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if rows == nil {
		rows = []report.ProductProfit{}
	}
	h.Success(c, rows)
}

// GetTrend handles GET /stores/:store_id/pnl/trend
func (h *ReportHandler) GetTrend(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	var q dto.TrendQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	result, err := h.composer.GetMultiPeriodSnapshot(c.Request.Context(), reportapp.MultiPeriodQuery{
		StoreID:    storeID,
		PeriodType: report.PeriodType(q.Period),
		Count:      q.Count,
		Barcode:    q.Barcode,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RefreshReferences handles POST /stores/:store_id/references/refresh
func (h *ReportHandler) RefreshReferences(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	result, err := h.references.RefreshProductReferences(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *ReportHandler) snapshotQuery(c *gin.Context) (reportapp.SnapshotQuery, bool) {
	storeID, ok := h.storeID(c)
	if !ok {
		return reportapp.SnapshotQuery{}, false
	}
	var q dto.PnLQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return reportapp.SnapshotQuery{}, false
	}
	start, end, err := q.Dates()
	if err != nil {
		h.BadRequest(c, "Invalid date: "+err.Error())
		return reportapp.SnapshotQuery{}, false
	}
	return reportapp.SnapshotQuery{
		StoreID: storeID,
		Start:   start,
		End:     end,
		Barcode: q.Barcode,
	}, true
}
