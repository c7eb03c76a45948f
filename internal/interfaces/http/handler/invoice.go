package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	financeapp "github.com/sellerpnl/backend/internal/application/finance"
	"github.com/sellerpnl/backend/internal/interfaces/http/dto"
	"github.com/sellerpnl/backend/internal/interfaces/http/middleware"
)

// invoiceFileField is the multipart field carrying the CSV
const invoiceFileField = "file"

// InvoiceHandler serves invoice uploads
type InvoiceHandler struct {
	BaseHandler
	importService *financeapp.InvoiceImportService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(importService *financeapp.InvoiceImportService) *InvoiceHandler {
	return &InvoiceHandler{importService: importService}
}

// Import handles POST /stores/:store_id/invoices/import.
// The body is multipart with a "file" field; ?dry_run=true validates only.
// A file with row errors is answered with 422 and the per-row errors.
func (h *InvoiceHandler) Import(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	dryRun := false
	if v := c.Query("dry_run"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.BadRequest(c, "Invalid dry_run: must be a boolean")
			return
		}
		dryRun = parsed
	}

	header, err := c.FormFile(invoiceFileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Upload exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, "Missing multipart field \""+invoiceFileField+"\"")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer file.Close()

	result, err := h.importService.Import(c.Request.Context(), financeapp.ImportInvoicesCommand{
		StoreID: storeID,
		File:    file,
		DryRun:  dryRun,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.TotalErrors > 0 {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeImportRejected,
			"Invoice file has invalid rows; nothing was imported", middleware.GetRequestID(c))
		resp.Data = result
		c.JSON(dto.GetHTTPStatus(dto.ErrCodeImportRejected), resp)
		return
	}
	if dryRun {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}
