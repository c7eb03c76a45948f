package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sellerpnl/backend/internal/interfaces/http/handler"
)

// Handlers bundles the handlers mounted by Mount
type Handlers struct {
	Report        *handler.ReportHandler
	Costing       *handler.CostingHandler
	PurchaseOrder *handler.PurchaseOrderHandler
	Invoice       *handler.InvoiceHandler
	System        *handler.SystemHandler
}

// InvoiceImportPath is the upload route; main raises its body limit
const InvoiceImportPath = "/invoices/import"

// StoreGroup builds every store-scoped route under /stores/:store_id
func StoreGroup(h Handlers) *DomainGroup {
	stores := NewDomainGroup("stores", "/stores/:store_id")

	stores.Group("pnl", "/pnl").
		GET("", h.Report.GetPnL).
		GET("/products", h.Report.GetProductBreakdown).
		GET("/trend", h.Report.GetTrend)
	stores.POST("/references/refresh", h.Report.RefreshReferences)

	stores.POST("/orders/:order_id/allocate", h.Costing.AllocateOrder)
	stores.GET("/stock-valuation", h.Costing.GetStockValuation)
	stores.Group("products", "/products/:barcode").
		GET("/cost-history", h.Costing.GetCostHistory).
		POST("/redistribute", h.Costing.Redistribute).
		POST("/lots", h.Costing.ReceiveLot)

	stores.Group("purchase-orders", "/purchase-orders").
		POST("", h.PurchaseOrder.Create).
		POST("/:po_id/order", h.PurchaseOrder.MarkOrdered).
		POST("/:po_id/ship", h.PurchaseOrder.MarkShipped).
		POST("/:po_id/close", h.PurchaseOrder.Close).
		PUT("/:po_id/items/:item_id", h.PurchaseOrder.UpdateItem)

	stores.POST(InvoiceImportPath, h.Invoice.Import)

	return stores
}

// Mount registers /health, /ping and the versioned API on engine
func Mount(engine *gin.Engine, h Handlers, opts ...RouterOption) *Router {
	engine.GET("/health", h.System.Health)
	engine.GET("/ping", h.System.Ping)

	r := NewRouter(engine, opts...)
	r.Register(NewDomainGroup("system", "/system").GET("/info", h.System.GetSystemInfo))
	r.Register(StoreGroup(h))
	r.Setup()
	return r
}
