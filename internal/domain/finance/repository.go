package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
)

// InvoiceRepository defines the interface for marketplace invoice persistence
type InvoiceRepository interface {
	// FindByDateRange finds lines dated in the range, optionally restricted to kinds
	FindByDateRange(ctx context.Context, storeID uuid.UUID, period shared.DateRange, kinds ...InvoiceKind) ([]InvoiceLine, error)

	// FindByOrders finds lines of a kind referencing any of the orders, regardless of invoice date
	FindByOrders(ctx context.Context, storeID uuid.UUID, kind InvoiceKind, orderIDs []uuid.UUID) ([]InvoiceLine, error)

	// FindByKind finds every line of a kind
	FindByKind(ctx context.Context, storeID uuid.UUID, kind InvoiceKind) ([]InvoiceLine, error)

	// Create inserts an invoice line
	Create(ctx context.Context, line *InvoiceLine) error

	// CreateBatch inserts all lines or none
	CreateBatch(ctx context.Context, lines []*InvoiceLine) error
}

// ExpenseRepository defines the interface for expense definition persistence
type ExpenseRepository interface {
	// FindActive finds the store's active definitions
	FindActive(ctx context.Context, storeID uuid.UUID) ([]ExpenseDefinition, error)

	// Save creates or updates a definition
	Save(ctx context.Context, expense *ExpenseDefinition) error
}

// ProductReferenceRepository defines the interface for product reference persistence
type ProductReferenceRepository interface {
	// FindByStore finds every reference of a store
	FindByStore(ctx context.Context, storeID uuid.UUID) ([]ProductReference, error)

	// Upsert writes references keyed by (store, barcode)
	Upsert(ctx context.Context, refs []ProductReference) error
}

// AdMetricRepository defines the interface for advertising metric persistence
type AdMetricRepository interface {
	// FindOverlapping finds metrics whose period overlaps the range
	FindOverlapping(ctx context.Context, storeID uuid.UUID, period shared.DateRange) ([]AdMetric, error)

	// Save creates or updates a metric
	Save(ctx context.Context, metric *AdMetric) error
}
