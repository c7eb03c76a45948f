package costing

import (
	"context"

	"github.com/google/uuid"
)

// CostLotRepository persists the lot log
type CostLotRepository interface {
	// FindByID finds a lot by its ID
	FindByID(ctx context.Context, storeID, id uuid.UUID) (*CostLot, error)

	// FindByBarcode returns all lots of a product ordered by (receipt date, seq)
	FindByBarcode(ctx context.Context, storeID uuid.UUID, barcode string) ([]*CostLot, error)

	// FindByStore returns all lots of a store ordered by barcode, receipt date and seq
	FindByStore(ctx context.Context, storeID uuid.UUID) ([]*CostLot, error)

	// FindBySourceRef finds the lot produced by a purchase order item
	FindBySourceRef(ctx context.Context, storeID, sourceRef uuid.UUID) (*CostLot, error)

	// NextSeq returns the next insertion sequence for a product
	NextSeq(ctx context.Context, storeID uuid.UUID, barcode string) (int64, error)

	// Create inserts a new lot
	Create(ctx context.Context, lot *CostLot) error

	// SaveWithLock updates a lot if its stored version is lot.Version-1,
	// returning a CONCURRENCY_CONFLICT error otherwise
	SaveWithLock(ctx context.Context, lot *CostLot) error
}

// ConsumptionRepository persists the consumption index
type ConsumptionRepository interface {
	// FindByBarcode returns the index rows of a product
	FindByBarcode(ctx context.Context, storeID uuid.UUID, barcode string) ([]LotConsumption, error)

	// FindByOrderLines returns the index rows of the given lines
	FindByOrderLines(ctx context.Context, storeID uuid.UUID, lineIDs []uuid.UUID) ([]LotConsumption, error)

	// Append adds rows for newly costed lines
	Append(ctx context.Context, rows []LotConsumption) error

	// ReplaceForBarcode swaps the whole index of a product for the rebuilt one
	ReplaceForBarcode(ctx context.Context, storeID uuid.UUID, barcode string, rows []LotConsumption) error
}

// PurchaseOrderRepository persists purchase orders with their items
type PurchaseOrderRepository interface {
	FindByID(ctx context.Context, storeID, id uuid.UUID) (*PurchaseOrder, error)
	Save(ctx context.Context, po *PurchaseOrder) error
}
