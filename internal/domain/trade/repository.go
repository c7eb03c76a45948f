package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
)

// SoldLine is an order line together with the order facts the costing engine needs
type SoldLine struct {
	OrderID   uuid.UUID
	OrderDate time.Time
	Status    OrderStatus
	Line      OrderLine
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID finds an order with its lines
	FindByID(ctx context.Context, storeID, id uuid.UUID) (*Order, error)

	// FindByIDs finds several orders with their lines
	FindByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]*Order, error)

	// FindRevenueOrders finds orders dated inside the range, excluding cancelled and returned ones
	FindRevenueOrders(ctx context.Context, storeID uuid.UUID, period shared.DateRange) ([]*Order, error)

	// FindSoldLines returns every stock-consuming line of a product
	FindSoldLines(ctx context.Context, storeID uuid.UUID, barcode string) ([]SoldLine, error)

	// Save creates or updates an order with its lines
	Save(ctx context.Context, order *Order) error

	// UpdateLineCosts writes cost stamps onto order lines
	UpdateLineCosts(ctx context.Context, storeID uuid.UUID, costs []LineCost) error
}

// ReturnClaimRepository defines the interface for return claim persistence
type ReturnClaimRepository interface {
	// FindByReturnDate finds claims whose return date falls in the range
	FindByReturnDate(ctx context.Context, storeID uuid.UUID, period shared.DateRange) ([]ReturnClaim, error)

	// Create inserts a claim
	Create(ctx context.Context, claim *ReturnClaim) error
}
