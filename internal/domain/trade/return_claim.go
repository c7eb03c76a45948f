package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReturnClaim records units of an order coming back. It is read-only after creation.
type ReturnClaim struct {
	ID          uuid.UUID
	StoreID     uuid.UUID
	OrderID     uuid.UUID
	OrderLineID *uuid.UUID
	Barcode     string
	Quantity    decimal.Decimal
	ReturnDate  time.Time
	Resalable   bool
	LossAmount  *decimal.Decimal // explicit loss recorded by the seller
	CreatedAt   time.Time
}

// NewReturnClaim validates and creates a return claim
func NewReturnClaim(storeID, orderID uuid.UUID, barcode string, quantity decimal.Decimal, returnDate time.Time) (*ReturnClaim, error) {
	if storeID == uuid.Nil || orderID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Store and order are required")
	}
	if barcode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Barcode cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Returned quantity must be positive")
	}
	return &ReturnClaim{
		ID:         uuid.New(),
		StoreID:    storeID,
		OrderID:    orderID,
		Barcode:    barcode,
		Quantity:   quantity,
		ReturnDate: returnDate,
		CreatedAt:  time.Now(),
	}, nil
}

// HasExplicitLoss reports whether the seller recorded the loss amount
func (c *ReturnClaim) HasExplicitLoss() bool {
	return c.LossAmount != nil
}
