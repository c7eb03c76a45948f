package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceKind is the kind of a marketplace invoice line
type InvoiceKind string

const (
	InvoiceKindDeduction  InvoiceKind = "deduction"
	InvoiceKindCargo      InvoiceKind = "cargo"
	InvoiceKindCommission InvoiceKind = "commission"
)

// IsValid checks if the kind is a valid InvoiceKind
func (k InvoiceKind) IsValid() bool {
	switch k {
	case InvoiceKindDeduction, InvoiceKindCargo, InvoiceKindCommission:
		return true
	}
	return false
}

// InvoiceLine is one line of a marketplace invoice
type InvoiceLine struct {
	ID               uuid.UUID
	StoreID          uuid.UUID
	Kind             InvoiceKind
	TransactionType  string
	Description      string
	Amount           decimal.Decimal
	OrderID          *uuid.UUID
	OrderNumber      string
	Barcode          string
	InvoiceDate      time.Time
	CommissionRate   *decimal.Decimal // commission kind only, percent
	IsReturnShipment bool             // cargo kind only
}

// NewInvoiceLine creates an invoice line
func NewInvoiceLine(storeID uuid.UUID, kind InvoiceKind, amount decimal.Decimal, invoiceDate time.Time) (*InvoiceLine, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Store ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid invoice kind")
	}
	return &InvoiceLine{
		ID:          uuid.New(),
		StoreID:     storeID,
		Kind:        kind,
		Amount:      amount,
		InvoiceDate: invoiceDate,
	}, nil
}

// IsOutboundCargo reports whether the line is a forward shipping charge
func (l *InvoiceLine) IsOutboundCargo() bool {
	return l.Kind == InvoiceKindCargo && !l.IsReturnShipment
}

// IsReturnCargo reports whether the line is a return shipping charge
func (l *InvoiceLine) IsReturnCargo() bool {
	return l.Kind == InvoiceKindCargo && l.IsReturnShipment
}

// BelongsTo reports whether the line references the order
func (l *InvoiceLine) BelongsTo(orderID uuid.UUID) bool {
	return l.OrderID != nil && *l.OrderID == orderID
}

// CargoByOrder sums cargo amounts per order, split into outbound and return
func CargoByOrder(lines []InvoiceLine) (outbound, inbound map[uuid.UUID]decimal.Decimal) {
	outbound = make(map[uuid.UUID]decimal.Decimal)
	inbound = make(map[uuid.UUID]decimal.Decimal)
	for i := range lines {
		l := &lines[i]
		if l.Kind != InvoiceKindCargo || l.OrderID == nil {
			continue
		}
		if l.IsReturnShipment {
			inbound[*l.OrderID] = inbound[*l.OrderID].Add(l.Amount)
		} else {
			outbound[*l.OrderID] = outbound[*l.OrderID].Add(l.Amount)
		}
	}
	return outbound, inbound
}
