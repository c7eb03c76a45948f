package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of a marketplace order
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusReturned  OrderStatus = "returned"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusCreated:
		return target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusShipped:
		return target == OrderStatusDelivered || target == OrderStatusReturned
	case OrderStatusDelivered:
		return target == OrderStatusReturned
	case OrderStatusCancelled, OrderStatusReturned:
		return false // Terminal states
	}
	return false
}

// CountsAsRevenue reports whether orders in this status contribute revenue
func (s OrderStatus) CountsAsRevenue() bool {
	return s != OrderStatusCancelled && s != OrderStatusReturned
}

// ConsumesStock reports whether orders in this status draw on cost lots
func (s OrderStatus) ConsumesStock() bool {
	return s != OrderStatusCancelled
}

// OrderLine is one product of an order
type OrderLine struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	Barcode             string
	Quantity            decimal.Decimal
	UnitPrice           decimal.Decimal  // gross, before discounts
	ActualCommission    *decimal.Decimal // settled by the marketplace
	EstimatedCommission *decimal.Decimal // estimate at order time

	// Cost stamp, changed only by allocation or redistribution
	UnitCost      decimal.Decimal
	CostVATRate   decimal.Decimal
	CostSource    string
	CostStamped   bool
	StockDepleted bool
	MissingCost   bool
}

// GrossAmount returns UnitPrice × Quantity
func (l *OrderLine) GrossAmount() decimal.Decimal {
	return l.UnitPrice.Mul(l.Quantity)
}

// TotalCost returns the stamped cost of the line
func (l *OrderLine) TotalCost() decimal.Decimal {
	return l.UnitCost.Mul(l.Quantity)
}

// Validate checks the line can be used in cost and profit calculations
func (l *OrderLine) Validate() error {
	if l.Barcode == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Order line has no barcode")
	}
	if !l.Quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Order line quantity must be positive")
	}
	if l.UnitPrice.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Order line price cannot be negative")
	}
	return nil
}

// ApplyCostStamp records the cost assigned to the line
func (l *OrderLine) ApplyCostStamp(stamp LineCost) {
	l.UnitCost = stamp.UnitCost
	l.CostVATRate = stamp.VATRate
	l.CostSource = stamp.Source
	l.CostStamped = true
	l.StockDepleted = stamp.StockDepleted
	l.MissingCost = stamp.MissingCost
}

// LineCost is a cost stamp addressed to an order line
type LineCost struct {
	LineID        uuid.UUID       `json:"line_id"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	Source        string          `json:"source"`
	StockDepleted bool            `json:"stock_depleted"`
	MissingCost   bool            `json:"missing_cost"`
}

// Order is a marketplace order with its lines
type Order struct {
	shared.StoreAggregateRoot
	OrderNumber           string
	OrderDate             time.Time
	Status                OrderStatus
	TotalPrice            decimal.Decimal
	SellerDiscount        decimal.Decimal
	PlatformDiscount      decimal.Decimal
	CouponDiscount        decimal.Decimal
	Settled               bool
	EstimatedShippingCost *decimal.Decimal
	ReturnShippingCost    *decimal.Decimal
	Lines                 []OrderLine
}

// NewOrder creates a new order in created status
func NewOrder(storeID uuid.UUID, orderNumber string, orderDate time.Time, totalPrice decimal.Decimal) (*Order, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Store ID cannot be empty")
	}
	if orderNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order number cannot be empty")
	}
	if totalPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Total price cannot be negative")
	}
	return &Order{
		StoreAggregateRoot: shared.NewStoreAggregateRoot(storeID),
		OrderNumber:        orderNumber,
		OrderDate:          orderDate,
		Status:             OrderStatusCreated,
		TotalPrice:         totalPrice,
		SellerDiscount:     decimal.Zero,
		PlatformDiscount:   decimal.Zero,
		CouponDiscount:     decimal.Zero,
		Lines:              make([]OrderLine, 0),
	}, nil
}

// AddLine appends a product line to the order
func (o *Order) AddLine(barcode string, quantity, unitPrice decimal.Decimal) (*OrderLine, error) {
	line := OrderLine{
		ID:        uuid.New(),
		OrderID:   o.ID,
		Barcode:   barcode,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	if err := line.Validate(); err != nil {
		return nil, err
	}
	o.Lines = append(o.Lines, line)
	o.UpdatedAt = time.Now()
	return &o.Lines[len(o.Lines)-1], nil
}

// Line returns a line by ID
func (o *Order) Line(id uuid.UUID) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i]
		}
	}
	return nil
}

// LineByBarcode returns the first line of a product
func (o *Order) LineByBarcode(barcode string) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].Barcode == barcode {
			return &o.Lines[i]
		}
	}
	return nil
}

// TransitionTo moves the order to a new status
func (o *Order) TransitionTo(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot move order from "+o.Status.String()+" to "+target.String())
	}
	o.Status = target
	o.IncrementVersion()
	return nil
}

// Settle records the marketplace's final commission per line
func (o *Order) Settle(commissions map[uuid.UUID]decimal.Decimal) {
	for i := range o.Lines {
		if c, ok := commissions[o.Lines[i].ID]; ok {
			value := c
			o.Lines[i].ActualCommission = &value
		}
	}
	o.Settled = true
	o.IncrementVersion()
}

// TotalDiscount sums seller, platform and coupon discounts
func (o *Order) TotalDiscount() decimal.Decimal {
	return o.SellerDiscount.Add(o.PlatformDiscount).Add(o.CouponDiscount)
}

// GrossLineTotal sums UnitPrice × Quantity over valid lines
func (o *Order) GrossLineTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Lines {
		if o.Lines[i].Validate() == nil {
			total = total.Add(o.Lines[i].GrossAmount())
		}
	}
	return total
}

// Units sums quantities over valid lines
func (o *Order) Units() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Lines {
		if o.Lines[i].Validate() == nil {
			total = total.Add(o.Lines[i].Quantity)
		}
	}
	return total
}

// LineRevenue pro-rates the order's total price onto a line by its gross share
func (o *Order) LineRevenue(line *OrderLine) decimal.Decimal {
	gross := o.GrossLineTotal()
	if gross.IsZero() {
		return decimal.Zero
	}
	return o.TotalPrice.Mul(line.GrossAmount()).Div(gross)
}
