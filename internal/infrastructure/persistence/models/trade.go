package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root
type OrderModel struct {
	StoreAggregateModel
	OrderNumber           string           `gorm:"type:varchar(64);not null"`
	OrderDate             time.Time        `gorm:"not null;index"`
	Status                string           `gorm:"type:varchar(20);not null;index"`
	TotalPrice            decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	SellerDiscount        decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	PlatformDiscount      decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	CouponDiscount        decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	Settled               bool             `gorm:"not null;default:false"`
	EstimatedShippingCost *decimal.Decimal `gorm:"type:decimal(18,4)"`
	ReturnShippingCost    *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Lines                 []OrderLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *trade.Order {
	o := &trade.Order{
		StoreAggregateRoot:    m.ToDomainStoreAggregateRoot(),
		OrderNumber:           m.OrderNumber,
		OrderDate:             m.OrderDate,
		Status:                trade.OrderStatus(m.Status),
		TotalPrice:            m.TotalPrice,
		SellerDiscount:        m.SellerDiscount,
		PlatformDiscount:      m.PlatformDiscount,
		CouponDiscount:        m.CouponDiscount,
		Settled:               m.Settled,
		EstimatedShippingCost: m.EstimatedShippingCost,
		ReturnShippingCost:    m.ReturnShippingCost,
		Lines:                 make([]trade.OrderLine, len(m.Lines)),
	}
	for i, line := range m.Lines {
		o.Lines[i] = line.ToDomain()
	}
	return o
}

// OrderModelFromDomain creates a persistence model from a domain Order
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{
		OrderNumber:           o.OrderNumber,
		OrderDate:             o.OrderDate,
		Status:                string(o.Status),
		TotalPrice:            o.TotalPrice,
		SellerDiscount:        o.SellerDiscount,
		PlatformDiscount:      o.PlatformDiscount,
		CouponDiscount:        o.CouponDiscount,
		Settled:               o.Settled,
		EstimatedShippingCost: o.EstimatedShippingCost,
		ReturnShippingCost:    o.ReturnShippingCost,
		Lines:                 make([]OrderLineModel, len(o.Lines)),
	}
	m.FromDomainStoreAggregateRoot(o.StoreAggregateRoot)
	for i := range o.Lines {
		m.Lines[i] = *OrderLineModelFromDomain(o.ID, &o.Lines[i])
	}
	return m
}

// OrderLineModel is the persistence model for an order line and its cost stamp
type OrderLineModel struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primary_key"`
	OrderID             uuid.UUID        `gorm:"type:uuid;not null;index"`
	Barcode             string           `gorm:"type:varchar(64);not null;index"`
	Quantity            decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	UnitPrice           decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	ActualCommission    *decimal.Decimal `gorm:"type:decimal(18,4)"`
	EstimatedCommission *decimal.Decimal `gorm:"type:decimal(18,4)"`
	UnitCost            decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	CostVATRate         decimal.Decimal  `gorm:"column:cost_vat_rate;type:decimal(9,4);not null;default:0"`
	CostSource          string           `gorm:"type:varchar(20);not null;default:''"`
	CostStamped         bool             `gorm:"not null;default:false"`
	StockDepleted       bool             `gorm:"not null;default:false"`
	MissingCost         bool             `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain OrderLine
func (m *OrderLineModel) ToDomain() trade.OrderLine {
	return trade.OrderLine{
		ID:                  m.ID,
		OrderID:             m.OrderID,
		Barcode:             m.Barcode,
		Quantity:            m.Quantity,
		UnitPrice:           m.UnitPrice,
		ActualCommission:    m.ActualCommission,
		EstimatedCommission: m.EstimatedCommission,
		UnitCost:            m.UnitCost,
		CostVATRate:         m.CostVATRate,
		CostSource:          m.CostSource,
		CostStamped:         m.CostStamped,
		StockDepleted:       m.StockDepleted,
		MissingCost:         m.MissingCost,
	}
}

// OrderLineModelFromDomain creates a persistence model from a domain OrderLine
func OrderLineModelFromDomain(orderID uuid.UUID, l *trade.OrderLine) *OrderLineModel {
	return &OrderLineModel{
		ID:                  l.ID,
		OrderID:             orderID,
		Barcode:             l.Barcode,
		Quantity:            l.Quantity,
		UnitPrice:           l.UnitPrice,
		ActualCommission:    l.ActualCommission,
		EstimatedCommission: l.EstimatedCommission,
		UnitCost:            l.UnitCost,
		CostVATRate:         l.CostVATRate,
		CostSource:          l.CostSource,
		CostStamped:         l.CostStamped,
		StockDepleted:       l.StockDepleted,
		MissingCost:         l.MissingCost,
	}
}

// ReturnClaimModel is the persistence model for a return claim
type ReturnClaimModel struct {
	ID          uuid.UUID        `gorm:"type:uuid;primary_key"`
	StoreID     uuid.UUID        `gorm:"type:uuid;not null;index:idx_return_claim_date,priority:1"`
	OrderID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	OrderLineID *uuid.UUID       `gorm:"type:uuid"`
	Barcode     string           `gorm:"type:varchar(64);not null"`
	Quantity    decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	ReturnDate  time.Time        `gorm:"not null;index:idx_return_claim_date,priority:2"`
	Resalable   bool             `gorm:"not null;default:false"`
	LossAmount  *decimal.Decimal `gorm:"type:decimal(18,4)"`
	CreatedAt   time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReturnClaimModel) TableName() string {
	return "return_claims"
}

// ToDomain converts the persistence model to a domain ReturnClaim
func (m *ReturnClaimModel) ToDomain() trade.ReturnClaim {
	return trade.ReturnClaim{
		ID:          m.ID,
		StoreID:     m.StoreID,
		OrderID:     m.OrderID,
		OrderLineID: m.OrderLineID,
		Barcode:     m.Barcode,
		Quantity:    m.Quantity,
		ReturnDate:  m.ReturnDate,
		Resalable:   m.Resalable,
		LossAmount:  m.LossAmount,
		CreatedAt:   m.CreatedAt,
	}
}

// ReturnClaimModelFromDomain creates a persistence model from a domain ReturnClaim
func ReturnClaimModelFromDomain(c *trade.ReturnClaim) *ReturnClaimModel {
	return &ReturnClaimModel{
		ID:          c.ID,
		StoreID:     c.StoreID,
		OrderID:     c.OrderID,
		OrderLineID: c.OrderLineID,
		Barcode:     c.Barcode,
		Quantity:    c.Quantity,
		ReturnDate:  c.ReturnDate,
		Resalable:   c.Resalable,
		LossAmount:  c.LossAmount,
		CreatedAt:   c.CreatedAt,
	}
}
