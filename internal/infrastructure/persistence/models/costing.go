package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CostLotModel is the persistence model for the CostLot aggregate root
type CostLotModel struct {
	AggregateModel
	StoreID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cost_lot_product_seq,priority:1;index:idx_cost_lot_fifo,priority:1"`
	Barcode          string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_cost_lot_product_seq,priority:2;index:idx_cost_lot_fifo,priority:2"`
	Seq              int64           `gorm:"not null;uniqueIndex:idx_cost_lot_product_seq,priority:3;index:idx_cost_lot_fifo,priority:4"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	VATRate          decimal.Decimal `gorm:"column:vat_rate;type:decimal(9,4);not null;default:0"`
	ReceiptDate      time.Time       `gorm:"not null;index:idx_cost_lot_fifo,priority:3"`
	ConsumedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Source           string          `gorm:"type:varchar(20);not null"`
	SourceRef        *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	Depleted         bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (CostLotModel) TableName() string {
	return "cost_lots"
}

// ToDomain converts the persistence model to a domain CostLot
func (m *CostLotModel) ToDomain() *costing.CostLot {
	return &costing.CostLot{
		StoreAggregateRoot: shared.StoreAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: m.BaseModel.ToDomain(),
				Version:    m.Version,
			},
			StoreID: m.StoreID,
		},
		Barcode:            m.Barcode,
		Seq:                m.Seq,
		Quantity:           m.Quantity,
		UnitCost:           m.UnitCost,
		VATRate:            m.VATRate,
		ReceiptDate:        m.ReceiptDate,
		ConsumedQuantity:   m.ConsumedQuantity,
		Source:             costing.LotSource(m.Source),
		SourceRef:          m.SourceRef,
		Depleted:           m.Depleted,
	}
}

// FromDomain populates the persistence model from a domain CostLot
func (m *CostLotModel) FromDomain(l *costing.CostLot) {
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	m.StoreID = l.StoreID
	m.Barcode = l.Barcode
	m.Seq = l.Seq
	m.Quantity = l.Quantity
	m.UnitCost = l.UnitCost
	m.VATRate = l.VATRate
	m.ReceiptDate = l.ReceiptDate
	m.ConsumedQuantity = l.ConsumedQuantity
	m.Source = string(l.Source)
	m.SourceRef = l.SourceRef
	m.Depleted = l.Depleted
}

// CostLotModelFromDomain creates a new persistence model from a domain CostLot
func CostLotModelFromDomain(l *costing.CostLot) *CostLotModel {
	m := &CostLotModel{}
	m.FromDomain(l)
	return m
}

// LotConsumptionModel is one row of the consumption index
type LotConsumptionModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	StoreID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_lot_consumption_product,priority:1"`
	Barcode     string          `gorm:"type:varchar(64);not null;index:idx_lot_consumption_product,priority:2"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null"`
	OrderLineID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotID       *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	VATRate     decimal.Decimal `gorm:"column:vat_rate;type:decimal(9,4);not null;default:0"`
	ConsumedAt  time.Time       `gorm:"not null"`
	Source      string          `gorm:"type:varchar(20);not null"`
	Position    int             `gorm:"not null;default:0"` // keeps index order stable on reload
}

// TableName returns the table name for GORM
func (LotConsumptionModel) TableName() string {
	return "lot_consumptions"
}

// ToDomain converts the persistence model to a domain LotConsumption
func (m *LotConsumptionModel) ToDomain() costing.LotConsumption {
	return costing.LotConsumption{
		ID:          m.ID,
		StoreID:     m.StoreID,
		Barcode:     m.Barcode,
		OrderID:     m.OrderID,
		OrderLineID: m.OrderLineID,
		LotID:       m.LotID,
		Quantity:    m.Quantity,
		UnitCost:    m.UnitCost,
		VATRate:     m.VATRate,
		ConsumedAt:  m.ConsumedAt,
		Source:      costing.ConsumptionSource(m.Source),
	}
}

// LotConsumptionModelFromDomain creates a persistence model from a domain LotConsumption
func LotConsumptionModelFromDomain(c costing.LotConsumption, position int) *LotConsumptionModel {
	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &LotConsumptionModel{
		ID:          id,
		StoreID:     c.StoreID,
		Barcode:     c.Barcode,
		OrderID:     c.OrderID,
		OrderLineID: c.OrderLineID,
		LotID:       c.LotID,
		Quantity:    c.Quantity,
		UnitCost:    c.UnitCost,
		VATRate:     c.VATRate,
		ConsumedAt:  c.ConsumedAt,
		Source:      string(c.Source),
		Position:    position,
	}
}

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root
type PurchaseOrderModel struct {
	StoreAggregateModel
	OrderNumber         string                   `gorm:"type:varchar(50);not null"`
	OrderDate           time.Time                `gorm:"not null"`
	ReceiptDateOverride *time.Time
	Status              string                   `gorm:"type:varchar(20);not null;default:'draft'"`
	ClosedAt            *time.Time
	Revision            int                      `gorm:"not null;default:0"`
	ClosedRevision      int                      `gorm:"not null;default:0"`
	Items               []PurchaseOrderItemModel `gorm:"foreignKey:PurchaseOrderID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder
func (m *PurchaseOrderModel) ToDomain() *costing.PurchaseOrder {
	po := &costing.PurchaseOrder{
		StoreAggregateRoot:  m.ToDomainStoreAggregateRoot(),
		OrderNumber:         m.OrderNumber,
		OrderDate:           m.OrderDate,
		ReceiptDateOverride: m.ReceiptDateOverride,
		Status:              costing.PurchaseOrderStatus(m.Status),
		ClosedAt:            m.ClosedAt,
		Revision:            m.Revision,
		ClosedRevision:      m.ClosedRevision,
		Items:               make([]costing.PurchaseOrderItem, len(m.Items)),
	}
	for i, item := range m.Items {
		po.Items[i] = item.ToDomain()
	}
	return po
}

// PurchaseOrderModelFromDomain creates a persistence model from a domain PurchaseOrder
func PurchaseOrderModelFromDomain(po *costing.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{
		OrderNumber:         po.OrderNumber,
		OrderDate:           po.OrderDate,
		ReceiptDateOverride: po.ReceiptDateOverride,
		Status:              string(po.Status),
		ClosedAt:            po.ClosedAt,
		Revision:            po.Revision,
		ClosedRevision:      po.ClosedRevision,
		Items:               make([]PurchaseOrderItemModel, len(po.Items)),
	}
	m.FromDomainStoreAggregateRoot(po.StoreAggregateRoot)
	for i := range po.Items {
		m.Items[i] = *PurchaseOrderItemModelFromDomain(po.ID, &po.Items[i])
	}
	return m
}

// PurchaseOrderItemModel is the persistence model for a purchase order item
type PurchaseOrderItemModel struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primary_key"`
	PurchaseOrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Barcode             string          `gorm:"type:varchar(64);not null"`
	Quantity            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ManufacturingCost   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TransportationCost  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	VATRate             decimal.Decimal `gorm:"column:vat_rate;type:decimal(9,4);not null;default:0"`
	ReceiptDateOverride *time.Time
}

// TableName returns the table name for GORM
func (PurchaseOrderItemModel) TableName() string {
	return "purchase_order_items"
}

// ToDomain converts the persistence model to a domain PurchaseOrderItem
func (m *PurchaseOrderItemModel) ToDomain() costing.PurchaseOrderItem {
	return costing.PurchaseOrderItem{
		ID:                  m.ID,
		PurchaseOrderID:     m.PurchaseOrderID,
		Barcode:             m.Barcode,
		Quantity:            m.Quantity,
		ManufacturingCost:   m.ManufacturingCost,
		TransportationCost:  m.TransportationCost,
		VATRate:             m.VATRate,
		ReceiptDateOverride: m.ReceiptDateOverride,
	}
}

// PurchaseOrderItemModelFromDomain creates a persistence model from a domain PurchaseOrderItem
func PurchaseOrderItemModelFromDomain(poID uuid.UUID, i *costing.PurchaseOrderItem) *PurchaseOrderItemModel {
	return &PurchaseOrderItemModel{
		ID:                  i.ID,
		PurchaseOrderID:     poID,
		Barcode:             i.Barcode,
		Quantity:            i.Quantity,
		ManufacturingCost:   i.ManufacturingCost,
		TransportationCost:  i.TransportationCost,
		VATRate:             i.VATRate,
		ReceiptDateOverride: i.ReceiptDateOverride,
	}
}
