package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// InvoiceLineModel is the persistence model for a marketplace invoice line
type InvoiceLineModel struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key"`
	StoreID          uuid.UUID        `gorm:"type:uuid;not null;index:idx_invoice_line_date,priority:1"`
	Kind             string           `gorm:"type:varchar(20);not null;index:idx_invoice_line_date,priority:2"`
	TransactionType  string           `gorm:"type:varchar(100);not null;default:''"`
	Description      string           `gorm:"type:text;not null;default:''"`
	Amount           decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	OrderID          *uuid.UUID       `gorm:"type:uuid;index"`
	OrderNumber      string           `gorm:"type:varchar(64);not null;default:''"`
	Barcode          string           `gorm:"type:varchar(64);not null;default:''"`
	InvoiceDate      time.Time        `gorm:"not null;index:idx_invoice_line_date,priority:3"`
	CommissionRate   *decimal.Decimal `gorm:"type:decimal(9,4)"`
	IsReturnShipment bool             `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (InvoiceLineModel) TableName() string {
	return "invoice_lines"
}

// ToDomain converts the persistence model to a domain InvoiceLine
func (m *InvoiceLineModel) ToDomain() finance.InvoiceLine {
	return finance.InvoiceLine{
		ID:               m.ID,
		StoreID:          m.StoreID,
		Kind:             finance.InvoiceKind(m.Kind),
		TransactionType:  m.TransactionType,
		Description:      m.Description,
		Amount:           m.Amount,
		OrderID:          m.OrderID,
		OrderNumber:      m.OrderNumber,
		Barcode:          m.Barcode,
		InvoiceDate:      m.InvoiceDate,
		CommissionRate:   m.CommissionRate,
		IsReturnShipment: m.IsReturnShipment,
	}
}

// InvoiceLineModelFromDomain creates a persistence model from a domain InvoiceLine
func InvoiceLineModelFromDomain(l *finance.InvoiceLine) *InvoiceLineModel {
	return &InvoiceLineModel{
		ID:               l.ID,
		StoreID:          l.StoreID,
		Kind:             string(l.Kind),
		TransactionType:  l.TransactionType,
		Description:      l.Description,
		Amount:           l.Amount,
		OrderID:          l.OrderID,
		OrderNumber:      l.OrderNumber,
		Barcode:          l.Barcode,
		InvoiceDate:      l.InvoiceDate,
		CommissionRate:   l.CommissionRate,
		IsReturnShipment: l.IsReturnShipment,
	}
}

// ExpenseDefinitionModel is the persistence model for a recurring expense
type ExpenseDefinitionModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	StoreID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Frequency string          `gorm:"type:varchar(20);not null"`
	Category  string          `gorm:"type:varchar(50);not null;default:'other'"`
	CreatedAt time.Time       `gorm:"not null"`
	EndDate   *time.Time
	Active    bool `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ExpenseDefinitionModel) TableName() string {
	return "expense_definitions"
}

// ToDomain converts the persistence model to a domain ExpenseDefinition
func (m *ExpenseDefinitionModel) ToDomain() finance.ExpenseDefinition {
	return finance.ExpenseDefinition{
		ID:        m.ID,
		StoreID:   m.StoreID,
		Name:      m.Name,
		Amount:    m.Amount,
		Frequency: finance.ExpenseFrequency(m.Frequency),
		Category:  m.Category,
		CreatedAt: m.CreatedAt,
		EndDate:   m.EndDate,
		Active:    m.Active,
	}
}

// ExpenseDefinitionModelFromDomain creates a persistence model from a domain ExpenseDefinition
func ExpenseDefinitionModelFromDomain(e *finance.ExpenseDefinition) *ExpenseDefinitionModel {
	return &ExpenseDefinitionModel{
		ID:        e.ID,
		StoreID:   e.StoreID,
		Name:      e.Name,
		Amount:    e.Amount,
		Frequency: string(e.Frequency),
		Category:  e.Category,
		CreatedAt: e.CreatedAt,
		EndDate:   e.EndDate,
		Active:    e.Active,
	}
}

// ProductReferenceModel holds last-known commission and shipping rates of a product
type ProductReferenceModel struct {
	StoreID             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Barcode             string           `gorm:"type:varchar(64);primaryKey"`
	CommissionRate      *decimal.Decimal `gorm:"type:decimal(9,4)"`
	ShippingCostPerUnit *decimal.Decimal `gorm:"type:decimal(18,4)"`
	UpdatedAt           time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductReferenceModel) TableName() string {
	return "product_references"
}

// ToDomain converts the persistence model to a domain ProductReference
func (m *ProductReferenceModel) ToDomain() finance.ProductReference {
	return finance.ProductReference{
		StoreID:             m.StoreID,
		Barcode:             m.Barcode,
		CommissionRate:      m.CommissionRate,
		ShippingCostPerUnit: m.ShippingCostPerUnit,
		UpdatedAt:           m.UpdatedAt,
	}
}

// ProductReferenceModelFromDomain creates a persistence model from a domain ProductReference
func ProductReferenceModelFromDomain(r *finance.ProductReference) *ProductReferenceModel {
	return &ProductReferenceModel{
		StoreID:             r.StoreID,
		Barcode:             r.Barcode,
		CommissionRate:      r.CommissionRate,
		ShippingCostPerUnit: r.ShippingCostPerUnit,
		UpdatedAt:           r.UpdatedAt,
	}
}

// AdMetricModel is the persistence model for advertising metrics of a product
type AdMetricModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	StoreID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_ad_metric_period,priority:1"`
	Barcode        string          `gorm:"type:varchar(64);not null"`
	PeriodStart    time.Time       `gorm:"not null;index:idx_ad_metric_period,priority:2"`
	PeriodEnd      time.Time       `gorm:"not null;index:idx_ad_metric_period,priority:3"`
	CostPerClick   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ConversionRate decimal.Decimal `gorm:"type:decimal(9,6);not null"`
}

// TableName returns the table name for GORM
func (AdMetricModel) TableName() string {
	return "ad_metrics"
}

// ToDomain converts the persistence model to a domain AdMetric
func (m *AdMetricModel) ToDomain() finance.AdMetric {
	return finance.AdMetric{
		ID:             m.ID,
		StoreID:        m.StoreID,
		Barcode:        m.Barcode,
		PeriodStart:    m.PeriodStart,
		PeriodEnd:      m.PeriodEnd,
		CostPerClick:   m.CostPerClick,
		ConversionRate: m.ConversionRate,
	}
}

// AdMetricModelFromDomain creates a persistence model from a domain AdMetric
func AdMetricModelFromDomain(a *finance.AdMetric) *AdMetricModel {
	return &AdMetricModel{
		ID:             a.ID,
		StoreID:        a.StoreID,
		Barcode:        a.Barcode,
		PeriodStart:    a.PeriodStart,
		PeriodEnd:      a.PeriodEnd,
		CostPerClick:   a.CostPerClick,
		ConversionRate: a.ConversionRate,
	}
}
