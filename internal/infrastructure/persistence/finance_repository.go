package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/sellerpnl/backend/internal/domain/seller"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements finance.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByDateRange finds lines dated in the range, optionally restricted to kinds
func (r *GormInvoiceRepository) FindByDateRange(ctx context.Context, storeID uuid.UUID, period shared.DateRange, kinds ...finance.InvoiceKind) ([]finance.InvoiceLine, error) {
	query := r.db.WithContext(ctx).
		Where("store_id = ? AND invoice_date >= ? AND invoice_date <= ?", storeID, period.Start, period.End)
	if len(kinds) > 0 {
		query = query.Where("kind IN ?", kindStrings(kinds))
	}
	return r.find(query)
}

// FindByOrders finds lines of a kind referencing any of the orders
func (r *GormInvoiceRepository) FindByOrders(ctx context.Context, storeID uuid.UUID, kind finance.InvoiceKind, orderIDs []uuid.UUID) ([]finance.InvoiceLine, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	return r.find(r.db.WithContext(ctx).
		Where("store_id = ? AND kind = ? AND order_id IN ?", storeID, string(kind), orderIDs))
}

// FindByKind finds every line of a kind
func (r *GormInvoiceRepository) FindByKind(ctx context.Context, storeID uuid.UUID, kind finance.InvoiceKind) ([]finance.InvoiceLine, error) {
	return r.find(r.db.WithContext(ctx).Where("store_id = ? AND kind = ?", storeID, string(kind)))
}

// Create inserts an invoice line
func (r *GormInvoiceRepository) Create(ctx context.Context, line *finance.InvoiceLine) error {
	return r.db.WithContext(ctx).Create(models.InvoiceLineModelFromDomain(line)).Error
}

// invoiceBatchSize bounds the rows per INSERT statement
const invoiceBatchSize = 500

// CreateBatch inserts the lines in one transaction
func (r *GormInvoiceRepository) CreateBatch(ctx context.Context, lines []*finance.InvoiceLine) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]*models.InvoiceLineModel, len(lines))
	for i, l := range lines {
		rows[i] = models.InvoiceLineModelFromDomain(l)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, invoiceBatchSize).Error
	})
}

func (r *GormInvoiceRepository) find(query *gorm.DB) ([]finance.InvoiceLine, error) {
	var rows []models.InvoiceLineModel
	if err := query.Order("invoice_date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]finance.InvoiceLine, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

func kindStrings(kinds []finance.InvoiceKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// GormExpenseRepository implements finance.ExpenseRepository using GORM
type GormExpenseRepository struct {
	db *gorm.DB
}

// NewGormExpenseRepository creates a new GormExpenseRepository
func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

// FindActive finds the store's active definitions
func (r *GormExpenseRepository) FindActive(ctx context.Context, storeID uuid.UUID) ([]finance.ExpenseDefinition, error) {
	var rows []models.ExpenseDefinitionModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND active = ?", storeID, true).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]finance.ExpenseDefinition, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a definition
func (r *GormExpenseRepository) Save(ctx context.Context, expense *finance.ExpenseDefinition) error {
	return r.db.WithContext(ctx).Save(models.ExpenseDefinitionModelFromDomain(expense)).Error
}

// GormProductReferenceRepository implements finance.ProductReferenceRepository using GORM
type GormProductReferenceRepository struct {
	db *gorm.DB
}

// NewGormProductReferenceRepository creates a new GormProductReferenceRepository
func NewGormProductReferenceRepository(db *gorm.DB) *GormProductReferenceRepository {
	return &GormProductReferenceRepository{db: db}
}

// FindByStore finds every reference of a store
func (r *GormProductReferenceRepository) FindByStore(ctx context.Context, storeID uuid.UUID) ([]finance.ProductReference, error) {
	var rows []models.ProductReferenceModel
	if err := r.db.WithContext(ctx).Where("store_id = ?", storeID).Order("barcode ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]finance.ProductReference, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Upsert writes references keyed by (store, barcode)
func (r *GormProductReferenceRepository) Upsert(ctx context.Context, refs []finance.ProductReference) error {
	if len(refs) == 0 {
		return nil
	}
	rows := make([]*models.ProductReferenceModel, len(refs))
	for i := range refs {
		rows[i] = models.ProductReferenceModelFromDomain(&refs[i])
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_id"}, {Name: "barcode"}},
		DoUpdates: clause.AssignmentColumns([]string{"commission_rate", "shipping_cost_per_unit", "updated_at"}),
	}).Create(rows).Error
}

// GormAdMetricRepository implements finance.AdMetricRepository using GORM
type GormAdMetricRepository struct {
	db *gorm.DB
}

// NewGormAdMetricRepository creates a new GormAdMetricRepository
func NewGormAdMetricRepository(db *gorm.DB) *GormAdMetricRepository {
	return &GormAdMetricRepository{db: db}
}

// FindOverlapping finds metrics whose period overlaps the range
func (r *GormAdMetricRepository) FindOverlapping(ctx context.Context, storeID uuid.UUID, period shared.DateRange) ([]finance.AdMetric, error) {
	var rows []models.AdMetricModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND period_start <= ? AND period_end >= ?", storeID, period.End, period.Start).
		Order("period_end ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]finance.AdMetric, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a metric
func (r *GormAdMetricRepository) Save(ctx context.Context, metric *finance.AdMetric) error {
	return r.db.WithContext(ctx).Save(models.AdMetricModelFromDomain(metric)).Error
}

// GormStoreRepository implements seller.StoreRepository using GORM
type GormStoreRepository struct {
	db *gorm.DB
}

// NewGormStoreRepository creates a new GormStoreRepository
func NewGormStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

// FindByID returns shared.ErrStoreNotFound for unknown stores
func (r *GormStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*seller.Store, error) {
	var model models.StoreModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrStoreNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every store, oldest first
func (r *GormStoreRepository) FindAll(ctx context.Context) ([]*seller.Store, error) {
	var rows []models.StoreModel
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*seller.Store, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Save creates or updates a store
func (r *GormStoreRepository) Save(ctx context.Context, store *seller.Store) error {
	return r.db.WithContext(ctx).Save(models.StoreModelFromDomain(store)).Error
}

var (
	_ finance.InvoiceRepository          = (*GormInvoiceRepository)(nil)
	_ finance.ExpenseRepository          = (*GormExpenseRepository)(nil)
	_ finance.ProductReferenceRepository = (*GormProductReferenceRepository)(nil)
	_ finance.AdMetricRepository         = (*GormAdMetricRepository)(nil)
	_ seller.StoreRepository             = (*GormStoreRepository)(nil)
)
