package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPurchaseOrderRepository implements costing.PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// WithTx returns a new repository instance using the given transaction
func (r *GormPurchaseOrderRepository) WithTx(tx *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: tx}
}

// FindByID finds a purchase order with its items
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, storeID, id uuid.UUID) (*costing.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("store_id = ? AND id = ?", storeID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Purchase order not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a purchase order, replacing its items
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, po *costing.PurchaseOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.PurchaseOrderModelFromDomain(po)

		// Save the order without auto-saving associations
		if err := tx.Omit("Items").Save(model).Error; err != nil {
			return err
		}

		currentItemIDs := make([]uuid.UUID, len(po.Items))
		for i, item := range po.Items {
			currentItemIDs[i] = item.ID
		}
		remove := tx.Where("purchase_order_id = ?", po.ID)
		if len(currentItemIDs) > 0 {
			remove = remove.Where("id NOT IN ?", currentItemIDs)
		}
		if err := remove.Delete(&models.PurchaseOrderItemModel{}).Error; err != nil {
			return err
		}

		for i := range model.Items {
			if err := tx.Save(&model.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

var _ costing.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
