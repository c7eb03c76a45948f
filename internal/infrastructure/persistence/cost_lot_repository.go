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

// GormCostLotRepository implements costing.CostLotRepository using GORM
type GormCostLotRepository struct {
	db *gorm.DB
}

// NewGormCostLotRepository creates a new GormCostLotRepository
func NewGormCostLotRepository(db *gorm.DB) *GormCostLotRepository {
	return &GormCostLotRepository{db: db}
}

// WithTx returns a new repository instance using the given transaction
func (r *GormCostLotRepository) WithTx(tx *gorm.DB) *GormCostLotRepository {
	return &GormCostLotRepository{db: tx}
}

// FindByID finds a lot by its ID
func (r *GormCostLotRepository) FindByID(ctx context.Context, storeID, id uuid.UUID) (*costing.CostLot, error) {
	var model models.CostLotModel
	if err := r.db.WithContext(ctx).Where("store_id = ? AND id = ?", storeID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Cost lot not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBarcode returns the lots of a product in FIFO order
func (r *GormCostLotRepository) FindByBarcode(ctx context.Context, storeID uuid.UUID, barcode string) ([]*costing.CostLot, error) {
	var rows []models.CostLotModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND barcode = ?", storeID, barcode).
		Order("receipt_date ASC, seq ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return lotsToDomain(rows), nil
}

// FindByStore returns every lot of a store ordered by barcode, receipt date and seq
func (r *GormCostLotRepository) FindByStore(ctx context.Context, storeID uuid.UUID) ([]*costing.CostLot, error) {
	var rows []models.CostLotModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("barcode ASC, receipt_date ASC, seq ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return lotsToDomain(rows), nil
}

// FindBySourceRef finds the lot created from a purchase order item
func (r *GormCostLotRepository) FindBySourceRef(ctx context.Context, storeID, sourceRef uuid.UUID) (*costing.CostLot, error) {
	var model models.CostLotModel
	if err := r.db.WithContext(ctx).Where("store_id = ? AND source_ref = ?", storeID, sourceRef).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Cost lot not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// NextSeq returns max(seq)+1 for the product
func (r *GormCostLotRepository) NextSeq(ctx context.Context, storeID uuid.UUID, barcode string) (int64, error) {
	var maxSeq int64
	if err := r.db.WithContext(ctx).
		Model(&models.CostLotModel{}).
		Where("store_id = ? AND barcode = ?", storeID, barcode).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return 0, err
	}
	return maxSeq + 1, nil
}

// Create inserts a new lot
func (r *GormCostLotRepository) Create(ctx context.Context, lot *costing.CostLot) error {
	return r.db.WithContext(ctx).Create(models.CostLotModelFromDomain(lot)).Error
}

// SaveWithLock updates a lot only if the stored version is lot.Version-1
func (r *GormCostLotRepository) SaveWithLock(ctx context.Context, lot *costing.CostLot) error {
	result := r.db.WithContext(ctx).
		Model(&models.CostLotModel{}).
		Where("id = ? AND version = ?", lot.ID, lot.Version-1).
		Updates(map[string]any{
			"quantity":          lot.Quantity,
			"unit_cost":         lot.UnitCost,
			"vat_rate":          lot.VATRate,
			"receipt_date":      lot.ReceiptDate,
			"consumed_quantity": lot.ConsumedQuantity,
			"depleted":          lot.Depleted,
			"version":           lot.Version,
			"updated_at":        lot.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "Cost lot was modified by another transaction")
	}
	return nil
}

func lotsToDomain(rows []models.CostLotModel) []*costing.CostLot {
	lots := make([]*costing.CostLot, len(rows))
	for i := range rows {
		lots[i] = rows[i].ToDomain()
	}
	return lots
}

// GormConsumptionRepository implements costing.ConsumptionRepository using GORM
type GormConsumptionRepository struct {
	db *gorm.DB
}

// NewGormConsumptionRepository creates a new GormConsumptionRepository
func NewGormConsumptionRepository(db *gorm.DB) *GormConsumptionRepository {
	return &GormConsumptionRepository{db: db}
}

// WithTx returns a new repository instance using the given transaction
func (r *GormConsumptionRepository) WithTx(tx *gorm.DB) *GormConsumptionRepository {
	return &GormConsumptionRepository{db: tx}
}

// FindByBarcode returns the index rows of a product in index order
func (r *GormConsumptionRepository) FindByBarcode(ctx context.Context, storeID uuid.UUID, barcode string) ([]costing.LotConsumption, error) {
	var rows []models.LotConsumptionModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND barcode = ?", storeID, barcode).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return consumptionsToDomain(rows), nil
}

// FindByOrderLines returns the index rows of the given lines
func (r *GormConsumptionRepository) FindByOrderLines(ctx context.Context, storeID uuid.UUID, lineIDs []uuid.UUID) ([]costing.LotConsumption, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}
	var rows []models.LotConsumptionModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND order_line_id IN ?", storeID, lineIDs).
		Order("consumed_at ASC, position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return consumptionsToDomain(rows), nil
}

// Append adds rows after the existing index of each product
func (r *GormConsumptionRepository) Append(ctx context.Context, rows []costing.LotConsumption) error {
	if len(rows) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	next := make(map[string]int)
	out := make([]*models.LotConsumptionModel, len(rows))
	for i, row := range rows {
		key := row.StoreID.String() + "/" + row.Barcode
		pos, ok := next[key]
		if !ok {
			var maxPos int
			if err := db.Model(&models.LotConsumptionModel{}).
				Where("store_id = ? AND barcode = ?", row.StoreID, row.Barcode).
				Select("COALESCE(MAX(position), -1)").
				Scan(&maxPos).Error; err != nil {
				return err
			}
			pos = maxPos + 1
		}
		out[i] = models.LotConsumptionModelFromDomain(row, pos)
		next[key] = pos + 1
	}
	return db.CreateInBatches(out, 500).Error
}

// ReplaceForBarcode deletes the product's index and inserts rows in its place.
// Callers run it inside a transaction.
func (r *GormConsumptionRepository) ReplaceForBarcode(ctx context.Context, storeID uuid.UUID, barcode string, rows []costing.LotConsumption) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("store_id = ? AND barcode = ?", storeID, barcode).
		Delete(&models.LotConsumptionModel{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	out := make([]*models.LotConsumptionModel, len(rows))
	for i, row := range rows {
		out[i] = models.LotConsumptionModelFromDomain(row, i)
	}
	return db.CreateInBatches(out, 500).Error
}

func consumptionsToDomain(rows []models.LotConsumptionModel) []costing.LotConsumption {
	out := make([]costing.LotConsumption, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// Ensure the repositories implement the domain interfaces
var (
	_ costing.CostLotRepository     = (*GormCostLotRepository)(nil)
	_ costing.ConsumptionRepository = (*GormConsumptionRepository)(nil)
)
