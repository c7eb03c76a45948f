package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/sellerpnl/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx returns a new repository instance using the given transaction
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: tx}
}

// FindByID finds an order with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, storeID, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("store_id = ? AND id = ?", storeID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Order not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds several orders with their lines
func (r *GormOrderRepository) FindByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]*trade.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("store_id = ? AND id IN ?", storeID, ids).
		Order("order_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(rows), nil
}

// FindRevenueOrders finds orders dated in the range that still count as revenue
func (r *GormOrderRepository) FindRevenueOrders(ctx context.Context, storeID uuid.UUID, period shared.DateRange) ([]*trade.Order, error) {
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("store_id = ? AND order_date >= ? AND order_date <= ?", storeID, period.Start, period.End).
		Where("status NOT IN ?", []string{string(trade.OrderStatusCancelled), string(trade.OrderStatusReturned)}).
		Order("order_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return ordersToDomain(rows), nil
}

type soldLineRow struct {
	models.OrderLineModel `gorm:"embedded"`
	OrderDate             time.Time
	Status                string
}

// FindSoldLines returns every stock-consuming line of a product in sale order
func (r *GormOrderRepository) FindSoldLines(ctx context.Context, storeID uuid.UUID, barcode string) ([]trade.SoldLine, error) {
	var rows []soldLineRow
	if err := r.db.WithContext(ctx).
		Table("order_lines").
		Select("order_lines.*, orders.order_date, orders.status").
		Joins("JOIN orders ON orders.id = order_lines.order_id").
		Where("orders.store_id = ? AND order_lines.barcode = ? AND orders.status <> ?",
			storeID, barcode, string(trade.OrderStatusCancelled)).
		Order("orders.order_date ASC, orders.id ASC, order_lines.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]trade.SoldLine, len(rows))
	for i := range rows {
		out[i] = trade.SoldLine{
			OrderID:   rows[i].OrderID,
			OrderDate: rows[i].OrderDate,
			Status:    trade.OrderStatus(rows[i].Status),
			Line:      rows[i].OrderLineModel.ToDomain(),
		}
	}
	return out, nil
}

// Save creates or updates an order, replacing its lines
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.OrderModelFromDomain(order)
		if err := tx.Omit("Lines").Save(model).Error; err != nil {
			return err
		}

		lineIDs := make([]uuid.UUID, len(order.Lines))
		for i, line := range order.Lines {
			lineIDs[i] = line.ID
		}
		remove := tx.Where("order_id = ?", order.ID)
		if len(lineIDs) > 0 {
			remove = remove.Where("id NOT IN ?", lineIDs)
		}
		if err := remove.Delete(&models.OrderLineModel{}).Error; err != nil {
			return err
		}

		for i := range model.Lines {
			if err := tx.Save(&model.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateLineCosts writes cost stamps onto the store's order lines
func (r *GormOrderRepository) UpdateLineCosts(ctx context.Context, storeID uuid.UUID, costs []trade.LineCost) error {
	db := r.db.WithContext(ctx)
	owned := db.Model(&models.OrderModel{}).Select("id").Where("store_id = ?", storeID)
	for _, c := range costs {
		result := db.Model(&models.OrderLineModel{}).
			Where("id = ? AND order_id IN (?)", c.LineID, owned).
			Updates(map[string]any{
				"unit_cost":      c.UnitCost,
				"cost_vat_rate":  c.VATRate,
				"cost_source":    c.Source,
				"cost_stamped":   true,
				"stock_depleted": c.StockDepleted,
				"missing_cost":   c.MissingCost,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError(shared.CodeNotFound, "Order line not found: "+c.LineID.String())
		}
	}
	return nil
}

func ordersToDomain(rows []models.OrderModel) []*trade.Order {
	out := make([]*trade.Order, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// GormReturnClaimRepository implements trade.ReturnClaimRepository using GORM
type GormReturnClaimRepository struct {
	db *gorm.DB
}

// NewGormReturnClaimRepository creates a new GormReturnClaimRepository
func NewGormReturnClaimRepository(db *gorm.DB) *GormReturnClaimRepository {
	return &GormReturnClaimRepository{db: db}
}

// FindByReturnDate finds claims whose return date falls in the range
func (r *GormReturnClaimRepository) FindByReturnDate(ctx context.Context, storeID uuid.UUID, period shared.DateRange) ([]trade.ReturnClaim, error) {
	var rows []models.ReturnClaimModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND return_date >= ? AND return_date <= ?", storeID, period.Start, period.End).
		Order("return_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]trade.ReturnClaim, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Create inserts a claim
func (r *GormReturnClaimRepository) Create(ctx context.Context, claim *trade.ReturnClaim) error {
	return r.db.WithContext(ctx).Create(models.ReturnClaimModelFromDomain(claim)).Error
}

var (
	_ trade.OrderRepository       = (*GormOrderRepository)(nil)
	_ trade.ReturnClaimRepository = (*GormReturnClaimRepository)(nil)
)
