package persistence

import (
	"context"

	appcosting "github.com/sellerpnl/backend/internal/application/costing"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appcosting.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormTransactionalRepositories(tx))
	})
}

// gormTransactionalRepositories provides access to the costing repositories on one handle.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// NewGormTransactionalRepositories binds the costing repositories to db.
// Outside a transaction every call autocommits.
func NewGormTransactionalRepositories(db *gorm.DB) appcosting.TransactionalRepositories {
	return &gormTransactionalRepositories{tx: db}
}

func (r *gormTransactionalRepositories) LotRepo() costing.CostLotRepository {
	return NewGormCostLotRepository(r.tx)
}

func (r *gormTransactionalRepositories) ConsumptionRepo() costing.ConsumptionRepository {
	return NewGormConsumptionRepository(r.tx)
}

func (r *gormTransactionalRepositories) OrderRepo() trade.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) PurchaseOrderRepo() costing.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.tx)
}

var (
	_ appcosting.TransactionScope          = (*GormTransactionScope)(nil)
	_ appcosting.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
