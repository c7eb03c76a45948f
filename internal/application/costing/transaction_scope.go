package costing

import (
	"context"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/domain/trade"
)

// TransactionScope provides transactional access to the costing repositories.
// All repository operations run by fn are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a transaction. An error from fn rolls it back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories touched when costing sales.
// Lots, the consumption index and the cost stamps on order lines must always move
// together, so every write goes through one of these sets.
type TransactionalRepositories interface {
	LotRepo() costing.CostLotRepository
	ConsumptionRepo() costing.ConsumptionRepository
	OrderRepo() trade.OrderRepository
	PurchaseOrderRepo() costing.PurchaseOrderRepository
}

// ProductLocker serializes writers of one product's lots.
// Lock is taken by every write (sale allocation, redistribution, lot receipts),
// RLock by cost history reads. Implementations may treat both sides as exclusive.
type ProductLocker interface {
	Lock(ctx context.Context, storeID uuid.UUID, barcode string) (unlock func(), err error)
	RLock(ctx context.Context, storeID uuid.UUID, barcode string) (unlock func(), err error)
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Useful for tests where atomicity is not under test.
type NoOpTransactionScope struct {
	repos TransactionalRepositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over repos
func NewNoOpTransactionScope(repos TransactionalRepositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
