// Package memory keeps every repository in process memory. It backs the
// "memory" database driver and the application tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	appcosting "github.com/sellerpnl/backend/internal/application/costing"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/sellerpnl/backend/internal/domain/seller"
	"github.com/sellerpnl/backend/internal/domain/trade"
)

type productKey struct {
	storeID uuid.UUID
	barcode string
}

// data is one consistent version of the whole store
type data struct {
	stores         map[uuid.UUID]seller.Store
	lots           map[uuid.UUID]costing.CostLot
	consumptions   map[productKey][]costing.LotConsumption
	purchaseOrders map[uuid.UUID]costing.PurchaseOrder
	orders         map[uuid.UUID]trade.Order
	returns        map[uuid.UUID]trade.ReturnClaim
	invoices       map[uuid.UUID]finance.InvoiceLine
	expenses       map[uuid.UUID]finance.ExpenseDefinition
	references     map[productKey]finance.ProductReference
	adMetrics      map[uuid.UUID]finance.AdMetric
}

func newData() *data {
	return &data{
		stores:         make(map[uuid.UUID]seller.Store),
		lots:           make(map[uuid.UUID]costing.CostLot),
		consumptions:   make(map[productKey][]costing.LotConsumption),
		purchaseOrders: make(map[uuid.UUID]costing.PurchaseOrder),
		orders:         make(map[uuid.UUID]trade.Order),
		returns:        make(map[uuid.UUID]trade.ReturnClaim),
		invoices:       make(map[uuid.UUID]finance.InvoiceLine),
		expenses:       make(map[uuid.UUID]finance.ExpenseDefinition),
		references:     make(map[productKey]finance.ProductReference),
		adMetrics:      make(map[uuid.UUID]finance.AdMetric),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.stores {
		c.stores[k] = v
	}
	for k, v := range d.lots {
		c.lots[k] = v
	}
	for k, v := range d.consumptions {
		c.consumptions[k] = append([]costing.LotConsumption(nil), v...)
	}
	for k, v := range d.purchaseOrders {
		c.purchaseOrders[k] = copyPurchaseOrder(v)
	}
	for k, v := range d.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range d.returns {
		c.returns[k] = v
	}
	for k, v := range d.invoices {
		c.invoices[k] = v
	}
	for k, v := range d.expenses {
		c.expenses[k] = v
	}
	for k, v := range d.references {
		c.references[k] = v
	}
	for k, v := range d.adMetrics {
		c.adMetrics[k] = v
	}
	return c
}

// Store is an in-memory database. Transactions run one at a time against a
// private copy that replaces the live data on commit, so readers never see a
// half-applied redistribution.
type Store struct {
	mu   sync.RWMutex // guards data
	txMu sync.Mutex   // serializes writers
	data *data
}

// New creates an empty store
func New() *Store {
	return &Store{data: newData()}
}

// Execute runs fn against a copy of the data and publishes the copy if fn succeeds
func (s *Store) Execute(ctx context.Context, fn func(repos appcosting.TransactionalRepositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	working := s.data.clone()
	s.mu.RUnlock()

	if err := fn(&view{store: s, tx: working}); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = working
	s.mu.Unlock()
	return nil
}

// Repositories returns repositories that read the live data and commit each write on its own
func (s *Store) Repositories() appcosting.TransactionalRepositories {
	return &view{store: s}
}

// Stores returns the store repository
func (s *Store) Stores() seller.StoreRepository { return storeRepo{v: &view{store: s}} }

// Lots returns the cost lot repository
func (s *Store) Lots() costing.CostLotRepository { return lotRepo{v: &view{store: s}} }

// Consumptions returns the consumption index repository
func (s *Store) Consumptions() costing.ConsumptionRepository {
	return consumptionRepo{v: &view{store: s}}
}

// PurchaseOrders returns the purchase order repository
func (s *Store) PurchaseOrders() costing.PurchaseOrderRepository {
	return purchaseOrderRepo{v: &view{store: s}}
}

// Orders returns the order repository
func (s *Store) Orders() trade.OrderRepository { return orderRepo{v: &view{store: s}} }

// Returns returns the return claim repository
func (s *Store) Returns() trade.ReturnClaimRepository { return returnRepo{v: &view{store: s}} }

// Invoices returns the invoice repository
func (s *Store) Invoices() finance.InvoiceRepository { return invoiceRepo{v: &view{store: s}} }

// Expenses returns the expense repository
func (s *Store) Expenses() finance.ExpenseRepository { return expenseRepo{v: &view{store: s}} }

// References returns the product reference repository
func (s *Store) References() finance.ProductReferenceRepository {
	return referenceRepo{v: &view{store: s}}
}

// AdMetrics returns the advertising metric repository
func (s *Store) AdMetrics() finance.AdMetricRepository { return adMetricRepo{v: &view{store: s}} }

// view binds repositories either to a transaction copy or to the live data
type view struct {
	store *Store
	tx    *data
}

func (v *view) read(fn func(d *data) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	return fn(v.store.data)
}

// write mutates the live data in place; callers validate before mutating
func (v *view) write(fn func(d *data) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.txMu.Lock()
	defer v.store.txMu.Unlock()
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

func (v *view) LotRepo() costing.CostLotRepository { return lotRepo{v: v} }

func (v *view) ConsumptionRepo() costing.ConsumptionRepository { return consumptionRepo{v: v} }

func (v *view) OrderRepo() trade.OrderRepository { return orderRepo{v: v} }

func (v *view) PurchaseOrderRepo() costing.PurchaseOrderRepository { return purchaseOrderRepo{v: v} }

var (
	_ appcosting.TransactionScope          = (*Store)(nil)
	_ appcosting.TransactionalRepositories = (*view)(nil)
)
