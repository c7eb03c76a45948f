package costing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appcosting "github.com/sellerpnl/backend/internal/application/costing"
	"github.com/sellerpnl/backend/internal/domain/seller"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/sellerpnl/backend/internal/infrastructure/lock"
	"github.com/sellerpnl/backend/internal/infrastructure/persistence/memory"
	"github.com/sellerpnl/backend/internal/infrastructure/strategy/cost"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedOrders holds every FindByID call until all callers have arrived,
// so concurrent allocations all read the order before any of them commits
type gatedOrders struct {
	trade.OrderRepository
	arrived *sync.WaitGroup
}

func (r gatedOrders) FindByID(ctx context.Context, storeID, id uuid.UUID) (*trade.Order, error) {
	order, err := r.OrderRepository.FindByID(ctx, storeID, id)
	r.arrived.Done()
	r.arrived.Wait()
	return order, err
}

type gatedRepos struct {
	appcosting.TransactionalRepositories
	orders gatedOrders
}

func (r gatedRepos) OrderRepo() trade.OrderRepository { return r.orders }

// consumedTotal sums what the lots report as consumed and what the index records
func consumedTotal(t *testing.T, h *harness) (lots, index decimal.Decimal) {
	t.Helper()
	for _, lot := range h.lots(t) {
		lots = lots.Add(lot.ConsumedQuantity)
	}
	rows, err := h.mem.Consumptions().FindByBarcode(context.Background(), h.store.ID, barcode)
	require.NoError(t, err)
	for _, row := range rows {
		index = index.Add(row.Quantity)
	}
	return lots, index
}

func TestCostingService_ConcurrentAllocationOfOneOrder(t *testing.T) {
	const callers = 4
	mem := memory.New()
	store, err := seller.NewStore("costing", "")
	require.NoError(t, err)
	require.NoError(t, mem.Stores().Save(context.Background(), store))

	var arrived sync.WaitGroup
	arrived.Add(callers)
	repos := gatedRepos{
		TransactionalRepositories: mem.Repositories(),
		orders:                    gatedOrders{OrderRepository: mem.Orders(), arrived: &arrived},
	}
	svc := appcosting.NewCostingService(mem, repos, mem.Stores(), lock.NewMemoryLocker(),
		cost.NewFIFOCostStrategy(), appcosting.DefaultOptions(), nil)
	svc.SetClock(func() time.Time { return date(2024, time.March, 1) })
	h := &harness{mem: mem, store: store, svc: svc}

	h.receive(t, "10", "5", date(2024, time.January, 1))
	o := h.order(t, "3", date(2024, time.January, 5))

	var wg sync.WaitGroup
	results := make(chan *appcosting.AllocationResult, callers)
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.AllocateOrder(context.Background(), store.ID, o.ID)
			errs <- err
			results <- res
		}()
	}
	wg.Wait()
	close(errs)
	close(results)

	for err := range errs {
		require.NoError(t, err)
	}
	stamped, skipped := 0, 0
	for res := range results {
		stamped += len(res.Lines)
		skipped += res.AlreadyCosted
	}
	assert.Equal(t, 1, stamped, "exactly one caller stamps the line")
	assert.Equal(t, callers-1, skipped)

	lots, index := consumedTotal(t, h)
	assert.True(t, lots.Equal(dec("3")), "lot consumed %s", lots)
	assert.True(t, index.Equal(dec("3")), "index consumed %s", index)
}

func TestCostingService_ConcurrentSalesAndRedistribution(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.receive(t, "50", "5", date(2024, time.January, 1))
	h.receive(t, "50", "7", date(2024, time.February, 1))

	const sales = 12
	orders := make([]*trade.Order, 0, sales)
	for i := range sales {
		orders = append(orders, h.order(t, "3", date(2024, time.February, 1+i)))
	}

	var wg sync.WaitGroup
	errs := make(chan error, sales+2)
	for _, o := range orders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.AllocateOrder(ctx, h.store.ID, o.ID)
			errs <- err
		}()
	}
	// a backdated receipt and a manual replay race the sales
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := h.svc.ReceiveLot(ctx, appcosting.ReceiveLotCommand{
			StoreID:     h.store.ID,
			Barcode:     barcode,
			Quantity:    dec("20"),
			UnitCost:    dec("4"),
			ReceiptDate: date(2023, time.December, 1),
		})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := h.svc.Redistribute(ctx, h.store.ID, barcode)
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	sold := dec("3").Mul(decimal.NewFromInt(sales))
	lots, index := consumedTotal(t, h)
	assert.True(t, lots.Equal(sold), "lot consumed %s, sold %s", lots, sold)
	assert.True(t, index.Equal(sold), "index consumed %s, sold %s", index, sold)
	for _, o := range orders {
		assert.True(t, h.line(t, o).CostStamped)
	}

	// the backdated lot is consumed first once everything settles
	oldest := h.lots(t)[0]
	assert.True(t, oldest.UnitCost.Equal(dec("4")))
	assert.True(t, oldest.Depleted)

	// sales were costed in arrival order; one replay puts them in date order
	_, err := h.svc.Redistribute(ctx, h.store.ID, barcode)
	require.NoError(t, err)
	res, err := h.svc.Redistribute(ctx, h.store.ID, barcode)
	require.NoError(t, err)
	assert.Empty(t, res.Changed)
	lots, index = consumedTotal(t, h)
	assert.True(t, lots.Equal(sold))
	assert.True(t, index.Equal(sold))
}
