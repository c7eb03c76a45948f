package costing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/domain/seller"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/domain/shared/strategy"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/sellerpnl/backend/internal/infrastructure/logger"
	"github.com/sellerpnl/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const tracerService = "costing"

// CostingService owns every write to cost lots, the consumption index and the
// cost stamps on order lines. Writes are scoped per (store, barcode).
type CostingService struct {
	scope         TransactionScope
	repos         TransactionalRepositories
	stores        seller.StoreRepository
	locker        ProductLocker
	costStrategy  strategy.CostCalculationStrategy
	allocator     *costing.Allocator
	redistributor *costing.Redistributor
	options       Options
	logger        *zap.Logger
	metrics       *telemetry.BusinessMetrics
	now           func() time.Time
}

// NewCostingService creates a new CostingService. repos serves reads outside of a
// transaction; every write runs through scope.
func NewCostingService(
	scope TransactionScope,
	repos TransactionalRepositories,
	stores seller.StoreRepository,
	locker ProductLocker,
	costStrategy strategy.CostCalculationStrategy,
	options Options,
	log *zap.Logger,
) *CostingService {
	if log == nil {
		log = zap.NewNop()
	}
	allocator := costing.NewAllocator(costStrategy)
	return &CostingService{
		scope:         scope,
		repos:         repos,
		stores:        stores,
		locker:        locker,
		costStrategy:  costStrategy,
		allocator:     allocator,
		redistributor: costing.NewRedistributor(allocator),
		options:       options,
		logger:        log,
		now:           time.Now,
	}
}

// SetClock replaces the time source (tests)
func (s *CostingService) SetClock(now func() time.Time) {
	s.now = now
}

// SetBusinessMetrics sets the redistribution and conflict recorder
func (s *CostingService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.metrics = bm
}

// ReceiveLot appends a manual lot and redistributes the product when the new lot
// sorts before stock that was already consumed.
func (s *CostingService) ReceiveLot(ctx context.Context, cmd ReceiveLotCommand) (lot *costing.CostLot, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerService, "receive_lot",
		attribute.String("store_id", cmd.StoreID.String()),
		attribute.String("barcode", cmd.Barcode),
	)
	defer func() { telemetry.End(span, err) }()

	if err := s.ensureStore(ctx, cmd.StoreID); err != nil {
		return nil, err
	}
	if cmd.Source == "" {
		cmd.Source = costing.LotSourceManual
	}

	unlock, err := s.locker.Lock(ctx, cmd.StoreID, cmd.Barcode)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.withRetry(ctx, "receive_lot", func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			seq, err := repos.LotRepo().NextSeq(ctx, cmd.StoreID, cmd.Barcode)
			if err != nil {
				return fmt.Errorf("next lot seq: %w", err)
			}
			created, err := costing.NewCostLot(costing.ReceiveLotInput{
				StoreID:     cmd.StoreID,
				Barcode:     cmd.Barcode,
				Quantity:    cmd.Quantity,
				UnitCost:    cmd.UnitCost,
				VATRate:     cmd.VATRate,
				ReceiptDate: cmd.ReceiptDate,
				Source:      cmd.Source,
				Seq:         seq,
			})
			if err != nil {
				return err
			}
			if err := repos.LotRepo().Create(ctx, created); err != nil {
				return fmt.Errorf("create lot: %w", err)
			}
			if _, err := s.redistributeInTx(ctx, repos, cmd.StoreID, cmd.Barcode, created); err != nil {
				return err
			}
			lot = created
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// AllocateOrder stamps every uncosted line of an order with its FIFO cost.
// Lines that already carry a stamp are left alone.
func (s *CostingService) AllocateOrder(ctx context.Context, storeID, orderID uuid.UUID) (result *AllocationResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerService, "allocate_order",
		attribute.String("store_id", storeID.String()),
		attribute.String("order_id", orderID.String()),
	)
	defer func() { telemetry.End(span, err) }()

	if err := s.ensureStore(ctx, storeID); err != nil {
		return nil, err
	}
	order, err := s.repos.OrderRepo().FindByID(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.ConsumesStock() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Cancelled orders do not consume stock")
	}

	result = &AllocationResult{StoreID: storeID, OrderID: orderID}
	var barcodes []string
	seen := make(map[string]bool)
	for _, line := range order.Lines {
		if line.Validate() != nil || seen[line.Barcode] {
			continue
		}
		seen[line.Barcode] = true
		barcodes = append(barcodes, line.Barcode)
	}

	for _, barcode := range barcodes {
		costs, stamped, err := s.allocateProduct(ctx, storeID, orderID, barcode)
		if err != nil {
			return nil, err
		}
		result.AlreadyCosted += stamped
		depleted, missing := false, false
		for _, c := range costs {
			depleted = depleted || c.StockDepleted
			missing = missing || c.MissingCost
		}
		if depleted {
			result.StockDepleted = append(result.StockDepleted, barcode)
		}
		if missing {
			result.MissingCost = append(result.MissingCost, barcode)
		}
		result.Lines = append(result.Lines, costs...)
	}
	return result, nil
}

// allocateProduct costs the order's lines of one product. The order is re-read
// inside the transaction on every attempt, so a line stamped by a concurrent
// allocation is skipped instead of consumed twice.
func (s *CostingService) allocateProduct(ctx context.Context, storeID, orderID uuid.UUID, barcode string) (costs []trade.LineCost, alreadyCosted int, err error) {
	unlock, err := s.locker.Lock(ctx, storeID, barcode)
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	err = s.withRetry(ctx, "allocate_order", func() error {
		costs, alreadyCosted = nil, 0
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			order, err := repos.OrderRepo().FindByID(ctx, storeID, orderID)
			if err != nil {
				return err
			}
			if !order.Status.ConsumesStock() {
				return shared.NewDomainError(shared.CodeInvalidState, "Cancelled orders do not consume stock")
			}

			var lines []trade.OrderLine
			for _, line := range order.Lines {
				if line.Barcode != barcode {
					continue
				}
				if line.CostStamped {
					alreadyCosted++
					continue
				}
				if line.Validate() == nil {
					lines = append(lines, line)
				}
			}
			if len(lines) == 0 {
				return nil
			}

			lots, err := repos.LotRepo().FindByBarcode(ctx, storeID, barcode)
			if err != nil {
				return fmt.Errorf("load lots: %w", err)
			}
			ledger := costing.NewLotLedger(storeID, barcode, lots)
			for _, line := range lines {
				stamp, err := s.allocator.Consume(ctx, ledger, costing.Sale{
					OrderID:   order.ID,
					LineID:    line.ID,
					OrderDate: order.OrderDate,
					Quantity:  line.Quantity,
				})
				if err != nil {
					return err
				}
				costs = append(costs, lineCost(stamp))
			}

			if err := saveConsumedLots(ctx, repos, ledger, ledger.Entries()); err != nil {
				return err
			}
			if err := repos.ConsumptionRepo().Append(ctx, ledger.Entries()); err != nil {
				return fmt.Errorf("append consumption: %w", err)
			}
			if err := repos.OrderRepo().UpdateLineCosts(ctx, storeID, costs); err != nil {
				return fmt.Errorf("stamp order lines: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}

	for _, c := range costs {
		if c.StockDepleted || c.MissingCost {
			logger.L(ctx, s.logger).Info("sale costed without stock",
				append(logger.ProductFields(storeID.String(), barcode),
					zap.String("order_line_id", c.LineID.String()),
					zap.Bool("missing_cost", c.MissingCost),
				)...)
		}
	}
	return costs, alreadyCosted, nil
}

// Redistribute replays the whole sale history of a product against its lots
func (s *CostingService) Redistribute(ctx context.Context, storeID uuid.UUID, barcode string) (result *costing.RedistributionResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerService, "redistribute",
		attribute.String("store_id", storeID.String()),
		attribute.String("barcode", barcode),
	)
	defer func() { telemetry.End(span, err) }()

	if err := s.ensureStore(ctx, storeID); err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, storeID, barcode)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.withRetry(ctx, "redistribute", func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			result, err = s.redistributeInTx(ctx, repos, storeID, barcode, nil)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// OnPurchaseOrderClosed persists a purchase order that was closed in memory together
// with its effect on the lot log: a lot for every new item, revisions of edited
// items and a redistribution of each product whose consumed history changed.
// Everything commits in one transaction, so on failure the stored order keeps its
// previous state and can be closed again.
func (s *CostingService) OnPurchaseOrderClosed(ctx context.Context, po *costing.PurchaseOrder) (result *ClosureResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerService, "purchase_order_closed",
		attribute.String("store_id", po.StoreID.String()),
		attribute.String("purchase_order_id", po.ID.String()),
	)
	defer func() { telemetry.End(span, err) }()

	if po.Status != costing.PurchaseOrderStatusClosed {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Purchase order is not closed")
	}

	barcodes := po.Barcodes()
	// sorted so two closures sharing products cannot deadlock
	lockOrder := append([]string(nil), barcodes...)
	sort.Strings(lockOrder)
	for _, barcode := range lockOrder {
		unlock, err := s.locker.Lock(ctx, po.StoreID, barcode)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	err = s.withRetry(ctx, "purchase_order_closed", func() error {
		result = &ClosureResult{PurchaseOrderID: po.ID}
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			for _, barcode := range barcodes {
				created, revised, redistribution, err := s.applyClosure(ctx, repos, po, barcode)
				if err != nil {
					return fmt.Errorf("apply purchase order %s to %s: %w", po.OrderNumber, barcode, err)
				}
				result.CreatedLots = append(result.CreatedLots, created...)
				result.RevisedLots = append(result.RevisedLots, revised...)
				if redistribution != nil && redistribution.Replayed {
					result.Redistributions = append(result.Redistributions, redistribution)
				}
			}
			if err := repos.PurchaseOrderRepo().Save(ctx, po); err != nil {
				return fmt.Errorf("save purchase order: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx, s.logger).Info("purchase order applied to cost lots",
		zap.String("purchase_order_id", po.ID.String()),
		zap.Int("created", len(result.CreatedLots)),
		zap.Int("revised", len(result.RevisedLots)),
		zap.Int("redistributed", len(result.Redistributions)),
	)
	return result, nil
}

func (s *CostingService) applyClosure(ctx context.Context, repos TransactionalRepositories, po *costing.PurchaseOrder, barcode string) (created, revised []uuid.UUID, redistribution *costing.RedistributionResult, err error) {
	var trigger *costing.CostLot
	for _, item := range po.Items {
		if item.Barcode != barcode {
			continue
		}
		lot, changed, isNew, err := s.upsertItemLot(ctx, repos, po, item)
		if err != nil {
			return nil, nil, nil, err
		}
		switch {
		case isNew:
			created = append(created, lot.ID)
		case changed:
			revised = append(revised, lot.ID)
		default:
			continue
		}
		if trigger == nil || lot.SortsBefore(trigger) {
			trigger = lot
		}
	}
	if trigger == nil {
		return created, revised, nil, nil
	}
	redistribution, err = s.redistributeInTx(ctx, repos, po.StoreID, barcode, trigger)
	return created, revised, redistribution, err
}

func (s *CostingService) upsertItemLot(ctx context.Context, repos TransactionalRepositories, po *costing.PurchaseOrder, item costing.PurchaseOrderItem) (lot *costing.CostLot, changed, isNew bool, err error) {
	receipt := po.EffectiveReceiptDate(item)
	existing, err := repos.LotRepo().FindBySourceRef(ctx, po.StoreID, item.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, false, false, fmt.Errorf("find lot of item %s: %w", item.ID, err)
	}

	if existing != nil {
		if !existing.Differs(item.Quantity, item.UnitCost(), item.VATRate, receipt) {
			return existing, false, false, nil
		}
		if err := existing.Revise(item.Quantity, item.UnitCost(), item.VATRate, receipt); err != nil {
			return nil, false, false, err
		}
		existing.IncrementVersion()
		if err := repos.LotRepo().SaveWithLock(ctx, existing); err != nil {
			return nil, false, false, err
		}
		return existing, true, false, nil
	}

	seq, err := repos.LotRepo().NextSeq(ctx, po.StoreID, item.Barcode)
	if err != nil {
		return nil, false, false, fmt.Errorf("next lot seq: %w", err)
	}
	itemID := item.ID
	lot, err = costing.NewCostLot(costing.ReceiveLotInput{
		StoreID:     po.StoreID,
		Barcode:     item.Barcode,
		Quantity:    item.Quantity,
		UnitCost:    item.UnitCost(),
		VATRate:     item.VATRate,
		ReceiptDate: receipt,
		Source:      costing.LotSourcePurchaseOrder,
		SourceRef:   &itemID,
		Seq:         seq,
	})
	if err != nil {
		return nil, false, false, err
	}
	if err := repos.LotRepo().Create(ctx, lot); err != nil {
		return nil, false, false, fmt.Errorf("create lot: %w", err)
	}
	return lot, true, true, nil
}

// redistributeInTx rebuilds the index of one product inside an open transaction.
// A nil trigger forces a full replay.
func (s *CostingService) redistributeInTx(ctx context.Context, repos TransactionalRepositories, storeID uuid.UUID, barcode string, trigger *costing.CostLot) (*costing.RedistributionResult, error) {
	lots, err := repos.LotRepo().FindByBarcode(ctx, storeID, barcode)
	if err != nil {
		return nil, fmt.Errorf("load lots: %w", err)
	}
	ledger := costing.NewLotLedger(storeID, barcode, lots)
	consumptions, err := repos.ConsumptionRepo().FindByBarcode(ctx, storeID, barcode)
	if err != nil {
		return nil, fmt.Errorf("load consumption index: %w", err)
	}
	if trigger != nil {
		if stored, ok := ledger.Lot(trigger.ID); ok {
			trigger = stored
		}
		if !s.redistributor.NeedsRedistribution(ledger, consumptions, trigger) {
			return &costing.RedistributionResult{StoreID: storeID, Barcode: barcode, Discrepancy: decimal.Zero}, nil
		}
	}

	sold, err := repos.OrderRepo().FindSoldLines(ctx, storeID, barcode)
	if err != nil {
		return nil, fmt.Errorf("load sold lines: %w", err)
	}
	sales := make([]costing.Sale, 0, len(sold))
	for _, sl := range sold {
		if !sl.Status.ConsumesStock() || !sl.Line.CostStamped || sl.Line.Validate() != nil {
			continue
		}
		sales = append(sales, costing.Sale{
			OrderID:   sl.OrderID,
			LineID:    sl.Line.ID,
			OrderDate: sl.OrderDate,
			Quantity:  sl.Line.Quantity,
		})
	}

	before := make(map[uuid.UUID]lotState, len(lots))
	for _, lot := range ledger.Lots() {
		before[lot.ID] = lotState{consumed: lot.ConsumedQuantity, depleted: lot.Depleted}
	}

	result, err := s.redistributor.Redistribute(ctx, costing.RedistributionInput{
		Ledger:        ledger,
		Sales:         sales,
		Consumptions:  consumptions,
		Trigger:       trigger,
		Now:           s.now(),
		MaxReplayDays: s.options.MaxReplayDays,
	})
	if err != nil {
		return nil, err
	}
	if !result.Replayed {
		return result, nil
	}

	for _, lot := range ledger.Lots() {
		prev := before[lot.ID]
		if prev.consumed.Equal(lot.ConsumedQuantity) && prev.depleted == lot.Depleted {
			continue
		}
		lot.IncrementVersion()
		if err := repos.LotRepo().SaveWithLock(ctx, lot); err != nil {
			return nil, err
		}
	}
	if err := repos.ConsumptionRepo().ReplaceForBarcode(ctx, storeID, barcode, result.Consumptions); err != nil {
		return nil, fmt.Errorf("replace consumption index: %w", err)
	}
	if len(result.Changed) > 0 {
		costs := make([]trade.LineCost, 0, len(result.Changed))
		for _, lineID := range result.Changed {
			costs = append(costs, lineCost(result.Stamps[lineID]))
		}
		if err := repos.OrderRepo().UpdateLineCosts(ctx, storeID, costs); err != nil {
			return nil, fmt.Errorf("restamp order lines: %w", err)
		}
	}

	if s.metrics != nil {
		kind := "full"
		if trigger != nil {
			kind = "lot"
		}
		s.metrics.RecordRedistribution(ctx, kind, result.Discrepancy)
	}

	log := logger.L(ctx, s.logger).With(logger.ProductFields(storeID.String(), barcode)...)
	if result.Discrepancy.IsPositive() {
		log.Warn("redistribution inconsistency",
			zap.String("discrepancy", result.Discrepancy.String()),
			zap.Int("replayed_sales", result.ReplayedSales),
			zap.Int("carried_sales", result.CarriedSales),
		)
	}
	log.Info("redistributed product",
		zap.Timep("replay_from", result.ReplayFrom),
		zap.Int("replayed_sales", result.ReplayedSales),
		zap.Int("changed_lines", len(result.Changed)),
	)
	return result, nil
}

type lotState struct {
	consumed decimal.Decimal
	depleted bool
}

// GetCostHistory returns the lot log of a product in FIFO order
func (s *CostingService) GetCostHistory(ctx context.Context, storeID uuid.UUID, barcode string) ([]*costing.CostLot, error) {
	if err := s.ensureStore(ctx, storeID); err != nil {
		return nil, err
	}
	unlock, err := s.locker.RLock(ctx, storeID, barcode)
	if err != nil {
		return nil, err
	}
	defer unlock()

	lots, err := s.repos.LotRepo().FindByBarcode(ctx, storeID, barcode)
	if err != nil {
		return nil, err
	}
	return costing.NewLotLedger(storeID, barcode, lots).Lots(), nil
}

// GetStockValuation values the remaining stock of every product in a store
func (s *CostingService) GetStockValuation(ctx context.Context, storeID uuid.UUID) ([]costing.ProductValuation, error) {
	if err := s.ensureStore(ctx, storeID); err != nil {
		return nil, err
	}
	lots, err := s.repos.LotRepo().FindByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	byBarcode := make(map[string][]*costing.CostLot)
	for _, lot := range lots {
		byBarcode[lot.Barcode] = append(byBarcode[lot.Barcode], lot)
	}
	barcodes := make([]string, 0, len(byBarcode))
	for b := range byBarcode {
		barcodes = append(barcodes, b)
	}
	sort.Strings(barcodes)

	out := make([]costing.ProductValuation, 0, len(barcodes))
	for _, b := range barcodes {
		out = append(out, costing.Value(ctx, s.costStrategy, costing.NewLotLedger(storeID, b, byBarcode[b])))
	}
	return out, nil
}

func (s *CostingService) ensureStore(ctx context.Context, storeID uuid.UUID) error {
	if s.stores == nil {
		return nil
	}
	_, err := s.stores.FindByID(ctx, storeID)
	return err
}

// withRetry reruns fn while it fails with an optimistic-lock conflict
func (s *CostingService) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.options.MaxConflictRetries; attempt++ {
		if err = fn(); err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if attempt == s.options.MaxConflictRetries {
			break
		}
		if s.metrics != nil {
			s.metrics.RecordConflictRetry(ctx, op)
		}
		logger.L(ctx, s.logger).Debug("optimistic lock conflict, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
		)
	}
	if s.metrics != nil {
		s.metrics.RecordConflictGiveUp(ctx, op)
	}
	logger.L(ctx, s.logger).Warn("optimistic lock conflict, giving up",
		zap.String("operation", op),
		zap.Int("retries", s.options.MaxConflictRetries),
	)
	return err
}

// saveConsumedLots persists every lot the rows drew from
func saveConsumedLots(ctx context.Context, repos TransactionalRepositories, ledger *costing.LotLedger, rows []costing.LotConsumption) error {
	touched := make(map[uuid.UUID]bool)
	for _, row := range rows {
		if row.LotID == nil || touched[*row.LotID] {
			continue
		}
		touched[*row.LotID] = true
		lot, ok := ledger.Lot(*row.LotID)
		if !ok {
			continue
		}
		lot.IncrementVersion()
		if err := repos.LotRepo().SaveWithLock(ctx, lot); err != nil {
			return err
		}
	}
	return nil
}
