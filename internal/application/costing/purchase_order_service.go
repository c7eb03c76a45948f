package costing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/domain/seller"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// PurchaseOrderCloser stores a closed purchase order together with its cost lots
type PurchaseOrderCloser interface {
	OnPurchaseOrderClosed(ctx context.Context, po *costing.PurchaseOrder) (*ClosureResult, error)
}

// PurchaseOrderService drives the purchase order life cycle. Closing an order
// turns its items into cost lots before the closed status is stored, then
// publishes PurchaseOrderClosedEvent.
type PurchaseOrderService struct {
	repo           costing.PurchaseOrderRepository
	stores         seller.StoreRepository
	closer         PurchaseOrderCloser
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewPurchaseOrderService creates a new PurchaseOrderService. A nil closer stores
// closed orders without touching the lot log.
func NewPurchaseOrderService(repo costing.PurchaseOrderRepository, stores seller.StoreRepository, closer PurchaseOrderCloser, log *zap.Logger) *PurchaseOrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PurchaseOrderService{repo: repo, stores: stores, closer: closer, logger: log, now: time.Now}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PurchaseOrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create opens a draft purchase order with its items
func (s *PurchaseOrderService) Create(ctx context.Context, cmd CreatePurchaseOrderCommand) (*costing.PurchaseOrder, error) {
	if err := s.ensureStore(ctx, cmd.StoreID); err != nil {
		return nil, err
	}
	po, err := costing.NewPurchaseOrder(cmd.StoreID, cmd.OrderNumber, cmd.OrderDate)
	if err != nil {
		return nil, err
	}
	po.ReceiptDateOverride = cmd.ReceiptDateOverride
	for _, item := range cmd.Items {
		if _, err := po.AddItem(item.Barcode, item.Quantity, item.ManufacturingCost, item.TransportationCost, item.VATRate, item.ReceiptDateOverride); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Save(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// MarkOrdered moves a draft purchase order to ordered
func (s *PurchaseOrderService) MarkOrdered(ctx context.Context, storeID, poID uuid.UUID) (*costing.PurchaseOrder, error) {
	return s.mutate(ctx, storeID, poID, func(po *costing.PurchaseOrder) error { return po.MarkOrdered() })
}

// MarkShipped moves an ordered purchase order to shipped
func (s *PurchaseOrderService) MarkShipped(ctx context.Context, storeID, poID uuid.UUID) (*costing.PurchaseOrder, error) {
	return s.mutate(ctx, storeID, poID, func(po *costing.PurchaseOrder) error { return po.MarkShipped() })
}

// UpdateItem edits an item. Editing a closed order makes it eligible for re-closing.
func (s *PurchaseOrderService) UpdateItem(ctx context.Context, cmd UpdatePurchaseOrderItemCommand) (*costing.PurchaseOrder, error) {
	return s.mutate(ctx, cmd.StoreID, cmd.PurchaseOrderID, func(po *costing.PurchaseOrder) error {
		return po.UpdateItem(cmd.ItemID, cmd.Quantity, cmd.ManufacturingCost, cmd.TransportationCost, cmd.VATRate, cmd.ReceiptDateOverride)
	})
}

// Close finalizes the purchase order. The lots are applied in the same
// transaction that stores the closed status; a failure leaves the order as it was.
func (s *PurchaseOrderService) Close(ctx context.Context, storeID, poID uuid.UUID) (*costing.PurchaseOrder, error) {
	if err := s.ensureStore(ctx, storeID); err != nil {
		return nil, err
	}
	po, err := s.repo.FindByID(ctx, storeID, poID)
	if err != nil {
		return nil, err
	}
	if err := po.Close(s.now()); err != nil {
		return nil, err
	}
	if s.closer != nil {
		if _, err := s.closer.OnPurchaseOrderClosed(ctx, po); err != nil {
			return nil, err
		}
	} else if err := s.repo.Save(ctx, po); err != nil {
		return nil, err
	}
	logger.L(ctx, s.logger).Info("purchase order closed",
		zap.String("purchase_order_id", po.ID.String()),
		zap.String("order_number", po.OrderNumber),
		zap.Int("revision", po.Revision),
	)
	s.publishDomainEvents(ctx, po)
	return po, nil
}

func (s *PurchaseOrderService) mutate(ctx context.Context, storeID, poID uuid.UUID, fn func(po *costing.PurchaseOrder) error) (*costing.PurchaseOrder, error) {
	if err := s.ensureStore(ctx, storeID); err != nil {
		return nil, err
	}
	po, err := s.repo.FindByID(ctx, storeID, poID)
	if err != nil {
		return nil, err
	}
	if err := fn(po); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// publishDomainEvents publishes all pending events of the purchase order
func (s *PurchaseOrderService) publishDomainEvents(ctx context.Context, po *costing.PurchaseOrder) {
	events := po.GetDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	// the order is already committed; subscribers cannot undo it
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		logger.L(ctx, s.logger).Warn("failed to publish purchase order events",
			zap.String("purchase_order_id", po.ID.String()),
			zap.Error(err),
		)
	}
	po.ClearDomainEvents()
}

func (s *PurchaseOrderService) ensureStore(ctx context.Context, storeID uuid.UUID) error {
	if s.stores == nil {
		return nil
	}
	_, err := s.stores.FindByID(ctx, storeID)
	return err
}
