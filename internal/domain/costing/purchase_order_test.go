package costing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShippedPO(t *testing.T) *PurchaseOrder {
	t.Helper()
	po, err := NewPurchaseOrder(uuid.New(), "PO-001", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = po.AddItem("BC-1", decimal.NewFromInt(10), decimal.NewFromInt(4), decimal.NewFromInt(1), decimal.NewFromInt(20), nil)
	require.NoError(t, err)
	require.NoError(t, po.MarkOrdered())
	require.NoError(t, po.MarkShipped())
	return po
}

func TestPurchaseOrder_StateMachine(t *testing.T) {
	po, err := NewPurchaseOrder(uuid.New(), "PO-001", time.Now())
	require.NoError(t, err)
	assert.Equal(t, PurchaseOrderStatusDraft, po.Status)

	err = po.MarkOrdered()
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err), "empty order cannot be ordered")

	_, err = po.AddItem("BC-1", decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, decimal.Zero, nil)
	require.NoError(t, err)

	err = po.Close(time.Now())
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err), "draft cannot be closed")

	require.NoError(t, po.MarkOrdered())
	assert.Error(t, po.MarkOrdered())
	require.NoError(t, po.MarkShipped())
	require.NoError(t, po.Close(time.Now()))
	assert.Equal(t, PurchaseOrderStatusClosed, po.Status)
	assert.NotNil(t, po.ClosedAt)
}

func TestPurchaseOrder_CloseRaisesEvent(t *testing.T) {
	po := newShippedPO(t)
	require.NoError(t, po.Close(time.Now()))

	events := po.GetDomainEvents()
	require.Len(t, events, 1)
	closed, ok := events[0].(*PurchaseOrderClosedEvent)
	require.True(t, ok)
	assert.Equal(t, EventTypePurchaseOrderClosed, closed.EventType())
	assert.Equal(t, po.ID, closed.PurchaseOrderID)
	assert.Equal(t, po.StoreID, closed.StoreID())
	assert.Equal(t, []string{"BC-1"}, closed.Barcodes)
	assert.False(t, closed.Reclose)
}

func TestPurchaseOrder_Reclose(t *testing.T) {
	po := newShippedPO(t)
	require.NoError(t, po.Close(time.Now()))
	po.ClearDomainEvents()

	err := po.Close(time.Now())
	assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err), "unchanged order cannot be closed again")

	require.NoError(t, po.UpdateItem(po.Items[0].ID, decimal.NewFromInt(10), decimal.NewFromInt(3), decimal.NewFromInt(1), decimal.NewFromInt(20), nil))
	require.NoError(t, po.Close(time.Now()))

	events := po.GetDomainEvents()
	require.Len(t, events, 1)
	assert.True(t, events[0].(*PurchaseOrderClosedEvent).Reclose)
}

func TestPurchaseOrder_EffectiveReceiptDate(t *testing.T) {
	orderDate := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	orderOverride := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	itemOverride := time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC)

	po, err := NewPurchaseOrder(uuid.New(), "PO-9", orderDate)
	require.NoError(t, err)
	plain, err := po.AddItem("A", decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, decimal.Zero, nil)
	require.NoError(t, err)
	overridden, err := po.AddItem("B", decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, decimal.Zero, &itemOverride)
	require.NoError(t, err)

	assert.Equal(t, orderDate, po.EffectiveReceiptDate(*plain))

	po.SetReceiptDateOverride(&orderOverride)
	assert.Equal(t, orderOverride, po.EffectiveReceiptDate(*plain))
	assert.Equal(t, itemOverride, po.EffectiveReceiptDate(*overridden))
}

func TestPurchaseOrderItem_UnitCost(t *testing.T) {
	item := PurchaseOrderItem{ManufacturingCost: decimal.NewFromFloat(4.25), TransportationCost: decimal.NewFromFloat(0.75)}
	assert.True(t, decimal.NewFromInt(5).Equal(item.UnitCost()))
}

func TestPurchaseOrder_AddItemValidation(t *testing.T) {
	po, err := NewPurchaseOrder(uuid.New(), "PO-1", time.Now())
	require.NoError(t, err)

	_, err = po.AddItem("A", decimal.Zero, decimal.NewFromInt(1), decimal.Zero, decimal.Zero, nil)
	assert.Equal(t, shared.CodeInvalidQuantity, shared.CodeOf(err))

	_, err = po.AddItem("A", decimal.NewFromInt(1), decimal.NewFromInt(-1), decimal.Zero, decimal.Zero, nil)
	assert.Equal(t, shared.CodeInvalidCost, shared.CodeOf(err))
}
