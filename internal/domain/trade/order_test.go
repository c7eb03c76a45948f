package trade

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusCreated, OrderStatusShipped, true},
		{OrderStatusCreated, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusReturned, true},
		{OrderStatusCancelled, OrderStatusCreated, false},
		{OrderStatusReturned, OrderStatusDelivered, false},
		{OrderStatusCreated, OrderStatusDelivered, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, OrderStatusDelivered.CountsAsRevenue())
	assert.False(t, OrderStatusCancelled.CountsAsRevenue())
	assert.False(t, OrderStatusReturned.CountsAsRevenue())
	assert.True(t, OrderStatusReturned.ConsumesStock())
	assert.False(t, OrderStatusCancelled.ConsumesStock())
}

func TestOrder_AddLine(t *testing.T) {
	order, err := NewOrder(uuid.New(), "TY-1", time.Now(), decimal.NewFromInt(180))
	require.NoError(t, err)

	_, err = order.AddLine("A", decimal.Zero, decimal.NewFromInt(10))
	assert.Equal(t, shared.CodeInvalidQuantity, shared.CodeOf(err))

	_, err = order.AddLine("", decimal.NewFromInt(1), decimal.NewFromInt(10))
	assert.Error(t, err)

	a, err := order.AddLine("A", decimal.NewFromInt(2), decimal.NewFromInt(50))
	require.NoError(t, err)
	b, err := order.AddLine("B", decimal.NewFromInt(1), decimal.NewFromInt(100))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(200).Equal(order.GrossLineTotal()))
	assert.True(t, decimal.NewFromInt(3).Equal(order.Units()))
	// 180 total price split 50/50 by gross amount
	assert.True(t, decimal.NewFromInt(90).Equal(order.LineRevenue(a)))
	assert.True(t, decimal.NewFromInt(90).Equal(order.LineRevenue(b)))
	assert.Equal(t, b.ID, order.LineByBarcode("B").ID)
}

func TestOrder_Settle(t *testing.T) {
	order, err := NewOrder(uuid.New(), "TY-2", time.Now(), decimal.NewFromInt(100))
	require.NoError(t, err)
	line, err := order.AddLine("A", decimal.NewFromInt(1), decimal.NewFromInt(100))
	require.NoError(t, err)

	order.Settle(map[uuid.UUID]decimal.Decimal{line.ID: decimal.NewFromInt(12)})
	assert.True(t, order.Settled)
	require.NotNil(t, order.Lines[0].ActualCommission)
	assert.True(t, decimal.NewFromInt(12).Equal(*order.Lines[0].ActualCommission))
}

func TestOrderLine_ApplyCostStamp(t *testing.T) {
	line := OrderLine{Quantity: decimal.NewFromInt(3)}
	line.ApplyCostStamp(LineCost{UnitCost: decimal.NewFromInt(4), Source: "fifo", StockDepleted: true})

	assert.True(t, line.CostStamped)
	assert.True(t, line.StockDepleted)
	assert.True(t, decimal.NewFromInt(12).Equal(line.TotalCost()))
}

func TestNewReturnClaim(t *testing.T) {
	_, err := NewReturnClaim(uuid.New(), uuid.New(), "A", decimal.Zero, time.Now())
	assert.Equal(t, shared.CodeInvalidQuantity, shared.CodeOf(err))

	claim, err := NewReturnClaim(uuid.New(), uuid.New(), "A", decimal.NewFromInt(2), time.Now())
	require.NoError(t, err)
	assert.False(t, claim.HasExplicitLoss())
}
