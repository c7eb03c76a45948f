package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "PurchaseOrder", uuid.New(), uuid.New())}
}

type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func toAny(handlers []shared.EventHandler) []any {
	out := make([]any, len(handlers))
	for i, h := range handlers {
		out[i] = h
	}
	return out
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("uses the handler's own event types", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := newTestHandler("PurchaseOrderClosed")
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(ctx, newTestEvent("PurchaseOrderClosed"), newTestEvent("CostLotReceived")))

		assert.Len(t, handler.handled, 1)
		assert.Equal(t, "PurchaseOrderClosed", handler.handled[0].EventType())
	})

	t.Run("handler errors and panics are counted, not returned", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		failing := newTestHandler("PurchaseOrderClosed")
		failing.err = errors.New("boom")
		panicking := newTestHandler("PurchaseOrderClosed")
		panicking.panicWith = "bad state"
		healthy := newTestHandler("PurchaseOrderClosed")
		bus.Subscribe(failing)
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		err := bus.Publish(ctx, newTestEvent("PurchaseOrderClosed"))

		assert.NoError(t, err)
		assert.Len(t, healthy.handled, 1)
		stats := bus.Stats()
		assert.Equal(t, int64(1), stats.Published)
		assert.Equal(t, int64(2), stats.Failed)
		assert.Equal(t, 3, stats.Handlers)
	})

	t.Run("unsubscribed handlers stop receiving", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := newTestHandler("PurchaseOrderClosed")
		bus.Subscribe(handler)
		bus.Unsubscribe(handler)

		require.NoError(t, bus.Publish(ctx, newTestEvent("PurchaseOrderClosed")))
		assert.Empty(t, handler.handled)
	})
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	assert.True(t, bus.Running())
	require.NoError(t, bus.Stop(context.Background()))
	assert.False(t, bus.Running())
}
