package handlers_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopsphere/order-fulfillment/internal/events"
	"github.com/shopsphere/order-fulfillment/internal/handlers"
	"github.com/shopsphere/order-fulfillment/internal/inventory"
	"github.com/shopsphere/order-fulfillment/internal/metrics"
	"github.com/shopsphere/order-fulfillment/internal/repository"
)

// orderEvent builds an event payload the way it arrives after JSON transport:
// maps and float64 numbers, not domain structs.
func orderEvent(eventType events.EventType, orderID, productID uuid.UUID, quantity int) events.Event {
	return events.Event{
		ID:        uuid.New(),
		EventType: eventType,
		Source:    "order-service",
		Payload: map[string]interface{}{
			"order_id": orderID.String(),
			"items": []interface{}{
				map[string]interface{}{
					"product_id": productID.String(),
					"quantity":   float64(quantity),
				},
			},
		},
	}
}

func newEventFixture(t *testing.T) (*handlers.OrderEventHandler, *inventory.Ledger, uuid.UUID) {
	t.Helper()

	ledger := inventory.NewLedger(
		repository.NewMemoryInventoryStore(),
		events.NewRecorder(),
		zap.NewNop(),
		metrics.NewUnregistered(),
	)

	productID := uuid.New()
	_, err := ledger.CreateRecord(context.Background(), inventory.CreateRecordRequest{
		ProductID: productID,
		SKU:       "EXT-1",
		Quantity:  10,
	})
	require.NoError(t, err)

	return handlers.NewOrderEventHandler(ledger, zap.NewNop()), ledger, productID
}

func reservedQuantity(t *testing.T, ledger *inventory.Ledger, productID uuid.UUID) int {
	t.Helper()
	rec, err := ledger.GetByProductID(context.Background(), productID)
	require.NoError(t, err)
	return rec.Reserved
}

func TestHandleOrderPlaced(t *testing.T) {
	handler, ledger, productID := newEventFixture(t)
	orderID := uuid.New()

	err := handler.HandleOrderEvent(orderEvent(events.OrderPlacedEvent, orderID, productID, 4))
	require.NoError(t, err)
	assert.Equal(t, 4, reservedQuantity(t, ledger, productID))
}

func TestHandleOrderPlacedRedelivery(t *testing.T) {
	handler, ledger, productID := newEventFixture(t)
	orderID := uuid.New()
	event := orderEvent(events.OrderPlacedEvent, orderID, productID, 4)

	require.NoError(t, handler.HandleOrderEvent(event))
	require.NoError(t, handler.HandleOrderEvent(event))

	assert.Equal(t, 4, reservedQuantity(t, ledger, productID), "redelivery must not double-reserve")
}

func TestHandleOrderCancelled(t *testing.T) {
	handler, ledger, productID := newEventFixture(t)
	orderID := uuid.New()

	require.NoError(t, handler.HandleOrderEvent(orderEvent(events.OrderPlacedEvent, orderID, productID, 4)))
	require.NoError(t, handler.HandleOrderEvent(orderEvent(events.OrderCancelledEvent, orderID, productID, 4)))

	assert.Equal(t, 0, reservedQuantity(t, ledger, productID))
}

func TestHandleUnknownEventTypeIgnored(t *testing.T) {
	handler, ledger, productID := newEventFixture(t)

	err := handler.HandleOrderEvent(events.Event{EventType: events.InventoryUpdatedEvent})
	require.NoError(t, err)
	assert.Equal(t, 0, reservedQuantity(t, ledger, productID))
}

func TestHandleMalformedPayload(t *testing.T) {
	handler, _, _ := newEventFixture(t)

	err := handler.HandleOrderEvent(events.Event{
		EventType: events.OrderPlacedEvent,
		Payload:   "not a map",
	})
	require.Error(t, err)
}
