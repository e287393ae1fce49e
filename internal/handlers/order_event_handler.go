package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopsphere/order-fulfillment/internal/domain"
	"github.com/shopsphere/order-fulfillment/internal/events"
	"github.com/shopsphere/order-fulfillment/internal/inventory"
	"github.com/shopsphere/order-fulfillment/internal/messaging"
)

// OrderEventHandler is the inbound channel by which the ledger learns about
// orders placed or cancelled outside this service. Delivery is at-least-once;
// the ledger's duplicate-reservation guard keeps redelivered ORDER_PLACED
// events from double-reserving, and releases clamp, so handling is
// idempotent end to end.
type OrderEventHandler struct {
	ledger *inventory.Ledger
	log    *zap.Logger
}

func NewOrderEventHandler(ledger *inventory.Ledger, log *zap.Logger) *OrderEventHandler {
	return &OrderEventHandler{ledger: ledger, log: log}
}

func (h *OrderEventHandler) StartConsuming(consumer *messaging.Consumer) error {
	routingKeys := []string{
		"fulfillment.order-service.order.placed",
		"fulfillment.order-service.order.cancelled",
	}

	return consumer.ConsumeEvents(routingKeys, h.HandleOrderEvent)
}

func (h *OrderEventHandler) HandleOrderEvent(event events.Event) error {
	switch event.EventType {
	case events.OrderPlacedEvent:
		return h.handleOrderPlaced(event)
	case events.OrderCancelledEvent:
		return h.handleOrderCancelled(event)
	default:
		h.log.Debug("ignoring event type", zap.String("event_type", string(event.EventType)))
		return nil
	}
}

func (h *OrderEventHandler) handleOrderPlaced(event events.Event) error {
	orderID, items, err := decodeOrderPayload(event.Payload)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		h.log.Warn("placed order has no items to reserve",
			zap.String("order_id", orderID.String()))
		return nil
	}

	ctx := context.Background()
	for _, item := range items {
		_, err := h.ledger.Reserve(ctx, inventory.ReserveRequest{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			ReferenceID: orderID,
			Reason:      "Order placed: " + orderID.String(),
		})
		if errors.Is(err, domain.ErrDuplicateReservation) {
			// Redelivery of an event we already applied.
			continue
		}
		if err != nil {
			h.log.Error("failed to reserve stock for external order",
				zap.String("order_id", orderID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err))
			continue
		}
	}
	return nil
}

func (h *OrderEventHandler) handleOrderCancelled(event events.Event) error {
	orderID, items, err := decodeOrderPayload(event.Payload)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		h.log.Warn("cancelled order has no items to release",
			zap.String("order_id", orderID.String()))
		return nil
	}

	ctx := context.Background()
	for _, item := range items {
		_, err := h.ledger.Release(ctx, inventory.ReserveRequest{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			ReferenceID: orderID,
			Reason:      "Order cancelled: " + orderID.String(),
		})
		if err != nil {
			h.log.Error("failed to release stock for cancelled order",
				zap.String("order_id", orderID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err))
			continue
		}
	}
	return nil
}

// decodeOrderPayload extracts the order ID and line items from a decoded
// JSON payload.
func decodeOrderPayload(payload interface{}) (uuid.UUID, []domain.OrderItem, error) {
	payloadMap, ok := payload.(map[string]interface{})
	if !ok {
		return uuid.Nil, nil, fmt.Errorf("invalid order event payload format")
	}

	orderIDStr, ok := payloadMap["order_id"].(string)
	if !ok {
		return uuid.Nil, nil, fmt.Errorf("order event payload is missing order_id")
	}
	orderID, err := uuid.Parse(orderIDStr)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("invalid order_id in event payload: %w", err)
	}

	itemsData, ok := payloadMap["items"].([]interface{})
	if !ok {
		return orderID, nil, nil
	}

	var items []domain.OrderItem
	for _, itemData := range itemsData {
		itemMap, ok := itemData.(map[string]interface{})
		if !ok {
			continue
		}

		var item domain.OrderItem
		if productIDStr, ok := itemMap["product_id"].(string); ok {
			if productID, err := uuid.Parse(productIDStr); err == nil {
				item.ProductID = productID
			}
		}
		if quantity, ok := itemMap["quantity"].(float64); ok {
			item.Quantity = int(quantity)
		}
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			continue
		}
		items = append(items, item)
	}

	return orderID, items, nil
}
