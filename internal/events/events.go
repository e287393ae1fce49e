package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopsphere/order-fulfillment/internal/domain"
)

type EventType string

const (
	// Order events
	OrderPlacedEvent    EventType = "order.placed"
	OrderConfirmedEvent EventType = "order.confirmed"
	OrderCancelledEvent EventType = "order.cancelled"

	// Payment events
	PaymentCompletedEvent EventType = "payment.completed"
	PaymentFailedEvent    EventType = "payment.failed"

	// Inventory events
	InventoryUpdatedEvent EventType = "inventory.updated"
	LowStockAlertEvent    EventType = "inventory.low_stock"
)

// Event is the envelope every outbound message travels in. Delivery is
// at-least-once; consumers must be idempotent.
type Event struct {
	ID            uuid.UUID   `json:"id"`
	EventType     EventType   `json:"event_type"`
	Payload       interface{} `json:"payload"`
	OccurredAt    time.Time   `json:"occurred_at"`
	Source        string      `json:"source"`
	CorrelationID uuid.UUID   `json:"correlation_id"`
}

func New(eventType EventType, source string, payload interface{}) Event {
	return Event{
		ID:            uuid.New(),
		EventType:     eventType,
		Payload:       payload,
		OccurredAt:    time.Now(),
		Source:        source,
		CorrelationID: uuid.New(),
	}
}

type OrderPayload struct {
	OrderID     uuid.UUID          `json:"order_id"`
	UserID      uuid.UUID          `json:"user_id"`
	Items       []domain.OrderItem `json:"items"`
	Status      domain.OrderStatus `json:"status"`
	TotalAmount float64            `json:"total_amount"`
	Reason      string             `json:"reason,omitempty"`
}

func NewOrderPayload(order *domain.Order) OrderPayload {
	return OrderPayload{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Items:       order.Items,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Reason:      order.FailureReason,
	}
}

type InventoryUpdatedPayload struct {
	InventoryID       uuid.UUID `json:"inventory_id"`
	ProductID         uuid.UUID `json:"product_id"`
	SKU               string    `json:"sku"`
	Quantity          int       `json:"quantity"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	NeedsReorder      bool      `json:"needs_reorder"`
}

func NewInventoryUpdatedPayload(record *domain.InventoryRecord) InventoryUpdatedPayload {
	return InventoryUpdatedPayload{
		InventoryID:       record.ID,
		ProductID:         record.ProductID,
		SKU:               record.SKU,
		Quantity:          record.Quantity,
		ReservedQuantity:  record.Reserved,
		AvailableQuantity: record.Available(),
		NeedsReorder:      record.NeedsReorder(),
	}
}

type LowStockPayload struct {
	InventoryID       uuid.UUID `json:"inventory_id"`
	ProductID         uuid.UUID `json:"product_id"`
	SKU               string    `json:"sku"`
	AvailableQuantity int       `json:"available_quantity"`
	ReorderLevel      int       `json:"reorder_level"`
	ReorderQuantity   int       `json:"reorder_quantity"`
}

type PaymentPayload struct {
	OrderID       uuid.UUID `json:"order_id"`
	UserID        uuid.UUID `json:"user_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}
