package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
)

// OrderItem is snapshotted at order time and immutable after creation.
type OrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
}

type Order struct {
	ID            uuid.UUID   `json:"id"`
	OrderNumber   string      `json:"order_number"`
	UserID        uuid.UUID   `json:"user_id"`
	Status        OrderStatus `json:"status"`
	Items         []OrderItem `json:"items"`
	TotalAmount   float64     `json:"total_amount"`
	Currency      string      `json:"currency"`
	PaymentID     *uuid.UUID  `json:"payment_id,omitempty"`
	FailureReason string      `json:"failure_reason,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NewOrder creates a PENDING order with the priced line-item snapshot.
// Creating an order with no items is an input error, rejected before any
// state machine instance exists.
func NewOrder(userID uuid.UUID, items []OrderItem, currency string) (*Order, error) {
	if len(items) == 0 {
		return nil, NewValidationError("order must contain at least one item")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, NewValidationError(fmt.Sprintf("invalid quantity %d for product %s", item.Quantity, item.ProductID))
		}
	}

	var total float64
	for _, item := range items {
		total += item.UnitPrice * float64(item.Quantity)
	}

	id := uuid.New()
	now := time.Now()
	return &Order{
		ID:          id,
		OrderNumber: fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), id.String()[:8]),
		UserID:      userID,
		Status:      OrderStatusPending,
		Items:       items,
		TotalAmount: total,
		Currency:    currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanTransition reports whether the state machine permits moving to target.
// Transitions are one-directional; CANCELLED is reachable from PENDING and
// from CONFIRMED while the order has not shipped. SHIPPED and DELIVERED are
// reached by the shipping collaborator, outside this core.
func (o *Order) CanTransition(target OrderStatus) bool {
	switch o.Status {
	case OrderStatusPending:
		return target == OrderStatusConfirmed || target == OrderStatusCancelled
	case OrderStatusConfirmed:
		return target == OrderStatusCancelled || target == OrderStatusShipped
	case OrderStatusShipped:
		return target == OrderStatusDelivered
	default:
		return false
	}
}

func (o *Order) TransitionTo(target OrderStatus) error {
	if !o.CanTransition(target) {
		return &InvalidTransitionError{From: o.Status, To: target}
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

func (o *Order) AttachPayment(paymentID uuid.UUID) {
	o.PaymentID = &paymentID
	o.UpdatedAt = time.Now()
}

func (o *Order) SetFailureReason(reason string) {
	o.FailureReason = reason
	o.UpdatedAt = time.Now()
}
