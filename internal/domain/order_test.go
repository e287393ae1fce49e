package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	userID := uuid.New()
	items := []OrderItem{
		{ProductID: uuid.New(), Quantity: 3, UnitPrice: 25.50},
		{ProductID: uuid.New(), Quantity: 1, UnitPrice: 10.00},
	}

	order, err := NewOrder(userID, items, "USD")
	require.NoError(t, err)

	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, userID, order.UserID)
	assert.Equal(t, 86.50, order.TotalAmount)
	assert.Equal(t, "USD", order.Currency)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	assert.Nil(t, order.PaymentID)
}

func TestNewOrderRejectsEmptyItems(t *testing.T) {
	_, err := NewOrder(uuid.New(), nil, "USD")

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestNewOrderRejectsNonPositiveQuantity(t *testing.T) {
	items := []OrderItem{
		{ProductID: uuid.New(), Quantity: 0, UnitPrice: 10.00},
	}

	_, err := NewOrder(uuid.New(), items, "USD")

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"pending to confirmed", OrderStatusPending, OrderStatusConfirmed, true},
		{"pending to cancelled", OrderStatusPending, OrderStatusCancelled, true},
		{"pending to shipped", OrderStatusPending, OrderStatusShipped, false},
		{"pending to delivered", OrderStatusPending, OrderStatusDelivered, false},
		{"confirmed to cancelled", OrderStatusConfirmed, OrderStatusCancelled, true},
		{"confirmed to shipped", OrderStatusConfirmed, OrderStatusShipped, true},
		{"confirmed to pending", OrderStatusConfirmed, OrderStatusPending, false},
		{"shipped to delivered", OrderStatusShipped, OrderStatusDelivered, true},
		{"shipped to cancelled", OrderStatusShipped, OrderStatusCancelled, false},
		{"delivered is terminal", OrderStatusDelivered, OrderStatusCancelled, false},
		{"cancelled is terminal", OrderStatusCancelled, OrderStatusConfirmed, false},
		{"cancelled stays cancelled", OrderStatusCancelled, OrderStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &Order{Status: tt.from}

			err := order.TransitionTo(tt.to)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, order.Status)
				return
			}

			var transitionErr *InvalidTransitionError
			require.ErrorAs(t, err, &transitionErr)
			assert.Equal(t, tt.from, transitionErr.From)
			assert.Equal(t, tt.to, transitionErr.To)
			assert.Equal(t, tt.from, order.Status)
		})
	}
}

func TestAttachPayment(t *testing.T) {
	order, err := NewOrder(uuid.New(), []OrderItem{{ProductID: uuid.New(), Quantity: 1, UnitPrice: 5}}, "USD")
	require.NoError(t, err)

	paymentID := uuid.New()
	order.AttachPayment(paymentID)

	require.NotNil(t, order.PaymentID)
	assert.Equal(t, paymentID, *order.PaymentID)
}
