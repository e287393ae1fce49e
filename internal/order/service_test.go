package order_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopsphere/order-fulfillment/internal/domain"
	"github.com/shopsphere/order-fulfillment/internal/order"
	"github.com/shopsphere/order-fulfillment/internal/repository"
)

func newServiceFixture() (*order.Service, *repository.MemoryOrderStore) {
	store := repository.NewMemoryOrderStore()
	return order.NewService(store, zap.NewNop()), store
}

func createOrder(t *testing.T, svc *order.Service) *domain.Order {
	t.Helper()
	o, err := svc.Create(context.Background(), uuid.New(), []domain.OrderItem{
		{ProductID: uuid.New(), Quantity: 2, UnitPrice: 15.00},
	}, "USD")
	require.NoError(t, err)
	return o
}

func TestCreateOrder(t *testing.T) {
	svc, _ := newServiceFixture()

	o := createOrder(t, svc)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, 30.00, o.TotalAmount)

	stored, err := svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, stored.OrderNumber)
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	svc, _ := newServiceFixture()

	_, err := svc.Create(context.Background(), uuid.New(), nil, "USD")

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestConfirmOrder(t *testing.T) {
	svc, _ := newServiceFixture()
	o := createOrder(t, svc)
	paymentID := uuid.New()

	require.NoError(t, svc.Confirm(context.Background(), o, paymentID))

	stored, err := svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, paymentID, *stored.PaymentID)
}

func TestCancelPendingOrder(t *testing.T) {
	svc, _ := newServiceFixture()
	o := createOrder(t, svc)

	cancelled, err := svc.Cancel(context.Background(), o.ID, "out of stock")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, "out of stock", cancelled.FailureReason)
}

func TestCancelConfirmedOrder(t *testing.T) {
	svc, _ := newServiceFixture()
	o := createOrder(t, svc)
	require.NoError(t, svc.Confirm(context.Background(), o, uuid.New()))

	cancelled, err := svc.Cancel(context.Background(), o.ID, "customer request")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
}

func TestCancelShippedOrderRejected(t *testing.T) {
	svc, store := newServiceFixture()
	o := createOrder(t, svc)
	require.NoError(t, svc.Confirm(context.Background(), o, uuid.New()))

	require.NoError(t, o.TransitionTo(domain.OrderStatusShipped))
	require.NoError(t, store.Update(context.Background(), o, domain.OrderStatusConfirmed))

	_, err := svc.Cancel(context.Background(), o.ID, "too late")

	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)

	stored, err := svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, stored.Status)
}

func TestConfirmLosesRaceToCancellation(t *testing.T) {
	svc, _ := newServiceFixture()
	o := createOrder(t, svc)

	// A concurrent user cancellation lands first; the saga still holds a
	// PENDING copy of the order.
	stale := *o
	_, err := svc.Cancel(context.Background(), o.ID, "cancelled by user")
	require.NoError(t, err)

	err = svc.Confirm(context.Background(), &stale, uuid.New())

	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, domain.OrderStatusCancelled, transitionErr.From)

	stored, err := svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, stored.Status)
	assert.Nil(t, stored.PaymentID)
}

func TestMarkCancelledLosesRaceToConfirmation(t *testing.T) {
	svc, _ := newServiceFixture()
	o := createOrder(t, svc)

	stale := *o
	require.NoError(t, svc.Confirm(context.Background(), o, uuid.New()))

	err := svc.MarkCancelled(context.Background(), &stale, "too slow")

	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, domain.OrderStatusConfirmed, transitionErr.From)

	stored, err := svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)
}

func TestCancelUnknownOrder(t *testing.T) {
	svc, _ := newServiceFixture()

	_, err := svc.Cancel(context.Background(), uuid.New(), "missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestListByUser(t *testing.T) {
	svc, _ := newServiceFixture()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), userID, []domain.OrderItem{
			{ProductID: uuid.New(), Quantity: 1, UnitPrice: 9.99},
		}, "USD")
		require.NoError(t, err)
	}
	createOrder(t, svc) // different user

	orders, err := svc.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, orders, 3)
}
