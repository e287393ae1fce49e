package order

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopsphere/order-fulfillment/internal/domain"
)

// Store owns order persistence. Implementations live in internal/repository.
// Update persists o only while the stored status still equals from; when a
// concurrent transition won the race it fails with InvalidTransitionError
// carrying the status actually on record.
type Store interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order, from domain.OrderStatus) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
}

// Service guards the order state machine. All status changes go through
// transition, so an illegal move is rejected before anything is persisted.
type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, items []domain.OrderItem, currency string) (*domain.Order, error) {
	o, err := domain.NewOrder(userID, items, currency)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("user_id", userID.String()),
		zap.Float64("total_amount", o.TotalAmount))
	return o, nil
}

func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.store.Get(ctx, orderID)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return s.store.ListByUser(ctx, userID)
}

// Confirm moves the order to CONFIRMED and attaches the payment that funded
// it. The reservations stay in place; shipment converts them into a permanent
// deduction downstream. The store re-checks the status at write time, so a
// stale copy cannot overwrite a cancellation committed while the saga was
// waiting on payment.
func (s *Service) Confirm(ctx context.Context, o *domain.Order, paymentID uuid.UUID) error {
	from := o.Status
	if err := o.TransitionTo(domain.OrderStatusConfirmed); err != nil {
		return err
	}
	o.AttachPayment(paymentID)

	if err := s.store.Update(ctx, o, from); err != nil {
		return err
	}

	s.log.Info("order confirmed",
		zap.String("order_id", o.ID.String()),
		zap.String("payment_id", paymentID.String()))
	return nil
}

func (s *Service) MarkCancelled(ctx context.Context, o *domain.Order, reason string) error {
	from := o.Status
	if err := o.TransitionTo(domain.OrderStatusCancelled); err != nil {
		return err
	}
	o.SetFailureReason(reason)

	if err := s.store.Update(ctx, o, from); err != nil {
		return err
	}

	s.log.Info("order cancelled",
		zap.String("order_id", o.ID.String()),
		zap.String("reason", reason))
	return nil
}

// Cancel is the user/admin cancellation path. Shipped and delivered orders
// are past the shipment boundary and cannot be cancelled here.
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*domain.Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.MarkCancelled(ctx, o, reason); err != nil {
		return nil, err
	}
	return o, nil
}
