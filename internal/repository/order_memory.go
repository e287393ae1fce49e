package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/shopsphere/order-fulfillment/internal/domain"
)

// MemoryOrderStore keeps orders in process memory, for tests and local mode.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]domain.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{
		orders: make(map[uuid.UUID]domain.Order),
	}
}

func (s *MemoryOrderStore) Create(_ context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return domain.NewValidationError("order already exists: " + o.ID.String())
	}
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *MemoryOrderStore) Get(_ context.Context, orderID uuid.UUID) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	out := cloneOrder(&o)
	return &out, nil
}

// Update re-checks the stored status under the lock, matching the
// compare-and-set semantics of the Postgres store.
func (s *MemoryOrderStore) Update(_ context.Context, o *domain.Order, from domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[o.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Status != from {
		return &domain.InvalidTransitionError{From: stored.Status, To: o.Status}
	}
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *MemoryOrderStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			clone := cloneOrder(&o)
			out = append(out, &clone)
		}
	}
	return out, nil
}

func cloneOrder(o *domain.Order) domain.Order {
	clone := *o
	clone.Items = make([]domain.OrderItem, len(o.Items))
	copy(clone.Items, o.Items)
	if o.PaymentID != nil {
		paymentID := *o.PaymentID
		clone.PaymentID = &paymentID
	}
	return clone
}
