package checkout

import (
	"github.com/google/uuid"
)

// sagaContext is the ephemeral execution context of one checkout attempt.
// It records which products this saga reserved, in order, so a failure at a
// later step can unwind exactly that subset. How much each product still
// holds is derived from the movement log at compensation time, not trusted
// from memory. The order ID doubles as the idempotency reference on every
// reservation. On success the context is simply discarded; the permanent
// record is the order plus the stock movements.
type sagaContext struct {
	orderID  uuid.UUID
	reserved []uuid.UUID
}

func newSagaContext(orderID uuid.UUID) *sagaContext {
	return &sagaContext{orderID: orderID}
}

func (s *sagaContext) markReserved(productID uuid.UUID) {
	s.reserved = append(s.reserved, productID)
}
