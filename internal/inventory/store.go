package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/shopsphere/order-fulfillment/internal/domain"
)

// MovementLog is the view of a product's movement history visible inside an
// atomic update. Implementations answer from the same transaction or lock
// scope as the update itself.
type MovementLog interface {
	HasReference(movementType domain.MovementType, referenceID uuid.UUID) (bool, error)
}

// UpdateFunc mutates the record in place and returns the movement to append,
// or nil for no movement. Returning an error aborts the update with no
// side effects.
type UpdateFunc func(rec *domain.InventoryRecord, log MovementLog) (*domain.StockMovement, error)

// Store owns the inventory records and their movement logs. Update serializes
// read-modify-write per product: two updates on the same product never
// interleave, updates on different products never block each other.
type Store interface {
	Create(ctx context.Context, rec *domain.InventoryRecord) error
	Get(ctx context.Context, productID uuid.UUID) (*domain.InventoryRecord, error)
	GetBatch(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*domain.InventoryRecord, error)
	Update(ctx context.Context, productID uuid.UUID, fn UpdateFunc) (*domain.InventoryRecord, error)
	Movements(ctx context.Context, productID uuid.UUID) ([]domain.StockMovement, error)
	LowStock(ctx context.Context) ([]*domain.InventoryRecord, error)
}
