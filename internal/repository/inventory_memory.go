package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopsphere/order-fulfillment/internal/domain"
	"github.com/shopsphere/order-fulfillment/internal/inventory"
)

// MemoryInventoryStore keeps records and movement logs in process memory.
// Each product carries its own mutex, so updates serialize per product and
// different products never contend. Used by tests and local mode.
type MemoryInventoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*inventoryEntry
}

type inventoryEntry struct {
	mu        sync.Mutex
	rec       domain.InventoryRecord
	movements []domain.StockMovement
}

func NewMemoryInventoryStore() *MemoryInventoryStore {
	return &MemoryInventoryStore{
		entries: make(map[uuid.UUID]*inventoryEntry),
	}
}

func (s *MemoryInventoryStore) Create(_ context.Context, rec *domain.InventoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[rec.ProductID]; exists {
		return domain.NewValidationError("inventory record already exists for product " + rec.ProductID.String())
	}
	s.entries[rec.ProductID] = &inventoryEntry{rec: *rec}
	return nil
}

func (s *MemoryInventoryStore) Get(_ context.Context, productID uuid.UUID) (*domain.InventoryRecord, error) {
	s.mu.RLock()
	entry, ok := s.entries[productID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrInventoryNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	rec := entry.rec
	return &rec, nil
}

func (s *MemoryInventoryStore) GetBatch(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*domain.InventoryRecord, error) {
	out := make(map[uuid.UUID]*domain.InventoryRecord, len(productIDs))
	for _, id := range productIDs {
		rec, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		out[id] = rec
	}
	return out, nil
}

type memoryMovementLog struct {
	entry *inventoryEntry
}

func (l memoryMovementLog) HasReference(movementType domain.MovementType, referenceID uuid.UUID) (bool, error) {
	for _, m := range l.entry.movements {
		if m.Type == movementType && m.ReferenceID == referenceID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryInventoryStore) Update(_ context.Context, productID uuid.UUID, fn inventory.UpdateFunc) (*domain.InventoryRecord, error) {
	s.mu.RLock()
	entry, ok := s.entries[productID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrInventoryNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.rec
	movement, err := fn(&working, memoryMovementLog{entry: entry})
	if err != nil {
		return nil, err
	}

	working.UpdatedAt = time.Now()
	entry.rec = working
	if movement != nil {
		entry.movements = append(entry.movements, *movement)
	}

	rec := entry.rec
	return &rec, nil
}

func (s *MemoryInventoryStore) Movements(_ context.Context, productID uuid.UUID) ([]domain.StockMovement, error) {
	s.mu.RLock()
	entry, ok := s.entries[productID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrInventoryNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	out := make([]domain.StockMovement, len(entry.movements))
	copy(out, entry.movements)
	return out, nil
}

func (s *MemoryInventoryStore) LowStock(_ context.Context) ([]*domain.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.InventoryRecord
	for _, entry := range s.entries {
		entry.mu.Lock()
		if entry.rec.NeedsReorder() {
			rec := entry.rec
			out = append(out, &rec)
		}
		entry.mu.Unlock()
	}
	return out, nil
}
