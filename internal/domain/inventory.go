package domain

import (
	"time"

	"github.com/google/uuid"
)

type MovementType string

const (
	MovementIn       MovementType = "IN"
	MovementOut      MovementType = "OUT"
	MovementReserved MovementType = "RESERVED"
	MovementReleased MovementType = "RELEASED"
)

// InventoryRecord is the per-product stock record. It is mutated only through
// the ledger's reserve/release/restock operations, never written directly by
// any other component.
type InventoryRecord struct {
	ID              uuid.UUID  `json:"id"`
	ProductID       uuid.UUID  `json:"product_id"`
	SKU             string     `json:"sku"`
	Quantity        int        `json:"quantity"`
	Reserved        int        `json:"reserved_quantity"`
	WarehouseID     uuid.UUID  `json:"warehouse_id"`
	ReorderLevel    int        `json:"reorder_level"`
	ReorderQuantity int        `json:"reorder_quantity"`
	LastRestockedAt *time.Time `json:"last_restocked_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (r *InventoryRecord) Available() int {
	return r.Quantity - r.Reserved
}

func (r *InventoryRecord) HasAvailable(quantity int) bool {
	return r.Available() >= quantity
}

func (r *InventoryRecord) NeedsReorder() bool {
	return r.Available() <= r.ReorderLevel
}

// StockMovement is one append-only ledger entry. Movements are write-once and
// never mutated; the movement log reconstructs how stock arrived at its
// current value.
type StockMovement struct {
	ID          uuid.UUID    `json:"id"`
	InventoryID uuid.UUID    `json:"inventory_id"`
	Type        MovementType `json:"type"`
	Quantity    int          `json:"quantity"`
	Reason      string       `json:"reason"`
	ReferenceID uuid.UUID    `json:"reference_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

func NewStockMovement(inventoryID uuid.UUID, movementType MovementType, quantity int, reason string, referenceID uuid.UUID) *StockMovement {
	return &StockMovement{
		ID:          uuid.New(),
		InventoryID: inventoryID,
		Type:        movementType,
		Quantity:    quantity,
		Reason:      reason,
		ReferenceID: referenceID,
		CreatedAt:   time.Now(),
	}
}

// StockQuery is one (product, quantity) pair of a batch stock check.
type StockQuery struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// StockCheck is the read-only answer for one product of a batch check.
type StockCheck struct {
	ProductID         uuid.UUID `json:"product_id"`
	SKU               string    `json:"sku,omitempty"`
	AvailableQuantity int       `json:"available_quantity"`
	RequestedQuantity int       `json:"requested_quantity"`
	InStock           bool      `json:"in_stock"`
	SufficientStock   bool      `json:"sufficient_stock"`
}
