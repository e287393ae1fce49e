package handlers

import (
	"github.com/google/uuid"

	"github.com/shopsphere/order-fulfillment/internal/checkout"
	"github.com/shopsphere/order-fulfillment/internal/domain"
)

type ReserveStockRequest struct {
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int       `json:"quantity"`
	ReferenceID uuid.UUID `json:"reference_id"`
	Reason      string    `json:"reason"`
}

type UpdateStockRequest struct {
	Quantity        int    `json:"quantity"`
	ReorderLevel    *int   `json:"reorder_level,omitempty"`
	ReorderQuantity *int   `json:"reorder_quantity,omitempty"`
	Reason          string `json:"reason"`
}

type CreateInventoryRequest struct {
	ProductID       uuid.UUID `json:"product_id"`
	SKU             string    `json:"sku"`
	Quantity        int       `json:"quantity"`
	WarehouseID     uuid.UUID `json:"warehouse_id"`
	ReorderLevel    int       `json:"reorder_level"`
	ReorderQuantity int       `json:"reorder_quantity"`
}

type CheckStockRequest struct {
	Items []domain.StockQuery `json:"items"`
}

type CheckoutRequest struct {
	UserID uuid.UUID           `json:"user_id"`
	Items  []checkout.CartItem `json:"items"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}
