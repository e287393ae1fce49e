package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/shopsphere/order-fulfillment/internal/domain"
	"github.com/shopsphere/order-fulfillment/internal/httpx"
	"github.com/shopsphere/order-fulfillment/internal/inventory"
)

type InventoryHandler struct {
	ledger *inventory.Ledger
}

func NewInventoryHandler(ledger *inventory.Ledger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

func (h *InventoryHandler) Register(router fiber.Router) {
	router.Post("/inventory", h.CreateRecord)
	router.Post("/inventory/reserve", h.ReserveStock)
	router.Post("/inventory/release", h.ReleaseStock)
	router.Post("/inventory/check", h.CheckStock)
	router.Get("/inventory/low-stock", h.LowStock)
	router.Get("/inventory/:productId", h.GetInventory)
	router.Get("/inventory/:productId/movements", h.GetMovements)
	router.Put("/inventory/:productId/stock", h.UpdateStock)
}

func (h *InventoryHandler) CreateRecord(c *fiber.Ctx) error {
	var req CreateInventoryRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid request body", nil)
	}
	if req.ProductID == uuid.Nil {
		return httpx.BadRequest(c, "product_id is required", nil)
	}

	rec, err := h.ledger.CreateRecord(c.Context(), inventory.CreateRecordRequest{
		ProductID:       req.ProductID,
		SKU:             req.SKU,
		Quantity:        req.Quantity,
		WarehouseID:     req.WarehouseID,
		ReorderLevel:    req.ReorderLevel,
		ReorderQuantity: req.ReorderQuantity,
	})
	if err != nil {
		return inventoryError(c, err)
	}

	return httpx.Created(c, "inventory record created", rec)
}

func (h *InventoryHandler) ReserveStock(c *fiber.Ctx) error {
	var req ReserveStockRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid request body", nil)
	}

	rec, err := h.ledger.Reserve(c.Context(), inventory.ReserveRequest{
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		ReferenceID: req.ReferenceID,
		Reason:      req.Reason,
	})
	if err != nil {
		return inventoryError(c, err)
	}

	return httpx.Success(c, "stock reserved", rec)
}

func (h *InventoryHandler) ReleaseStock(c *fiber.Ctx) error {
	var req ReserveStockRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid request body", nil)
	}

	rec, err := h.ledger.Release(c.Context(), inventory.ReserveRequest{
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		ReferenceID: req.ReferenceID,
		Reason:      req.Reason,
	})
	if err != nil {
		return inventoryError(c, err)
	}

	return httpx.Success(c, "stock released", rec)
}

func (h *InventoryHandler) UpdateStock(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return httpx.BadRequest(c, "invalid product id", nil)
	}

	var req UpdateStockRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid request body", nil)
	}

	rec, err := h.ledger.UpdateQuantity(c.Context(), productID, inventory.UpdateStockRequest{
		Quantity:        req.Quantity,
		ReorderLevel:    req.ReorderLevel,
		ReorderQuantity: req.ReorderQuantity,
		Reason:          req.Reason,
	})
	if err != nil {
		return inventoryError(c, err)
	}

	return httpx.Success(c, "stock updated", rec)
}

func (h *InventoryHandler) CheckStock(c *fiber.Ctx) error {
	var req CheckStockRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid request body", nil)
	}
	if len(req.Items) == 0 {
		return httpx.BadRequest(c, "at least one item is required", nil)
	}

	checks, err := h.ledger.CheckStock(c.Context(), req.Items)
	if err != nil {
		return inventoryError(c, err)
	}

	return httpx.Success(c, "stock checked", checks)
}

func (h *InventoryHandler) GetInventory(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return httpx.BadRequest(c, "invalid product id", nil)
	}

	rec, err := h.ledger.GetByProductID(c.Context(), productID)
	if err != nil {
		return inventoryError(c, err)
	}

	return httpx.Success(c, "inventory record", rec)
}

func (h *InventoryHandler) GetMovements(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return httpx.BadRequest(c, "invalid product id", nil)
	}

	movements, err := h.ledger.Movements(c.Context(), productID)
	if err != nil {
		return inventoryError(c, err)
	}

	return httpx.Success(c, "stock movements", movements)
}

func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	records, err := h.ledger.LowStock(c.Context())
	if err != nil {
		return inventoryError(c, err)
	}

	return httpx.Success(c, "low stock inventory", records)
}

func inventoryError(c *fiber.Ctx, err error) error {
	var validationErr *domain.ValidationError
	var insufficientErr *domain.InsufficientStockError

	switch {
	case errors.As(err, &validationErr):
		return httpx.BadRequest(c, validationErr.Message, nil)
	case errors.Is(err, domain.ErrInventoryNotFound):
		return httpx.NotFound(c, "inventory record not found")
	case errors.As(err, &insufficientErr):
		return httpx.Conflict(c, "insufficient stock", map[string]interface{}{
			"product_id": insufficientErr.ProductID,
			"available":  insufficientErr.Available,
			"requested":  insufficientErr.Requested,
		})
	case errors.Is(err, domain.ErrDuplicateReservation):
		return httpx.Conflict(c, "stock already reserved for this reference", nil)
	default:
		return httpx.InternalServerError(c, "inventory operation failed")
	}
}
