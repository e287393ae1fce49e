package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/shopsphere/order-fulfillment/internal/checkout"
	"github.com/shopsphere/order-fulfillment/internal/domain"
	"github.com/shopsphere/order-fulfillment/internal/httpx"
	"github.com/shopsphere/order-fulfillment/internal/order"
)

type CheckoutHandler struct {
	orchestrator *checkout.Orchestrator
	orders       *order.Service
}

func NewCheckoutHandler(orchestrator *checkout.Orchestrator, orders *order.Service) *CheckoutHandler {
	return &CheckoutHandler{
		orchestrator: orchestrator,
		orders:       orders,
	}
}

func (h *CheckoutHandler) Register(router fiber.Router) {
	router.Post("/checkout", h.ExecuteCheckout)
	router.Get("/orders/:orderId", h.GetOrder)
	router.Post("/orders/:orderId/cancel", h.CancelOrder)
}

// ExecuteCheckout always answers with a terminal order for a well-formed
// cart; a saga failure is a CANCELLED order, not an HTTP error.
func (h *CheckoutHandler) ExecuteCheckout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid request body", nil)
	}
	if req.UserID == uuid.Nil {
		return httpx.BadRequest(c, "user_id is required", nil)
	}

	ord, err := h.orchestrator.ExecuteCheckout(c.Context(), req.UserID, req.Items)
	if err != nil {
		return orderError(c, err)
	}

	return httpx.Created(c, "checkout completed", ord)
}

func (h *CheckoutHandler) GetOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return httpx.BadRequest(c, "invalid order id", nil)
	}

	ord, err := h.orders.Get(c.Context(), orderID)
	if err != nil {
		return orderError(c, err)
	}

	return httpx.Success(c, "order", ord)
}

func (h *CheckoutHandler) CancelOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return httpx.BadRequest(c, "invalid order id", nil)
	}

	var req CancelOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid request body", nil)
	}
	if req.Reason == "" {
		req.Reason = "cancelled by user"
	}

	ord, err := h.orchestrator.CancelOrder(c.Context(), orderID, req.Reason)
	if err != nil {
		return orderError(c, err)
	}

	return httpx.Success(c, "order cancelled", ord)
}

func orderError(c *fiber.Ctx, err error) error {
	var validationErr *domain.ValidationError
	var transitionErr *domain.InvalidTransitionError

	switch {
	case errors.As(err, &validationErr):
		return httpx.BadRequest(c, validationErr.Message, nil)
	case errors.Is(err, domain.ErrOrderNotFound):
		return httpx.NotFound(c, "order not found")
	case errors.As(err, &transitionErr):
		return httpx.Conflict(c, transitionErr.Error(), nil)
	default:
		return httpx.InternalServerError(c, "order operation failed")
	}
}
