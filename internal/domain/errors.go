package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInventoryNotFound = errors.New("inventory record not found")
	ErrOrderNotFound     = errors.New("order not found")

	// ErrDuplicateReservation guards against a retried checkout reserving the
	// same (product, order) pair twice. The movement log already carries a
	// RESERVED entry with this reference.
	ErrDuplicateReservation = errors.New("stock already reserved for this reference")
)

// ValidationError marks bad input, rejected before any side effect.
type ValidationError struct {
	Message string
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InsufficientStockError is an expected business condition, not a system
// fault. It triggers saga compensation.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available=%d, requested=%d",
		e.ProductID, e.Available, e.Requested)
}

// InvalidTransitionError is returned when the order state machine rejects a
// transition.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition: %s -> %s", e.From, e.To)
}

// DownstreamError wraps a catalog/payment/broker failure so callers can pick
// the fallback or compensation path for that step.
type DownstreamError struct {
	Service string
	Err     error
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *DownstreamError) Unwrap() error {
	return e.Err
}
