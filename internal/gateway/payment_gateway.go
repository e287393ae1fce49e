package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentGateway is the payment capability consumed by the checkout saga.
// Capture funds an order; Refund is used by the returns flow, not by the
// saga itself.
type PaymentGateway interface {
	Capture(ctx context.Context, request CaptureRequest) (*CaptureResponse, error)
	Refund(ctx context.Context, request RefundRequest) (*RefundResponse, error)
}

type CaptureRequest struct {
	OrderID       uuid.UUID `json:"order_id"`
	UserID        uuid.UUID `json:"user_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method"`
	Description   string    `json:"description"`
}

type CaptureResponse struct {
	Success       bool      `json:"success"`
	TransactionID string    `json:"transaction_id"`
	ExternalRef   string    `json:"external_ref"`
	Amount        float64   `json:"amount"`
	ProcessedAt   time.Time `json:"processed_at"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

type RefundRequest struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Reason        string  `json:"reason"`
}

type RefundResponse struct {
	Success       bool      `json:"success"`
	RefundID      string    `json:"refund_id"`
	Amount        float64   `json:"amount"`
	RefundedAt    time.Time `json:"refunded_at"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// MockPaymentGateway simulates a payment provider with a configurable
// decline rate. Used by local mode and demos.
type MockPaymentGateway struct {
	FailureRate float64 // 0.0 - 1.0
	log         *zap.Logger
}

func NewMockPaymentGateway(failureRate float64, log *zap.Logger) *MockPaymentGateway {
	return &MockPaymentGateway{
		FailureRate: failureRate,
		log:         log,
	}
}

func (m *MockPaymentGateway) Capture(ctx context.Context, request CaptureRequest) (*CaptureResponse, error) {
	m.log.Debug("mock gateway capturing payment",
		zap.String("order_id", request.OrderID.String()),
		zap.Float64("amount", request.Amount))

	select {
	case <-time.After(time.Millisecond * 200):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < m.FailureRate {
		return &CaptureResponse{
			Success:       false,
			Amount:        request.Amount,
			ProcessedAt:   time.Now(),
			FailureReason: "Insufficient funds",
		}, nil
	}

	return &CaptureResponse{
		Success:       true,
		TransactionID: fmt.Sprintf("TXN_%d", time.Now().UnixNano()),
		ExternalRef:   fmt.Sprintf("REF_%s", uuid.New().String()[:8]),
		Amount:        request.Amount,
		ProcessedAt:   time.Now(),
	}, nil
}

func (m *MockPaymentGateway) Refund(ctx context.Context, request RefundRequest) (*RefundResponse, error) {
	m.log.Debug("mock gateway refunding payment",
		zap.String("transaction_id", request.TransactionID),
		zap.Float64("amount", request.Amount))

	select {
	case <-time.After(time.Millisecond * 100):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < m.FailureRate*0.5 {
		return &RefundResponse{
			Success:       false,
			Amount:        request.Amount,
			RefundedAt:    time.Now(),
			FailureReason: "Refund not allowed for this transaction",
		}, nil
	}

	return &RefundResponse{
		Success:    true,
		RefundID:   fmt.Sprintf("RFD_%d", time.Now().UnixNano()),
		Amount:     request.Amount,
		RefundedAt: time.Now(),
	}, nil
}
