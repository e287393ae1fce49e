package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopsphere/order-fulfillment/internal/config"
	"github.com/shopsphere/order-fulfillment/internal/domain"
	"github.com/shopsphere/order-fulfillment/internal/events"
	"github.com/shopsphere/order-fulfillment/internal/gateway"
	"github.com/shopsphere/order-fulfillment/internal/inventory"
	"github.com/shopsphere/order-fulfillment/internal/metrics"
	"github.com/shopsphere/order-fulfillment/internal/order"
)

const sourceName = "checkout-saga"

// CartItem is one line of a checkout request, before pricing.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Orchestrator drives the checkout saga: price the cart, create the order,
// reserve stock per item, capture payment, then confirm or compensate.
// There is no shared transaction across these steps; the compensation log in
// sagaContext is what makes partial failure safe.
type Orchestrator struct {
	orders   *order.Service
	ledger   *inventory.Ledger
	catalog  CatalogClient
	payments gateway.PaymentGateway
	notifier events.Publisher
	cfg      config.CheckoutConfig
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewOrchestrator(
	orders *order.Service,
	ledger *inventory.Ledger,
	catalog CatalogClient,
	payments gateway.PaymentGateway,
	notifier events.Publisher,
	cfg config.CheckoutConfig,
	log *zap.Logger,
	m *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		orders:   orders,
		ledger:   ledger,
		catalog:  catalog,
		payments: payments,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		metrics:  m,
	}
}

// ExecuteCheckout runs one saga instance. Apart from malformed input, the
// caller always receives a terminal order: CONFIRMED when every reservation
// and the payment succeeded, CANCELLED otherwise. Business failures
// (insufficient stock, payment decline) are not errors; they surface as the
// cancelled order's failure reason.
func (o *Orchestrator) ExecuteCheckout(ctx context.Context, userID uuid.UUID, cart []CartItem) (*domain.Order, error) {
	if err := validateCart(cart); err != nil {
		return nil, err
	}

	items := o.priceCart(ctx, cart)

	ord, err := o.orders.Create(ctx, userID, items, o.cfg.Currency)
	if err != nil {
		return nil, fmt.Errorf("order creation failed: %w", err)
	}

	o.publish(events.New(events.OrderPlacedEvent, sourceName, events.NewOrderPayload(ord)))

	saga := newSagaContext(ord.ID)

	o.log.Info("checkout saga started",
		zap.String("order_id", ord.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("items", len(items)))

	// Reserve stock for each line item, in submitted order. The order ID is
	// the reservation reference, so a duplicated attempt for the same order
	// is rejected by the ledger instead of double-reserving.
	for _, item := range ord.Items {
		_, err := o.ledger.Reserve(ctx, inventory.ReserveRequest{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			ReferenceID: ord.ID,
			Reason:      "Order placed: " + ord.ID.String(),
		})
		if err != nil {
			reason := fmt.Sprintf("reservation failed for product %s: %v", item.ProductID, err)
			return o.cancelSaga(ctx, ord, saga, reason)
		}
		saga.markReserved(item.ProductID)
	}

	capture, err := o.payments.Capture(ctx, gateway.CaptureRequest{
		OrderID:       ord.ID,
		UserID:        userID,
		Amount:        ord.TotalAmount,
		Currency:      ord.Currency,
		PaymentMethod: o.cfg.PaymentMethod,
		Description:   "Order " + ord.OrderNumber,
	})
	if err != nil || !capture.Success {
		reason := "payment capture failed"
		if err != nil {
			reason = fmt.Sprintf("payment capture failed: %v", err)
		} else if capture.FailureReason != "" {
			reason = "payment declined: " + capture.FailureReason
		}
		o.publish(events.New(events.PaymentFailedEvent, sourceName, events.PaymentPayload{
			OrderID:  ord.ID,
			UserID:   userID,
			Amount:   ord.TotalAmount,
			Currency: ord.Currency,
			Reason:   reason,
		}))
		return o.cancelSaga(ctx, ord, saga, reason)
	}

	paymentID := uuid.New()
	o.publish(events.New(events.PaymentCompletedEvent, sourceName, events.PaymentPayload{
		OrderID:       ord.ID,
		UserID:        userID,
		Amount:        capture.Amount,
		Currency:      ord.Currency,
		TransactionID: capture.TransactionID,
	}))

	// Confirm and leave the reservations in place; shipment converts them
	// into a permanent deduction downstream.
	if err := o.orders.Confirm(ctx, ord, paymentID); err != nil {
		reason := fmt.Sprintf("order confirmation failed: %v", err)
		return o.cancelSaga(ctx, ord, saga, reason)
	}

	o.metrics.CheckoutSagas.WithLabelValues("confirmed").Inc()
	o.publish(events.New(events.OrderConfirmedEvent, sourceName, events.NewOrderPayload(ord)))

	o.log.Info("checkout saga completed",
		zap.String("order_id", ord.ID.String()),
		zap.String("order_number", ord.OrderNumber))
	return ord, nil
}

// CancelOrder is the user/admin cancellation path. It releases only what the
// movement log shows this order still holds reserved, so cancelling an order
// whose saga never reserved (or already compensated) cannot touch
// reservations held by other orders. Shipped and delivered orders are
// rejected.
func (o *Orchestrator) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) (*domain.Order, error) {
	ord, err := o.orders.Cancel(ctx, orderID, reason)
	if err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(ord.Items))
	for _, item := range ord.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	o.compensate(ctx, ord.ID, productIDs)

	o.publish(events.New(events.OrderCancelledEvent, sourceName, events.NewOrderPayload(ord)))
	return ord, nil
}

// priceCart resolves unit prices from the catalog. A failed lookup falls
// back to the configured degraded-mode unit price so a catalog outage cannot
// take checkout down with it.
func (o *Orchestrator) priceCart(ctx context.Context, cart []CartItem) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(cart))
	for _, ci := range cart {
		unitPrice := o.cfg.FallbackUnitPrice
		product, err := o.catalog.GetProduct(ctx, ci.ProductID)
		if err != nil {
			o.log.Warn("catalog lookup failed, using fallback unit price",
				zap.String("product_id", ci.ProductID.String()),
				zap.Float64("fallback_price", unitPrice),
				zap.Error(err))
		} else if product.Price <= 0 {
			o.log.Warn("catalog returned invalid price, using fallback unit price",
				zap.String("product_id", ci.ProductID.String()),
				zap.Float64("catalog_price", product.Price),
				zap.Float64("fallback_price", unitPrice))
		} else {
			unitPrice = product.Price
		}

		items = append(items, domain.OrderItem{
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			UnitPrice: unitPrice,
		})
	}
	return items
}

// cancelSaga unwinds every reservation this saga committed, marks the order
// CANCELLED and publishes the terminal event. The customer always gets a
// definitive answer: compensation trouble is escalated, never re-thrown.
func (o *Orchestrator) cancelSaga(ctx context.Context, ord *domain.Order, saga *sagaContext, reason string) (*domain.Order, error) {
	o.log.Warn("checkout saga failed, compensating",
		zap.String("order_id", ord.ID.String()),
		zap.Int("reserved_steps", len(saga.reserved)),
		zap.String("reason", reason))

	o.compensate(ctx, saga.orderID, saga.reserved)

	if err := o.orders.MarkCancelled(ctx, ord, reason); err != nil {
		o.log.Error("order cancellation update failed",
			zap.String("order_id", ord.ID.String()),
			zap.Error(err))
	}

	o.metrics.CheckoutSagas.WithLabelValues("cancelled").Inc()
	o.publish(events.New(events.OrderCancelledEvent, sourceName, events.NewOrderPayload(ord)))

	return ord, nil
}

// compensate releases whatever the given order still holds reserved on each
// product, per the movement log. Deriving the quantity from the log instead
// of the item list keeps releases scoped to this order's own reservations;
// a repeated compensation simply finds a zero balance and does nothing.
func (o *Orchestrator) compensate(ctx context.Context, orderID uuid.UUID, productIDs []uuid.UUID) {
	for _, productID := range productIDs {
		held, err := o.reservedBalance(ctx, productID, orderID)
		if err != nil {
			o.metrics.StockLeaks.Inc()
			o.log.Error("stock leak incident: reservation balance lookup failed",
				zap.String("order_id", orderID.String()),
				zap.String("product_id", productID.String()),
				zap.Error(err))
			continue
		}
		if held == 0 {
			continue
		}
		o.releaseWithRetry(ctx, orderID, productID, held)
	}
}

// reservedBalance is the order's outstanding reservation on a product: net
// RESERVED minus RELEASED movements carrying the order as reference. A
// product with no stock record holds nothing.
func (o *Orchestrator) reservedBalance(ctx context.Context, productID, orderID uuid.UUID) (int, error) {
	movements, err := o.ledger.Movements(ctx, productID)
	if errors.Is(err, domain.ErrInventoryNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	held := 0
	for _, m := range movements {
		if m.ReferenceID != orderID {
			continue
		}
		switch m.Type {
		case domain.MovementReserved:
			held += m.Quantity
		case domain.MovementReleased:
			held -= m.Quantity
		}
	}
	if held < 0 {
		held = 0
	}
	return held, nil
}

// releaseWithRetry retries a compensation release with bounded backoff. A
// release that keeps failing is a stock-leak incident: the reservation is
// stuck until an operator intervenes. It is escalated, not allowed to block
// the saga's cancellation outcome.
func (o *Orchestrator) releaseWithRetry(ctx context.Context, orderID, productID uuid.UUID, quantity int) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.ReleaseRetries; attempt++ {
		_, err := o.ledger.Release(ctx, inventory.ReserveRequest{
			ProductID:   productID,
			Quantity:    quantity,
			ReferenceID: orderID,
			Reason:      "Order cancelled: " + orderID.String(),
		})
		if err == nil {
			return
		}
		lastErr = err

		o.log.Warn("compensation release failed",
			zap.String("order_id", orderID.String()),
			zap.String("product_id", productID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < o.cfg.ReleaseRetries {
			select {
			case <-time.After(o.cfg.ReleaseBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				attempt = o.cfg.ReleaseRetries
			}
		}
	}

	o.metrics.StockLeaks.Inc()
	o.log.Error("stock leak incident: release exhausted retries",
		zap.String("order_id", orderID.String()),
		zap.String("product_id", productID.String()),
		zap.Int("quantity", quantity),
		zap.Error(lastErr))
}

func (o *Orchestrator) publish(event events.Event) {
	if err := o.notifier.Publish(event); err != nil {
		o.log.Error("event publish failed",
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))
		return
	}
	o.metrics.EventsPublished.WithLabelValues(string(event.EventType)).Inc()
}

func validateCart(cart []CartItem) error {
	if len(cart) == 0 {
		return domain.NewValidationError("cart must contain at least one item")
	}
	for _, item := range cart {
		if item.Quantity <= 0 {
			return domain.NewValidationError(
				fmt.Sprintf("invalid quantity %d for product %s", item.Quantity, item.ProductID))
		}
		if item.ProductID == uuid.Nil {
			return domain.NewValidationError("cart item is missing a product id")
		}
	}
	return nil
}
