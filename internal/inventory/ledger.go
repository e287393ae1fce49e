package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopsphere/order-fulfillment/internal/domain"
	"github.com/shopsphere/order-fulfillment/internal/events"
	"github.com/shopsphere/order-fulfillment/internal/metrics"
)

const sourceName = "inventory-ledger"

// Ledger exposes the reserve/release/restock operations over the per-product
// stock records. All mutations go through Store.Update, so the invariant
// 0 <= reserved <= quantity holds under any interleaving of concurrent
// callers.
type Ledger struct {
	store     Store
	publisher events.Publisher
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewLedger(store Store, publisher events.Publisher, log *zap.Logger, m *metrics.Metrics) *Ledger {
	return &Ledger{
		store:     store,
		publisher: publisher,
		log:       log,
		metrics:   m,
	}
}

type ReserveRequest struct {
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

type CreateRecordRequest struct {
	ProductID       uuid.UUID `json:"product_id"`
	SKU             string    `json:"sku"`
	Quantity        int       `json:"quantity"`
	WarehouseID     uuid.UUID `json:"warehouse_id"`
	ReorderLevel    int       `json:"reorder_level"`
	ReorderQuantity int       `json:"reorder_quantity"`
}

// Reserve atomically moves quantity from available to reserved. It fails with
// InsufficientStockError when available < quantity at the moment of the
// update, and with ErrDuplicateReservation when a RESERVED movement with the
// same reference already exists for this product.
func (l *Ledger) Reserve(ctx context.Context, req ReserveRequest) (*domain.InventoryRecord, error) {
	if req.Quantity <= 0 {
		return nil, domain.NewValidationError(fmt.Sprintf("reserve quantity must be positive, got %d", req.Quantity))
	}

	reason := req.Reason
	if reason == "" {
		reason = "Stock reserved"
	}

	rec, err := l.store.Update(ctx, req.ProductID, func(rec *domain.InventoryRecord, log MovementLog) (*domain.StockMovement, error) {
		if req.ReferenceID != uuid.Nil {
			dup, err := log.HasReference(domain.MovementReserved, req.ReferenceID)
			if err != nil {
				return nil, err
			}
			if dup {
				return nil, domain.ErrDuplicateReservation
			}
		}

		if !rec.HasAvailable(req.Quantity) {
			return nil, &domain.InsufficientStockError{
				ProductID: rec.ProductID.String(),
				Available: rec.Available(),
				Requested: req.Quantity,
			}
		}

		rec.Reserved += req.Quantity
		return domain.NewStockMovement(rec.ID, domain.MovementReserved, req.Quantity, reason, req.ReferenceID), nil
	})
	if err != nil {
		l.metrics.Reservations.WithLabelValues("failed").Inc()
		return nil, err
	}

	l.metrics.Reservations.WithLabelValues("reserved").Inc()
	l.log.Info("stock reserved",
		zap.String("product_id", req.ProductID.String()),
		zap.Int("quantity", req.Quantity),
		zap.String("reference_id", req.ReferenceID.String()))

	l.publishInventoryUpdated(rec)
	return rec, nil
}

// Release returns reserved stock to available. Releasing more than is
// currently reserved is not an error: reserved clamps to zero, and the clamp
// is surfaced through a warning log and a counter since it usually means a
// caller bug.
func (l *Ledger) Release(ctx context.Context, req ReserveRequest) (*domain.InventoryRecord, error) {
	if req.Quantity <= 0 {
		return nil, domain.NewValidationError(fmt.Sprintf("release quantity must be positive, got %d", req.Quantity))
	}

	reason := req.Reason
	if reason == "" {
		reason = "Stock released"
	}

	clamped := false
	rec, err := l.store.Update(ctx, req.ProductID, func(rec *domain.InventoryRecord, _ MovementLog) (*domain.StockMovement, error) {
		newReserved := rec.Reserved - req.Quantity
		if newReserved < 0 {
			clamped = true
			newReserved = 0
		}
		rec.Reserved = newReserved
		return domain.NewStockMovement(rec.ID, domain.MovementReleased, req.Quantity, reason, req.ReferenceID), nil
	})
	if err != nil {
		return nil, err
	}

	if clamped {
		l.metrics.ReleaseClamped.Inc()
		l.log.Warn("release exceeded reserved quantity, clamped to zero",
			zap.String("product_id", req.ProductID.String()),
			zap.Int("quantity", req.Quantity),
			zap.String("reference_id", req.ReferenceID.String()))
	}

	l.log.Info("stock released",
		zap.String("product_id", req.ProductID.String()),
		zap.Int("quantity", req.Quantity),
		zap.String("reference_id", req.ReferenceID.String()))

	l.publishInventoryUpdated(rec)
	return rec, nil
}

// UpdateQuantity sets the on-hand quantity to an absolute value. This is the
// operator/procurement path; it never touches the reserved counter.
func (l *Ledger) UpdateQuantity(ctx context.Context, productID uuid.UUID, req UpdateStockRequest) (*domain.InventoryRecord, error) {
	if req.Quantity < 0 {
		return nil, domain.NewValidationError(fmt.Sprintf("stock quantity must not be negative, got %d", req.Quantity))
	}

	reason := req.Reason
	if reason == "" {
		reason = "Stock update"
	}

	var previous int
	rec, err := l.store.Update(ctx, productID, func(rec *domain.InventoryRecord, _ MovementLog) (*domain.StockMovement, error) {
		previous = rec.Quantity
		delta := req.Quantity - previous

		rec.Quantity = req.Quantity
		if req.ReorderLevel != nil {
			rec.ReorderLevel = *req.ReorderLevel
		}
		if req.ReorderQuantity != nil {
			rec.ReorderQuantity = *req.ReorderQuantity
		}
		if delta > 0 {
			now := time.Now()
			rec.LastRestockedAt = &now
		}

		if delta == 0 {
			return nil, nil
		}
		movementType := domain.MovementIn
		if delta < 0 {
			movementType = domain.MovementOut
			delta = -delta
		}
		return domain.NewStockMovement(rec.ID, movementType, delta, reason, uuid.Nil), nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("stock updated",
		zap.String("product_id", productID.String()),
		zap.Int("previous_quantity", previous),
		zap.Int("quantity", req.Quantity))

	l.publishInventoryUpdated(rec)
	return rec, nil
}

// CheckStock answers a batch of (product, quantity) queries. Each answer is a
// single consistent read per product; the batch is not linearized across
// products. Unknown products answer with zero availability instead of an
// error.
func (l *Ledger) CheckStock(ctx context.Context, queries []domain.StockQuery) ([]domain.StockCheck, error) {
	productIDs := make([]uuid.UUID, 0, len(queries))
	for _, q := range queries {
		productIDs = append(productIDs, q.ProductID)
	}

	records, err := l.store.GetBatch(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("stock check failed: %w", err)
	}

	checks := make([]domain.StockCheck, 0, len(queries))
	for _, q := range queries {
		rec, ok := records[q.ProductID]
		if !ok {
			checks = append(checks, domain.StockCheck{
				ProductID:         q.ProductID,
				RequestedQuantity: q.Quantity,
			})
			continue
		}
		available := rec.Available()
		checks = append(checks, domain.StockCheck{
			ProductID:         q.ProductID,
			SKU:               rec.SKU,
			AvailableQuantity: available,
			RequestedQuantity: q.Quantity,
			InStock:           available > 0,
			SufficientStock:   available >= q.Quantity,
		})
	}

	return checks, nil
}

// CreateRecord starts stock tracking for a product. The initial quantity is
// logged as an IN movement so the ledger replays from zero.
func (l *Ledger) CreateRecord(ctx context.Context, req CreateRecordRequest) (*domain.InventoryRecord, error) {
	if req.Quantity < 0 {
		return nil, domain.NewValidationError("initial quantity must not be negative")
	}

	now := time.Now()
	rec := &domain.InventoryRecord{
		ID:              uuid.New(),
		ProductID:       req.ProductID,
		SKU:             req.SKU,
		Quantity:        0,
		Reserved:        0,
		WarehouseID:     req.WarehouseID,
		ReorderLevel:    req.ReorderLevel,
		ReorderQuantity: req.ReorderQuantity,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := l.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create inventory record: %w", err)
	}

	if req.Quantity > 0 {
		return l.UpdateQuantity(ctx, req.ProductID, UpdateStockRequest{
			Quantity: req.Quantity,
			Reason:   "Initial stock",
		})
	}

	return rec, nil
}

func (l *Ledger) GetByProductID(ctx context.Context, productID uuid.UUID) (*domain.InventoryRecord, error) {
	return l.store.Get(ctx, productID)
}

func (l *Ledger) Movements(ctx context.Context, productID uuid.UUID) ([]domain.StockMovement, error) {
	return l.store.Movements(ctx, productID)
}

func (l *Ledger) LowStock(ctx context.Context) ([]*domain.InventoryRecord, error) {
	return l.store.LowStock(ctx)
}

// publishInventoryUpdated notifies downstream collaborators after a mutation.
// Publishing is fire-and-forget: a broker outage must not fail the mutation
// that already committed.
func (l *Ledger) publishInventoryUpdated(rec *domain.InventoryRecord) {
	event := events.New(events.InventoryUpdatedEvent, sourceName, events.NewInventoryUpdatedPayload(rec))
	if err := l.publisher.Publish(event); err != nil {
		l.log.Error("inventory updated event publish failed",
			zap.String("product_id", rec.ProductID.String()),
			zap.Error(err))
		return
	}
	l.metrics.EventsPublished.WithLabelValues(string(events.InventoryUpdatedEvent)).Inc()

	if rec.NeedsReorder() {
		alert := events.New(events.LowStockAlertEvent, sourceName, events.LowStockPayload{
			InventoryID:       rec.ID,
			ProductID:         rec.ProductID,
			SKU:               rec.SKU,
			AvailableQuantity: rec.Available(),
			ReorderLevel:      rec.ReorderLevel,
			ReorderQuantity:   rec.ReorderQuantity,
		})
		if err := l.publisher.Publish(alert); err != nil {
			l.log.Error("low stock alert publish failed",
				zap.String("product_id", rec.ProductID.String()),
				zap.Error(err))
			return
		}
		l.metrics.EventsPublished.WithLabelValues(string(events.LowStockAlertEvent)).Inc()
	}
}
