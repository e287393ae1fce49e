package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shopsphere/order-fulfillment/internal/domain"
)

type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

func (s *PostgresOrderStore) Create(ctx context.Context, o *domain.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, status, total_amount, currency,
			payment_id, failure_reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.OrderNumber, o.UserID, string(o.Status), o.TotalAmount,
		o.Currency, o.PaymentID, o.FailureReason, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)`,
			o.ID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return tx.Commit()
}

func (s *PostgresOrderStore) Get(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, order_number, user_id, status, total_amount, currency,
		       payment_id, failure_reason, created_at, updated_at
		FROM orders WHERE id = $1`, orderID).Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &status, &o.TotalAmount,
		&o.Currency, &o.PaymentID, &o.FailureReason, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)

	items, err := s.loadItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// Update is a compare-and-set on the status column: the write only lands
// while the stored status still equals from. A lost race surfaces as an
// InvalidTransitionError carrying the status actually on record.
func (s *PostgresOrderStore) Update(ctx context.Context, o *domain.Order, from domain.OrderStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, payment_id = $3, failure_reason = $4, updated_at = $5
		WHERE id = $1 AND status = $6`,
		o.ID, string(o.Status), o.PaymentID, o.FailureReason, o.UpdatedAt, string(from))
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		stored, err := s.Get(ctx, o.ID)
		if err != nil {
			return err
		}
		return &domain.InvalidTransitionError{From: stored.Status, To: o.Status}
	}
	return nil
}

func (s *PostgresOrderStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_number, user_id, status, total_amount, currency,
		       payment_id, failure_reason, created_at, updated_at
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var o domain.Order
		var status string
		err := rows.Scan(&o.ID, &o.OrderNumber, &o.UserID, &status, &o.TotalAmount,
			&o.Currency, &o.PaymentID, &o.FailureReason, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		items, err := s.loadItems(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		o.Items = items
	}
	return orders, nil
}

func (s *PostgresOrderStore) loadItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, quantity, unit_price
		FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
