package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the fulfillment schema if it is missing. Movements are
// append-only; nothing updates or deletes rows in stock_movements.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS inventory (
			id UUID PRIMARY KEY,
			product_id UUID NOT NULL UNIQUE,
			sku VARCHAR(50) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity >= 0),
			reserved_quantity INTEGER NOT NULL DEFAULT 0 CHECK (reserved_quantity >= 0),
			warehouse_id UUID NOT NULL,
			reorder_level INTEGER NOT NULL DEFAULT 10,
			reorder_quantity INTEGER NOT NULL DEFAULT 50,
			last_restocked_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (reserved_quantity <= quantity)
		)`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
			id UUID PRIMARY KEY,
			inventory_id UUID NOT NULL REFERENCES inventory(id),
			type VARCHAR(20) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			reason VARCHAR(255),
			reference_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_movements_inventory
			ON stock_movements (inventory_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_movements_reference
			ON stock_movements (inventory_id, type, reference_id)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			order_number VARCHAR(64) NOT NULL UNIQUE,
			user_id UUID NOT NULL,
			status VARCHAR(20) NOT NULL,
			total_amount NUMERIC(12,2) NOT NULL,
			currency VARCHAR(3) NOT NULL DEFAULT 'USD',
			payment_id UUID,
			failure_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			order_id UUID NOT NULL REFERENCES orders(id),
			product_id UUID NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			unit_price NUMERIC(12,2) NOT NULL,
			PRIMARY KEY (order_id, product_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
