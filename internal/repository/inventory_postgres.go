package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shopsphere/order-fulfillment/internal/domain"
	"github.com/shopsphere/order-fulfillment/internal/inventory"
)

// PostgresInventoryStore serializes per-product updates through a row-level
// lock (SELECT ... FOR UPDATE), so the atomic section spans the read, the
// mutation and the movement append in one transaction.
type PostgresInventoryStore struct {
	db *sql.DB
}

func NewPostgresInventoryStore(db *sql.DB) *PostgresInventoryStore {
	return &PostgresInventoryStore{db: db}
}

const inventoryColumns = `
	id, product_id, sku, quantity, reserved_quantity, warehouse_id,
	reorder_level, reorder_quantity, last_restocked_at, created_at, updated_at
`

func scanInventory(row interface{ Scan(...interface{}) error }) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := row.Scan(
		&rec.ID,
		&rec.ProductID,
		&rec.SKU,
		&rec.Quantity,
		&rec.Reserved,
		&rec.WarehouseID,
		&rec.ReorderLevel,
		&rec.ReorderQuantity,
		&rec.LastRestockedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresInventoryStore) Create(ctx context.Context, rec *domain.InventoryRecord) error {
	query := `
		INSERT INTO inventory (
			id, product_id, sku, quantity, reserved_quantity, warehouse_id,
			reorder_level, reorder_quantity, last_restocked_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.ProductID,
		rec.SKU,
		rec.Quantity,
		rec.Reserved,
		rec.WarehouseID,
		rec.ReorderLevel,
		rec.ReorderQuantity,
		rec.LastRestockedAt,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create inventory record: %w", err)
	}
	return nil
}

func (s *PostgresInventoryStore) Get(ctx context.Context, productID uuid.UUID) (*domain.InventoryRecord, error) {
	query := `SELECT` + inventoryColumns + `FROM inventory WHERE product_id = $1`

	rec, err := scanInventory(s.db.QueryRowContext(ctx, query, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInventoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *PostgresInventoryStore) GetBatch(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*domain.InventoryRecord, error) {
	if len(productIDs) == 0 {
		return map[uuid.UUID]*domain.InventoryRecord{}, nil
	}

	ids := make([]string, len(productIDs))
	for i, id := range productIDs {
		ids[i] = id.String()
	}

	query := `SELECT` + inventoryColumns + `FROM inventory WHERE product_id = ANY($1::uuid[])`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*domain.InventoryRecord)
	for rows.Next() {
		rec, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out[rec.ProductID] = rec
	}
	return out, rows.Err()
}

type postgresMovementLog struct {
	ctx         context.Context
	tx          *sql.Tx
	inventoryID uuid.UUID
}

func (l postgresMovementLog) HasReference(movementType domain.MovementType, referenceID uuid.UUID) (bool, error) {
	var exists bool
	err := l.tx.QueryRowContext(l.ctx, `
		SELECT EXISTS (
			SELECT 1 FROM stock_movements
			WHERE inventory_id = $1 AND type = $2 AND reference_id = $3
		)`, l.inventoryID, string(movementType), referenceID).Scan(&exists)
	return exists, err
}

func (s *PostgresInventoryStore) Update(ctx context.Context, productID uuid.UUID, fn inventory.UpdateFunc) (*domain.InventoryRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `SELECT` + inventoryColumns + `FROM inventory WHERE product_id = $1 FOR UPDATE`
	rec, err := scanInventory(tx.QueryRowContext(ctx, query, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInventoryNotFound
	}
	if err != nil {
		return nil, err
	}

	movement, err := fn(rec, postgresMovementLog{ctx: ctx, tx: tx, inventoryID: rec.ID})
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = $2, reserved_quantity = $3, reorder_level = $4,
		    reorder_quantity = $5, last_restocked_at = $6, updated_at = NOW()
		WHERE id = $1`,
		rec.ID, rec.Quantity, rec.Reserved, rec.ReorderLevel,
		rec.ReorderQuantity, rec.LastRestockedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory record: %w", err)
	}

	if movement != nil {
		var refID interface{}
		if movement.ReferenceID != uuid.Nil {
			refID = movement.ReferenceID
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_movements (id, inventory_id, type, quantity, reason, reference_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			movement.ID, movement.InventoryID, string(movement.Type),
			movement.Quantity, movement.Reason, refID, movement.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to append stock movement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *PostgresInventoryStore) Movements(ctx context.Context, productID uuid.UUID) ([]domain.StockMovement, error) {
	rec, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, inventory_id, type, quantity, reason, COALESCE(reference_id, '00000000-0000-0000-0000-000000000000'), created_at
		FROM stock_movements
		WHERE inventory_id = $1
		ORDER BY created_at`, rec.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []domain.StockMovement
	for rows.Next() {
		var m domain.StockMovement
		var movementType string
		if err := rows.Scan(&m.ID, &m.InventoryID, &movementType, &m.Quantity, &m.Reason, &m.ReferenceID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = domain.MovementType(movementType)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *PostgresInventoryStore) LowStock(ctx context.Context) ([]*domain.InventoryRecord, error) {
	query := `SELECT` + inventoryColumns + `FROM inventory WHERE quantity - reserved_quantity <= reorder_level`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.InventoryRecord
	for rows.Next() {
		rec, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
