package movements

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chemstock/chemstock/internal/shared"
)

// Repository persists movement data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID string) (quantity float64, locationID uuid.NullUUID, err error)
	SetProductStock(ctx context.Context, productID string, quantity float64, locationID uuid.NullUUID) error
	InsertMovement(ctx context.Context, input MovementInput, createdBy uuid.UUID) (uuid.UUID, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("movements repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (t *txRepository) GetProductForUpdate(ctx context.Context, productID string) (float64, uuid.NullUUID, error) {
	var qty float64
	var loc uuid.NullUUID
	err := t.tx.QueryRow(ctx, `SELECT quantity, location_id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&qty, &loc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, uuid.NullUUID{}, shared.ErrNotFound
		}
		return 0, uuid.NullUUID{}, err
	}
	return qty, loc, nil
}

func (t *txRepository) SetProductStock(ctx context.Context, productID string, quantity float64, locationID uuid.NullUUID) error {
	_, err := t.tx.Exec(ctx, `UPDATE products SET quantity = $2, location_id = $3, updated_at = NOW() WHERE id = $1`,
		productID, quantity, locationID)
	return err
}

func (t *txRepository) InsertMovement(ctx context.Context, input MovementInput, createdBy uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := t.tx.QueryRow(ctx, `
INSERT INTO product_movements (product_id, movement_type, quantity, from_location_id, to_location_id, notes, created_by)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
RETURNING id`,
		input.ProductID, string(input.Type), input.Quantity, input.FromLocationID, input.ToLocationID, input.Notes, createdBy).Scan(&id)
	return id, err
}

// List returns recent movements with product and location names.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Movement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT m.id, m.product_id, p.name, m.movement_type, m.quantity,
       m.from_location_id, COALESCE(fl.name, ''),
       m.to_location_id, COALESCE(tl.name, ''),
       COALESCE(m.notes, ''), m.created_by, m.created_at
FROM product_movements m
JOIN products p ON p.id = m.product_id
LEFT JOIN locations fl ON fl.id = m.from_location_id
LEFT JOIN locations tl ON tl.id = m.to_location_id
ORDER BY m.created_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.Type, &m.Quantity,
			&m.FromLocationID, &m.FromLocationName,
			&m.ToLocationID, &m.ToLocationName,
			&m.Notes, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListForProduct returns movements of a single product, newest first.
func (r *Repository) ListForProduct(ctx context.Context, productID string, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT m.id, m.product_id, p.name, m.movement_type, m.quantity,
       m.from_location_id, COALESCE(fl.name, ''),
       m.to_location_id, COALESCE(tl.name, ''),
       COALESCE(m.notes, ''), m.created_by, m.created_at
FROM product_movements m
JOIN products p ON p.id = m.product_id
LEFT JOIN locations fl ON fl.id = m.from_location_id
LEFT JOIN locations tl ON tl.id = m.to_location_id
WHERE m.product_id = $1
ORDER BY m.created_at DESC
LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.Type, &m.Quantity,
			&m.FromLocationID, &m.FromLocationName,
			&m.ToLocationID, &m.ToLocationName,
			&m.Notes, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
