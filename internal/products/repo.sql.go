package products

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chemstock/chemstock/internal/platform/httpx"
	"github.com/chemstock/chemstock/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `
p.id, p.name, p.batch, p.invoice, p.manufacturing_date, p.expiry_date,
p.quantity, p.unit, p.status, p.supplier_id, p.location_id,
COALESCE(s.name, ''), COALESCE(l.name, ''),
p.created_by, p.approved_by, p.approved_at, p.created_at, p.updated_at`

const productJoins = `
FROM products p
LEFT JOIN suppliers s ON s.id = p.supplier_id
LEFT JOIN locations l ON l.id = p.location_id`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Batch, &p.Invoice, &p.ManufacturingDate, &p.ExpiryDate,
		&p.Quantity, &p.Unit, &p.Status, &p.SupplierID, &p.LocationID,
		&p.SupplierName, &p.LocationName,
		&p.CreatedBy, &p.ApprovedBy, &p.ApprovedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns products ordered by creation time, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	query := `SELECT ` + productColumns + productJoins + ` WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.Status != "" {
		query += ` AND p.status = $` + strconv.Itoa(idx)
		args = append(args, string(filter.Status))
		idx++
	}
	if filter.Search != "" {
		query += ` AND (p.id ILIKE $` + strconv.Itoa(idx) + ` OR p.name ILIKE $` + strconv.Itoa(idx) + ` OR p.batch ILIKE $` + strconv.Itoa(idx) + `)`
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	query += ` ORDER BY p.created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(idx)
		args = append(args, filter.Limit)
		idx++
	}
	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(idx)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Get returns a single product by label code.
func (r *Repository) Get(ctx context.Context, id string) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+productJoins+` WHERE p.id = $1`, id)
	return scanProduct(row)
}

// Create inserts a new pending product.
func (r *Repository) Create(ctx context.Context, input ProductInput, createdBy uuid.UUID) (*Product, error) {
	_, err := r.pool.Exec(ctx, `
INSERT INTO products (id, name, batch, invoice, manufacturing_date, expiry_date, quantity, unit, status, supplier_id, location_id, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9, $10, $11)`,
		input.ID, input.Name, input.Batch, input.Invoice, input.ManufacturingDate, input.ExpiryDate,
		input.Quantity, input.Unit, input.SupplierID, input.LocationID, createdBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, httpx.ErrDuplicate
		}
		return nil, err
	}
	return r.Get(ctx, input.ID)
}

// Update rewrites the descriptive fields of a product.
func (r *Repository) Update(ctx context.Context, input ProductInput) (*Product, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE products SET name = $2, batch = $3, invoice = $4, manufacturing_date = $5, expiry_date = $6,
       quantity = $7, unit = $8, supplier_id = $9, location_id = $10, updated_at = NOW()
WHERE id = $1`,
		input.ID, input.Name, input.Batch, input.Invoice, input.ManufacturingDate, input.ExpiryDate,
		input.Quantity, input.Unit, input.SupplierID, input.LocationID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.Get(ctx, input.ID)
}

// SetStatus transitions a product between lifecycle states. The expected
// status guards against concurrent decisions on the same batch.
func (r *Repository) SetStatus(ctx context.Context, id string, from, to Status, decidedBy uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE products SET status = $3, approved_by = $4, approved_at = NOW(), updated_at = NOW()
WHERE id = $1 AND status = $2`,
		id, string(from), string(to), decidedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrNotPending
	}
	return nil
}

// Delete removes a product.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return httpx.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkExpired flips approved or pending batches past their expiry date.
// Returns the label codes that changed so the caller can notify.
func (r *Repository) MarkExpired(ctx context.Context, asOf time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
UPDATE products SET status = 'expired', updated_at = NOW()
WHERE expiry_date < $1 AND status IN ('pending', 'approved')
RETURNING id`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

