package invoices

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chemstock/chemstock/internal/platform/httpx"
	"github.com/chemstock/chemstock/internal/shared"
)

// Repository persists invoice data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `
i.id, i.invoice_number, i.supplier_id, COALESCE(s.name, ''), i.issue_date, i.receipt_date,
i.status, COALESCE(i.total_value, 0), COALESCE(i.notes, ''), i.created_by, i.created_at, i.updated_at`

const invoiceJoins = `
FROM invoices i
LEFT JOIN suppliers s ON s.id = i.supplier_id`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.SupplierID, &inv.SupplierName, &inv.IssueDate, &inv.ReceiptDate,
		&inv.Status, &inv.TotalValue, &inv.Notes, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// List returns invoices newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+invoiceJoins+` ORDER BY i.issue_date DESC, i.created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// Get returns an invoice with its line items.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+invoiceJoins+` WHERE i.id = $1`, id))
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, invoice_id, COALESCE(product_code, ''), product_name, COALESCE(batch, ''), quantity, unit,
       COALESCE(unit_price, 0), COALESCE(total_price, 0), manufacturing_date, expiry_date
FROM invoice_items WHERE invoice_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductCode, &item.ProductName, &item.Batch,
			&item.Quantity, &item.Unit, &item.UnitPrice, &item.TotalPrice, &item.ManufacturingDate, &item.ExpiryDate); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

// Create inserts an invoice and its items atomically, computing total_value
// from the line totals.
func (r *Repository) Create(ctx context.Context, input InvoiceInput, createdBy uuid.UUID) (uuid.UUID, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback(ctx)

	var total float64
	for _, item := range input.Items {
		total += item.Quantity * item.UnitPrice
	}

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
INSERT INTO invoices (invoice_number, supplier_id, issue_date, receipt_date, status, total_value, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
RETURNING id`,
		input.InvoiceNumber, input.SupplierID, input.IssueDate, input.ReceiptDate,
		string(input.Status), total, input.Notes, createdBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, httpx.ErrDuplicate
		}
		return uuid.Nil, err
	}

	for _, item := range input.Items {
		_, err := tx.Exec(ctx, `
INSERT INTO invoice_items (invoice_id, product_code, product_name, batch, quantity, unit, unit_price, total_price, manufacturing_date, expiry_date)
VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)`,
			id, item.ProductCode, item.ProductName, item.Batch, item.Quantity, item.Unit,
			item.UnitPrice, item.Quantity*item.UnitPrice, item.ManufacturingDate, item.ExpiryDate)
		if err != nil {
			return uuid.Nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// UpdateStatus changes invoice status and receipt date.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, receiptDate *time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET status = $2, receipt_date = COALESCE($3, receipt_date), updated_at = NOW() WHERE id = $1`,
		id, string(status), receiptDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an invoice and, via cascade, its items.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
