package alerts

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductRow carries the product fields the alert rules inspect.
type ProductRow struct {
	ID         string
	Name       string
	Status     string
	Quantity   float64
	ExpiryDate time.Time
}

// Repository reads product state for alert generation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const rowColumns = `id, name, status, quantity, expiry_date`

func (r *Repository) query(ctx context.Context, where string, args ...any) ([]ProductRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+rowColumns+` FROM products WHERE `+where+` ORDER BY expiry_date`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProductRow
	for rows.Next() {
		var p ProductRow
		if err := rows.Scan(&p.ID, &p.Name, &p.Status, &p.Quantity, &p.ExpiryDate); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Expired returns batches already marked expired plus approved/pending ones
// past their expiry date.
func (r *Repository) Expired(ctx context.Context, asOf time.Time) ([]ProductRow, error) {
	return r.query(ctx, `status = 'expired' OR (expiry_date < $1 AND status IN ('pending', 'approved'))`, asOf)
}

// Expiring returns approved batches expiring within the window.
func (r *Repository) Expiring(ctx context.Context, asOf time.Time, days int) ([]ProductRow, error) {
	return r.query(ctx, `status = 'approved' AND expiry_date >= $1 AND expiry_date < $2`,
		asOf, asOf.AddDate(0, 0, days))
}

// LowStock returns approved batches with quantity below the threshold.
func (r *Repository) LowStock(ctx context.Context, threshold float64) ([]ProductRow, error) {
	return r.query(ctx, `status = 'approved' AND quantity < $1`, threshold)
}

// PendingApproval returns batches waiting for a laboratory decision.
func (r *Repository) PendingApproval(ctx context.Context) ([]ProductRow, error) {
	return r.query(ctx, `status = 'pending'`)
}
