package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind the overview report.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// MonthlyMovements counts movements per month over the trailing window.
func (r *Repository) MonthlyMovements(ctx context.Context, months int) ([]MonthlyMovements, error) {
	rows, err := r.pool.Query(ctx, `
SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
       COUNT(*) FILTER (WHERE movement_type = 'entry'),
       COUNT(*) FILTER (WHERE movement_type = 'exit'),
       COUNT(*) FILTER (WHERE movement_type = 'transfer')
FROM product_movements
WHERE created_at >= date_trunc('month', NOW()) - ($1 - 1) * INTERVAL '1 month'
GROUP BY 1
ORDER BY 1`, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MonthlyMovements
	for rows.Next() {
		var m MonthlyMovements
		if err := rows.Scan(&m.Month, &m.Entries, &m.Exits, &m.Transfers); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// TopProducts ranks products by quantity moved over the trailing window.
func (r *Repository) TopProducts(ctx context.Context, months, limit int) ([]TopProduct, error) {
	rows, err := r.pool.Query(ctx, `
SELECT m.product_id, p.name, SUM(m.quantity)
FROM product_movements m
JOIN products p ON p.id = m.product_id
WHERE m.created_at >= NOW() - ($1 * INTERVAL '1 month')
GROUP BY m.product_id, p.name
ORDER BY SUM(m.quantity) DESC
LIMIT $2`, months, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TopProduct
	for rows.Next() {
		var t TopProduct
		if err := rows.Scan(&t.ProductID, &t.ProductName, &t.Moved); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LocationDistribution sums approved stock per location.
func (r *Repository) LocationDistribution(ctx context.Context) ([]LocationSlice, error) {
	rows, err := r.pool.Query(ctx, `
SELECT l.id::text, l.name, COUNT(p.id), COALESCE(SUM(p.quantity), 0)
FROM locations l
LEFT JOIN products p ON p.location_id = l.id AND p.status = 'approved'
GROUP BY l.id, l.name
ORDER BY l.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LocationSlice
	for rows.Next() {
		var s LocationSlice
		if err := rows.Scan(&s.LocationID, &s.LocationName, &s.Products, &s.Quantity); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MonthlyCosts sums invoice item totals per month over the trailing window.
func (r *Repository) MonthlyCosts(ctx context.Context, months int) ([]MonthlyCost, error) {
	rows, err := r.pool.Query(ctx, `
SELECT to_char(date_trunc('month', i.issue_date), 'YYYY-MM') AS month,
       COALESCE(SUM(it.total_price), 0)
FROM invoices i
JOIN invoice_items it ON it.invoice_id = i.id
WHERE i.issue_date >= date_trunc('month', NOW()) - ($1 - 1) * INTERVAL '1 month'
GROUP BY 1
ORDER BY 1`, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MonthlyCost
	for rows.Next() {
		var c MonthlyCost
		if err := rows.Scan(&c.Month, &c.Total); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Depletion projects days-to-empty from exits over the trailing 30 days.
func (r *Repository) Depletion(ctx context.Context, limit int) ([]DepletionProjection, error) {
	rows, err := r.pool.Query(ctx, `
SELECT p.id, p.name, p.quantity,
       COALESCE(SUM(m.quantity) / 30.0, 0) AS daily_exits
FROM products p
LEFT JOIN product_movements m
       ON m.product_id = p.id AND m.movement_type = 'exit' AND m.created_at >= NOW() - INTERVAL '30 days'
WHERE p.status = 'approved' AND p.quantity > 0
GROUP BY p.id, p.name, p.quantity
HAVING COALESCE(SUM(m.quantity), 0) > 0
ORDER BY p.quantity / (SUM(m.quantity) / 30.0)
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DepletionProjection
	for rows.Next() {
		var d DepletionProjection
		if err := rows.Scan(&d.ProductID, &d.ProductName, &d.Quantity, &d.DailyExits); err != nil {
			return nil, err
		}
		if d.DailyExits > 0 {
			d.DaysToEmpty = int(d.Quantity / d.DailyExits)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
