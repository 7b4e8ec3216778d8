package locations

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chemstock/chemstock/internal/masterdata/shared"
	sharederrors "github.com/chemstock/chemstock/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error)
	Get(ctx context.Context, id uuid.UUID) (Location, error)
	Create(ctx context.Context, location Location) (Location, error)
	Update(ctx context.Context, id uuid.UUID, location Location) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, type, COALESCE(description, ''), created_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	query := `SELECT ` + columns + ` FROM locations WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM locations WHERE 1=1`
	args := []any{}
	countArgs := []any{}
	argCount := 0

	if filters.Type != "" {
		argCount++
		clause := ` AND type = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filters.Type)
		countArgs = append(countArgs, filters.Type)
	}
	if filters.Search != "" {
		argCount++
		clause := ` AND name ILIKE $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY name`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Type, &l.Description, &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Location, error) {
	var l Location
	err := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM locations WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.Type, &l.Description, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Location{}, sharederrors.ErrNotFound
		}
		return Location{}, err
	}
	return l, nil
}

func (r *repository) Create(ctx context.Context, location Location) (Location, error) {
	err := r.pool.QueryRow(ctx, `
INSERT INTO locations (name, type, description)
VALUES ($1, $2, NULLIF($3, ''))
RETURNING `+columns,
		location.Name, string(location.Type), location.Description).
		Scan(&location.ID, &location.Name, &location.Type, &location.Description, &location.CreatedAt)
	if err != nil {
		return Location{}, err
	}
	return location, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, location Location) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE locations SET name = $2, type = $3, description = NULLIF($4, '') WHERE id = $1`,
		id, location.Name, string(location.Type), location.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return sharederrors.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return sharederrors.ErrNotFound
	}
	return nil
}
