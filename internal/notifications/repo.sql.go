package notifications

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chemstock/chemstock/internal/shared"
)

// Repository persists notification data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, user_id, type, title, message, severity, read, read_at, data, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var data []byte
	err := row.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.Severity, &n.Read, &n.ReadAt, &data, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &n.Data)
	}
	return &n, nil
}

// List returns the newest notifications for a user.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+columns+` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// UnreadCount returns how many unread notifications the user has.
func (r *Repository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&count)
	return count, err
}

// Insert stores a notification.
func (r *Repository) Insert(ctx context.Context, n Notification) (uuid.UUID, error) {
	var data []byte
	if n.Data != nil {
		var err error
		data, err = json.Marshal(n.Data)
		if err != nil {
			return uuid.Nil, err
		}
	}
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
INSERT INTO notifications (user_id, type, title, message, severity, data)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		n.UserID, string(n.Kind), n.Title, n.Message, string(n.Severity), data).Scan(&id)
	return id, err
}

// MarkRead marks one notification read, scoped by owner.
func (r *Repository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE, read_at = NOW() WHERE id = $1 AND user_id = $2 AND NOT read`,
		id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the user read.
func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE, read_at = NOW() WHERE user_id = $1 AND NOT read`, userID)
	return err
}

// Delete removes one notification, scoped by owner.
func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteAll removes every notification of the user.
func (r *Repository) DeleteAll(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	return err
}

// GetPreferences returns the stored preferences, or ErrNotFound.
func (r *Repository) GetPreferences(ctx context.Context, userID uuid.UUID) (Preferences, error) {
	var p Preferences
	err := r.pool.QueryRow(ctx, `
SELECT user_id, email_enabled, push_enabled, expiry_alerts, low_stock_alerts, movement_alerts,
       approval_alerts, system_alerts, expiry_days_threshold, low_stock_threshold
FROM notification_preferences WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.EmailEnabled, &p.PushEnabled, &p.ExpiryAlerts, &p.LowStockAlerts, &p.MovementAlerts,
			&p.ApprovalAlerts, &p.SystemAlerts, &p.ExpiryDaysThreshold, &p.LowStockThreshold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Preferences{}, shared.ErrNotFound
		}
		return Preferences{}, err
	}
	return p, nil
}

// UpsertPreferences stores the user's preferences.
func (r *Repository) UpsertPreferences(ctx context.Context, p Preferences) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO notification_preferences
    (user_id, email_enabled, push_enabled, expiry_alerts, low_stock_alerts, movement_alerts,
     approval_alerts, system_alerts, expiry_days_threshold, low_stock_threshold)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (user_id) DO UPDATE SET
    email_enabled = EXCLUDED.email_enabled,
    push_enabled = EXCLUDED.push_enabled,
    expiry_alerts = EXCLUDED.expiry_alerts,
    low_stock_alerts = EXCLUDED.low_stock_alerts,
    movement_alerts = EXCLUDED.movement_alerts,
    approval_alerts = EXCLUDED.approval_alerts,
    system_alerts = EXCLUDED.system_alerts,
    expiry_days_threshold = EXCLUDED.expiry_days_threshold,
    low_stock_threshold = EXCLUDED.low_stock_threshold,
    updated_at = NOW()`,
		p.UserID, p.EmailEnabled, p.PushEnabled, p.ExpiryAlerts, p.LowStockAlerts, p.MovementAlerts,
		p.ApprovalAlerts, p.SystemAlerts, p.ExpiryDaysThreshold, p.LowStockThreshold)
	return err
}

// ListRecipients returns active users together with their preferences so the
// alert scan can fan out.
func (r *Repository) ListRecipients(ctx context.Context) ([]Recipient, error) {
	rows, err := r.pool.Query(ctx, `
SELECT u.id, u.email,
       COALESCE(np.email_enabled, FALSE), COALESCE(np.push_enabled, TRUE),
       COALESCE(np.expiry_alerts, TRUE), COALESCE(np.low_stock_alerts, TRUE),
       COALESCE(np.movement_alerts, TRUE), COALESCE(np.approval_alerts, TRUE),
       COALESCE(np.system_alerts, TRUE),
       COALESCE(np.expiry_days_threshold, 30), COALESCE(np.low_stock_threshold, 10)
FROM users u
LEFT JOIN notification_preferences np ON np.user_id = u.id
WHERE u.is_active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Recipient
	for rows.Next() {
		var rec Recipient
		if err := rows.Scan(&rec.Preferences.UserID, &rec.Email,
			&rec.Preferences.EmailEnabled, &rec.Preferences.PushEnabled,
			&rec.Preferences.ExpiryAlerts, &rec.Preferences.LowStockAlerts,
			&rec.Preferences.MovementAlerts, &rec.Preferences.ApprovalAlerts,
			&rec.Preferences.SystemAlerts,
			&rec.Preferences.ExpiryDaysThreshold, &rec.Preferences.LowStockThreshold); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
