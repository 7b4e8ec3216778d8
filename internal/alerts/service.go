package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/chemstock/chemstock/internal/notifications"
)

const (
	snapshotKey   = "alerts:snapshot"
	snapshotTTL   = 10 * time.Minute
	ackTTL        = 30 * 24 * time.Hour
	dedupeTTL     = 24 * time.Hour
	snapshotSFKey = "snapshot"
)

// RepositoryPort abstracts the product queries behind the alert rules.
type RepositoryPort interface {
	Expired(ctx context.Context, asOf time.Time) ([]ProductRow, error)
	Expiring(ctx context.Context, asOf time.Time, days int) ([]ProductRow, error)
	LowStock(ctx context.Context, threshold float64) ([]ProductRow, error)
	PendingApproval(ctx context.Context) ([]ProductRow, error)
}

// CatalogPort lets the scan transition overdue batches.
type CatalogPort interface {
	MarkExpired(ctx context.Context, asOf time.Time) ([]string, error)
}

// NotifierPort fans scan results out to users.
type NotifierPort interface {
	Recipients(ctx context.Context) ([]notifications.Recipient, error)
	Notify(ctx context.Context, recipient notifications.Recipient, n notifications.Notification) error
}

// Service builds and caches the alert snapshot and runs the periodic scan.
type Service struct {
	repo     RepositoryPort
	catalog  CatalogPort
	notifier NotifierPort
	redis    *redis.Client
	logger   *slog.Logger
	defaults Thresholds
	group    singleflight.Group
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, catalog CatalogPort, notifier NotifierPort, rdb *redis.Client, logger *slog.Logger, defaults Thresholds) *Service {
	if defaults.ExpiryDays <= 0 {
		defaults.ExpiryDays = 30
	}
	if defaults.LowStock <= 0 {
		defaults.LowStock = 10
	}
	return &Service{
		repo:     repo,
		catalog:  catalog,
		notifier: notifier,
		redis:    rdb,
		logger:   logger,
		defaults: defaults,
		now:      time.Now,
	}
}

// Snapshot returns the cached snapshot, rebuilding it at most once
// concurrently when the cache is cold.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, snapshotKey).Bytes(); err == nil {
			var snap Snapshot
			if err := json.Unmarshal(cached, &snap); err == nil {
				return snap, nil
			}
		}
	}

	result, err, _ := s.group.Do(snapshotSFKey, func() (any, error) {
		snap, err := s.build(ctx, s.defaults)
		if err != nil {
			return Snapshot{}, err
		}
		if s.redis != nil {
			if data, err := json.Marshal(snap); err == nil {
				if err := s.redis.Set(ctx, snapshotKey, data, snapshotTTL).Err(); err != nil && s.logger != nil {
					s.logger.Warn("cache alert snapshot", slog.Any("error", err))
				}
			}
		}
		return snap, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return result.(Snapshot), nil
}

// Invalidate drops the cached snapshot.
func (s *Service) Invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, snapshotKey).Err(); err != nil && s.logger != nil {
		s.logger.Warn("invalidate alert snapshot", slog.Any("error", err))
	}
}

// build evaluates all alert rules against the catalog.
func (s *Service) build(ctx context.Context, th Thresholds) (Snapshot, error) {
	now := s.now()
	snap := Snapshot{GeneratedAt: now}

	expired, err := s.repo.Expired(ctx, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("alerts: expired rule: %w", err)
	}
	for _, p := range expired {
		snap.Alerts = append(snap.Alerts, productAlert(KindExpired, SeverityHigh, p,
			fmt.Sprintf("%s (batch %s) has expired", p.Name, p.ID)))
	}

	expiring, err := s.repo.Expiring(ctx, now, th.ExpiryDays)
	if err != nil {
		return Snapshot{}, fmt.Errorf("alerts: expiring rule: %w", err)
	}
	for _, p := range expiring {
		days := int(p.ExpiryDate.Sub(now).Hours() / 24)
		snap.Alerts = append(snap.Alerts, productAlert(KindExpiring, SeverityMedium, p,
			fmt.Sprintf("%s expires in %d days", p.Name, days)))
	}

	lowStock, err := s.repo.LowStock(ctx, th.LowStock)
	if err != nil {
		return Snapshot{}, fmt.Errorf("alerts: low stock rule: %w", err)
	}
	for _, p := range lowStock {
		snap.Alerts = append(snap.Alerts, productAlert(KindLowStock, SeverityMedium, p,
			fmt.Sprintf("%s stock is low (%.1f remaining)", p.Name, p.Quantity)))
	}

	pending, err := s.repo.PendingApproval(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("alerts: pending rule: %w", err)
	}
	for _, p := range pending {
		snap.Alerts = append(snap.Alerts, productAlert(KindPending, SeverityLow, p,
			fmt.Sprintf("%s is awaiting laboratory approval", p.Name)))
	}

	return snap, nil
}

func productAlert(kind Kind, severity Severity, p ProductRow, message string) Alert {
	expiry := p.ExpiryDate
	return Alert{
		ID:          string(kind) + ":" + p.ID,
		Kind:        kind,
		Severity:    severity,
		ProductID:   p.ID,
		ProductName: p.Name,
		Message:     message,
		Quantity:    p.Quantity,
		ExpiryDate:  &expiry,
	}
}

// Acknowledge records that the user has seen the alert.
func (s *Service) Acknowledge(ctx context.Context, userID uuid.UUID, alertID string) error {
	if s.redis == nil {
		return nil
	}
	key := ackKey(userID)
	if err := s.redis.SAdd(ctx, key, alertID).Err(); err != nil {
		return err
	}
	return s.redis.Expire(ctx, key, ackTTL).Err()
}

// Acknowledged returns the alert ids the user has acknowledged.
func (s *Service) Acknowledged(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if s.redis == nil {
		return nil, nil
	}
	return s.redis.SMembers(ctx, ackKey(userID)).Result()
}

func ackKey(userID uuid.UUID) string {
	return "alerts:acks:" + userID.String()
}

// Scan marks overdue batches expired, refreshes the snapshot and fans the
// alerts out as notifications using each recipient's own thresholds.
// Delivery is deduplicated per user and alert for a day so the hourly scan
// does not spam.
func (s *Service) Scan(ctx context.Context) error {
	now := s.now()

	newlyExpired, err := s.catalog.MarkExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("alerts: mark expired: %w", err)
	}
	if len(newlyExpired) > 0 && s.logger != nil {
		s.logger.Info("marked products expired", slog.Int("count", len(newlyExpired)))
	}
	s.Invalidate(ctx)

	recipients, err := s.notifier.Recipients(ctx)
	if err != nil {
		return fmt.Errorf("alerts: list recipients: %w", err)
	}

	for _, recipient := range recipients {
		th := Thresholds{
			ExpiryDays: recipient.Preferences.ExpiryDaysThreshold,
			LowStock:   float64(recipient.Preferences.LowStockThreshold),
		}
		if th.ExpiryDays <= 0 {
			th.ExpiryDays = s.defaults.ExpiryDays
		}
		if th.LowStock <= 0 {
			th.LowStock = s.defaults.LowStock
		}
		snap, err := s.build(ctx, th)
		if err != nil {
			return err
		}
		for _, alert := range snap.Alerts {
			if !s.shouldDeliver(ctx, recipient.Preferences.UserID, alert.ID) {
				continue
			}
			n := notifications.Notification{
				Kind:     notificationKind(alert.Kind),
				Title:    alertTitle(alert.Kind),
				Message:  alert.Message,
				Severity: notifications.Severity(alert.Severity),
				Data:     map[string]any{"product_id": alert.ProductID, "alert_id": alert.ID},
			}
			if err := s.notifier.Notify(ctx, recipient, n); err != nil && s.logger != nil {
				s.logger.Warn("deliver alert notification",
					slog.String("user_id", recipient.Preferences.UserID.String()),
					slog.String("alert_id", alert.ID),
					slog.Any("error", err))
			}
		}
	}
	return nil
}

// shouldDeliver uses a redis SETNX marker to avoid re-sending the same
// alert to the same user on every scan. Without redis it always delivers.
func (s *Service) shouldDeliver(ctx context.Context, userID uuid.UUID, alertID string) bool {
	if s.redis == nil {
		return true
	}
	key := "alerts:sent:" + userID.String() + ":" + alertID
	ok, err := s.redis.SetNX(ctx, key, 1, dedupeTTL).Result()
	if err != nil {
		return true
	}
	return ok
}

func notificationKind(kind Kind) notifications.Kind {
	switch kind {
	case KindExpired, KindExpiring:
		return notifications.KindExpiry
	case KindLowStock:
		return notifications.KindLowStock
	case KindPending:
		return notifications.KindApproval
	}
	return notifications.KindSystem
}

func alertTitle(kind Kind) string {
	switch kind {
	case KindExpired:
		return "Product expired"
	case KindExpiring:
		return "Product expiring soon"
	case KindLowStock:
		return "Low stock"
	case KindPending:
		return "Pending approval"
	}
	return "Inventory alert"
}
