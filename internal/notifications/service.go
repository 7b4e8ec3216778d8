package notifications

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/chemstock/chemstock/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	List(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	Insert(ctx context.Context, n Notification) (uuid.UUID, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DeleteAll(ctx context.Context, userID uuid.UUID) error
	GetPreferences(ctx context.Context, userID uuid.UUID) (Preferences, error)
	UpsertPreferences(ctx context.Context, p Preferences) error
	ListRecipients(ctx context.Context) ([]Recipient, error)
}

// EmailEnqueuer submits email tasks to the job queue.
type EmailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, to, subject, body string) error
}

// Service manages the notification feed and per-user preferences.
type Service struct {
	repo   RepositoryPort
	emails EmailEnqueuer
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, emails EmailEnqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, emails: emails, logger: logger}
}

// List returns the newest notifications for the user.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	return s.repo.List(ctx, userID, limit)
}

// UnreadCount returns the user's unread tally.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// MarkRead marks a single notification read.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// MarkAllRead clears the user's unread set.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// Delete removes one notification.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

// DeleteAll clears the user's feed.
func (s *Service) DeleteAll(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteAll(ctx, userID)
}

// Preferences returns the user's stored preferences, falling back to the
// defaults when none were saved yet.
func (s *Service) Preferences(ctx context.Context, userID uuid.UUID) (Preferences, error) {
	prefs, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return DefaultPreferences(userID), nil
		}
		return Preferences{}, err
	}
	return prefs, nil
}

// SavePreferences stores the user's preferences.
func (s *Service) SavePreferences(ctx context.Context, prefs Preferences) error {
	if prefs.ExpiryDaysThreshold <= 0 {
		prefs.ExpiryDaysThreshold = 30
	}
	if prefs.LowStockThreshold <= 0 {
		prefs.LowStockThreshold = 10
	}
	return s.repo.UpsertPreferences(ctx, prefs)
}

// Recipients returns active users with effective preferences.
func (s *Service) Recipients(ctx context.Context) ([]Recipient, error) {
	return s.repo.ListRecipients(ctx)
}

// Notify stores a notification for the user when their preferences allow
// it, and enqueues an email when email delivery is enabled. The email is
// best effort: queue failures are logged, not returned.
func (s *Service) Notify(ctx context.Context, recipient Recipient, n Notification) error {
	prefs := recipient.Preferences
	if !prefs.Allows(n.Kind) {
		return nil
	}
	n.UserID = prefs.UserID
	if n.Severity == "" {
		n.Severity = SeverityInfo
	}
	if prefs.PushEnabled {
		if _, err := s.repo.Insert(ctx, n); err != nil {
			return err
		}
	}
	if prefs.EmailEnabled && recipient.Email != "" && s.emails != nil {
		if err := s.emails.EnqueueSendEmail(ctx, recipient.Email, n.Title, n.Message); err != nil && s.logger != nil {
			s.logger.Warn("enqueue notification email",
				slog.String("user_id", prefs.UserID.String()),
				slog.Any("error", err))
		}
	}
	return nil
}

// NotifyUser looks up the user's preferences and delivers through Notify.
func (s *Service) NotifyUser(ctx context.Context, userID uuid.UUID, email string, n Notification) error {
	prefs, err := s.Preferences(ctx, userID)
	if err != nil {
		return err
	}
	return s.Notify(ctx, Recipient{Email: email, Preferences: prefs}, n)
}
