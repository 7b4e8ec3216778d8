package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemstock/chemstock/internal/shared"
)

// ===== MOCK REPOSITORY =====

type mockRepo struct {
	notifications map[uuid.UUID][]Notification
	preferences   map[uuid.UUID]Preferences
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		notifications: make(map[uuid.UUID][]Notification),
		preferences:   make(map[uuid.UUID]Preferences),
	}
}

func (m *mockRepo) List(_ context.Context, userID uuid.UUID, _ int) ([]Notification, error) {
	return m.notifications[userID], nil
}

func (m *mockRepo) UnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range m.notifications[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) Insert(_ context.Context, n Notification) (uuid.UUID, error) {
	n.ID = uuid.New()
	m.notifications[n.UserID] = append(m.notifications[n.UserID], n)
	return n.ID, nil
}

func (m *mockRepo) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	for i, n := range m.notifications[userID] {
		if n.ID == id && !n.Read {
			m.notifications[userID][i].Read = true
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *mockRepo) MarkAllRead(_ context.Context, userID uuid.UUID) error {
	for i := range m.notifications[userID] {
		m.notifications[userID][i].Read = true
	}
	return nil
}

func (m *mockRepo) Delete(_ context.Context, userID, id uuid.UUID) error {
	items := m.notifications[userID]
	for i, n := range items {
		if n.ID == id {
			m.notifications[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *mockRepo) DeleteAll(_ context.Context, userID uuid.UUID) error {
	delete(m.notifications, userID)
	return nil
}

func (m *mockRepo) GetPreferences(_ context.Context, userID uuid.UUID) (Preferences, error) {
	p, ok := m.preferences[userID]
	if !ok {
		return Preferences{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) UpsertPreferences(_ context.Context, p Preferences) error {
	m.preferences[p.UserID] = p
	return nil
}

func (m *mockRepo) ListRecipients(context.Context) ([]Recipient, error) {
	var out []Recipient
	for _, p := range m.preferences {
		out = append(out, Recipient{Preferences: p})
	}
	return out, nil
}

// ===== MOCK EMAIL QUEUE =====

type mockEmails struct {
	sent []string
}

func (m *mockEmails) EnqueueSendEmail(_ context.Context, to, _, _ string) error {
	m.sent = append(m.sent, to)
	return nil
}

// ===== TESTS =====

func TestNotifyHonorsKindToggle(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)
	userID := uuid.New()

	prefs := DefaultPreferences(userID)
	prefs.LowStockAlerts = false
	recipient := Recipient{Preferences: prefs}

	err := svc.Notify(context.Background(), recipient, Notification{Kind: KindLowStock, Title: "Low stock", Message: "x"})
	require.NoError(t, err)
	assert.Empty(t, repo.notifications[userID])

	err = svc.Notify(context.Background(), recipient, Notification{Kind: KindExpiry, Title: "Expiring", Message: "x"})
	require.NoError(t, err)
	assert.Len(t, repo.notifications[userID], 1)
}

func TestNotifyEnqueuesEmailWhenEnabled(t *testing.T) {
	repo := newMockRepo()
	emails := &mockEmails{}
	svc := NewService(repo, emails, nil)
	userID := uuid.New()

	prefs := DefaultPreferences(userID)
	prefs.EmailEnabled = true
	recipient := Recipient{Email: "lab@chemstock.local", Preferences: prefs}

	require.NoError(t, svc.Notify(context.Background(), recipient, Notification{Kind: KindExpiry, Title: "Expiring", Message: "x"}))
	assert.Equal(t, []string{"lab@chemstock.local"}, emails.sent)
}

func TestNotifySkipsFeedWhenPushDisabled(t *testing.T) {
	repo := newMockRepo()
	emails := &mockEmails{}
	svc := NewService(repo, emails, nil)
	userID := uuid.New()

	prefs := DefaultPreferences(userID)
	prefs.PushEnabled = false
	prefs.EmailEnabled = true
	recipient := Recipient{Email: "lab@chemstock.local", Preferences: prefs}

	require.NoError(t, svc.Notify(context.Background(), recipient, Notification{Kind: KindSystem, Title: "Maintenance", Message: "x"}))
	assert.Empty(t, repo.notifications[userID])
	assert.Len(t, emails.sent, 1)
}

func TestPreferencesFallsBackToDefaults(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)
	userID := uuid.New()

	prefs, err := svc.Preferences(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 30, prefs.ExpiryDaysThreshold)
	assert.Equal(t, 10, prefs.LowStockThreshold)
	assert.True(t, prefs.PushEnabled)
	assert.False(t, prefs.EmailEnabled)
}

func TestSavePreferencesRestoresThresholdDefaults(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)
	userID := uuid.New()

	prefs := DefaultPreferences(userID)
	prefs.ExpiryDaysThreshold = 0
	prefs.LowStockThreshold = -5
	require.NoError(t, svc.SavePreferences(context.Background(), prefs))

	stored := repo.preferences[userID]
	assert.Equal(t, 30, stored.ExpiryDaysThreshold)
	assert.Equal(t, 10, stored.LowStockThreshold)
}

func TestMarkReadLifecycle(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)
	userID := uuid.New()
	recipient := Recipient{Preferences: DefaultPreferences(userID)}

	require.NoError(t, svc.Notify(context.Background(), recipient, Notification{Kind: KindApproval, Title: "Pending", Message: "x"}))
	require.NoError(t, svc.Notify(context.Background(), recipient, Notification{Kind: KindSystem, Title: "News", Message: "y"}))

	count, err := svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	first := repo.notifications[userID][0]
	require.NoError(t, svc.MarkRead(context.Background(), userID, first.ID))

	count, err = svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.MarkAllRead(context.Background(), userID))
	count, _ = svc.UnreadCount(context.Background(), userID)
	assert.Zero(t, count)
}
