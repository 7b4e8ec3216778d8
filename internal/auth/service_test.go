package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/chemstock/chemstock/internal/shared"
)

// ===== MOCK REPOSITORY =====

type mockRepo struct {
	users    map[uuid.UUID]*User
	byEmail  map[string]uuid.UUID
	sessions map[string]uuid.UUID
	findErr  error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users:    make(map[uuid.UUID]*User),
		byEmail:  make(map[string]uuid.UUID),
		sessions: make(map[string]uuid.UUID),
	}
}

func (m *mockRepo) addUser(email, password string, active bool) *User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     "Test User",
		PasswordHash: string(hash),
		IsActive:     active,
	}
	m.users[user.ID] = user
	m.byEmail[email] = user.ID
	return user
}

func (m *mockRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	id, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return m.users[id], nil
}

func (m *mockRepo) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	user, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (m *mockRepo) UpdateProfile(_ context.Context, id uuid.UUID, update ProfileUpdate) (*User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if other, taken := m.byEmail[update.Email]; taken && other != id {
		return nil, ErrEmailTaken
	}
	delete(m.byEmail, user.Email)
	user.Email = update.Email
	user.FullName = update.FullName
	m.byEmail[user.Email] = id
	return user, nil
}

func (m *mockRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	user, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.PasswordHash = hash
	return nil
}

func (m *mockRepo) CreateSession(_ context.Context, id string, userID uuid.UUID, _ time.Time, _, _ string) error {
	m.sessions[id] = userID
	return nil
}

func (m *mockRepo) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

// ===== TESTS =====

func TestAuthenticateSuccess(t *testing.T) {
	repo := newMockRepo()
	seeded := repo.addUser("lab@chemstock.local", "correct-horse", true)
	svc := NewService(repo)

	user, err := svc.Authenticate(context.Background(), "Lab@ChemStock.local ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newMockRepo()
	repo.addUser("lab@chemstock.local", "correct-horse", true)
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "lab@chemstock.local", "battery-staple")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Authenticate(context.Background(), "nobody@chemstock.local", "whatever")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	repo := newMockRepo()
	repo.addUser("gone@chemstock.local", "correct-horse", false)
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "gone@chemstock.local", "correct-horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestUpdateProfileNormalizesEmail(t *testing.T) {
	repo := newMockRepo()
	user := repo.addUser("old@chemstock.local", "correct-horse", true)
	svc := NewService(repo)

	updated, err := svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{
		Email:    "  New@ChemStock.local ",
		FullName: " Ana Lyst ",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@chemstock.local", updated.Email)
	assert.Equal(t, "Ana Lyst", updated.FullName)
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	repo := newMockRepo()
	user := repo.addUser("lab@chemstock.local", "correct-horse", true)
	svc := NewService(repo)

	err := svc.ChangePassword(context.Background(), user.ID, "wrong", "next-password")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	err = svc.ChangePassword(context.Background(), user.ID, "correct-horse", "next-password")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "lab@chemstock.local", "next-password")
	assert.NoError(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	repo := newMockRepo()
	user := repo.addUser("lab@chemstock.local", "correct-horse", true)
	svc := NewService(repo)

	err := svc.RegisterSession(context.Background(), "sess-1", user.ID, time.Now().Add(time.Hour), "127.0.0.1", "go-test")
	require.NoError(t, err)
	assert.Contains(t, repo.sessions, "sess-1")

	require.NoError(t, svc.RemoveSession(context.Background(), "sess-1"))
	assert.NotContains(t, repo.sessions, "sess-1")
}
