package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/chemstock/chemstock/internal/shared"
)

// ===== MOCK REPOSITORY =====

type mockRepo struct {
	users   map[uuid.UUID]*User
	created []struct {
		email, fullName, hash, role string
	}
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) ListUsers(context.Context) ([]User, error) {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockRepo) GetUser(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) CreateUser(_ context.Context, email, fullName, hash, role string) (uuid.UUID, error) {
	m.created = append(m.created, struct{ email, fullName, hash, role string }{email, fullName, hash, role})
	id := uuid.New()
	m.users[id] = &User{ID: id, Email: email, FullName: fullName, Role: role, IsActive: true}
	return id, nil
}

func (m *mockRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = active
	return nil
}

// ===== TESTS =====

func TestCreateUserHashesPasswordAndNormalizes(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	id, err := svc.CreateUser(context.Background(), NewUser{
		Email:    " Lab@ChemStock.local ",
		FullName: " Ana Lyst ",
		Password: "correct-horse",
		Role:     "analyst",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	require.Len(t, repo.created, 1)
	rec := repo.created[0]
	assert.Equal(t, "lab@chemstock.local", rec.email)
	assert.Equal(t, "Ana Lyst", rec.fullName)
	assert.Equal(t, "analyst", rec.role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(rec.hash), []byte("correct-horse")))
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	_, err := svc.CreateUser(context.Background(), NewUser{
		Email:    "lab@chemstock.local",
		FullName: "Ana Lyst",
		Password: "correct-horse",
		Role:     "superuser",
	})
	assert.Error(t, err)
}

func TestSetActiveUnknownUser(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	err := svc.SetActive(context.Background(), uuid.New(), false)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
