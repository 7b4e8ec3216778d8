package movements

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/chemstock/chemstock/internal/authz"
	"github.com/chemstock/chemstock/internal/shared"
)

// ===== MOCK AUTHZ STORE =====

type mockAuthzStore struct {
	roles map[uuid.UUID][]string
	perms map[uuid.UUID][]string
}

func newMockAuthzStore() *mockAuthzStore {
	return &mockAuthzStore{
		roles: make(map[uuid.UUID][]string),
		perms: make(map[uuid.UUID][]string),
	}
}

func (m *mockAuthzStore) RolesForUser(_ context.Context, userID uuid.UUID) ([]string, error) {
	return m.roles[userID], nil
}

func (m *mockAuthzStore) PermissionsForUser(_ context.Context, userID uuid.UUID) ([]string, error) {
	return m.perms[userID], nil
}

func (m *mockAuthzStore) AssignRole(context.Context, uuid.UUID, string) error { return nil }

func (m *mockAuthzStore) RemoveRole(context.Context, uuid.UUID, string) error { return nil }

func (m *mockAuthzStore) GrantPermission(context.Context, uuid.UUID, string, uuid.UUID) error {
	return nil
}

func (m *mockAuthzStore) RevokePermission(context.Context, uuid.UUID, string) error { return nil }

// ===== HELPERS =====

func newTestRouter(t *testing.T, repo *mockRepo, store *mockAuthzStore) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := authz.Middleware{Service: authz.NewService(store, nil, logger)}
	h := NewHandler(logger, NewService(repo, nil, nil), mw)
	r := chi.NewRouter()
	r.Route("/movements", h.MountRoutes)
	return r
}

func authedRequest(method, target string, userID uuid.UUID, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	sess := &shared.Session{}
	sess.SetUser(userID.String())
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func entryBody(locationID uuid.UUID) string {
	return `{"product_id":"CHM-001","movement_type":"entry","quantity":5,"to_location_id":"` + locationID.String() + `"}`
}

// ===== TESTS =====

func TestCreateMovementRefusedBelowOperatorTier(t *testing.T) {
	repo := newMockRepo()
	repo.stock["CHM-001"] = &stockRow{quantity: 5}

	store := newMockAuthzStore()
	userID := uuid.New()
	store.roles[userID] = []string{"viewer"}
	store.perms[userID] = []string{"create_movements"}

	router := newTestRouter(t, repo, store)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/movements/", userID, entryBody(uuid.New())))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, repo.movements)
	assert.Equal(t, 5.0, repo.stock["CHM-001"].quantity)
}

func TestCreateMovementAllowsOperatorWithGrant(t *testing.T) {
	repo := newMockRepo()
	repo.stock["CHM-001"] = &stockRow{quantity: 5}

	store := newMockAuthzStore()
	userID := uuid.New()
	store.roles[userID] = []string{"operator"}
	store.perms[userID] = []string{"create_movements"}

	router := newTestRouter(t, repo, store)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/movements/", userID, entryBody(uuid.New())))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, repo.movements, 1)
	assert.Equal(t, 10.0, repo.stock["CHM-001"].quantity)
}
