package products

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	h := NewHandler(logger, NewService(repo, nil), mw)
	r := chi.NewRouter()
	r.Route("/products", h.MountRoutes)
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

// ===== TESTS =====

func TestApproveRefusedBelowAnalystTier(t *testing.T) {
	repo := newMockRepo()
	repo.seed("CHM-001", StatusPending, 10, time.Now().AddDate(1, 0, 0))

	store := newMockAuthzStore()
	userID := uuid.New()
	store.roles[userID] = []string{"operator"}
	store.perms[userID] = []string{"approve_products"}

	router := newTestRouter(t, repo, store)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/products/CHM-001/approve", userID, ""))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	got, err := repo.Get(context.Background(), "CHM-001")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestRejectRefusedBelowAnalystTier(t *testing.T) {
	repo := newMockRepo()
	repo.seed("CHM-001", StatusPending, 10, time.Now().AddDate(1, 0, 0))

	store := newMockAuthzStore()
	userID := uuid.New()
	store.roles[userID] = []string{"operator"}
	store.perms[userID] = []string{"approve_products"}

	router := newTestRouter(t, repo, store)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/products/CHM-001/reject", userID, `{"reason":"contaminated"}`))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApproveAllowsAnalystWithGrant(t *testing.T) {
	repo := newMockRepo()
	repo.seed("CHM-001", StatusPending, 10, time.Now().AddDate(1, 0, 0))

	store := newMockAuthzStore()
	userID := uuid.New()
	store.roles[userID] = []string{"analyst"}
	store.perms[userID] = []string{"approve_products"}

	router := newTestRouter(t, repo, store)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/products/CHM-001/approve", userID, ""))

	assert.Equal(t, http.StatusNoContent, rec.Code)

	got, err := repo.Get(context.Background(), "CHM-001")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
}

func TestApproveRefusedAnalystWithoutGrant(t *testing.T) {
	repo := newMockRepo()
	repo.seed("CHM-001", StatusPending, 10, time.Now().AddDate(1, 0, 0))

	store := newMockAuthzStore()
	userID := uuid.New()
	store.roles[userID] = []string{"analyst"}

	router := newTestRouter(t, repo, store)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/products/CHM-001/approve", userID, ""))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
