package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/chemstock/chemstock/internal/shared"
)

func requestWithUser(t *testing.T, userID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	sess := &shared.Session{}
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func guardedRouter(mw Middleware, guard func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(guard)
		r.Get("/guarded", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func TestRequirePermissionAllows(t *testing.T) {
	store := newMockStore()
	userID := uuid.New()
	store.roles[userID] = []string{"operator"}
	store.perms[userID] = []string{"view_products"}
	mw := Middleware{Service: NewService(store, nil, nil)}

	router := guardedRouter(mw, mw.RequirePermission(PermViewProducts))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestWithUser(t, userID.String()))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermissionDenies(t *testing.T) {
	store := newMockStore()
	userID := uuid.New()
	store.roles[userID] = []string{"operator"}
	mw := Middleware{Service: NewService(store, nil, nil)}

	router := guardedRouter(mw, mw.RequirePermission(PermDeleteProducts))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestWithUser(t, userID.String()))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardWithoutSessionIsUnauthorized(t *testing.T) {
	mw := Middleware{Service: NewService(newMockStore(), nil, nil)}

	router := guardedRouter(mw, mw.RequireRole(RoleViewer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/guarded", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleUsesEffectiveTier(t *testing.T) {
	store := newMockStore()
	userID := uuid.New()
	store.roles[userID] = []string{"viewer", "analyst"}
	mw := Middleware{Service: NewService(store, nil, nil)}

	router := guardedRouter(mw, mw.RequireRole(RoleOperator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestWithUser(t, userID.String()))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardDegradesOnStoreFailure(t *testing.T) {
	store := newMockStore()
	userID := uuid.New()
	store.rolesErr = assert.AnError
	mw := Middleware{Service: NewService(store, nil, nil)}

	// Failure never elevates: an admin-gated route stays forbidden...
	router := guardedRouter(mw, mw.RequireRole(RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestWithUser(t, userID.String()))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// ...while viewer-tier routes keep working.
	router = guardedRouter(mw, mw.RequireRole(RoleViewer))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, requestWithUser(t, userID.String()))
	assert.Equal(t, http.StatusOK, rec.Code)
}
