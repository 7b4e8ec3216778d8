package authz

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/chemstock/chemstock/internal/platform/httpx"
	"github.com/chemstock/chemstock/internal/shared"
)

// Middleware wires authorization checks into HTTP handlers.
//
// Resolution failures degrade to the safe default rather than failing the
// request outright: the user simply lacks the required capability and gets
// a 403, while the underlying error is logged.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequirePermission ensures the current user holds the given permission.
func (m Middleware) RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return m.guard(func(state State) bool {
		return state.HasPermission(perm)
	})
}

// RequireAnyPermission ensures the current user holds at least one of the
// listed permissions.
func (m Middleware) RequireAnyPermission(perms ...Permission) func(http.Handler) http.Handler {
	return m.guard(func(state State) bool {
		return state.HasAnyPermission(perms...)
	})
}

// RequireRole ensures the current user's role ranks at or above required.
func (m Middleware) RequireRole(required Role) func(http.Handler) http.Handler {
	return m.guard(func(state State) bool {
		return state.HasRoleAtLeast(required)
	})
}

func (m Middleware) guard(allowed func(State) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := CurrentUserID(r)
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			state, err := m.Service.ResolvePermissions(r.Context(), userID)
			if err != nil && m.Logger != nil {
				m.Logger.Warn("authorization check degraded",
					slog.String("path", r.URL.Path),
					slog.String("user_id", userID.String()),
					slog.Any("error", err))
			}
			if allowed(state) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

// CurrentUserID extracts the authenticated user id from the session.
func CurrentUserID(r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return uuid.Nil, false
	}
	raw := sess.User()
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
