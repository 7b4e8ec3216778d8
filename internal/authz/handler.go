package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chemstock/chemstock/internal/platform/httpx"
	"github.com/chemstock/chemstock/internal/shared"
)

// Handler exposes role and permission administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	audit   *shared.AuditLogger
	mw      Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit *shared.AuditLogger, mw Middleware) *Handler {
	return &Handler{logger: logger, service: service, audit: audit, mw: mw}
}

// MountRoutes registers authorization administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/permissions", h.listVocabulary)
	r.Get("/me", h.currentState)

	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(PermManageUsers))
		r.Put("/users/{id}/role", h.setRole)
		r.Get("/users/{id}/permissions", h.listGrants)
		r.Post("/users/{id}/permissions", h.grant)
		r.Delete("/users/{id}/permissions/{permission}", h.revoke)
	})
}

type stateResponse struct {
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
}

func (h *Handler) currentState(w http.ResponseWriter, r *http.Request) {
	userID, ok := CurrentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	state, err := h.service.ResolvePermissions(r.Context(), userID)
	if err != nil {
		h.logger.Warn("resolve current state degraded", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, stateResponse{Role: state.Role, Permissions: state.Permissions.Sorted()})
}

func (h *Handler) listVocabulary(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"roles":       Roles(),
		"permissions": AllPermissions(),
	})
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "user id must be a uuid")
		return
	}
	var req setRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	role, err := ParseRole(req.Role)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Role", err.Error())
		return
	}
	if err := h.service.SetRole(r.Context(), targetID, role); err != nil {
		h.logger.Error("set role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.record(r, "authz.set_role", targetID.String(), map[string]any{"role": role})
	httpx.JSON(w, http.StatusOK, map[string]string{"role": string(role)})
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "user id must be a uuid")
		return
	}
	perms, err := h.service.GrantedPermissions(r.Context(), targetID)
	if err != nil {
		h.logger.Error("list grants", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

type grantRequest struct {
	Permission string `json:"permission"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "user id must be a uuid")
		return
	}
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	perm, err := ParsePermission(req.Permission)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Permission", err.Error())
		return
	}
	actorID, _ := CurrentUserID(r)
	if err := h.service.GrantPermission(r.Context(), targetID, perm, actorID); err != nil {
		if err == ErrDuplicateGrant {
			httpx.RespondError(w, httpx.ErrDuplicate)
			return
		}
		h.logger.Error("grant permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.record(r, "authz.grant", targetID.String(), map[string]any{"permission": perm})
	httpx.JSON(w, http.StatusCreated, map[string]string{"permission": string(perm)})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "user id must be a uuid")
		return
	}
	perm, err := ParsePermission(chi.URLParam(r, "permission"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Permission", err.Error())
		return
	}
	if err := h.service.RevokePermission(r.Context(), targetID, perm); err != nil {
		h.logger.Error("revoke permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.record(r, "authz.revoke", targetID.String(), map[string]any{"permission": perm})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) record(r *http.Request, action, entityID string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	actorID, _ := CurrentUserID(r)
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: entityID,
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}
