package movements

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/chemstock/chemstock/internal/authz"
	"github.com/chemstock/chemstock/internal/platform/httpx"
	"github.com/chemstock/chemstock/internal/shared"
)

// Handler manages stock movement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw, validator: validator.New()}
}

// MountRoutes registers movement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermViewMovements))
		r.Get("/", h.list)
		r.Get("/product/{productID}", h.listForProduct)
	})
	r.Group(func(r chi.Router) {
		// Posting stock requires the operator tier on top of the grant.
		r.Use(h.authz.RequireRole(authz.RoleOperator))
		r.Use(h.authz.RequirePermission(authz.PermCreateMovements))
		r.Post("/", h.create)
	})
}

type movementResponse struct {
	ID               uuid.UUID  `json:"id"`
	ProductID        string     `json:"product_id"`
	ProductName      string     `json:"product_name"`
	Type             Type       `json:"movement_type"`
	Quantity         float64    `json:"quantity"`
	FromLocationID   *uuid.UUID `json:"from_location_id,omitempty"`
	FromLocationName string     `json:"from_location_name,omitempty"`
	ToLocationID     *uuid.UUID `json:"to_location_id,omitempty"`
	ToLocationName   string     `json:"to_location_name,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toResponse(m *Movement) movementResponse {
	resp := movementResponse{
		ID:               m.ID,
		ProductID:        m.ProductID,
		ProductName:      m.ProductName,
		Type:             m.Type,
		Quantity:         m.Quantity,
		FromLocationName: m.FromLocationName,
		ToLocationName:   m.ToLocationName,
		Notes:            m.Notes,
		CreatedAt:        m.CreatedAt,
	}
	if m.FromLocationID.Valid {
		resp.FromLocationID = &m.FromLocationID.UUID
	}
	if m.ToLocationID.Valid {
		resp.ToLocationID = &m.ToLocationID.UUID
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	items, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list movements failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]movementResponse, len(items))
	for i := range items {
		out[i] = toResponse(&items[i])
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": out})
}

func (h *Handler) listForProduct(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.service.ListForProduct(r.Context(), chi.URLParam(r, "productID"), limit)
	if err != nil {
		h.logger.Error("list product movements failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]movementResponse, len(items))
	for i := range items {
		out[i] = toResponse(&items[i])
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": out})
}

type createMovementRequest struct {
	ProductID      string  `json:"product_id" validate:"required"`
	Type           string  `json:"movement_type" validate:"required"`
	Quantity       float64 `json:"quantity" validate:"gt=0"`
	FromLocationID *string `json:"from_location_id"`
	ToLocationID   *string `json:"to_location_id"`
	Notes          string  `json:"notes"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createMovementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := MovementInput{
		ProductID: req.ProductID,
		Type:      Type(req.Type),
		Quantity:  req.Quantity,
		Notes:     req.Notes,
	}
	if req.FromLocationID != nil {
		id, err := uuid.Parse(*req.FromLocationID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from_location_id must be a uuid")
			return
		}
		input.FromLocationID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if req.ToLocationID != nil {
		id, err := uuid.Parse(*req.ToLocationID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to_location_id must be a uuid")
			return
		}
		input.ToLocationID = uuid.NullUUID{UUID: id, Valid: true}
	}

	actor, _ := authz.CurrentUserID(r)
	id, err := h.service.Post(r.Context(), input, actor, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNegativeStock):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrLocationRequired), errors.Is(err, ErrSameLocation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error("post movement failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
