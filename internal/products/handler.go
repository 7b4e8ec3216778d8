package products

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

// Handler manages product endpoints.
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

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermViewProducts))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermCreateProducts))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermEditProducts))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		// Lifecycle decisions need the analyst tier on top of the grant.
		r.Use(h.authz.RequireRole(authz.RoleAnalyst))
		r.Use(h.authz.RequirePermission(authz.PermApproveProducts))
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermDeleteProducts))
		r.Delete("/{id}", h.remove)
	})
}

type productResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Batch             string     `json:"batch"`
	Invoice           string     `json:"invoice"`
	ManufacturingDate string     `json:"manufacturing_date"`
	ExpiryDate        string     `json:"expiry_date"`
	Quantity          float64    `json:"quantity"`
	Unit              string     `json:"unit"`
	Status            Status     `json:"status"`
	SupplierID        *uuid.UUID `json:"supplier_id,omitempty"`
	SupplierName      string     `json:"supplier_name,omitempty"`
	LocationID        *uuid.UUID `json:"location_id,omitempty"`
	LocationName      string     `json:"location_name,omitempty"`
	ApprovedBy        *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

const dateLayout = "2006-01-02"

func toResponse(p *Product) productResponse {
	resp := productResponse{
		ID:                p.ID,
		Name:              p.Name,
		Batch:             p.Batch,
		Invoice:           p.Invoice,
		ManufacturingDate: p.ManufacturingDate.Format(dateLayout),
		ExpiryDate:        p.ExpiryDate.Format(dateLayout),
		Quantity:          p.Quantity,
		Unit:              p.Unit,
		Status:            p.Status,
		SupplierName:      p.SupplierName,
		LocationName:      p.LocationName,
		ApprovedAt:        p.ApprovedAt,
		CreatedAt:         p.CreatedAt,
	}
	if p.SupplierID.Valid {
		resp.SupplierID = &p.SupplierID.UUID
	}
	if p.LocationID.Valid {
		resp.LocationID = &p.LocationID.UUID
	}
	if p.ApprovedBy.Valid {
		resp.ApprovedBy = &p.ApprovedBy.UUID
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search: r.URL.Query().Get("q"),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		st := Status(status)
		if !st.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status filter")
			return
		}
		filter.Status = st
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		filter.Offset = offset
	}

	items, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list products failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]productResponse, len(items))
	for i := range items {
		out[i] = toResponse(&items[i])
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, mapError(err))
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(product))
}

type productRequest struct {
	ID                string   `json:"id" validate:"required"`
	Name              string   `json:"name" validate:"required"`
	Batch             string   `json:"batch" validate:"required"`
	Invoice           string   `json:"invoice" validate:"required"`
	ManufacturingDate string   `json:"manufacturing_date" validate:"required"`
	ExpiryDate        string   `json:"expiry_date" validate:"required"`
	Quantity          float64  `json:"quantity" validate:"gte=0"`
	Unit              string   `json:"unit" validate:"required"`
	SupplierID        *string  `json:"supplier_id"`
	LocationID        *string  `json:"location_id"`
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (ProductInput, bool) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return ProductInput{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return ProductInput{}, false
	}
	mfg, err := time.Parse(dateLayout, req.ManufacturingDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "manufacturing_date must be YYYY-MM-DD")
		return ProductInput{}, false
	}
	exp, err := time.Parse(dateLayout, req.ExpiryDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expiry_date must be YYYY-MM-DD")
		return ProductInput{}, false
	}
	input := ProductInput{
		ID:                req.ID,
		Name:              req.Name,
		Batch:             req.Batch,
		Invoice:           req.Invoice,
		ManufacturingDate: mfg,
		ExpiryDate:        exp,
		Quantity:          req.Quantity,
		Unit:              req.Unit,
	}
	if req.SupplierID != nil {
		id, err := uuid.Parse(*req.SupplierID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "supplier_id must be a uuid")
			return ProductInput{}, false
		}
		input.SupplierID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if req.LocationID != nil {
		id, err := uuid.Parse(*req.LocationID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "location_id must be a uuid")
			return ProductInput{}, false
		}
		input.LocationID = uuid.NullUUID{UUID: id, Valid: true}
	}
	return input, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	actor, _ := authz.CurrentUserID(r)
	product, err := h.service.Create(r.Context(), input, actor)
	if err != nil {
		h.respondServiceError(w, "create product failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(product))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	input.ID = chi.URLParam(r, "id")
	actor, _ := authz.CurrentUserID(r)
	product, err := h.service.Update(r.Context(), input, actor)
	if err != nil {
		h.respondServiceError(w, "update product failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(product))
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentUserID(r)
	if err := h.service.Approve(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		h.respondServiceError(w, "approve product failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	_ = httpx.DecodeJSON(r, &req)
	actor, _ := authz.CurrentUserID(r)
	if err := h.service.Reject(r.Context(), chi.URLParam(r, "id"), actor, req.Reason); err != nil {
		h.respondServiceError(w, "reject product failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.CurrentUserID(r)
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		h.respondServiceError(w, "delete product failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrNotPending):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidDates):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error(msg, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func mapError(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return httpx.ErrNotFound
	}
	return err
}
