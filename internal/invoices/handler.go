package invoices

import (
	"errors"
	"io"
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

const maxDocumentSize = 20 << 20 // 20 MiB

// Handler manages invoice endpoints.
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

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermViewInvoices))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/documents", h.listDocuments)
		r.Get("/{id}/documents/{file}", h.downloadDocument)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermCreateInvoices))
		r.Post("/", h.create)
		r.Post("/{id}/documents", h.uploadDocument)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermEditInvoices))
		r.Put("/{id}/status", h.updateStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermDeleteInvoices))
		r.Delete("/{id}", h.remove)
	})
}

const dateLayout = "2006-01-02"

type itemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductCode string    `json:"product_code,omitempty"`
	ProductName string    `json:"product_name"`
	Batch       string    `json:"batch,omitempty"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	UnitPrice   float64   `json:"unit_price"`
	TotalPrice  float64   `json:"total_price"`
}

type invoiceResponse struct {
	ID            uuid.UUID      `json:"id"`
	InvoiceNumber string         `json:"invoice_number"`
	SupplierID    *uuid.UUID     `json:"supplier_id,omitempty"`
	SupplierName  string         `json:"supplier_name,omitempty"`
	IssueDate     string         `json:"issue_date"`
	ReceiptDate   *string        `json:"receipt_date,omitempty"`
	Status        Status         `json:"status"`
	TotalValue    float64        `json:"total_value"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	Items         []itemResponse `json:"items,omitempty"`
}

func toResponse(inv *Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		SupplierName:  inv.SupplierName,
		IssueDate:     inv.IssueDate.Format(dateLayout),
		Status:        inv.Status,
		TotalValue:    inv.TotalValue,
		Notes:         inv.Notes,
		CreatedAt:     inv.CreatedAt,
	}
	if inv.SupplierID.Valid {
		resp.SupplierID = &inv.SupplierID.UUID
	}
	if inv.ReceiptDate != nil {
		formatted := inv.ReceiptDate.Format(dateLayout)
		resp.ReceiptDate = &formatted
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, itemResponse{
			ID:          item.ID,
			ProductCode: item.ProductCode,
			ProductName: item.ProductName,
			Batch:       item.Batch,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	items, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list invoices failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]invoiceResponse, len(items))
	for i := range items {
		out[i] = toResponse(&items[i])
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, mapError(err))
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

type itemRequest struct {
	ProductCode       string  `json:"product_code"`
	ProductName       string  `json:"product_name" validate:"required"`
	Batch             string  `json:"batch"`
	Quantity          float64 `json:"quantity" validate:"gt=0"`
	Unit              string  `json:"unit" validate:"required"`
	UnitPrice         float64 `json:"unit_price" validate:"gte=0"`
	ManufacturingDate string  `json:"manufacturing_date"`
	ExpiryDate        string  `json:"expiry_date"`
}

type createInvoiceRequest struct {
	InvoiceNumber string        `json:"invoice_number" validate:"required"`
	SupplierID    *string       `json:"supplier_id"`
	IssueDate     string        `json:"issue_date" validate:"required"`
	ReceiptDate   string        `json:"receipt_date"`
	Notes         string        `json:"notes"`
	Items         []itemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	issueDate, err := time.Parse(dateLayout, req.IssueDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "issue_date must be YYYY-MM-DD")
		return
	}
	input := InvoiceInput{
		InvoiceNumber: req.InvoiceNumber,
		IssueDate:     issueDate,
		Notes:         req.Notes,
	}
	if req.ReceiptDate != "" {
		receipt, err := time.Parse(dateLayout, req.ReceiptDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "receipt_date must be YYYY-MM-DD")
			return
		}
		input.ReceiptDate = &receipt
	}
	if req.SupplierID != nil {
		supplierID, err := uuid.Parse(*req.SupplierID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "supplier_id must be a uuid")
			return
		}
		input.SupplierID = uuid.NullUUID{UUID: supplierID, Valid: true}
	}
	for _, item := range req.Items {
		in := ItemInput{
			ProductCode: item.ProductCode,
			ProductName: item.ProductName,
			Batch:       item.Batch,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
		}
		if item.ManufacturingDate != "" {
			if d, err := time.Parse(dateLayout, item.ManufacturingDate); err == nil {
				in.ManufacturingDate = &d
			}
		}
		if item.ExpiryDate != "" {
			if d, err := time.Parse(dateLayout, item.ExpiryDate); err == nil {
				in.ExpiryDate = &d
			}
		}
		input.Items = append(input.Items, in)
	}

	actor, _ := authz.CurrentUserID(r)
	inv, err := h.service.Create(r.Context(), input, actor)
	if err != nil {
		h.respondServiceError(w, "create invoice failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(inv))
}

type updateStatusRequest struct {
	Status      string `json:"status" validate:"required"`
	ReceiptDate string `json:"receipt_date"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var receipt *time.Time
	if req.ReceiptDate != "" {
		d, err := time.Parse(dateLayout, req.ReceiptDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "receipt_date must be YYYY-MM-DD")
			return
		}
		receipt = &d
	}
	actor, _ := authz.CurrentUserID(r)
	if err := h.service.UpdateStatus(r.Context(), id, Status(req.Status), receipt, actor); err != nil {
		h.respondServiceError(w, "update invoice status failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	actor, _ := authz.CurrentUserID(r)
	if err := h.service.Delete(r.Context(), id, actor); err != nil {
		h.respondServiceError(w, "delete invoice failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) uploadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "multipart form required")
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "document file required")
		return
	}
	defer file.Close()

	attachment, err := h.service.AttachDocument(r.Context(), id, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		h.respondServiceError(w, "upload invoice document failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"file_name": attachment.FileName})
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	docs, err := h.service.Documents(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "list invoice documents failed", err)
		return
	}
	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.FileName
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"documents": names})
}

func (h *Handler) downloadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	reader, err := h.service.OpenDocument(r.Context(), id, chi.URLParam(r, "file"))
	if err != nil {
		h.respondServiceError(w, "download invoice document failed", err)
		return
	}
	defer reader.Close()
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(chi.URLParam(r, "file")))
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("stream invoice document", slog.Any("error", err))
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidQuantity):
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
