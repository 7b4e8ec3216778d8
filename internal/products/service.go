package products

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chemstock/chemstock/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, input ProductInput, createdBy uuid.UUID) (*Product, error)
	Update(ctx context.Context, input ProductInput) (*Product, error)
	SetStatus(ctx context.Context, id string, from, to Status, decidedBy uuid.UUID) error
	Delete(ctx context.Context, id string) error
	MarkExpired(ctx context.Context, asOf time.Time) ([]string, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates product catalog and lifecycle operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns products matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// Get returns a product by label code.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new batch in pending state.
func (s *Service) Create(ctx context.Context, input ProductInput, createdBy uuid.UUID) (*Product, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	product, err := s.repo.Create(ctx, input, createdBy)
	if err != nil {
		return nil, err
	}
	s.record(ctx, createdBy, "products.create", product.ID, nil)
	return product, nil
}

// Update rewrites the editable fields of an existing batch.
func (s *Service) Update(ctx context.Context, input ProductInput, actor uuid.UUID) (*Product, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	product, err := s.repo.Update(ctx, input)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "products.update", product.ID, nil)
	return product, nil
}

// Approve moves a pending batch to approved, recording the decision maker.
func (s *Service) Approve(ctx context.Context, id string, decidedBy uuid.UUID) error {
	if err := s.repo.SetStatus(ctx, id, StatusPending, StatusApproved, decidedBy); err != nil {
		return err
	}
	s.record(ctx, decidedBy, "products.approve", id, nil)
	return nil
}

// Reject moves a pending batch to rejected.
func (s *Service) Reject(ctx context.Context, id string, decidedBy uuid.UUID, reason string) error {
	if err := s.repo.SetStatus(ctx, id, StatusPending, StatusRejected, decidedBy); err != nil {
		return err
	}
	meta := map[string]any{}
	if reason != "" {
		meta["reason"] = reason
	}
	s.record(ctx, decidedBy, "products.reject", id, meta)
	return nil
}

// Delete removes a batch from the catalog.
func (s *Service) Delete(ctx context.Context, id string, actor uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "products.delete", id, nil)
	return nil
}

// MarkExpired transitions batches past their expiry date. Used by the
// periodic alert scan.
func (s *Service) MarkExpired(ctx context.Context, asOf time.Time) ([]string, error) {
	return s.repo.MarkExpired(ctx, asOf)
}

func validateInput(input *ProductInput) error {
	input.ID = strings.TrimSpace(input.ID)
	input.Name = strings.TrimSpace(input.Name)
	if input.Quantity < 0 {
		return ErrInvalidQuantity
	}
	if !input.ExpiryDate.After(input.ManufacturingDate) {
		return ErrInvalidDates
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor uuid.UUID, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "product",
		EntityID: id,
		Meta:     meta,
	})
}
