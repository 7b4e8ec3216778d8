package invoices

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chemstock/chemstock/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	List(ctx context.Context, limit, offset int) ([]Invoice, error)
	Get(ctx context.Context, id uuid.UUID) (*Invoice, error)
	Create(ctx context.Context, input InvoiceInput, createdBy uuid.UUID) (uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, receiptDate *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DocumentStore abstracts object storage for invoice attachments.
type DocumentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates invoice ingestion and document handling.
type Service struct {
	repo  RepositoryPort
	docs  DocumentStore
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, docs DocumentStore, audit AuditPort) *Service {
	return &Service{repo: repo, docs: docs, audit: audit}
}

// List returns recent invoices.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Invoice, error) {
	return s.repo.List(ctx, limit, offset)
}

// Get returns one invoice with items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// Create registers an invoice with its line items atomically.
func (s *Service) Create(ctx context.Context, input InvoiceInput, createdBy uuid.UUID) (*Invoice, error) {
	if len(input.Items) == 0 {
		return nil, ErrNoItems
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	input.InvoiceNumber = strings.TrimSpace(input.InvoiceNumber)
	if input.Status == "" {
		input.Status = StatusPending
	}
	if !input.Status.Valid() {
		return nil, fmt.Errorf("invoices: unknown status %q", input.Status)
	}

	id, err := s.repo.Create(ctx, input, createdBy)
	if err != nil {
		return nil, err
	}
	s.record(ctx, createdBy, "invoices.create", id.String(), map[string]any{"invoice_number": input.InvoiceNumber})
	return s.repo.Get(ctx, id)
}

// UpdateStatus moves an invoice through its processing state.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, receiptDate *time.Time, actor uuid.UUID) error {
	if !status.Valid() {
		return fmt.Errorf("invoices: unknown status %q", status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status, receiptDate); err != nil {
		return err
	}
	s.record(ctx, actor, "invoices.update_status", id.String(), map[string]any{"status": string(status)})
	return nil
}

// Delete removes an invoice, its items and stored documents.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.docs != nil {
		if keys, err := s.docs.List(ctx, docPrefix(id)); err == nil {
			for _, key := range keys {
				_ = s.docs.Remove(ctx, key)
			}
		}
	}
	s.record(ctx, actor, "invoices.delete", id.String(), nil)
	return nil
}

// AttachDocument stores a document under the invoice's prefix.
func (s *Service) AttachDocument(ctx context.Context, id uuid.UUID, fileName string, r io.Reader, size int64, contentType string) (Attachment, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return Attachment{}, err
	}
	name := path.Base(strings.TrimSpace(fileName))
	if name == "" || name == "." || name == "/" {
		return Attachment{}, fmt.Errorf("invoices: invalid file name %q", fileName)
	}
	key := docPrefix(id) + name
	if err := s.docs.Put(ctx, key, r, size, contentType); err != nil {
		return Attachment{}, err
	}
	return Attachment{Key: key, FileName: name}, nil
}

// Documents lists attachments stored for the invoice.
func (s *Service) Documents(ctx context.Context, id uuid.UUID) ([]Attachment, error) {
	keys, err := s.docs.List(ctx, docPrefix(id))
	if err != nil {
		return nil, err
	}
	out := make([]Attachment, len(keys))
	for i, key := range keys {
		out[i] = Attachment{Key: key, FileName: path.Base(key)}
	}
	return out, nil
}

// OpenDocument streams a stored attachment.
func (s *Service) OpenDocument(ctx context.Context, id uuid.UUID, fileName string) (io.ReadCloser, error) {
	name := path.Base(fileName)
	return s.docs.Get(ctx, docPrefix(id)+name)
}

func docPrefix(id uuid.UUID) string {
	return id.String() + "/"
}

func (s *Service) record(ctx context.Context, actor uuid.UUID, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "invoice",
		EntityID: id,
		Meta:     meta,
	})
}
