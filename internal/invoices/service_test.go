package invoices

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemstock/chemstock/internal/shared"
)

// ===== MOCK REPOSITORY =====

type mockRepo struct {
	invoices map[uuid.UUID]*Invoice
}

func newMockRepo() *mockRepo {
	return &mockRepo{invoices: make(map[uuid.UUID]*Invoice)}
}

func (m *mockRepo) List(context.Context, int, int) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return inv, nil
}

func (m *mockRepo) Create(_ context.Context, input InvoiceInput, createdBy uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	inv := &Invoice{
		ID:            id,
		InvoiceNumber: input.InvoiceNumber,
		IssueDate:     input.IssueDate,
		Status:        input.Status,
		CreatedBy:     uuid.NullUUID{UUID: createdBy, Valid: true},
	}
	for _, item := range input.Items {
		total := item.Quantity * item.UnitPrice
		inv.TotalValue += total
		inv.Items = append(inv.Items, Item{
			ID:          uuid.New(),
			InvoiceID:   id,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  total,
		})
	}
	m.invoices[id] = inv
	return id, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status, receipt *time.Time) error {
	inv, ok := m.invoices[id]
	if !ok {
		return shared.ErrNotFound
	}
	inv.Status = status
	if receipt != nil {
		inv.ReceiptDate = receipt
	}
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.invoices[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.invoices, id)
	return nil
}

// ===== MOCK DOCUMENT STORE =====

type mockDocs struct {
	objects map[string][]byte
}

func newMockDocs() *mockDocs {
	return &mockDocs{objects: make(map[string][]byte)}
}

func (m *mockDocs) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *mockDocs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockDocs) Remove(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *mockDocs) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func validInvoice() InvoiceInput {
	return InvoiceInput{
		InvoiceNumber: "INV-2025-001",
		IssueDate:     time.Now(),
		Items: []ItemInput{
			{ProductName: "Acetone", Quantity: 10, Unit: "L", UnitPrice: 4.5},
			{ProductName: "Ethanol", Quantity: 2, Unit: "L", UnitPrice: 8},
		},
	}
}

// ===== TESTS =====

func TestCreateComputesTotal(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, newMockDocs(), nil)

	inv, err := svc.Create(context.Background(), validInvoice(), uuid.New())
	require.NoError(t, err)
	assert.InDelta(t, 61.0, inv.TotalValue, 0.001)
	assert.Equal(t, StatusPending, inv.Status)
	assert.Len(t, inv.Items, 2)
}

func TestCreateRequiresItems(t *testing.T) {
	svc := NewService(newMockRepo(), newMockDocs(), nil)

	input := validInvoice()
	input.Items = nil
	_, err := svc.Create(context.Background(), input, uuid.New())
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestCreateRejectsNonPositiveQuantity(t *testing.T) {
	svc := NewService(newMockRepo(), newMockDocs(), nil)

	input := validInvoice()
	input.Items[0].Quantity = 0
	_, err := svc.Create(context.Background(), input, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAttachAndListDocuments(t *testing.T) {
	repo := newMockRepo()
	docs := newMockDocs()
	svc := NewService(repo, docs, nil)

	inv, err := svc.Create(context.Background(), validInvoice(), uuid.New())
	require.NoError(t, err)

	payload := []byte("%PDF-1.4 test")
	attachment, err := svc.AttachDocument(context.Background(), inv.ID, "../delivery note.pdf", bytes.NewReader(payload), int64(len(payload)), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "delivery note.pdf", attachment.FileName)

	listed, err := svc.Documents(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	reader, err := svc.OpenDocument(context.Background(), inv.ID, "delivery note.pdf")
	require.NoError(t, err)
	defer reader.Close()
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestAttachDocumentUnknownInvoice(t *testing.T) {
	svc := NewService(newMockRepo(), newMockDocs(), nil)

	_, err := svc.AttachDocument(context.Background(), uuid.New(), "note.pdf", strings.NewReader("x"), 1, "text/plain")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteRemovesDocuments(t *testing.T) {
	repo := newMockRepo()
	docs := newMockDocs()
	svc := NewService(repo, docs, nil)

	inv, err := svc.Create(context.Background(), validInvoice(), uuid.New())
	require.NoError(t, err)
	_, err = svc.AttachDocument(context.Background(), inv.ID, "note.pdf", strings.NewReader("x"), 1, "text/plain")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), inv.ID, uuid.New()))
	assert.Empty(t, docs.objects)
}
