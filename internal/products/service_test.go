package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemstock/chemstock/internal/shared"
)

// ===== MOCK REPOSITORY =====

type mockRepo struct {
	products map[string]*Product
}

func newMockRepo() *mockRepo {
	return &mockRepo{products: make(map[string]*Product)}
}

func (m *mockRepo) seed(id string, status Status, qty float64, expiry time.Time) *Product {
	p := &Product{
		ID:                id,
		Name:              "Acetone",
		Batch:             "B-100",
		Invoice:           "INV-1",
		ManufacturingDate: expiry.AddDate(-2, 0, 0),
		ExpiryDate:        expiry,
		Quantity:          qty,
		Unit:              "L",
		Status:            status,
	}
	m.products[id] = p
	return p
}

func (m *mockRepo) List(_ context.Context, filter ListFilter) ([]Product, error) {
	var out []Product
	for _, p := range m.products {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockRepo) Get(_ context.Context, id string) (*Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) Create(_ context.Context, input ProductInput, createdBy uuid.UUID) (*Product, error) {
	p := &Product{
		ID:                input.ID,
		Name:              input.Name,
		Batch:             input.Batch,
		Invoice:           input.Invoice,
		ManufacturingDate: input.ManufacturingDate,
		ExpiryDate:        input.ExpiryDate,
		Quantity:          input.Quantity,
		Unit:              input.Unit,
		Status:            StatusPending,
		CreatedBy:         uuid.NullUUID{UUID: createdBy, Valid: true},
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *mockRepo) Update(_ context.Context, input ProductInput) (*Product, error) {
	p, ok := m.products[input.ID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	p.Name = input.Name
	p.Quantity = input.Quantity
	return p, nil
}

func (m *mockRepo) SetStatus(_ context.Context, id string, from, to Status, decidedBy uuid.UUID) error {
	p, ok := m.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	if p.Status != from {
		return ErrNotPending
	}
	now := time.Now()
	p.Status = to
	p.ApprovedBy = uuid.NullUUID{UUID: decidedBy, Valid: true}
	p.ApprovedAt = &now
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockRepo) MarkExpired(_ context.Context, asOf time.Time) ([]string, error) {
	var ids []string
	for _, p := range m.products {
		if p.ExpiryDate.Before(asOf) && (p.Status == StatusPending || p.Status == StatusApproved) {
			p.Status = StatusExpired
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func validInput(id string) ProductInput {
	return ProductInput{
		ID:                id,
		Name:              "Acetone",
		Batch:             "B-100",
		Invoice:           "INV-1",
		ManufacturingDate: time.Now().AddDate(-1, 0, 0),
		ExpiryDate:        time.Now().AddDate(1, 0, 0),
		Quantity:          5,
		Unit:              "L",
	}
}

// ===== TESTS =====

func TestCreateStartsPending(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), validInput("CHM-001"), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)
}

func TestCreateRejectsNegativeQuantity(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	input := validInput("CHM-001")
	input.Quantity = -1
	_, err := svc.Create(context.Background(), input, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCreateRejectsExpiryBeforeManufacturing(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	input := validInput("CHM-001")
	input.ExpiryDate = input.ManufacturingDate.AddDate(0, -1, 0)
	_, err := svc.Create(context.Background(), input, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidDates)
}

func TestApproveOnlyFromPending(t *testing.T) {
	repo := newMockRepo()
	repo.seed("CHM-001", StatusPending, 5, time.Now().AddDate(1, 0, 0))
	svc := NewService(repo, nil)
	analyst := uuid.New()

	require.NoError(t, svc.Approve(context.Background(), "CHM-001", analyst))
	assert.Equal(t, StatusApproved, repo.products["CHM-001"].Status)
	assert.Equal(t, analyst, repo.products["CHM-001"].ApprovedBy.UUID)

	// second decision on the same batch must fail
	err := svc.Approve(context.Background(), "CHM-001", analyst)
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestRejectOnlyFromPending(t *testing.T) {
	repo := newMockRepo()
	repo.seed("CHM-001", StatusApproved, 5, time.Now().AddDate(1, 0, 0))
	svc := NewService(repo, nil)

	err := svc.Reject(context.Background(), "CHM-001", uuid.New(), "wrong batch")
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestMarkExpiredSkipsDecidedBatches(t *testing.T) {
	repo := newMockRepo()
	past := time.Now().AddDate(0, 0, -1)
	repo.seed("OLD-1", StatusApproved, 5, past)
	repo.seed("OLD-2", StatusRejected, 5, past)
	repo.seed("FRESH", StatusApproved, 5, time.Now().AddDate(1, 0, 0))
	svc := NewService(repo, nil)

	ids, err := svc.MarkExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"OLD-1"}, ids)
	assert.Equal(t, StatusExpired, repo.products["OLD-1"].Status)
	assert.Equal(t, StatusRejected, repo.products["OLD-2"].Status)
}
