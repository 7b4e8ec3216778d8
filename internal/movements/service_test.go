package movements

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemstock/chemstock/internal/shared"
)

// ===== MOCK REPOSITORY =====

type stockRow struct {
	quantity float64
	location uuid.NullUUID
}

type mockRepo struct {
	stock     map[string]*stockRow
	movements []Movement
}

func newMockRepo() *mockRepo {
	return &mockRepo{stock: make(map[string]*stockRow)}
}

func (m *mockRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &mockTx{repo: m})
}

func (m *mockRepo) List(context.Context, int, int) ([]Movement, error) {
	return m.movements, nil
}

func (m *mockRepo) ListForProduct(_ context.Context, productID string, _ int) ([]Movement, error) {
	var out []Movement
	for _, mv := range m.movements {
		if mv.ProductID == productID {
			out = append(out, mv)
		}
	}
	return out, nil
}

type mockTx struct {
	repo *mockRepo
}

func (t *mockTx) GetProductForUpdate(_ context.Context, productID string) (float64, uuid.NullUUID, error) {
	row, ok := t.repo.stock[productID]
	if !ok {
		return 0, uuid.NullUUID{}, shared.ErrNotFound
	}
	return row.quantity, row.location, nil
}

func (t *mockTx) SetProductStock(_ context.Context, productID string, quantity float64, locationID uuid.NullUUID) error {
	t.repo.stock[productID] = &stockRow{quantity: quantity, location: locationID}
	return nil
}

func (t *mockTx) InsertMovement(_ context.Context, input MovementInput, createdBy uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	t.repo.movements = append(t.repo.movements, Movement{
		ID:             id,
		ProductID:      input.ProductID,
		Type:           input.Type,
		Quantity:       input.Quantity,
		FromLocationID: input.FromLocationID,
		ToLocationID:   input.ToLocationID,
		CreatedBy:      uuid.NullUUID{UUID: createdBy, Valid: true},
	})
	return id, nil
}

func loc() uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.New(), Valid: true}
}

// ===== TESTS =====

func TestPostEntryIncrementsStock(t *testing.T) {
	repo := newMockRepo()
	warehouse := loc()
	repo.stock["CHM-001"] = &stockRow{quantity: 5}
	svc := NewService(repo, nil, nil)

	_, err := svc.Post(context.Background(), MovementInput{
		ProductID:    "CHM-001",
		Type:         TypeEntry,
		Quantity:     3,
		ToLocationID: warehouse,
	}, uuid.New(), "")
	require.NoError(t, err)
	assert.InDelta(t, 8, repo.stock["CHM-001"].quantity, 0.001)
	assert.Equal(t, warehouse, repo.stock["CHM-001"].location)
}

func TestPostExitDecrementsStock(t *testing.T) {
	repo := newMockRepo()
	lab := loc()
	repo.stock["CHM-001"] = &stockRow{quantity: 5, location: lab}
	svc := NewService(repo, nil, nil)

	_, err := svc.Post(context.Background(), MovementInput{
		ProductID:      "CHM-001",
		Type:           TypeExit,
		Quantity:       2,
		FromLocationID: lab,
	}, uuid.New(), "")
	require.NoError(t, err)
	assert.InDelta(t, 3, repo.stock["CHM-001"].quantity, 0.001)
}

func TestPostExitRejectsNegativeStock(t *testing.T) {
	repo := newMockRepo()
	lab := loc()
	repo.stock["CHM-001"] = &stockRow{quantity: 1, location: lab}
	svc := NewService(repo, nil, nil)

	_, err := svc.Post(context.Background(), MovementInput{
		ProductID:      "CHM-001",
		Type:           TypeExit,
		Quantity:       2,
		FromLocationID: lab,
	}, uuid.New(), "")
	assert.ErrorIs(t, err, ErrNegativeStock)
	assert.InDelta(t, 1, repo.stock["CHM-001"].quantity, 0.001)
	assert.Empty(t, repo.movements)
}

func TestPostTransferRelocatesWithoutQuantityChange(t *testing.T) {
	repo := newMockRepo()
	lab, warehouse := loc(), loc()
	repo.stock["CHM-001"] = &stockRow{quantity: 5, location: lab}
	svc := NewService(repo, nil, nil)

	_, err := svc.Post(context.Background(), MovementInput{
		ProductID:      "CHM-001",
		Type:           TypeTransfer,
		Quantity:       5,
		FromLocationID: lab,
		ToLocationID:   warehouse,
	}, uuid.New(), "")
	require.NoError(t, err)
	assert.InDelta(t, 5, repo.stock["CHM-001"].quantity, 0.001)
	assert.Equal(t, warehouse, repo.stock["CHM-001"].location)
}

func TestPostTransferRequiresDistinctLocations(t *testing.T) {
	repo := newMockRepo()
	lab := loc()
	repo.stock["CHM-001"] = &stockRow{quantity: 5, location: lab}
	svc := NewService(repo, nil, nil)

	_, err := svc.Post(context.Background(), MovementInput{
		ProductID:      "CHM-001",
		Type:           TypeTransfer,
		Quantity:       5,
		FromLocationID: lab,
		ToLocationID:   lab,
	}, uuid.New(), "")
	assert.ErrorIs(t, err, ErrSameLocation)
}

func TestPostRejectsMissingLocations(t *testing.T) {
	repo := newMockRepo()
	repo.stock["CHM-001"] = &stockRow{quantity: 5}
	svc := NewService(repo, nil, nil)

	_, err := svc.Post(context.Background(), MovementInput{
		ProductID: "CHM-001",
		Type:      TypeExit,
		Quantity:  1,
	}, uuid.New(), "")
	assert.ErrorIs(t, err, ErrLocationRequired)
}

func TestPostUnknownProduct(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)

	_, err := svc.Post(context.Background(), MovementInput{
		ProductID:    "NOPE",
		Type:         TypeEntry,
		Quantity:     1,
		ToLocationID: loc(),
	}, uuid.New(), "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
