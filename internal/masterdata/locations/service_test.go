package locations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/chemstock/chemstock/internal/masterdata/shared"
)

type mockRepo struct {
	created []Location
}

func (m *mockRepo) List(context.Context, shared.ListFilters) ([]Location, int, error) {
	return m.created, len(m.created), nil
}
func (m *mockRepo) Get(context.Context, uuid.UUID) (Location, error) { return Location{}, nil }
func (m *mockRepo) Create(_ context.Context, l Location) (Location, error) {
	l.ID = uuid.New()
	m.created = append(m.created, l)
	return l, nil
}
func (m *mockRepo) Update(context.Context, uuid.UUID, Location) error { return nil }
func (m *mockRepo) Delete(context.Context, uuid.UUID) error           { return ErrInUse }

func TestCreateValidatesType(t *testing.T) {
	svc := NewService(&mockRepo{})

	_, err := svc.Create(context.Background(), Location{Name: "Cold Room", Type: "fridge"})
	assert.Error(t, err)

	created, err := svc.Create(context.Background(), Location{Name: "Cold Room", Type: TypeWarehouse})
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(&mockRepo{})

	_, err := svc.Create(context.Background(), Location{Name: "  ", Type: TypeLaboratory})
	assert.Error(t, err)
}

func TestDeleteInUse(t *testing.T) {
	svc := NewService(&mockRepo{})

	err := svc.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrInUse)
}
