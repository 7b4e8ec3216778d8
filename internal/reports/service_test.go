package reports

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== MOCKS =====

type mockRepo struct {
	movements []MonthlyMovements
	top       []TopProduct
	locations []LocationSlice
	costs     []MonthlyCost
	depletion []DepletionProjection
	failCosts bool
	calls     int
}

func (m *mockRepo) MonthlyMovements(context.Context, int) ([]MonthlyMovements, error) {
	m.calls++
	return m.movements, nil
}

func (m *mockRepo) TopProducts(context.Context, int, int) ([]TopProduct, error) {
	return m.top, nil
}

func (m *mockRepo) LocationDistribution(context.Context) ([]LocationSlice, error) {
	return m.locations, nil
}

func (m *mockRepo) MonthlyCosts(context.Context, int) ([]MonthlyCost, error) {
	if m.failCosts {
		return nil, errors.New("costs query failed")
	}
	return m.costs, nil
}

func (m *mockRepo) Depletion(context.Context, int) ([]DepletionProjection, error) {
	return m.depletion, nil
}

// ===== HELPERS =====

func newTestService(t *testing.T, repo *mockRepo) (*Service, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, rdb, logger)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, rdb
}

// ===== TESTS =====

func TestOverviewAssemblesAllSections(t *testing.T) {
	repo := &mockRepo{
		movements: []MonthlyMovements{{Month: "2025-05", Entries: 4, Exits: 2, Transfers: 1}},
		top:       []TopProduct{{ProductID: "p1", ProductName: "Acetone", Moved: 120}},
		locations: []LocationSlice{{LocationID: "l1", LocationName: "Main Warehouse", Products: 3, Quantity: 55}},
		costs:     []MonthlyCost{{Month: "2025-05", Total: 1250.5}},
		depletion: []DepletionProjection{{ProductID: "p1", ProductName: "Acetone", Quantity: 30, DailyExits: 2, DaysToEmpty: 15}},
	}
	svc, _ := newTestService(t, repo)

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, repo.movements, ov.MonthlyMovements)
	assert.Equal(t, repo.top, ov.TopProducts)
	assert.Equal(t, repo.locations, ov.Locations)
	assert.Equal(t, repo.costs, ov.MonthlyCosts)
	assert.Equal(t, repo.depletion, ov.Depletion)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), ov.GeneratedAt)
}

func TestOverviewServedFromCache(t *testing.T) {
	repo := &mockRepo{movements: []MonthlyMovements{{Month: "2025-05", Entries: 1}}}
	svc, _ := newTestService(t, repo)

	_, err := svc.Overview(context.Background())
	require.NoError(t, err)
	_, err = svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls)
}

func TestOverviewRebuildsAfterInvalidate(t *testing.T) {
	repo := &mockRepo{}
	svc, _ := newTestService(t, repo)

	_, err := svc.Overview(context.Background())
	require.NoError(t, err)

	svc.Invalidate(context.Background())

	_, err = svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestOverviewFailsWhenQueryFails(t *testing.T) {
	repo := &mockRepo{failCosts: true}
	svc, rdb := newTestService(t, repo)

	_, err := svc.Overview(context.Background())
	require.Error(t, err)

	cached, err := rdb.Exists(context.Background(), "reports:overview").Result()
	require.NoError(t, err)
	assert.Zero(t, cached)
}
