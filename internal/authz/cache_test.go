package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*StateCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStateCache(client, time.Minute), mr
}

func TestStateCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	userID := uuid.New()

	state := State{Role: RoleAnalyst, Permissions: NewPermissionSet(PermViewProducts, PermApproveProducts)}
	require.NoError(t, cache.Set(ctx, userID, state))

	got, ok, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, RoleAnalyst, got.Role)
	assert.Equal(t, state.Permissions.Sorted(), got.Permissions.Sorted())
}

func TestStateCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	_, ok, err := cache.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, cache.Set(ctx, userID, DefaultState()))
	require.NoError(t, cache.Invalidate(ctx, userID))

	_, ok, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServiceUsesCacheUntilInvalidated(t *testing.T) {
	cache, _ := newTestCache(t)
	store := newMockStore()
	userID := uuid.New()
	store.roles[userID] = []string{"operator"}
	store.perms[userID] = []string{"view_products"}
	service := NewService(store, cache, nil)
	ctx := context.Background()

	first, err := service.ResolvePermissions(ctx, userID)
	require.NoError(t, err)
	fetches := store.roleFetches

	second, err := service.ResolvePermissions(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.Permissions.Sorted(), second.Permissions.Sorted())
	assert.Equal(t, fetches, store.roleFetches, "second resolve should be served from cache")

	// An admin mutation invalidates the snapshot; the next resolve refetches.
	require.NoError(t, service.GrantPermission(ctx, userID, PermViewReports, uuid.Nil))
	third, err := service.ResolvePermissions(ctx, userID)
	require.NoError(t, err)
	assert.True(t, third.HasPermission(PermViewReports))
	assert.Greater(t, store.roleFetches, fetches)
}
