package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleOrdering(t *testing.T) {
	assert.Less(t, RoleViewer.Rank(), RoleOperator.Rank())
	assert.Less(t, RoleOperator.Rank(), RoleAnalyst.Rank())
	assert.Less(t, RoleAnalyst.Rank(), RoleAdmin.Rank())
	assert.Zero(t, Role("root").Rank())
}

func TestHasRoleAtLeastIsMonotonic(t *testing.T) {
	state := State{Role: RoleAnalyst, Permissions: NewPermissionSet()}

	require.True(t, state.HasRoleAtLeast(RoleAnalyst))
	// Granting at a tier implies every lower tier.
	assert.True(t, state.HasRoleAtLeast(RoleOperator))
	assert.True(t, state.HasRoleAtLeast(RoleViewer))
	assert.False(t, state.HasRoleAtLeast(RoleAdmin))
}

func TestParseRoleRejectsUnknown(t *testing.T) {
	_, err := ParseRole("superadmin")
	assert.Error(t, err)

	role, err := ParseRole("operator")
	require.NoError(t, err)
	assert.Equal(t, RoleOperator, role)
}

func TestParsePermissionRejectsUnknown(t *testing.T) {
	_, err := ParsePermission("fly_drones")
	assert.Error(t, err)

	perm, err := ParsePermission("approve_products")
	require.NoError(t, err)
	assert.Equal(t, PermApproveProducts, perm)
}

func TestVocabularyIsClosed(t *testing.T) {
	perms := AllPermissions()
	assert.Len(t, perms, 23)
	for _, p := range perms {
		assert.True(t, p.Valid())
	}
}

func TestPredicatesArePure(t *testing.T) {
	state := State{
		Role:        RoleOperator,
		Permissions: NewPermissionSet(PermViewProducts, PermCreateMovements),
	}

	assert.True(t, state.HasPermission(PermViewProducts))
	assert.False(t, state.HasPermission(PermDeleteProducts))
	assert.True(t, state.HasAnyPermission(PermDeleteProducts, PermCreateMovements))
	assert.False(t, state.HasAnyPermission(PermDeleteProducts, PermDeleteInvoices))
	assert.False(t, state.HasAnyPermission())
}

func TestDefaultStateIsConservative(t *testing.T) {
	state := DefaultState()
	assert.Equal(t, RoleViewer, state.Role)
	assert.Empty(t, state.Permissions)
}
