// Package authz resolves a user's effective role and permission set and
// answers the capability checks used to gate routes and actions.
package authz

import (
	"errors"
	"fmt"
	"sort"
)

// Role is a coarse privilege tier with a total order.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAnalyst  Role = "analyst"
	RoleAdmin    Role = "admin"
)

var roleRanks = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAnalyst:  3,
	RoleAdmin:    4,
}

// Rank returns the numeric privilege rank of the role, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid reports whether the role belongs to the fixed tier set.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// ParseRole validates a raw role value from the store.
func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if !role.Valid() {
		return "", fmt.Errorf("authz: unknown role %q", raw)
	}
	return role, nil
}

// Roles lists all roles ordered by increasing privilege.
func Roles() []Role {
	return []Role{RoleViewer, RoleOperator, RoleAnalyst, RoleAdmin}
}

// Permission is a fine-grained capability tag from a closed vocabulary.
type Permission string

const (
	PermViewProducts   Permission = "view_products"
	PermCreateProducts Permission = "create_products"
	PermEditProducts   Permission = "edit_products"
	PermDeleteProducts Permission = "delete_products"

	PermViewInvoices   Permission = "view_invoices"
	PermCreateInvoices Permission = "create_invoices"
	PermEditInvoices   Permission = "edit_invoices"
	PermDeleteInvoices Permission = "delete_invoices"

	PermViewMovements   Permission = "view_movements"
	PermCreateMovements Permission = "create_movements"
	PermEditMovements   Permission = "edit_movements"
	PermDeleteMovements Permission = "delete_movements"

	PermViewSuppliers   Permission = "view_suppliers"
	PermCreateSuppliers Permission = "create_suppliers"
	PermEditSuppliers   Permission = "edit_suppliers"
	PermDeleteSuppliers Permission = "delete_suppliers"

	PermViewLocations   Permission = "view_locations"
	PermCreateLocations Permission = "create_locations"
	PermEditLocations   Permission = "edit_locations"
	PermDeleteLocations Permission = "delete_locations"

	PermManageUsers     Permission = "manage_users"
	PermViewReports     Permission = "view_reports"
	PermApproveProducts Permission = "approve_products"
)

var vocabulary = map[Permission]struct{}{
	PermViewProducts: {}, PermCreateProducts: {}, PermEditProducts: {}, PermDeleteProducts: {},
	PermViewInvoices: {}, PermCreateInvoices: {}, PermEditInvoices: {}, PermDeleteInvoices: {},
	PermViewMovements: {}, PermCreateMovements: {}, PermEditMovements: {}, PermDeleteMovements: {},
	PermViewSuppliers: {}, PermCreateSuppliers: {}, PermEditSuppliers: {}, PermDeleteSuppliers: {},
	PermViewLocations: {}, PermCreateLocations: {}, PermEditLocations: {}, PermDeleteLocations: {},
	PermManageUsers: {}, PermViewReports: {}, PermApproveProducts: {},
}

// Valid reports whether the permission belongs to the closed vocabulary.
func (p Permission) Valid() bool {
	_, ok := vocabulary[p]
	return ok
}

// ParsePermission validates a raw permission tag from the store.
func ParsePermission(raw string) (Permission, error) {
	perm := Permission(raw)
	if !perm.Valid() {
		return "", fmt.Errorf("authz: unknown permission %q", raw)
	}
	return perm, nil
}

// AllPermissions returns the full vocabulary sorted by tag.
func AllPermissions() []Permission {
	perms := make([]Permission, 0, len(vocabulary))
	for p := range vocabulary {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// PermissionSet is an unordered set of granted permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Contains reports membership.
func (s PermissionSet) Contains(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the members sorted by tag, for stable serialisation.
func (s PermissionSet) Sorted() []Permission {
	perms := make([]Permission, 0, len(s))
	for p := range s {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// State is the resolved {role, permissions} snapshot for one user session.
// It is computed wholesale by the resolver and read-shared by consumers.
type State struct {
	Role        Role
	Permissions PermissionSet
}

// DefaultState is the conservative fallback used when resolution fails:
// viewer role, no granted capabilities.
func DefaultState() State {
	return State{Role: RoleViewer, Permissions: NewPermissionSet()}
}

// HasPermission reports whether the permission is in the effective set.
func (st State) HasPermission(p Permission) bool {
	return st.Permissions.Contains(p)
}

// HasAnyPermission reports whether at least one listed permission is granted.
func (st State) HasAnyPermission(perms ...Permission) bool {
	for _, p := range perms {
		if st.Permissions.Contains(p) {
			return true
		}
	}
	return false
}

// HasRoleAtLeast reports whether the effective role ranks at or above required.
func (st State) HasRoleAtLeast(required Role) bool {
	return st.Role.Rank() >= required.Rank()
}

// ErrNotAuthenticated indicates resolution was attempted without a user identity.
var ErrNotAuthenticated = errors.New("authz: not authenticated")

func errInvalidRole(r Role) error {
	return fmt.Errorf("authz: invalid role %q", r)
}

func errInvalidPermission(p Permission) error {
	return fmt.Errorf("authz: invalid permission %q", p)
}
