package authz

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Service computes effective authorization state from the backing store.
//
// Lookup failures never elevate access: both resolve operations return the
// conservative default alongside the error so callers can proceed with
// degraded capabilities while the failure is still visible for diagnostics.
type Service struct {
	store  Store
	cache  *StateCache
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(store Store, cache *StateCache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// ResolveRole determines the user's effective role.
//
// Zero assignment rows yield the safe default viewer. Multiple rows yield
// the single highest-privilege role. A store failure also yields viewer,
// with the error returned for logging, never an elevated tier.
func (s *Service) ResolveRole(ctx context.Context, userID uuid.UUID) (Role, error) {
	if userID == uuid.Nil {
		return RoleViewer, ErrNotAuthenticated
	}
	rows, err := s.store.RolesForUser(ctx, userID)
	if err != nil {
		s.warn("role lookup failed", userID, err)
		return RoleViewer, err
	}
	effective := RoleViewer
	for _, raw := range rows {
		role, err := ParseRole(raw)
		if err != nil {
			s.warn("unknown role tag dropped", userID, err)
			continue
		}
		if role.Rank() > effective.Rank() {
			effective = role
		}
	}
	return effective, nil
}

// ResolvePermissions computes the full effective state for the user.
//
// The role is resolved first: admin short-circuits to the entire vocabulary
// regardless of stored grants. Any other role receives exactly the
// individually granted tags; unknown tags are dropped with a warning. The
// returned set is always a subset of the vocabulary.
func (s *Service) ResolvePermissions(ctx context.Context, userID uuid.UUID) (State, error) {
	if userID == uuid.Nil {
		return DefaultState(), ErrNotAuthenticated
	}
	if cached, ok := s.cachedState(ctx, userID); ok {
		return cached, nil
	}

	role, err := s.ResolveRole(ctx, userID)
	if err != nil {
		return DefaultState(), err
	}

	if role == RoleAdmin {
		state := State{Role: RoleAdmin, Permissions: NewPermissionSet(AllPermissions()...)}
		s.storeState(ctx, userID, state)
		return state, nil
	}

	rows, err := s.store.PermissionsForUser(ctx, userID)
	if err != nil {
		s.warn("permission lookup failed", userID, err)
		return State{Role: role, Permissions: NewPermissionSet()}, err
	}

	granted := NewPermissionSet()
	for _, raw := range rows {
		perm, err := ParsePermission(raw)
		if err != nil {
			s.warn("unknown permission tag dropped", userID, err)
			continue
		}
		granted[perm] = struct{}{}
	}

	state := State{Role: role, Permissions: granted}
	s.storeState(ctx, userID, state)
	return state, nil
}

// AssignRole grants a role tier to the user and invalidates cached state.
func (s *Service) AssignRole(ctx context.Context, userID uuid.UUID, role Role) error {
	if !role.Valid() {
		return errInvalidRole(role)
	}
	if err := s.store.AssignRole(ctx, userID, string(role)); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// RemoveRole revokes a role tier from the user and invalidates cached state.
func (s *Service) RemoveRole(ctx context.Context, userID uuid.UUID, role Role) error {
	if !role.Valid() {
		return errInvalidRole(role)
	}
	if err := s.store.RemoveRole(ctx, userID, string(role)); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// SetRole replaces all of the user's role assignments with a single tier,
// mirroring how the management screen mutates roles.
func (s *Service) SetRole(ctx context.Context, userID uuid.UUID, role Role) error {
	if !role.Valid() {
		return errInvalidRole(role)
	}
	existing, err := s.store.RolesForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, raw := range existing {
		if raw == string(role) {
			continue
		}
		if err := s.store.RemoveRole(ctx, userID, raw); err != nil {
			return err
		}
	}
	if !contains(existing, string(role)) {
		if err := s.store.AssignRole(ctx, userID, string(role)); err != nil {
			return err
		}
	}
	s.invalidate(ctx, userID)
	return nil
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

// GrantPermission adds an individual capability grant.
func (s *Service) GrantPermission(ctx context.Context, userID uuid.UUID, perm Permission, grantedBy uuid.UUID) error {
	if !perm.Valid() {
		return errInvalidPermission(perm)
	}
	if err := s.store.GrantPermission(ctx, userID, string(perm), grantedBy); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// RevokePermission removes an individual capability grant.
func (s *Service) RevokePermission(ctx context.Context, userID uuid.UUID, perm Permission) error {
	if !perm.Valid() {
		return errInvalidPermission(perm)
	}
	if err := s.store.RevokePermission(ctx, userID, string(perm)); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// GrantedPermissions lists the individually granted tags, unknown tags dropped.
func (s *Service) GrantedPermissions(ctx context.Context, userID uuid.UUID) ([]Permission, error) {
	rows, err := s.store.PermissionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	perms := make([]Permission, 0, len(rows))
	for _, raw := range rows {
		perm, err := ParsePermission(raw)
		if err != nil {
			s.warn("unknown permission tag dropped", userID, err)
			continue
		}
		perms = append(perms, perm)
	}
	return perms, nil
}

func (s *Service) cachedState(ctx context.Context, userID uuid.UUID) (State, bool) {
	if s.cache == nil {
		return State{}, false
	}
	state, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		s.warn("state cache read failed", userID, err)
		return State{}, false
	}
	return state, ok
}

func (s *Service) storeState(ctx context.Context, userID uuid.UUID, state State) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, userID, state); err != nil {
		s.warn("state cache write failed", userID, err)
	}
}

func (s *Service) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.warn("state cache invalidate failed", userID, err)
	}
}

func (s *Service) warn(msg string, userID uuid.UUID, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, slog.String("user_id", userID.String()), slog.Any("error", err))
}
