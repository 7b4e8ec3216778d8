package authz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StateCache keeps resolved authorization state in Redis so repeated checks
// within a session do not hit the relational store. Entries are invalidated
// whenever an administrator mutates the user's assignments.
type StateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStateCache constructs a StateCache.
func NewStateCache(client *redis.Client, ttl time.Duration) *StateCache {
	return &StateCache{client: client, ttl: ttl}
}

type statePayload struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// Get returns the cached state for the user, if present and well formed.
func (c *StateCache) Get(ctx context.Context, userID uuid.UUID) (State, bool, error) {
	if c == nil || c.client == nil {
		return State{}, false, nil
	}
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, false, nil
		}
		return State{}, false, err
	}
	var payload statePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return State{}, false, err
	}
	role, err := ParseRole(payload.Role)
	if err != nil {
		return State{}, false, err
	}
	perms := NewPermissionSet()
	for _, raw := range payload.Permissions {
		perm, err := ParsePermission(raw)
		if err != nil {
			// Stale vocabulary in cache, force a re-resolve.
			return State{}, false, err
		}
		perms[perm] = struct{}{}
	}
	return State{Role: role, Permissions: perms}, true, nil
}

// Set stores the state under the user's key with the configured TTL.
func (c *StateCache) Set(ctx context.Context, userID uuid.UUID, state State) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload := statePayload{Role: string(state.Role)}
	for _, p := range state.Permissions.Sorted() {
		payload.Permissions = append(payload.Permissions, string(p))
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(userID), data, c.ttl).Err()
}

// Invalidate drops the cached state for the user.
func (c *StateCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key(userID)).Err()
}

func (c *StateCache) key(userID uuid.UUID) string {
	return "authz:state:" + userID.String()
}
