package authz

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Resolver owns the authorization state for one session. The state is
// recomputed wholesale on identity changes; consumers only ever observe
// Unresolved or a settled snapshot, never a partial one.
//
// Concurrent resolutions are serialised by a generation counter: the most
// recently initiated call wins, and a slower stale fetch that settles after
// a newer one (or after Reset) is discarded on arrival.
type Resolver struct {
	service *Service
	logger  *slog.Logger

	mu        sync.Mutex
	gen       uint64
	state     State
	resolved  bool
	resolving int
}

// NewResolver constructs a Resolver bound to the given service.
func NewResolver(service *Service, logger *slog.Logger) *Resolver {
	return &Resolver{service: service, logger: logger}
}

// Resolve recomputes the state for userID and installs it unless a newer
// resolution or a Reset superseded this attempt while the fetch was in
// flight. The installed state is returned; on supersession the result of
// the stale fetch is discarded and the current snapshot is returned instead.
//
// A store failure degrades to {viewer, no permissions}; it is logged and
// never propagated as a panic or an elevated state.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) State {
	if userID == uuid.Nil {
		r.Reset()
		return DefaultState()
	}

	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.resolving++
	r.mu.Unlock()

	state, err := r.service.ResolvePermissions(ctx, userID)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("authorization resolution degraded",
				slog.String("user_id", userID.String()), slog.Any("error", err))
		}
		// state already carries the safe default from the service.
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolving--
	if gen != r.gen {
		// Superseded by a newer resolution or a reset; discard.
		return r.state
	}
	r.state = state
	r.resolved = true
	return state
}

// Current returns the settled snapshot and whether resolution has completed.
func (r *Resolver) Current() (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.resolved
}

// Loading reports whether a resolution is in flight.
func (r *Resolver) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolving > 0
}

// Reset discards the snapshot and invalidates any in-flight resolution,
// returning the resolver to the unresolved state. Used on logout.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.state = State{}
	r.resolved = false
}
