// Package registry is the authoritative store of active duel sessions.
package registry

import (
	"sync"

	"github.com/okian/cfduel/internal/domain/model"
	"github.com/okian/cfduel/pkg/metrics"
)

// defaultCapacity bounds concurrently active duels.
const defaultCapacity = 20

// Registry holds active sessions keyed by unordered user pair. The single
// mutex makes check-then-insert atomic, upholding the one-session-per-pair
// and capacity invariants under concurrent creation attempts.
type Registry struct {
	mu       sync.RWMutex
	sessions map[model.PairKey]*model.DuelSession
	capacity int
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithCapacity sets the active-session ceiling.
func WithCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[model.PairKey]*model.DuelSession),
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Create registers a session. It fails with ErrAlreadyActive when the pair
// already has one and ErrCapacityExceeded at the ceiling.
//
// Only the exact pair is checked: a user may, by construction, be in
// concurrent duels with different partners. Kept as the source behavior.
func (r *Registry) Create(s *model.DuelSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := s.Key()
	if _, ok := r.sessions[key]; ok {
		return ErrAlreadyActive
	}
	if len(r.sessions) >= r.capacity {
		return ErrCapacityExceeded
	}
	r.sessions[key] = s
	metrics.UpdateActiveDuels(len(r.sessions))
	return nil
}

// FindByUser scans active sessions for one containing userID in either
// pair-key slot.
func (r *Registry) FindByUser(userID string) (*model.DuelSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for key, s := range r.sessions {
		if key.Contains(userID) {
			return s, true
		}
	}
	return nil, false
}

// Get returns the session for an exact pair key.
func (r *Registry) Get(key model.PairKey) (*model.DuelSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[key]
	return s, ok
}

// Remove evicts the session for key, if present.
func (r *Registry) Remove(key model.PairKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, key)
	metrics.UpdateActiveDuels(len(r.sessions))
}

// Active returns a point-in-time slice of all active sessions, safe to
// iterate without holding the registry lock.
func (r *Registry) Active() []*model.DuelSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.DuelSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
