package review

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry holds the live sessions of a server process.
type Registry struct {
	wf       *Workflow
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty Registry whose sessions use wf.
func NewRegistry(wf *Workflow) *Registry {
	return &Registry{wf: wf, sessions: make(map[string]*Session)}
}

// Create starts and registers a session for owner.
func (r *Registry) Create(owner string) *Session {
	s := r.wf.NewSession(owner)
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Get returns owner's session id. Sessions of other owners are reported
// as missing.
func (r *Registry) Get(owner, id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || s.Owner() != owner {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove closes and forgets owner's session id.
func (r *Registry) Remove(owner, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok || s.Owner() != owner {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	r.mu.Unlock()
	s.Close()
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than maxIdle and returns how many
// were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.wf.deps.Now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		zap.L().Info("review: swept idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}
