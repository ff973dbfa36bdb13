package session

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/smazurov/playout/internal/logging"
	"github.com/smazurov/playout/internal/pacer"
)

// Registry holds the sessions of a process by ID.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logging.GetLogger("session"),
	}
}

// Add registers a session. IDs must be unique.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID()]; exists {
		return NewError(ErrCodeExists, fmt.Sprintf("session %s already exists", s.ID()), nil)
	}
	r.sessions[s.ID()] = s
	r.logger.Debug("Session registered", "session_id", s.ID(), "sessions", len(r.sessions))
	return nil
}

// Get returns the session with the given ID.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, NewError(ErrCodeNotFound, fmt.Sprintf("session %s not found", id), nil)
	}
	return s, nil
}

// List returns all sessions ordered by ID.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	slices.SortFunc(list, func(a, b *Session) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return list
}

// Stats returns a snapshot of every session ordered by ID.
func (r *Registry) Stats() []Stats {
	list := r.List()
	stats := make([]Stats, 0, len(list))
	for _, s := range list {
		stats = append(stats, s.Stats())
	}
	return stats
}

// Remove closes and unregisters a session.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return NewError(ErrCodeNotFound, fmt.Sprintf("session %s not found", id), nil)
	}
	r.logger.Debug("Session removed", "session_id", id)
	return s.Close()
}

// SetTargetQueueLength applies a new target to every session and returns
// how many were updated.
func (r *Registry) SetTargetQueueLength(n int) (int, error) {
	if n < pacer.MinTargetQueueLength || n > pacer.MaxTargetQueueLength {
		return 0, NewError(ErrCodeInvalidParam,
			fmt.Sprintf("target queue length %d outside [%d, %d]", n, pacer.MinTargetQueueLength, pacer.MaxTargetQueueLength),
			pacer.ErrInvalidTargetQueueLength)
	}
	updated := 0
	for _, s := range r.List() {
		if err := s.SetTargetQueueLength(n); err != nil {
			return updated, fmt.Errorf("session %s: %w", s.ID(), err)
		}
		updated++
	}
	return updated, nil
}

// CloseAll closes and removes every session.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var errs []error
	for _, s := range list {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.ID(), err))
		}
	}
	return errors.Join(errs...)
}
