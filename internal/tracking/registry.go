package tracking

import (
	"errors"
	"sync"
)

var (
	ErrSessionExists   = errors.New("tracking session already exists for order")
	ErrSessionNotFound = errors.New("no tracking session for order")
)

// Registry holds at most one live tracking session per delivery order.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.OrderID]; ok {
		return ErrSessionExists
	}
	r.sessions[s.OrderID] = s
	return nil
}

func (r *Registry) Get(orderID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[orderID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove disposes the session and drops it from the registry.
func (r *Registry) Remove(orderID string) error {
	r.mu.Lock()
	s, ok := r.sessions[orderID]
	if ok {
		delete(r.sessions, orderID)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Dispose()
	return nil
}

// Shutdown disposes every live session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Dispose()
	}
}
