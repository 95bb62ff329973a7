package storage

import (
	"sync"
	"time"

	"github.com/example/graborgan/internal/models"
)

// HistoryStore defines persistence for tracking sessions: one row per
// session plus an append-only position trail.
type HistoryStore interface {
	SaveSession(orderID, driverID string, origin, destination models.Waypoint) error
	UpdateStatus(orderID string, status models.DriverStatus) error
	RecordPosition(orderID string, pos models.Waypoint, progress int) error
}

type memorySession struct {
	driverID    string
	origin      models.Waypoint
	destination models.Waypoint
	status      models.DriverStatus
	trail       []models.Waypoint
	updated     time.Time
}

// MemoryStore is the fallback when no Postgres DSN is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memorySession)}
}

func (m *MemoryStore) SaveSession(orderID, driverID string, origin, destination models.Waypoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[orderID] = &memorySession{
		driverID:    driverID,
		origin:      origin,
		destination: destination,
		status:      models.DriverReady,
		updated:     time.Now(),
	}
	return nil
}

func (m *MemoryStore) UpdateStatus(orderID string, status models.DriverStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[orderID]; ok {
		s.status = status
		s.updated = time.Now()
	}
	return nil
}

func (m *MemoryStore) RecordPosition(orderID string, pos models.Waypoint, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[orderID]; ok {
		s.trail = append(s.trail, pos)
		s.updated = time.Now()
	}
	return nil
}

// Trail returns the recorded positions for an order, for tests and the
// history endpoint.
func (m *MemoryStore) Trail(orderID string) []models.Waypoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[orderID]
	if !ok {
		return nil
	}
	return append([]models.Waypoint(nil), s.trail...)
}

// Status returns the last recorded status for an order.
func (m *MemoryStore) Status(orderID string) (models.DriverStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[orderID]
	if !ok {
		return "", false
	}
	return s.status, true
}
