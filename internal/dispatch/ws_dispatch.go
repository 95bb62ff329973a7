package dispatch

import (
	"log"
	"sync"

	"github.com/example/graborgan/internal/models"
	"github.com/gorilla/websocket"
)

// WSSession represents one connected tracking watcher (a doctor's or
// operator's open map view).
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(st models.DriverState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(st)
}

// WSRegistry fans DriverState snapshots out to everyone watching an order.
type WSRegistry struct {
	mu       sync.RWMutex
	watchers map[string][]*WSSession
}

func NewWSRegistry() *WSRegistry {
	return &WSRegistry{watchers: make(map[string][]*WSSession)}
}

func (r *WSRegistry) Add(orderID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchers[orderID] = append(r.watchers[orderID], &WSSession{conn: conn})
}

// Publish implements tracking.Sink. Dead connections are dropped on write
// failure; a slow watcher never blocks the tick that produced the snapshot.
func (r *WSRegistry) Publish(orderID string, st models.DriverState) {
	r.mu.RLock()
	sessions := append([]*WSSession(nil), r.watchers[orderID]...)
	r.mu.RUnlock()

	var dead []*WSSession
	for _, s := range sessions {
		if err := s.Send(st); err != nil {
			log.Printf("ws send error: %v", err)
			dead = append(dead, s)
		}
	}
	if len(dead) == 0 {
		return
	}
	r.mu.Lock()
	kept := r.watchers[orderID][:0]
	for _, s := range r.watchers[orderID] {
		drop := false
		for _, d := range dead {
			if s == d {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, s)
		}
	}
	r.watchers[orderID] = kept
	r.mu.Unlock()
}

// Close drops all watchers for an order, closing their connections.
func (r *WSRegistry) Close(orderID string) {
	r.mu.Lock()
	sessions := r.watchers[orderID]
	delete(r.watchers, orderID)
	r.mu.Unlock()
	for _, s := range sessions {
		_ = s.conn.Close()
	}
}
