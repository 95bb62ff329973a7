// Package positions keeps last-known courier positions for the fleet view.
// The tracking sessions feed it through Kafka; the dashboard reads it back
// as a radius query around a hospital.
package positions

import (
	"sync"
	"time"

	"github.com/example/graborgan/internal/models"
	"github.com/example/graborgan/internal/route"
)

// CourierPosition is one courier's last reported location.
type CourierPosition struct {
	DriverID string          `json:"driver_id"`
	OrderID  string          `json:"order_id,omitempty"`
	Loc      models.Waypoint `json:"loc"`
	Progress int             `json:"progress"`
	Updated  time.Time       `json:"updated"`
}

// Cache is the minimal interface the fleet handler and the consumer need.
type Cache interface {
	Upsert(p CourierPosition)
	Nearby(lat, lng float64, limit int) []CourierPosition
}

// Index is the in-memory fallback when Redis is not configured.
type Index struct {
	mu       sync.RWMutex
	couriers map[string]CourierPosition
}

func NewIndex() *Index {
	return &Index{couriers: make(map[string]CourierPosition)}
}

func (g *Index) Upsert(p CourierPosition) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p.Updated = time.Now()
	g.couriers[p.DriverID] = p
}

// naive scan; fleet sizes here are tens of couriers, not thousands
func (g *Index) Nearby(lat, lng float64, limit int) []CourierPosition {
	g.mu.RLock()
	defer g.mu.RUnlock()
	here := models.Waypoint{Lat: lat, Lng: lng}
	type pair struct {
		p    CourierPosition
		dist float64
	}
	arr := make([]pair, 0, len(g.couriers))
	for _, p := range g.couriers {
		arr = append(arr, pair{p, route.Haversine(here, p.Loc)})
	}
	// partial selection sort for top-N
	n := limit
	if n > len(arr) {
		n = len(arr)
	}
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(arr); j++ {
			if arr[j].dist < arr[minIdx].dist {
				minIdx = j
			}
		}
		arr[i], arr[minIdx] = arr[minIdx], arr[i]
	}
	out := make([]CourierPosition, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, arr[i].p)
	}
	return out
}
