package route

import (
	"github.com/example/graborgan/internal/models"
)

// Buffer holds the ordered waypoint sequence for one active delivery and the
// index of the point the vehicle is currently at. It is owned by a single
// tracking session and is not safe for concurrent use on its own.
type Buffer struct {
	points []models.Waypoint
	index  int
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Load replaces the buffer contents and resets the index to 0.
func (b *Buffer) Load(points []models.Waypoint) {
	b.points = append(b.points[:0:0], points...)
	b.index = 0
}

// Advance moves to the next waypoint. The second return is false once the
// last waypoint has been reached; further calls keep returning the last
// waypoint with false and do not move the index.
func (b *Buffer) Advance() (models.Waypoint, bool) {
	if len(b.points) == 0 {
		return models.Waypoint{}, false
	}
	if b.index >= len(b.points)-1 {
		b.index = len(b.points) - 1
		return b.points[b.index], false
	}
	b.index++
	return b.points[b.index], b.index < len(b.points)-1
}

// Current returns the waypoint at the current index.
func (b *Buffer) Current() (models.Waypoint, bool) {
	if len(b.points) == 0 {
		return models.Waypoint{}, false
	}
	return b.points[b.index], true
}

// ConsumeTraveled drops all waypoints strictly before upto, shrinking the
// visible trail behind the vehicle. The buffer never goes below one point:
// if upto points at or past the last element, only the last point remains.
func (b *Buffer) ConsumeTraveled(upto int) {
	if len(b.points) == 0 || upto <= 0 {
		return
	}
	if upto > len(b.points)-1 {
		upto = len(b.points) - 1
	}
	b.points = append(b.points[:0:0], b.points[upto:]...)
	b.index -= upto
	if b.index < 0 {
		b.index = 0
	}
}

// SpliceNewRoute replaces the buffer with a recalculated route, prepending
// the vehicle's current position so the drawn line reconnects from where the
// vehicle actually is rather than from the original origin.
func (b *Buffer) SpliceNewRoute(from models.Waypoint, points []models.Waypoint) {
	spliced := make([]models.Waypoint, 0, len(points)+1)
	spliced = append(spliced, from)
	spliced = append(spliced, points...)
	b.points = spliced
	b.index = 0
}

// Reset rewinds the index to the first waypoint without touching the points.
func (b *Buffer) Reset() {
	b.index = 0
}

// Len reports the number of waypoints currently buffered.
func (b *Buffer) Len() int { return len(b.points) }

// Index reports the current position index.
func (b *Buffer) Index() int { return b.index }

// AtEnd reports whether the index sits on the final waypoint.
func (b *Buffer) AtEnd() bool {
	return len(b.points) > 0 && b.index >= len(b.points)-1
}

// Points returns a copy of the buffered waypoints for rendering.
func (b *Buffer) Points() []models.Waypoint {
	return append([]models.Waypoint(nil), b.points...)
}
