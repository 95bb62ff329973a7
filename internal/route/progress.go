package route

import (
	"math"

	"github.com/example/graborgan/internal/models"
)

// Progress estimates journey completion as the ratio of straight-line
// distance traveled over the straight-line origin-destination distance,
// floored and clamped to [0,100]. It is a display affordance, not a
// navigation-critical figure; a vehicle looping back after a reroute can
// make it dip. Returns 0 when start and end coincide.
func Progress(current, start, end models.Waypoint) int {
	total := euclidean(start, end)
	if total == 0 {
		return 0
	}
	traveled := euclidean(start, current)
	p := int(math.Floor(traveled / total * 100))
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return p
}

func euclidean(a, b models.Waypoint) float64 {
	dLat := b.Lat - a.Lat
	dLng := b.Lng - a.Lng
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// Haversine distance in meters, used where a real-world distance is wanted
// (fleet radius queries, ETA displays).
func Haversine(a, b models.Waypoint) float64 {
	const R = 6371000.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return R * c
}
