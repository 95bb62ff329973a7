package geoclient

import (
	"encoding/json"

	"github.com/example/graborgan/internal/models"
)

// The decode endpoint has been observed returning coordinates either as
// {"lat":..,"lng":..} objects or as [["lat",..],["lng",..]] pair arrays.
// Both shapes normalize to a Waypoint here so nothing downstream has to care.
func normalizeCoordinate(raw json.RawMessage) (models.Waypoint, bool) {
	var obj struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Lat != nil && obj.Lng != nil {
		return models.Waypoint{Lat: *obj.Lat, Lng: *obj.Lng}, true
	}

	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return models.Waypoint{}, false
	}
	var wp models.Waypoint
	var haveLat, haveLng bool
	for _, p := range pairs {
		var key string
		var val float64
		if json.Unmarshal(p[0], &key) != nil || json.Unmarshal(p[1], &val) != nil {
			return models.Waypoint{}, false
		}
		switch key {
		case "lat":
			wp.Lat = val
			haveLat = true
		case "lng":
			wp.Lng = val
			haveLng = true
		}
	}
	if !haveLat || !haveLng {
		return models.Waypoint{}, false
	}
	return wp, true
}
