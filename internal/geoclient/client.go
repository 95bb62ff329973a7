package geoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/example/graborgan/internal/models"
	"github.com/example/graborgan/internal/observability"
)

// Geo is the interface the tracking loop depends on; Client is the real
// implementation, tests swap in fakes.
type Geo interface {
	DecodePolyline(ctx context.Context, encoded string) ([]models.Waypoint, error)
	CheckDeviation(ctx context.Context, encodedRoute string, pos models.Waypoint) (bool, error)
	RequestNewRoute(ctx context.Context, origin, destination models.Waypoint) (string, error)
	AddressToCoordinates(ctx context.Context, address string) (*models.Waypoint, error)
}

// Client issues requests against the geo-algo service (decode/deviate) and
// the hosted location service (routing/geocoding). All geometry lives on the
// remote side; this is a typed boundary, not an algorithm.
type Client struct {
	GeoAlgoURL  string
	LocationURL string
	HTTP        *http.Client

	geocodeCache *geocodeCache
}

func New(geoAlgoURL, locationURL string) *Client {
	return &Client{
		GeoAlgoURL:   geoAlgoURL,
		LocationURL:  locationURL,
		HTTP:         &http.Client{Timeout: 5 * time.Second},
		geocodeCache: newGeocodeCache(10 * time.Minute),
	}
}

// DecodePolyline asks the geo-algo service to expand an encoded polyline.
// An empty coordinate list is reported as a DecodeError; callers that can
// live without a route treat it as "no route available".
func (c *Client) DecodePolyline(ctx context.Context, encoded string) ([]models.Waypoint, error) {
	var out struct {
		Coordinates []json.RawMessage `json:"coordinates"`
	}
	if err := c.post(ctx, "decode", c.GeoAlgoURL+"/decode", map[string]any{"polyline": encoded}, &out); err != nil {
		return nil, err
	}
	if len(out.Coordinates) == 0 {
		observability.GeoRequests.WithLabelValues("decode", "empty").Inc()
		return nil, &DecodeError{Reason: "no coordinates in response"}
	}
	points := make([]models.Waypoint, 0, len(out.Coordinates))
	for _, raw := range out.Coordinates {
		wp, ok := normalizeCoordinate(raw)
		if !ok {
			return nil, &DecodeError{Reason: "malformed coordinate"}
		}
		points = append(points, wp)
	}
	return points, nil
}

// CheckDeviation reports the current position against the active route.
// The geometry check is entirely server-side.
func (c *Client) CheckDeviation(ctx context.Context, encodedRoute string, pos models.Waypoint) (bool, error) {
	var out struct {
		Code int `json:"code"`
		Data struct {
			Deviate bool `json:"deviate"`
		} `json:"data"`
	}
	body := map[string]any{"polyline": encodedRoute, "driverCoord": pos}
	if err := c.post(ctx, "deviate", c.GeoAlgoURL+"/deviate", body, &out); err != nil {
		return false, err
	}
	return out.Data.Deviate, nil
}

// RequestNewRoute asks the location service for a fresh encoded polyline
// between two points. The request envelope follows the Google Routes API
// shape the service proxies.
func (c *Client) RequestNewRoute(ctx context.Context, origin, destination models.Waypoint) (string, error) {
	body := map[string]any{
		"routingPreference":        "TRAFFIC_AWARE",
		"travelMode":               "DRIVE",
		"computeAlternativeRoutes": false,
		"origin": map[string]any{
			"location": map[string]any{
				"latLng": map[string]float64{"latitude": origin.Lat, "longitude": origin.Lng},
			},
		},
		"destination": map[string]any{
			"location": map[string]any{
				"latLng": map[string]float64{"latitude": destination.Lat, "longitude": destination.Lng},
			},
		},
	}
	var out struct {
		Route []struct {
			Polyline struct {
				EncodedPolyline string `json:"encodedPolyline"`
			} `json:"Polyline"`
		} `json:"Route"`
	}
	if err := c.post(ctx, "route", c.LocationURL+"/route", body, &out); err != nil {
		return "", err
	}
	if len(out.Route) == 0 || out.Route[0].Polyline.EncodedPolyline == "" {
		observability.GeoRequests.WithLabelValues("route", "no_route").Inc()
		return "", &RoutingError{Reason: "no polyline in response"}
	}
	return out.Route[0].Polyline.EncodedPolyline, nil
}

// AddressToCoordinates geocodes a hospital address. A miss is (nil, nil),
// not an error; callers must nil-check before anchoring a map on the result.
func (c *Client) AddressToCoordinates(ctx context.Context, address string) (*models.Waypoint, error) {
	if wp, ok := c.geocodeCache.get(address); ok {
		return &wp, nil
	}
	var out struct {
		Status    string  `json:"status"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := c.post(ctx, "geocode", c.LocationURL+"/coord-to-place", map[string]any{"long_name": address}, &out); err != nil {
		return nil, err
	}
	if out.Status != "OK" {
		observability.GeoRequests.WithLabelValues("geocode", "miss").Inc()
		return nil, nil
	}
	wp := models.Waypoint{Lat: out.Latitude, Lng: out.Longitude}
	c.geocodeCache.set(address, wp)
	return &wp, nil
}

func (c *Client) post(ctx context.Context, op, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		observability.GeoRequests.WithLabelValues(op, "error").Inc()
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.GeoRequests.WithLabelValues(op, "error").Inc()
		return &NetworkError{Op: op, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		observability.GeoRequests.WithLabelValues(op, "error").Inc()
		return &NetworkError{Op: op, Err: err}
	}
	observability.GeoRequests.WithLabelValues(op, "ok").Inc()
	return nil
}
