package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/example/graborgan/internal/models"
)

// DeliveryClient talks to the delivery-info service and the tracking
// composites layered over it.
type DeliveryClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewDeliveryClient(baseURL string) *DeliveryClient {
	return &DeliveryClient{BaseURL: baseURL, HTTP: newHTTPClient()}
}

// List returns every delivery document. The service returns a keyed object,
// not an array, so the map is flattened here.
func (c *DeliveryClient) List(ctx context.Context) ([]models.Delivery, error) {
	var env envelope
	if err := doJSON(ctx, c.HTTP, "deliveryinfo", http.MethodGet, c.BaseURL+"/deliveryinfo", nil, &env); err != nil {
		return nil, err
	}
	var keyed map[string]models.Delivery
	if err := unwrapEnvelope(env, "deliveryinfo", &keyed); err != nil {
		return nil, err
	}
	out := make([]models.Delivery, 0, len(keyed))
	for _, d := range keyed {
		out = append(out, d)
	}
	return out, nil
}

func (c *DeliveryClient) Get(ctx context.Context, orderID string) (models.Delivery, error) {
	var env envelope
	u := c.BaseURL + "/deliveryinfo/" + url.PathEscape(orderID)
	if err := doJSON(ctx, c.HTTP, "deliveryinfo", http.MethodGet, u, nil, &env); err != nil {
		return models.Delivery{}, err
	}
	var d models.Delivery
	if err := unwrapEnvelope(env, "deliveryinfo", &d); err != nil {
		return models.Delivery{}, err
	}
	return d, nil
}

// Delete soft-deletes a delivery; the service records status "Deleted".
func (c *DeliveryClient) Delete(ctx context.Context, orderID string) error {
	u := c.BaseURL + "/deliveryinfo/" + url.PathEscape(orderID)
	body := map[string]any{"status": models.DeliveryDeleted}
	return doJSON(ctx, c.HTTP, "deliveryinfo", http.MethodDelete, u, body, nil)
}

// TrackResult is the track-delivery composite's answer: a possibly updated
// polyline plus the backend's deviation verdict.
type TrackResult struct {
	Polyline  string `json:"polyline"`
	Deviation bool   `json:"deviation"`
}

// Track reports a driver position to the track-delivery composite.
func (c *DeliveryClient) Track(ctx context.Context, orderID string, pos models.Waypoint) (TrackResult, error) {
	var env envelope
	body := map[string]any{"deliveryId": orderID, "driverCoord": pos}
	if err := doJSON(ctx, c.HTTP, "trackdelivery", http.MethodPost, c.BaseURL+"/track-delivery", body, &env); err != nil {
		return TrackResult{}, err
	}
	var res TrackResult
	if err := unwrapEnvelope(env, "trackdelivery", &res); err != nil {
		return TrackResult{}, err
	}
	return res, nil
}

// AcknowledgeDriver confirms a driver has accepted their assigned delivery.
func (c *DeliveryClient) AcknowledgeDriver(ctx context.Context, driverID, orderID string) error {
	body := map[string]any{"driverId": driverID, "deliveryId": orderID}
	return doJSON(ctx, c.HTTP, "acknowledgedriver", http.MethodPost, c.BaseURL+"/acknowledge-driver", body, nil)
}

// End marks the delivery complete and releases the driver.
func (c *DeliveryClient) End(ctx context.Context, orderID, driverID string) error {
	body := map[string]any{"deliveryId": orderID, "driverId": driverID}
	return doJSON(ctx, c.HTTP, "enddelivery", http.MethodPost, c.BaseURL+"/end-delivery", body, nil)
}
