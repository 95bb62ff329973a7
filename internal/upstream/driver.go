package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/example/graborgan/internal/models"
)

// DriverClient reads the driver-info service. Driver documents come back
// bare, without the {code, data} envelope the other services use.
type DriverClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewDriverClient(baseURL string) *DriverClient {
	return &DriverClient{BaseURL: baseURL, HTTP: newHTTPClient()}
}

func (c *DriverClient) Get(ctx context.Context, driverID string) (models.Driver, error) {
	var d models.Driver
	u := c.BaseURL + "/drivers/" + url.PathEscape(driverID)
	if err := doJSON(ctx, c.HTTP, "driverinfo", http.MethodGet, u, nil, &d); err != nil {
		return models.Driver{}, err
	}
	if d.ID == "" {
		d.ID = driverID
	}
	return d, nil
}
