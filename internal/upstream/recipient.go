package upstream

import (
	"context"
	"net/http"

	"github.com/example/graborgan/internal/models"
)

// RecipientClient reads the recipient and lab-report services.
type RecipientClient struct {
	RecipientURL string
	LabReportURL string
	HTTP         *http.Client
}

func NewRecipientClient(recipientURL, labReportURL string) *RecipientClient {
	return &RecipientClient{RecipientURL: recipientURL, LabReportURL: labReportURL, HTTP: newHTTPClient()}
}

// List returns all recipients; the service keys them by document ID.
func (c *RecipientClient) List(ctx context.Context) ([]models.Recipient, error) {
	var env envelope
	if err := doJSON(ctx, c.HTTP, "recipient", http.MethodGet, c.RecipientURL+"/recipient", nil, &env); err != nil {
		return nil, err
	}
	var keyed map[string]models.Recipient
	if err := unwrapEnvelope(env, "recipient", &keyed); err != nil {
		return nil, err
	}
	out := make([]models.Recipient, 0, len(keyed))
	for id, r := range keyed {
		if r.ID == "" {
			r.ID = id
		}
		out = append(out, r)
	}
	return out, nil
}

// LabReports returns the lab reports filed for one recipient. The lab
// service has no per-recipient endpoint, so filtering happens here.
func (c *RecipientClient) LabReports(ctx context.Context, recipientID string) ([]models.LabReport, error) {
	var env envelope
	if err := doJSON(ctx, c.HTTP, "labreport", http.MethodGet, c.LabReportURL+"/lab-reports", nil, &env); err != nil {
		return nil, err
	}
	var all []models.LabReport
	if err := unwrapEnvelope(env, "labreport", &all); err != nil {
		return nil, err
	}
	out := make([]models.LabReport, 0, len(all))
	for _, r := range all {
		if r.RecipientID == recipientID {
			out = append(out, r)
		}
	}
	return out, nil
}
