package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/example/graborgan/internal/models"
)

// WebhookNotifier posts terminal delivery states to the notification
// composite, which fans out to email/SMS. Best effort: a failed webhook is
// not allowed to disturb the tracking loop.
type WebhookNotifier struct {
	Endpoint string
	Client   *http.Client
}

func NewWebhookNotifier(endpoint string) *WebhookNotifier {
	return &WebhookNotifier{Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}}
}

// Publish implements tracking.Sink. Only state transitions worth a
// notification (Delivered) leave the process.
func (n *WebhookNotifier) Publish(orderID string, st models.DriverState) {
	if n.Endpoint == "" || st.Status != models.DriverDelivered {
		return
	}
	payload := map[string]any{
		"deliveryId": orderID,
		"status":     st.Status,
		"location":   st.Location,
		"at":         st.Updated,
	}
	b, _ := json.Marshal(payload)
	resp, err := n.Client.Post(n.Endpoint, "application/json", bytes.NewReader(b))
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}
