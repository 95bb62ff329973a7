package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/example/graborgan/internal/models"
)

// MatchClient talks to the organ-matching service and the order composite.
type MatchClient struct {
	MatchURL string
	OrderURL string
	HTTP     *http.Client
}

func NewMatchClient(matchURL, orderURL string) *MatchClient {
	return &MatchClient{MatchURL: matchURL, OrderURL: orderURL, HTTP: newHTTPClient()}
}

// MatchesForRecipient lists candidate organ matches for one recipient.
func (c *MatchClient) MatchesForRecipient(ctx context.Context, recipientID string) ([]models.Match, error) {
	var env envelope
	u := c.MatchURL + "/matches/recipient/" + url.PathEscape(recipientID)
	if err := doJSON(ctx, c.HTTP, "match", http.MethodGet, u, nil, &env); err != nil {
		return nil, err
	}
	var matches []models.Match
	if err := unwrapEnvelope(env, "match", &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// RequestOrgan files an organ request for a recipient.
func (c *MatchClient) RequestOrgan(ctx context.Context, recipientID, organType string) error {
	body := map[string]any{"recipientId": recipientID, "organType": organType}
	return doJSON(ctx, c.HTTP, "match", http.MethodPost, c.MatchURL+"/request-for-organ", body, nil)
}

// ConfirmMatch marks a candidate match as accepted by the doctor.
func (c *MatchClient) ConfirmMatch(ctx context.Context, matchID string) error {
	body := map[string]any{"matchId": matchID}
	return doJSON(ctx, c.HTTP, "match", http.MethodPost, c.MatchURL+"/confirm-match", body, nil)
}

// CreateOrder asks the order composite to create the transplant delivery.
func (c *MatchClient) CreateOrder(ctx context.Context, req models.OrderRequest) error {
	return doJSON(ctx, c.HTTP, "order", http.MethodPost, c.OrderURL+"/order", req, nil)
}
