package payments

import (
	"context"
	"os"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// StripeClient wraps stripe-go for the courier dispatch fee flow: a hold is
// placed when the transplant order books a courier, captured when the
// delivery ends, and released if the delivery is deleted first.
type StripeClient struct{}

// NewStripeClient initializes the stripe client with the STRIPE_API_KEY env var.
func NewStripeClient() *StripeClient {
	stripe.Key = os.Getenv("STRIPE_API_KEY")
	return &StripeClient{}
}

// HoldDeliveryFee creates a manual-capture PaymentIntent for the courier fee
// and returns its ID.
func (s *StripeClient) HoldDeliveryFee(ctx context.Context, orderID string, amount int64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	params.AddMetadata("order_id", orderID)
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// CaptureDeliveryFee finalizes the hold once the delivery completes.
func (s *StripeClient) CaptureDeliveryFee(ctx context.Context, paymentIntentID string) error {
	_, err := paymentintent.Capture(paymentIntentID, nil)
	return err
}

// ReleaseDeliveryFee cancels the hold when a delivery is deleted before
// completion.
func (s *StripeClient) ReleaseDeliveryFee(ctx context.Context, paymentIntentID string) error {
	_, err := paymentintent.Cancel(paymentIntentID, nil)
	return err
}
