package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// StripeGateway creates payment intents as orders. stripe.Key must be set at startup.
type StripeGateway struct {
	signingSecret string
	webhookSecret string
	logger        *zap.Logger
}

func NewStripeGateway(signingSecret, webhookSecret string, logger *zap.Logger) *StripeGateway {
	return &StripeGateway{
		signingSecret: signingSecret,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

func (g *StripeGateway) CreateOrder(ctx context.Context, amount float64, currency string, metadata map[string]string) (string, error) {
	if stripe.Key == "" {
		return "", ErrGatewayUnavailable
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(amount)),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		g.logger.Error("stripe order creation failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return pi.ID, nil
}

func (g *StripeGateway) VerifySignature(orderRef, paymentRef, signature string) bool {
	return VerifySignature(g.signingSecret, orderRef, paymentRef, signature)
}

func (g *StripeGateway) Refund(ctx context.Context, paymentRef string, amount float64, notes map[string]string) (string, error) {
	if stripe.Key == "" {
		return "", ErrGatewayUnavailable
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentRef),
		Amount:        stripe.Int64(toMinorUnits(amount)),
	}
	params.Context = ctx
	for k, v := range notes {
		params.AddMetadata(k, v)
	}

	r, err := refund.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe refund failed: %w", err)
	}
	return r.ID, nil
}

// Confirmation is a verified gateway-side payment success.
type Confirmation struct {
	OrderRef   string
	PaymentRef string
}

// ParseWebhook verifies the Stripe-Signature header and extracts a succeeded
// payment intent. ok is false for event types that don't confirm a payment.
func (g *StripeGateway) ParseWebhook(payload []byte, sigHeader string) (conf Confirmation, ok bool, err error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return Confirmation{}, false, fmt.Errorf("invalid webhook signature: %w", err)
	}
	if string(event.Type) != "payment_intent.succeeded" {
		return Confirmation{}, false, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return Confirmation{}, false, fmt.Errorf("invalid payment intent payload: %w", err)
	}
	conf = Confirmation{OrderRef: pi.ID, PaymentRef: pi.ID}
	if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
		conf.PaymentRef = pi.LatestCharge.ID
	}
	return conf, true, nil
}
