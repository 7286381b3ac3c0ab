package payments

import (
	"encoding/json"
	"math"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/webhook"

	"palantir/internal/config"
	"palantir/internal/domain"
	apperrors "palantir/internal/errors"
)

type StripeGateway struct {
	cfg config.StripeConfig
}

func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	stripe.Key = cfg.SecretKey
	return &StripeGateway{cfg: cfg}
}

func (g *StripeGateway) PublishableKey() string {
	return g.cfg.PublishableKey
}

// CreateIntent creates a PaymentIntent for the checkout total. Amounts are
// sent in the smallest currency unit.
func (g *StripeGateway) CreateIntent(amount float64, currency, checkoutID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(amount * 100))),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("checkout_id", checkoutID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, apperrors.NewTransientError("creating stripe payment intent", err)
	}

	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) VerifyAndParse(payload []byte, signatureHeader string) (ProviderEvent, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, g.cfg.WebhookSecret)
	if err != nil {
		return ProviderEvent{}, apperrors.NewSignatureError("stripe signature verification failed", err)
	}

	evt := ProviderEvent{
		ID:       event.ID,
		Provider: domain.ProviderStripe,
		Type:     string(event.Type),
		Kind:     KindUnknown,
		Payload:  payload,
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return ProviderEvent{}, apperrors.NewValidationError("malformed stripe payment_intent payload")
		}
		evt.PaymentID = pi.ID
		if event.Type == "payment_intent.succeeded" {
			evt.Kind = KindPaymentSucceeded
		} else {
			evt.Kind = KindPaymentFailed
		}

	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return ProviderEvent{}, apperrors.NewValidationError("malformed stripe charge payload")
		}
		if ch.PaymentIntent != nil {
			evt.PaymentID = ch.PaymentIntent.ID
		}
		evt.Kind = KindChargeRefunded

	case "charge.dispute.created", "charge.dispute.closed":
		var d stripe.Dispute
		if err := json.Unmarshal(event.Data.Raw, &d); err != nil {
			return ProviderEvent{}, apperrors.NewValidationError("malformed stripe dispute payload")
		}
		if d.PaymentIntent != nil {
			evt.PaymentID = d.PaymentIntent.ID
		}
		evt.DisputeReason = string(d.Reason)
		if event.Type == "charge.dispute.created" {
			evt.Kind = KindDisputeOpened
		} else {
			evt.Kind = KindDisputeClosed
			evt.DisputeStatus = string(d.Status)
		}
	}

	return evt, nil
}
