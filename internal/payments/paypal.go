package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"palantir/internal/config"
	"palantir/internal/domain"
	apperrors "palantir/internal/errors"
)

const paypalAPIBase = "https://api-m.paypal.com"

type PayPalGateway struct {
	cfg    config.PayPalConfig
	client *http.Client
}

func NewPayPalGateway(cfg config.PayPalConfig) *PayPalGateway {
	return &PayPalGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// PayPalOrder is the approval handle returned to the storefront client.
type PayPalOrder struct {
	ID         string
	ApproveURL string
}

// CreateOrder creates a PayPal order for the checkout total and returns the
// id plus the buyer approval link.
func (g *PayPalGateway) CreateOrder(ctx context.Context, amount float64, currency, checkoutID string) (*PayPalOrder, error) {
	body := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"reference_id": checkoutID,
			"amount": map[string]string{
				"currency_code": currency,
				"value":         fmt.Sprintf("%.2f", amount),
			},
		}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling paypal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, paypalAPIBase+"/v2/checkout/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building paypal request: %w", err)
	}
	req.SetBasicAuth(g.cfg.ClientID, g.cfg.Secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, apperrors.NewTransientError("calling paypal create order", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewTransientError(fmt.Sprintf("paypal create order returned %d", resp.StatusCode), nil)
	}

	var created struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decoding paypal order response: %w", err)
	}

	order := &PayPalOrder{ID: created.ID}
	for _, link := range created.Links {
		if link.Rel == "approve" {
			order.ApproveURL = link.Href
		}
	}
	return order, nil
}

type paypalEvent struct {
	ID           string `json:"id"`
	EventType    string `json:"event_type"`
	ResourceType string `json:"resource_type"`
	Resource     struct {
		ID                string `json:"id"`
		Reason            string `json:"reason"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
		DisputedTransactions []struct {
			SellerTransactionID string `json:"seller_transaction_id"`
		} `json:"disputed_transactions"`
		DisputeOutcome struct {
			OutcomeCode string `json:"outcome_code"`
		} `json:"dispute_outcome"`
	} `json:"resource"`
}

// VerifyAndParse checks the HMAC-SHA256 hex digest of the raw body against
// the shared webhook secret, then maps the event type onto the provider-
// neutral union.
func (g *PayPalGateway) VerifyAndParse(payload []byte, signatureHeader string) (ProviderEvent, error) {
	mac := hmac.New(sha256.New, []byte(g.cfg.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if signatureHeader == "" || !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		return ProviderEvent{}, apperrors.NewSignatureError("paypal signature verification failed", nil)
	}

	var raw paypalEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return ProviderEvent{}, apperrors.NewValidationError("malformed paypal payload")
	}
	if raw.ID == "" || raw.EventType == "" {
		return ProviderEvent{}, apperrors.NewValidationError("paypal payload missing id or event_type")
	}

	evt := ProviderEvent{
		ID:       raw.ID,
		Provider: domain.ProviderPayPal,
		Type:     raw.EventType,
		Kind:     KindUnknown,
		Payload:  payload,
	}

	switch raw.EventType {
	case "PAYMENT.CAPTURE.COMPLETED":
		evt.Kind = KindPaymentSucceeded
		evt.PaymentID = capturePaymentID(raw)
	case "PAYMENT.CAPTURE.DENIED":
		evt.Kind = KindPaymentFailed
		evt.PaymentID = capturePaymentID(raw)
	case "PAYMENT.CAPTURE.REFUNDED":
		evt.Kind = KindChargeRefunded
		evt.PaymentID = capturePaymentID(raw)
	case "CUSTOMER.DISPUTE.CREATED":
		evt.Kind = KindDisputeOpened
		evt.PaymentID = disputePaymentID(raw)
		evt.DisputeReason = raw.Resource.Reason
	case "CUSTOMER.DISPUTE.RESOLVED":
		evt.Kind = KindDisputeClosed
		evt.PaymentID = disputePaymentID(raw)
		evt.DisputeReason = raw.Resource.Reason
		evt.DisputeStatus = disputeOutcome(raw.Resource.DisputeOutcome.OutcomeCode)
	}

	return evt, nil
}

// capturePaymentID prefers the originating order id so captures reconcile
// against the paymentId recorded at checkout completion.
func capturePaymentID(raw paypalEvent) string {
	if id := raw.Resource.SupplementaryData.RelatedIDs.OrderID; id != "" {
		return id
	}
	return raw.Resource.ID
}

func disputePaymentID(raw paypalEvent) string {
	if len(raw.Resource.DisputedTransactions) > 0 {
		return raw.Resource.DisputedTransactions[0].SellerTransactionID
	}
	return ""
}

func disputeOutcome(code string) string {
	switch code {
	case "RESOLVED_BUYER_FAVOUR":
		return DisputeLost
	case "RESOLVED_SELLER_FAVOUR":
		return DisputeWon
	default:
		return code
	}
}
