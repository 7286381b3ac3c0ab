package domain

import "time"

const (
	ProviderStripe = "stripe"
	ProviderPayPal = "paypal"
)

// WebhookEvent is one row of the idempotency ledger. (EventID, Provider) is
// unique; the database constraint is the safety net when two deliveries of
// the same event race past the check-then-act sequence.
type WebhookEvent struct {
	EventID     string
	Provider    string
	EventType   string
	OrderID     string
	Payload     []byte
	ProcessedAt time.Time
}
