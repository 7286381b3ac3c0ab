package domain

import "time"

const (
	AuditFieldStatus            = "status"
	AuditFieldPaymentStatus     = "paymentStatus"
	AuditFieldFulfillmentStatus = "fulfillmentStatus"
)

const (
	ChangedByStripeWebhook = "stripe-webhook"
	ChangedByPayPalWebhook = "paypal-webhook"
	ChangedByBulkUpdate    = "bulk-update"
)

// AuditEntry records one order status-field change. Entries are append-only;
// nothing updates or deletes them.
type AuditEntry struct {
	ID            int64
	OrderID       string
	Field         string
	PreviousValue string
	NewValue      string
	ChangedBy     string
	ChangedAt     time.Time
	Reason        string
}
