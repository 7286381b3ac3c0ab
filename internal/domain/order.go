package domain

import "time"

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

const (
	FulfillmentUnfulfilled = "unfulfilled"
	FulfillmentPartial     = "partial"
	FulfillmentFulfilled   = "fulfilled"
)

// Order is created exactly once when a checkout completes. The snapshot and
// totals are immutable afterward; only the three status fields mutate, and
// every such mutation is explained by an AuditEntry.
type Order struct {
	ID                string
	OrderNumber       int
	Email             string
	Items             []CartItem
	Subtotal          float64
	ShippingTotal     float64
	TaxTotal          float64
	Total             float64
	Currency          string
	Status            string
	PaymentStatus     string
	FulfillmentStatus string
	PaymentProvider   string
	PaymentID         string
	PaidAt            *time.Time
	CancelledAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
