package domain

import "time"

// CartItem is a frozen snapshot of one cart line, captured once when the
// checkout is created and never resynced with the catalog. Later price or
// title edits must not alter an in-flight checkout or a historical order.
type CartItem struct {
	ProductID    string
	VariantID    string
	Quantity     int
	Title        string
	VariantTitle string
	SKU          string
	Price        float64
	ImageURL     string
}

type Address struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// CheckoutSession is the mutable, time-boxed record of an in-progress
// purchase. It becomes terminal when CompletedAt is set or ExpiresAt passes;
// expiry is evaluated lazily at access time, there is no background sweep.
type CheckoutSession struct {
	ID              string
	Items           []CartItem
	Subtotal        float64
	ShippingTotal   float64
	TaxTotal        float64
	Total           float64
	Currency        string
	Email           string
	CustomerID      string
	ShippingAddress *Address
	BillingAddress  *Address
	ShippingRateID  string
	ShippingMethod  string
	PaymentProvider string
	PaymentID       string
	ExpiresAt       time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s *CheckoutSession) IsCompleted() bool {
	return s.CompletedAt != nil
}

func (s *CheckoutSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

func (s *CheckoutSession) IsTerminal(now time.Time) bool {
	return s.IsCompleted() || s.IsExpired(now)
}

// RecomputeTotal re-derives total from its parts. Always called after a
// mutating operation instead of trusting a cached value.
func (s *CheckoutSession) RecomputeTotal() {
	s.Total = Round2(s.Subtotal + s.ShippingTotal + s.TaxTotal)
}

// SubtotalOf sums price*quantity over a snapshot, rounded to two decimals.
func SubtotalOf(items []CartItem) float64 {
	sum := 0.0
	for _, it := range items {
		sum += it.Price * float64(it.Quantity)
	}
	return Round2(sum)
}
