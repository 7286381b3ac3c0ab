package domain

import "time"

// Customer is deduplicated by normalized (lowercased) email: two checkouts
// using the same address in any casing resolve to the same customer.
type Customer struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
