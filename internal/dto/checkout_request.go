package dto

import "palantir/internal/domain"

type CreateCheckoutRequest struct {
	Items    []CreateCheckoutItem `json:"items"`
	Currency string               `json:"currency,omitempty"`
}

type CreateCheckoutItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

type CustomerInfoRequest struct {
	Email         string `json:"email"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	CreateAccount bool   `json:"createAccount,omitempty"`
	Password      string `json:"password,omitempty"`
}

type ShippingAddressRequest struct {
	domain.Address
	SaveAddress bool `json:"saveAddress,omitempty"`
}

type ShippingMethodRequest struct {
	ShippingRateID string `json:"shippingRateId"`
}

type CompleteCheckoutRequest struct {
	PaymentProvider string `json:"paymentProvider"`
	PaymentID       string `json:"paymentId"`
}
