package dto

import (
	"time"

	"palantir/internal/domain"
)

type CheckoutResponse struct {
	Checkout CheckoutDTO `json:"checkout"`
	Token    string      `json:"token,omitempty"`
}

type CheckoutDTO struct {
	ID              string          `json:"id"`
	CartItems       []CartItemDTO   `json:"cartItems"`
	Subtotal        float64         `json:"subtotal"`
	ShippingTotal   float64         `json:"shippingTotal"`
	TaxTotal        float64         `json:"taxTotal"`
	Total           float64         `json:"total"`
	Currency        string          `json:"currency"`
	Email           string          `json:"email,omitempty"`
	CustomerID      string          `json:"customerId,omitempty"`
	ShippingAddress *domain.Address `json:"shippingAddress,omitempty"`
	BillingAddress  *domain.Address `json:"billingAddress,omitempty"`
	ShippingRateID  string          `json:"shippingRateId,omitempty"`
	ShippingMethod  string          `json:"shippingMethod,omitempty"`
	ExpiresAt       time.Time       `json:"expiresAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type CartItemDTO struct {
	ProductID    string  `json:"productId"`
	VariantID    string  `json:"variantId"`
	Quantity     int     `json:"quantity"`
	Title        string  `json:"title"`
	VariantTitle string  `json:"variantTitle,omitempty"`
	SKU          string  `json:"sku,omitempty"`
	Price        float64 `json:"price"`
	ImageURL     string  `json:"imageUrl,omitempty"`
}

type ShippingRatesResponse struct {
	ShippingRates []ShippingRateDTO `json:"shippingRates"`
}

type ShippingRateDTO struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	EstimatedDays string  `json:"estimatedDays"`
}

type PaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PublishableKey  string `json:"publishableKey"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type OrderResponse struct {
	Order OrderDTO `json:"order"`
}

type OrderDTO struct {
	ID                string        `json:"id"`
	OrderNumber       int           `json:"orderNumber"`
	Email             string        `json:"email"`
	CartItems         []CartItemDTO `json:"cartItems"`
	Subtotal          float64       `json:"subtotal"`
	ShippingTotal     float64       `json:"shippingTotal"`
	TaxTotal          float64       `json:"taxTotal"`
	Total             float64       `json:"total"`
	Currency          string        `json:"currency"`
	Status            string        `json:"status"`
	PaymentStatus     string        `json:"paymentStatus"`
	FulfillmentStatus string        `json:"fulfillmentStatus"`
	PaymentProvider   string        `json:"paymentProvider"`
	PaymentID         string        `json:"paymentId"`
	PaidAt            *time.Time    `json:"paidAt,omitempty"`
	CancelledAt       *time.Time    `json:"cancelledAt,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

type OrderHistoryResponse struct {
	History []AuditEntryDTO `json:"history"`
}

type AuditEntryDTO struct {
	Field         string    `json:"field"`
	PreviousValue string    `json:"previousValue"`
	NewValue      string    `json:"newValue"`
	ChangedBy     string    `json:"changedBy"`
	ChangedAt     time.Time `json:"changedAt"`
	Reason        string    `json:"reason"`
}

func NewCheckoutDTO(s *domain.CheckoutSession) CheckoutDTO {
	return CheckoutDTO{
		ID:              s.ID,
		CartItems:       newCartItemDTOs(s.Items),
		Subtotal:        s.Subtotal,
		ShippingTotal:   s.ShippingTotal,
		TaxTotal:        s.TaxTotal,
		Total:           s.Total,
		Currency:        s.Currency,
		Email:           s.Email,
		CustomerID:      s.CustomerID,
		ShippingAddress: s.ShippingAddress,
		BillingAddress:  s.BillingAddress,
		ShippingRateID:  s.ShippingRateID,
		ShippingMethod:  s.ShippingMethod,
		ExpiresAt:       s.ExpiresAt,
		CompletedAt:     s.CompletedAt,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func NewOrderDTO(o *domain.Order) OrderDTO {
	return OrderDTO{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		Email:             o.Email,
		CartItems:         newCartItemDTOs(o.Items),
		Subtotal:          o.Subtotal,
		ShippingTotal:     o.ShippingTotal,
		TaxTotal:          o.TaxTotal,
		Total:             o.Total,
		Currency:          o.Currency,
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		PaymentProvider:   o.PaymentProvider,
		PaymentID:         o.PaymentID,
		PaidAt:            o.PaidAt,
		CancelledAt:       o.CancelledAt,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func NewAuditEntryDTOs(entries []domain.AuditEntry) []AuditEntryDTO {
	out := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = AuditEntryDTO{
			Field:         e.Field,
			PreviousValue: e.PreviousValue,
			NewValue:      e.NewValue,
			ChangedBy:     e.ChangedBy,
			ChangedAt:     e.ChangedAt,
			Reason:        e.Reason,
		}
	}
	return out
}

func newCartItemDTOs(items []domain.CartItem) []CartItemDTO {
	out := make([]CartItemDTO, len(items))
	for i, it := range items {
		out[i] = CartItemDTO{
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			Quantity:     it.Quantity,
			Title:        it.Title,
			VariantTitle: it.VariantTitle,
			SKU:          it.SKU,
			Price:        it.Price,
			ImageURL:     it.ImageURL,
		}
	}
	return out
}
