package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	checkoutctrl "palantir/internal/checkout/controller"
	orderctrl "palantir/internal/order/controller"
	webhookctrl "palantir/internal/webhook/controller"
)

func NewRouter(
	checkout *checkoutctrl.CheckoutController,
	webhooks *webhookctrl.WebhookController,
	history *orderctrl.HistoryController,
	webhookLimiter *RateLimiter,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/create", checkout.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", checkout.Get)
			r.Post("/customer", checkout.SaveCustomerInfo)
			r.Post("/shipping-address", checkout.SaveShippingAddress)
			r.Get("/shipping-rates", checkout.ShippingRates)
			r.Post("/shipping-method", checkout.SaveShippingMethod)
			r.Post("/payment/stripe", checkout.CreateStripeIntent)
			r.Post("/payment/paypal", checkout.CreatePayPalOrder)
			r.Post("/complete", checkout.Complete)
		})
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(webhookLimiter.Middleware)
		r.Post("/stripe", webhooks.HandleStripe)
		r.Post("/paypal", webhooks.HandlePayPal)
	})

	r.Get("/orders/{id}/history", history.GetHistory)

	return r
}
