package checkout

import (
	"database/sql"

	"go.uber.org/zap"

	"palantir/internal/auth"
	catalogrepo "palantir/internal/catalog/repository"
	"palantir/internal/checkout/controller"
	checkoutrepo "palantir/internal/checkout/repository"
	"palantir/internal/checkout/service"
	"palantir/internal/config"
	orderrepo "palantir/internal/order/repository"
	orderservice "palantir/internal/order/service"
	"palantir/internal/payments"
)

func NewModule(db *sql.DB, cfg *config.Config, tokens *auth.TokenService, logger *zap.Logger) *controller.CheckoutController {
	checkoutRepo := checkoutrepo.NewMySQLCheckoutRepository(db)
	customerRepo := checkoutrepo.NewMySQLCustomerRepository(db)
	catalogRepo := catalogrepo.NewMySQLCatalogRepository(db)
	orderRepo := orderrepo.NewMySQLOrderRepository(db)

	materializer := orderservice.NewMaterializer(orderRepo, logger)
	stripeGateway := payments.NewStripeGateway(cfg.Stripe)
	paypalGateway := payments.NewPayPalGateway(cfg.PayPal)

	checkoutSvc := service.NewCheckoutService(
		db,
		checkoutRepo,
		customerRepo,
		catalogRepo,
		materializer,
		stripeGateway,
		paypalGateway,
		logger,
		service.Config{
			SessionTTL:            cfg.Checkout.SessionTTL,
			FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
			DefaultCurrency:       cfg.Checkout.Currency,
		},
	)

	return controller.NewCheckoutController(checkoutSvc, tokens, cfg.Stripe.PublishableKey, logger)
}
