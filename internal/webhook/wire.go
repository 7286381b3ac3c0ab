package webhook

import (
	"database/sql"

	"go.uber.org/zap"

	auditrepo "palantir/internal/audit/repository"
	"palantir/internal/config"
	orderrepo "palantir/internal/order/repository"
	"palantir/internal/payments"
	"palantir/internal/webhook/controller"
	webhookrepo "palantir/internal/webhook/repository"
	"palantir/internal/webhook/service"
)

func NewModule(db *sql.DB, cfg *config.Config, logger *zap.Logger) *controller.WebhookController {
	orderRepo := orderrepo.NewMySQLOrderRepository(db)
	auditRepo := auditrepo.NewMySQLAuditRepository(db)
	ledger := webhookrepo.NewMySQLEventLedger(db)

	reconciler := service.NewReconciler(db, orderRepo, auditRepo, ledger, logger)

	stripeGateway := payments.NewStripeGateway(cfg.Stripe)
	paypalGateway := payments.NewPayPalGateway(cfg.PayPal)

	return controller.NewWebhookController(stripeGateway, paypalGateway, reconciler, logger)
}
