package order

import (
	"database/sql"

	"go.uber.org/zap"

	auditrepo "palantir/internal/audit/repository"
	"palantir/internal/auth"
	"palantir/internal/order/controller"
	orderrepo "palantir/internal/order/repository"
)

func NewModule(db *sql.DB, tokens *auth.TokenService, logger *zap.Logger) *controller.HistoryController {
	orderRepo := orderrepo.NewMySQLOrderRepository(db)
	auditRepo := auditrepo.NewMySQLAuditRepository(db)

	return controller.NewHistoryController(orderRepo, auditRepo, tokens, logger)
}
