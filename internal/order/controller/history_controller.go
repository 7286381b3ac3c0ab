package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	checkoutctrl "palantir/internal/checkout/controller"
	"palantir/internal/domain"
	"palantir/internal/dto"
)

type AuditTrail interface {
	TrailForOrder(ctx context.Context, orderID string) ([]domain.AuditEntry, error)
}

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
}

type AdminTokenValidator interface {
	ValidateAdminToken(tokenStr string) error
}

// HistoryController serves the admin-only audit trail for an order.
type HistoryController struct {
	orders OrderRepository
	trail  AuditTrail
	tokens AdminTokenValidator
	logger *zap.Logger
}

func NewHistoryController(orders OrderRepository, trail AuditTrail, tokens AdminTokenValidator, logger *zap.Logger) *HistoryController {
	return &HistoryController{
		orders: orders,
		trail:  trail,
		tokens: tokens,
		logger: logger,
	}
}

func (c *HistoryController) GetHistory(w http.ResponseWriter, r *http.Request) {
	logger := c.logger.With(zap.String("traceId", uuid.New().String()))

	if err := c.tokens.ValidateAdminToken(bearerToken(r)); err != nil {
		logger.Warn("order history access denied", zap.Error(err))
		c.writeError(w, logger, err)
		return
	}

	orderID := chi.URLParam(r, "id")
	if _, err := c.orders.FindByID(r.Context(), orderID); err != nil {
		c.writeError(w, logger, err)
		return
	}

	entries, err := c.trail.TrailForOrder(r.Context(), orderID)
	if err != nil {
		c.writeError(w, logger, err)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.OrderHistoryResponse{History: dto.NewAuditEntryDTOs(entries)})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func (c *HistoryController) writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, body := checkoutctrl.MapError(err)
	if status == http.StatusInternalServerError {
		logger.Error("unexpected error", zap.Error(err))
	}
	c.writeJSON(w, status, body)
}

func (c *HistoryController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
