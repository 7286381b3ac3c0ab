package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"palantir/internal/domain"
)

type OrderRepository interface {
	NextOrderNumber(ctx context.Context, tx *sql.Tx) (int, error)
	Insert(ctx context.Context, tx *sql.Tx, o *domain.Order) error
}

// Materializer converts a completed checkout session into an Order inside
// the caller's transaction. It copies the frozen snapshot so later catalog
// edits never retroactively alter historical orders, and it never talks to
// a payment gateway.
type Materializer struct {
	orderRepo OrderRepository
	logger    *zap.Logger
}

func NewMaterializer(orderRepo OrderRepository, logger *zap.Logger) *Materializer {
	return &Materializer{orderRepo: orderRepo, logger: logger}
}

func (m *Materializer) Materialize(ctx context.Context, tx *sql.Tx, s *domain.CheckoutSession, provider, paymentID string, now time.Time) (*domain.Order, error) {
	orderNumber, err := m.orderRepo.NextOrderNumber(ctx, tx)
	if err != nil {
		return nil, err
	}

	items := make([]domain.CartItem, len(s.Items))
	copy(items, s.Items)

	paidAt := now
	order := &domain.Order{
		ID:                uuid.New().String(),
		OrderNumber:       orderNumber,
		Email:             s.Email,
		Items:             items,
		Subtotal:          s.Subtotal,
		ShippingTotal:     s.ShippingTotal,
		TaxTotal:          s.TaxTotal,
		Total:             s.Total,
		Currency:          s.Currency,
		Status:            domain.OrderStatusPending,
		PaymentStatus:     domain.PaymentStatusPaid,
		FulfillmentStatus: domain.FulfillmentUnfulfilled,
		PaymentProvider:   provider,
		PaymentID:         paymentID,
		PaidAt:            &paidAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := m.orderRepo.Insert(ctx, tx, order); err != nil {
		return nil, err
	}

	m.logger.Debug("order materialized",
		zap.String("orderId", order.ID),
		zap.Int("orderNumber", order.OrderNumber),
		zap.String("checkoutId", s.ID),
	)

	return order, nil
}
