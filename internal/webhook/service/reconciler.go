package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"palantir/internal/domain"
	apperrors "palantir/internal/errors"
	"palantir/internal/payments"
	"palantir/internal/webhook/repository"
)

type OrderRepository interface {
	FindByPaymentID(ctx context.Context, provider, paymentID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id, status string, cancelledAt *time.Time, updatedAt time.Time) error
	UpdatePaymentStatus(ctx context.Context, tx *sql.Tx, id, paymentStatus string, paidAt *time.Time, updatedAt time.Time) error
}

type AuditRecorder interface {
	Append(ctx context.Context, tx *sql.Tx, entry domain.AuditEntry) error
}

type EventLedger interface {
	IsProcessed(ctx context.Context, eventID, provider string) (bool, error)
	Record(ctx context.Context, tx *sql.Tx, evt domain.WebhookEvent) error
}

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Reconciler applies verified provider events to orders. Every mutation is
// idempotent: the ledger collapses duplicate deliveries, and each field is
// updated only when its value actually changes, with an audit entry per
// real change.
type Reconciler struct {
	db        TransactionManager
	orderRepo OrderRepository
	audit     AuditRecorder
	ledger    EventLedger
	logger    *zap.Logger
	now       func() time.Time
}

func NewReconciler(
	db TransactionManager,
	orderRepo OrderRepository,
	audit AuditRecorder,
	ledger EventLedger,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		db:        db,
		orderRepo: orderRepo,
		audit:     audit,
		ledger:    ledger,
		logger:    logger,
		now:       time.Now,
	}
}

// Process runs the reconciliation pipeline for one verified event and
// reports whether the event was a duplicate delivery.
func (s *Reconciler) Process(ctx context.Context, evt payments.ProviderEvent) (bool, error) {
	processed, err := s.ledger.IsProcessed(ctx, evt.ID, evt.Provider)
	if err != nil {
		return false, apperrors.NewTransientError("checking webhook ledger", err)
	}
	if processed {
		s.logger.Info("duplicate webhook delivery",
			zap.String("eventId", evt.ID),
			zap.String("provider", evt.Provider),
		)
		return true, nil
	}

	if evt.Kind == payments.KindUnknown {
		s.logger.Warn("unhandled webhook event type",
			zap.String("eventId", evt.ID),
			zap.String("provider", evt.Provider),
			zap.String("eventType", evt.Type),
		)
		return s.recordOnly(ctx, evt, "")
	}

	if evt.PaymentID == "" {
		s.logger.Warn("webhook event carries no payment id",
			zap.String("eventId", evt.ID),
			zap.String("eventType", evt.Type),
		)
		return s.recordOnly(ctx, evt, "")
	}

	order, err := s.orderRepo.FindByPaymentID(ctx, evt.Provider, evt.PaymentID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			s.logger.Warn("no order for webhook event",
				zap.String("eventId", evt.ID),
				zap.String("provider", evt.Provider),
				zap.String("paymentId", evt.PaymentID),
			)
			return s.recordOnly(ctx, evt, "")
		}
		return false, apperrors.NewTransientError("loading order for webhook", err)
	}

	now := s.now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, apperrors.NewTransientError("beginning webhook transaction", err)
	}
	defer tx.Rollback()

	if err := s.apply(ctx, tx, order, evt, now); err != nil {
		return false, err
	}

	if err := s.ledger.Record(ctx, tx, ledgerRow(evt, order.ID, now)); err != nil {
		if errors.Is(err, repository.ErrEventAlreadyRecorded) {
			// A concurrent delivery committed first; roll back our copy.
			return true, nil
		}
		return false, apperrors.NewTransientError("recording webhook event", err)
	}

	if err := tx.Commit(); err != nil {
		return false, apperrors.NewTransientError("committing webhook transaction", err)
	}

	s.logger.Info("webhook event applied",
		zap.String("eventId", evt.ID),
		zap.String("provider", evt.Provider),
		zap.String("eventType", evt.Type),
		zap.String("orderId", order.ID),
	)

	return false, nil
}

func (s *Reconciler) apply(ctx context.Context, tx *sql.Tx, order *domain.Order, evt payments.ProviderEvent, now time.Time) error {
	actor := changedBy(evt.Provider)
	reason := fmt.Sprintf("%s (%s)", evt.Type, evt.ID)

	switch evt.Kind {
	case payments.KindPaymentSucceeded:
		paidAt := now
		return s.setPaymentStatus(ctx, tx, order, domain.PaymentStatusPaid, &paidAt, actor, reason, now)

	case payments.KindPaymentFailed:
		return s.setPaymentStatus(ctx, tx, order, domain.PaymentStatusFailed, nil, actor, reason, now)

	case payments.KindChargeRefunded:
		return s.setPaymentStatus(ctx, tx, order, domain.PaymentStatusRefunded, nil, actor, reason, now)

	case payments.KindDisputeOpened:
		if evt.DisputeReason != "" {
			reason = fmt.Sprintf("dispute opened: %s (%s)", evt.DisputeReason, evt.ID)
		} else {
			reason = fmt.Sprintf("dispute opened (%s)", evt.ID)
		}
		// Hold the order while the dispute is open.
		return s.setStatus(ctx, tx, order, domain.OrderStatusPending, nil, actor, reason, now)

	case payments.KindDisputeClosed:
		if evt.DisputeStatus == payments.DisputeLost {
			reason = fmt.Sprintf("dispute lost (%s)", evt.ID)
			if err := s.setPaymentStatus(ctx, tx, order, domain.PaymentStatusRefunded, nil, actor, reason, now); err != nil {
				return err
			}
			cancelledAt := now
			return s.setStatus(ctx, tx, order, domain.OrderStatusCancelled, &cancelledAt, actor, reason, now)
		}
		// Dispute resolved without loss: no field changes, but the outcome
		// still lands in the trail.
		outcome := evt.DisputeStatus
		if outcome == "" {
			outcome = "closed"
		}
		return s.audit.Append(ctx, tx, domain.AuditEntry{
			OrderID:       order.ID,
			Field:         domain.AuditFieldStatus,
			PreviousValue: order.Status,
			NewValue:      order.Status,
			ChangedBy:     actor,
			ChangedAt:     now,
			Reason:        fmt.Sprintf("dispute closed: %s (%s)", outcome, evt.ID),
		})
	}

	return nil
}

func (s *Reconciler) setPaymentStatus(ctx context.Context, tx *sql.Tx, order *domain.Order, newValue string, paidAt *time.Time, actor, reason string, now time.Time) error {
	if order.PaymentStatus == newValue {
		return nil
	}

	previous := order.PaymentStatus
	if err := s.orderRepo.UpdatePaymentStatus(ctx, tx, order.ID, newValue, paidAt, now); err != nil {
		return err
	}
	order.PaymentStatus = newValue

	return s.audit.Append(ctx, tx, domain.AuditEntry{
		OrderID:       order.ID,
		Field:         domain.AuditFieldPaymentStatus,
		PreviousValue: previous,
		NewValue:      newValue,
		ChangedBy:     actor,
		ChangedAt:     now,
		Reason:        reason,
	})
}

func (s *Reconciler) setStatus(ctx context.Context, tx *sql.Tx, order *domain.Order, newValue string, cancelledAt *time.Time, actor, reason string, now time.Time) error {
	if order.Status == newValue {
		return nil
	}

	previous := order.Status
	if err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, newValue, cancelledAt, now); err != nil {
		return err
	}
	order.Status = newValue

	return s.audit.Append(ctx, tx, domain.AuditEntry{
		OrderID:       order.ID,
		Field:         domain.AuditFieldStatus,
		PreviousValue: previous,
		NewValue:      newValue,
		ChangedBy:     actor,
		ChangedAt:     now,
		Reason:        reason,
	})
}

// recordOnly ledgers an event that produced no order mutation, so a
// redelivery still deduplicates.
func (s *Reconciler) recordOnly(ctx context.Context, evt payments.ProviderEvent, orderID string) (bool, error) {
	err := s.ledger.Record(ctx, nil, ledgerRow(evt, orderID, s.now().UTC()))
	if err != nil {
		if errors.Is(err, repository.ErrEventAlreadyRecorded) {
			return true, nil
		}
		return false, apperrors.NewTransientError("recording webhook event", err)
	}
	return false, nil
}

func ledgerRow(evt payments.ProviderEvent, orderID string, now time.Time) domain.WebhookEvent {
	return domain.WebhookEvent{
		EventID:     evt.ID,
		Provider:    evt.Provider,
		EventType:   evt.Type,
		OrderID:     orderID,
		Payload:     evt.Payload,
		ProcessedAt: now,
	}
}

func changedBy(provider string) string {
	if provider == domain.ProviderPayPal {
		return domain.ChangedByPayPalWebhook
	}
	return domain.ChangedByStripeWebhook
}
