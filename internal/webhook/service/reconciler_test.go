package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"palantir/internal/domain"
	apperrors "palantir/internal/errors"
	"palantir/internal/payments"
	"palantir/internal/webhook/repository"
)

type mockOrderRepository struct {
	FindByPaymentIDFunc     func(ctx context.Context, provider, paymentID string) (*domain.Order, error)
	UpdateStatusFunc        func(ctx context.Context, tx *sql.Tx, id, status string, cancelledAt *time.Time, updatedAt time.Time) error
	UpdatePaymentStatusFunc func(ctx context.Context, tx *sql.Tx, id, paymentStatus string, paidAt *time.Time, updatedAt time.Time) error
}

func (m *mockOrderRepository) FindByPaymentID(ctx context.Context, provider, paymentID string) (*domain.Order, error) {
	if m.FindByPaymentIDFunc != nil {
		return m.FindByPaymentIDFunc(ctx, provider, paymentID)
	}
	return nil, apperrors.NewNotFoundError("order not found")
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id, status string, cancelledAt *time.Time, updatedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, cancelledAt, updatedAt)
	}
	return nil
}

func (m *mockOrderRepository) UpdatePaymentStatus(ctx context.Context, tx *sql.Tx, id, paymentStatus string, paidAt *time.Time, updatedAt time.Time) error {
	if m.UpdatePaymentStatusFunc != nil {
		return m.UpdatePaymentStatusFunc(ctx, tx, id, paymentStatus, paidAt, updatedAt)
	}
	return nil
}

type mockAuditRecorder struct {
	entries []domain.AuditEntry
}

func (m *mockAuditRecorder) Append(ctx context.Context, tx *sql.Tx, entry domain.AuditEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

type mockEventLedger struct {
	IsProcessedFunc func(ctx context.Context, eventID, provider string) (bool, error)
	RecordFunc      func(ctx context.Context, tx *sql.Tx, evt domain.WebhookEvent) error
	recorded        []domain.WebhookEvent
}

func (m *mockEventLedger) IsProcessed(ctx context.Context, eventID, provider string) (bool, error) {
	if m.IsProcessedFunc != nil {
		return m.IsProcessedFunc(ctx, eventID, provider)
	}
	return false, nil
}

func (m *mockEventLedger) Record(ctx context.Context, tx *sql.Tx, evt domain.WebhookEvent) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, tx, evt)
	}
	m.recorded = append(m.recorded, evt)
	return nil
}

type neverTxManager struct {
	called bool
}

func (m *neverTxManager) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	m.called = true
	return nil, assert.AnError
}

func newTestReconciler(orders *mockOrderRepository, audit *mockAuditRecorder, ledger *mockEventLedger) (*Reconciler, *neverTxManager) {
	if orders == nil {
		orders = &mockOrderRepository{}
	}
	if audit == nil {
		audit = &mockAuditRecorder{}
	}
	if ledger == nil {
		ledger = &mockEventLedger{}
	}
	tx := &neverTxManager{}
	return NewReconciler(tx, orders, audit, ledger, zap.NewNop()), tx
}

func TestProcess_DuplicateDelivery(t *testing.T) {
	var lookups int
	orders := &mockOrderRepository{
		FindByPaymentIDFunc: func(ctx context.Context, provider, paymentID string) (*domain.Order, error) {
			lookups++
			return nil, apperrors.NewNotFoundError("order not found")
		},
	}
	ledger := &mockEventLedger{
		IsProcessedFunc: func(ctx context.Context, eventID, provider string) (bool, error) {
			return true, nil
		},
	}
	rec, tx := newTestReconciler(orders, nil, ledger)

	deduplicated, err := rec.Process(context.Background(), payments.ProviderEvent{
		ID:        "evt_1",
		Provider:  domain.ProviderStripe,
		Type:      "payment_intent.succeeded",
		Kind:      payments.KindPaymentSucceeded,
		PaymentID: "pi_1",
	})

	require.NoError(t, err)
	assert.True(t, deduplicated)
	assert.Zero(t, lookups, "a duplicate must not touch orders")
	assert.False(t, tx.called)
}

func TestProcess_UnknownEventTypeLedgersOnly(t *testing.T) {
	ledger := &mockEventLedger{}
	rec, tx := newTestReconciler(nil, nil, ledger)

	deduplicated, err := rec.Process(context.Background(), payments.ProviderEvent{
		ID:       "evt_2",
		Provider: domain.ProviderStripe,
		Type:     "customer.subscription.updated",
		Kind:     payments.KindUnknown,
	})

	require.NoError(t, err)
	assert.False(t, deduplicated)
	require.Len(t, ledger.recorded, 1)
	assert.Equal(t, "evt_2", ledger.recorded[0].EventID)
	assert.Empty(t, ledger.recorded[0].OrderID)
	assert.False(t, tx.called, "an unhandled event must not open a transaction")
}

func TestProcess_NoMatchingOrderLedgersOnly(t *testing.T) {
	ledger := &mockEventLedger{}
	rec, tx := newTestReconciler(nil, nil, ledger)

	deduplicated, err := rec.Process(context.Background(), payments.ProviderEvent{
		ID:        "evt_3",
		Provider:  domain.ProviderPayPal,
		Type:      "PAYMENT.CAPTURE.COMPLETED",
		Kind:      payments.KindPaymentSucceeded,
		PaymentID: "pp-capture-unknown",
	})

	require.NoError(t, err)
	assert.False(t, deduplicated)
	require.Len(t, ledger.recorded, 1)
	assert.False(t, tx.called)
}

func TestProcess_MissingPaymentIDLedgersOnly(t *testing.T) {
	var lookups int
	orders := &mockOrderRepository{
		FindByPaymentIDFunc: func(ctx context.Context, provider, paymentID string) (*domain.Order, error) {
			lookups++
			return nil, apperrors.NewNotFoundError("order not found")
		},
	}
	ledger := &mockEventLedger{}
	rec, _ := newTestReconciler(orders, nil, ledger)

	deduplicated, err := rec.Process(context.Background(), payments.ProviderEvent{
		ID:       "evt_4",
		Provider: domain.ProviderStripe,
		Type:     "charge.refunded",
		Kind:     payments.KindChargeRefunded,
	})

	require.NoError(t, err)
	assert.False(t, deduplicated)
	assert.Zero(t, lookups)
	require.Len(t, ledger.recorded, 1)
}

func TestProcess_ConcurrentRecordTreatedAsDuplicate(t *testing.T) {
	ledger := &mockEventLedger{
		RecordFunc: func(ctx context.Context, tx *sql.Tx, evt domain.WebhookEvent) error {
			return repository.ErrEventAlreadyRecorded
		},
	}
	rec, _ := newTestReconciler(nil, nil, ledger)

	deduplicated, err := rec.Process(context.Background(), payments.ProviderEvent{
		ID:       "evt_5",
		Provider: domain.ProviderStripe,
		Type:     "customer.subscription.updated",
		Kind:     payments.KindUnknown,
	})

	require.NoError(t, err)
	assert.True(t, deduplicated)
}

func TestChangedBy(t *testing.T) {
	assert.Equal(t, domain.ChangedByStripeWebhook, changedBy(domain.ProviderStripe))
	assert.Equal(t, domain.ChangedByPayPalWebhook, changedBy(domain.ProviderPayPal))
}
