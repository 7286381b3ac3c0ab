package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"palantir/internal/domain"
	"palantir/internal/infrastructure/mysql"
)

// ErrEventAlreadyRecorded signals that the (eventId, provider) pair hit the
// ledger's unique constraint: another delivery won the race.
var ErrEventAlreadyRecorded = errors.New("webhook event already recorded")

// MySQLEventLedger is the idempotency ledger: one row per processed provider
// event, unique on (eventId, provider).
type MySQLEventLedger struct {
	db *sql.DB
}

func NewMySQLEventLedger(db *sql.DB) *MySQLEventLedger {
	return &MySQLEventLedger{db: db}
}

func (r *MySQLEventLedger) IsProcessed(ctx context.Context, eventID, provider string) (bool, error) {
	query := `SELECT 1 FROM WebhookEvents WHERE eventId = ? AND provider = ?`

	var one int
	err := r.db.QueryRowContext(ctx, query, eventID, provider).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying webhook ledger: %w", err)
	}

	return true, nil
}

// Record writes the ledger row, riding tx when the caller has one in
// flight so the row commits or rolls back with the order mutation.
func (r *MySQLEventLedger) Record(ctx context.Context, tx *sql.Tx, evt domain.WebhookEvent) error {
	var ex interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	} = r.db
	if tx != nil {
		ex = tx
	}

	query := `
		INSERT INTO WebhookEvents (eventId, provider, eventType, orderId, payload, processedAt)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := ex.ExecContext(ctx, query,
		evt.EventID, evt.Provider, evt.EventType, evt.OrderID, evt.Payload, evt.ProcessedAt,
	)
	if err != nil {
		if mysql.IsDuplicateEntry(err) {
			return ErrEventAlreadyRecorded
		}
		return fmt.Errorf("recording webhook event: %w", err)
	}

	return nil
}
