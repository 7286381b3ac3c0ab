package repository

import (
	"context"
	"database/sql"
	"fmt"

	"palantir/internal/domain"
)

// MySQLAuditRepository is append-only: no update or delete statement exists
// against OrderAuditEntries. Callers must pre-filter no-op changes.
type MySQLAuditRepository struct {
	db *sql.DB
}

func NewMySQLAuditRepository(db *sql.DB) *MySQLAuditRepository {
	return &MySQLAuditRepository{db: db}
}

// Append writes one entry, riding tx when the caller has one in flight.
func (r *MySQLAuditRepository) Append(ctx context.Context, tx *sql.Tx, entry domain.AuditEntry) error {
	var ex interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	} = r.db
	if tx != nil {
		ex = tx
	}

	query := `
		INSERT INTO OrderAuditEntries
			(orderId, field, previousValue, newValue, changedBy, changedAt, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ex.ExecContext(ctx, query,
		entry.OrderID, entry.Field, entry.PreviousValue, entry.NewValue,
		entry.ChangedBy, entry.ChangedAt, entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}

	return nil
}

// TrailForOrder returns entries in persisted (insertion) order.
func (r *MySQLAuditRepository) TrailForOrder(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, orderId, field, previousValue, newValue, changedBy, changedAt, reason
		FROM OrderAuditEntries
		WHERE orderId = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying audit trail: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Field, &e.PreviousValue,
			&e.NewValue, &e.ChangedBy, &e.ChangedAt, &e.Reason); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit trail: %w", err)
	}

	return entries, nil
}
