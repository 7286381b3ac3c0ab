package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"palantir/internal/domain"
	apperrors "palantir/internal/errors"
)

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

// NextOrderNumber reserves the next sequential public order number. The
// FOR UPDATE lock serializes concurrent completions inside their
// transactions.
func (r *MySQLOrderRepository) NextOrderNumber(ctx context.Context, tx *sql.Tx) (int, error) {
	query := `SELECT COALESCE(MAX(orderNumber), 1000) FROM Orders FOR UPDATE`

	var current int
	if err := tx.QueryRowContext(ctx, query).Scan(&current); err != nil {
		return 0, fmt.Errorf("querying max order number: %w", err)
	}

	return current + 1, nil
}

func (r *MySQLOrderRepository) Insert(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	query := `
		INSERT INTO Orders
			(id, orderNumber, email, subtotal, shippingTotal, taxTotal, total, currency,
			 status, paymentStatus, fulfillmentStatus, paymentProvider, paymentId,
			 paidAt, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.ExecContext(ctx, query,
		o.ID, o.OrderNumber, o.Email, o.Subtotal, o.ShippingTotal, o.TaxTotal, o.Total,
		o.Currency, o.Status, o.PaymentStatus, o.FulfillmentStatus, o.PaymentProvider,
		o.PaymentID, o.PaidAt, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	itemQuery := `
		INSERT INTO OrderItems
			(orderId, productId, variantId, quantity, title, variantTitle, sku, price, imageUrl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, it := range o.Items {
		_, err = tx.ExecContext(ctx, itemQuery,
			o.ID, it.ProductID, it.VariantID, it.Quantity, it.Title,
			it.VariantTitle, it.SKU, it.Price, it.ImageURL,
		)
		if err != nil {
			return fmt.Errorf("inserting order item: %w", err)
		}
	}

	return nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(ctx, `WHERE id = ?`, id)
}

// FindByPaymentID is the webhook lookup key: paymentId is unique per
// provider.
func (r *MySQLOrderRepository) FindByPaymentID(ctx context.Context, provider, paymentID string) (*domain.Order, error) {
	return r.findOne(ctx, `WHERE paymentProvider = ? AND paymentId = ?`, provider, paymentID)
}

func (r *MySQLOrderRepository) findOne(ctx context.Context, where string, args ...interface{}) (*domain.Order, error) {
	query := `
		SELECT id, orderNumber, email, subtotal, shippingTotal, taxTotal, total, currency,
		       status, paymentStatus, fulfillmentStatus, paymentProvider, paymentId,
		       paidAt, cancelledAt, createdAt, updatedAt
		FROM Orders ` + where

	var (
		o                   domain.Order
		paidAt, cancelledAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&o.ID, &o.OrderNumber, &o.Email, &o.Subtotal, &o.ShippingTotal, &o.TaxTotal,
		&o.Total, &o.Currency, &o.Status, &o.PaymentStatus, &o.FulfillmentStatus,
		&o.PaymentProvider, &o.PaymentID, &paidAt, &cancelledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying order: %w", err)
	}

	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		o.CancelledAt = &t
	}

	if o.Items, err = r.findItems(ctx, o.ID); err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *MySQLOrderRepository) findItems(ctx context.Context, orderID string) ([]domain.CartItem, error) {
	query := `
		SELECT productId, variantId, quantity, title, variantTitle, sku, price, imageUrl
		FROM OrderItems
		WHERE orderId = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ProductID, &it.VariantID, &it.Quantity, &it.Title,
			&it.VariantTitle, &it.SKU, &it.Price, &it.ImageURL); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order items: %w", err)
	}

	return items, nil
}

func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id, status string, cancelledAt *time.Time, updatedAt time.Time) error {
	query := `UPDATE Orders SET status = ?, cancelledAt = COALESCE(?, cancelledAt), updatedAt = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, query, status, cancelledAt, updatedAt, id); err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}
	return nil
}

func (r *MySQLOrderRepository) UpdatePaymentStatus(ctx context.Context, tx *sql.Tx, id, paymentStatus string, paidAt *time.Time, updatedAt time.Time) error {
	query := `UPDATE Orders SET paymentStatus = ?, paidAt = COALESCE(?, paidAt), updatedAt = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, query, paymentStatus, paidAt, updatedAt, id); err != nil {
		return fmt.Errorf("updating order payment status: %w", err)
	}
	return nil
}
