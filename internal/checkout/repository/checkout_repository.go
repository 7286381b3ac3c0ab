package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"palantir/internal/domain"
	apperrors "palantir/internal/errors"
)

type MySQLCheckoutRepository struct {
	db *sql.DB
}

func NewMySQLCheckoutRepository(db *sql.DB) *MySQLCheckoutRepository {
	return &MySQLCheckoutRepository{db: db}
}

// Insert persists a new session together with its frozen item snapshot in
// one transaction.
func (r *MySQLCheckoutRepository) Insert(ctx context.Context, s *domain.CheckoutSession) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning checkout insert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO CheckoutSessions
			(id, subtotal, shippingTotal, taxTotal, total, currency, expiresAt, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		s.ID, s.Subtotal, s.ShippingTotal, s.TaxTotal, s.Total, s.Currency,
		s.ExpiresAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting checkout session: %w", err)
	}

	itemQuery := `
		INSERT INTO CheckoutItems
			(checkoutId, productId, variantId, quantity, title, variantTitle, sku, price, imageUrl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, it := range s.Items {
		_, err = tx.ExecContext(ctx, itemQuery,
			s.ID, it.ProductID, it.VariantID, it.Quantity, it.Title,
			it.VariantTitle, it.SKU, it.Price, it.ImageURL,
		)
		if err != nil {
			return fmt.Errorf("inserting checkout item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing checkout insert: %w", err)
	}

	return nil
}

func (r *MySQLCheckoutRepository) FindByID(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	query := `
		SELECT id, subtotal, shippingTotal, taxTotal, total, currency,
		       email, customerId, shippingAddress, billingAddress,
		       shippingRateId, shippingMethod, paymentProvider, paymentId,
		       expiresAt, completedAt, createdAt, updatedAt
		FROM CheckoutSessions
		WHERE id = ?
	`

	var (
		s                            domain.CheckoutSession
		email, customerID            sql.NullString
		shippingAddr, billingAddr    sql.NullString
		rateID, method               sql.NullString
		provider, paymentID          sql.NullString
		completedAt                  sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Subtotal, &s.ShippingTotal, &s.TaxTotal, &s.Total, &s.Currency,
		&email, &customerID, &shippingAddr, &billingAddr,
		&rateID, &method, &provider, &paymentID,
		&s.ExpiresAt, &completedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("checkout %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying checkout session: %w", err)
	}

	s.Email = email.String
	s.CustomerID = customerID.String
	s.ShippingRateID = rateID.String
	s.ShippingMethod = method.String
	s.PaymentProvider = provider.String
	s.PaymentID = paymentID.String
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	if s.ShippingAddress, err = decodeAddress(shippingAddr); err != nil {
		return nil, fmt.Errorf("decoding shipping address: %w", err)
	}
	if s.BillingAddress, err = decodeAddress(billingAddr); err != nil {
		return nil, fmt.Errorf("decoding billing address: %w", err)
	}

	if s.Items, err = r.findItems(ctx, id); err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *MySQLCheckoutRepository) findItems(ctx context.Context, checkoutID string) ([]domain.CartItem, error) {
	query := `
		SELECT productId, variantId, quantity, title, variantTitle, sku, price, imageUrl
		FROM CheckoutItems
		WHERE checkoutId = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, checkoutID)
	if err != nil {
		return nil, fmt.Errorf("querying checkout items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ProductID, &it.VariantID, &it.Quantity, &it.Title,
			&it.VariantTitle, &it.SKU, &it.Price, &it.ImageURL); err != nil {
			return nil, fmt.Errorf("scanning checkout item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating checkout items: %w", err)
	}

	return items, nil
}

func (r *MySQLCheckoutRepository) UpdateCustomer(ctx context.Context, id, email, customerID string, updatedAt time.Time) error {
	query := `UPDATE CheckoutSessions SET email = ?, customerId = ?, updatedAt = ? WHERE id = ?`
	return r.execOne(ctx, id, query, email, customerID, updatedAt, id)
}

func (r *MySQLCheckoutRepository) UpdateShippingAddress(ctx context.Context, id string, addr *domain.Address, updatedAt time.Time) error {
	encoded, err := json.Marshal(addr)
	if err != nil {
		return fmt.Errorf("encoding shipping address: %w", err)
	}
	query := `UPDATE CheckoutSessions SET shippingAddress = ?, updatedAt = ? WHERE id = ?`
	return r.execOne(ctx, id, query, encoded, updatedAt, id)
}

func (r *MySQLCheckoutRepository) UpdateShippingMethod(ctx context.Context, id, rateID, method string, shippingTotal, total float64, updatedAt time.Time) error {
	query := `
		UPDATE CheckoutSessions
		SET shippingRateId = ?, shippingMethod = ?, shippingTotal = ?, total = ?, updatedAt = ?
		WHERE id = ?
	`
	return r.execOne(ctx, id, query, rateID, method, shippingTotal, total, updatedAt, id)
}

// MarkCompleted runs inside the completion transaction owned by the caller.
func (r *MySQLCheckoutRepository) MarkCompleted(ctx context.Context, tx *sql.Tx, id, provider, paymentID string, completedAt time.Time) error {
	query := `
		UPDATE CheckoutSessions
		SET paymentProvider = ?, paymentId = ?, completedAt = ?, updatedAt = ?
		WHERE id = ? AND completedAt IS NULL
	`

	result, err := tx.ExecContext(ctx, query, provider, paymentID, completedAt, completedAt, id)
	if err != nil {
		return fmt.Errorf("marking checkout completed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewCompletedError("Checkout already completed")
	}

	return nil
}

// execOne runs a single-row update. MySQL reports zero affected rows for a
// value-identical update, so row counts are not treated as not-found here;
// existence is the service's concern (it loads the session first).
func (r *MySQLCheckoutRepository) execOne(ctx context.Context, id, query string, args ...interface{}) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating checkout %s: %w", id, err)
	}
	return nil
}

func decodeAddress(raw sql.NullString) (*domain.Address, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var addr domain.Address
	if err := json.Unmarshal([]byte(raw.String), &addr); err != nil {
		return nil, err
	}
	return &addr, nil
}
