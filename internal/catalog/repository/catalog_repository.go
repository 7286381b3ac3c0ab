package repository

import (
	"context"
	"database/sql"
	"fmt"

	"palantir/internal/domain"
	apperrors "palantir/internal/errors"
)

// MySQLCatalogRepository is the read-only catalog layer the checkout uses to
// resolve cart lines into frozen snapshots. Catalog writes happen elsewhere.
type MySQLCatalogRepository struct {
	db *sql.DB
}

func NewMySQLCatalogRepository(db *sql.DB) *MySQLCatalogRepository {
	return &MySQLCatalogRepository{db: db}
}

func (r *MySQLCatalogRepository) FindProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, title, imageUrl, isActive
		FROM Products
		WHERE id = ?
	`

	var p domain.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Title, &p.ImageURL, &p.IsActive)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product: %w", err)
	}

	return &p, nil
}

// FindVariant resolves a variant of a product. An empty variantID selects
// the product's first variant by position.
func (r *MySQLCatalogRepository) FindVariant(ctx context.Context, productID, variantID string) (*domain.ProductVariant, error) {
	var (
		query string
		args  []interface{}
	)

	if variantID == "" {
		query = `
			SELECT id, productId, title, sku, price, position
			FROM ProductVariants
			WHERE productId = ?
			ORDER BY position ASC, id ASC
			LIMIT 1
		`
		args = []interface{}{productID}
	} else {
		query = `
			SELECT id, productId, title, sku, price, position
			FROM ProductVariants
			WHERE id = ? AND productId = ?
		`
		args = []interface{}{variantID, productID}
	}

	var v domain.ProductVariant
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&v.ID, &v.ProductID, &v.Title, &v.SKU, &v.Price, &v.Position,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("variant not found for product %s", productID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product variant: %w", err)
	}

	return &v, nil
}

func (r *MySQLCatalogRepository) ListShippingRates(ctx context.Context) ([]domain.ShippingRate, error) {
	query := `
		SELECT id, name, price, estimatedDays
		FROM ShippingRates
		ORDER BY price ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying shipping rates: %w", err)
	}
	defer rows.Close()

	var rates []domain.ShippingRate
	for rows.Next() {
		var rate domain.ShippingRate
		if err := rows.Scan(&rate.ID, &rate.Name, &rate.Price, &rate.EstimatedDays); err != nil {
			return nil, fmt.Errorf("scanning shipping rate: %w", err)
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shipping rates: %w", err)
	}

	return rates, nil
}

func (r *MySQLCatalogRepository) FindShippingRate(ctx context.Context, id string) (*domain.ShippingRate, error) {
	query := `
		SELECT id, name, price, estimatedDays
		FROM ShippingRates
		WHERE id = ?
	`

	var rate domain.ShippingRate
	err := r.db.QueryRowContext(ctx, query, id).Scan(&rate.ID, &rate.Name, &rate.Price, &rate.EstimatedDays)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("shipping rate %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying shipping rate: %w", err)
	}

	return &rate, nil
}
