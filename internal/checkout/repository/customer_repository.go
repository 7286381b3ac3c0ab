package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"palantir/internal/domain"
	"palantir/internal/infrastructure/mysql"
)

type MySQLCustomerRepository struct {
	db *sql.DB
}

func NewMySQLCustomerRepository(db *sql.DB) *MySQLCustomerRepository {
	return &MySQLCustomerRepository{db: db}
}

// UpsertByEmail finds or creates a customer keyed by normalized email.
// Callers pass the email already lowercased; the unique constraint on email
// resolves the create-create race by falling back to a second lookup.
func (r *MySQLCustomerRepository) UpsertByEmail(ctx context.Context, email, firstName, lastName string) (*domain.Customer, error) {
	if c, err := r.findByEmail(ctx, email); err != nil {
		return nil, err
	} else if c != nil {
		return c, nil
	}

	now := time.Now().UTC()
	c := &domain.Customer{
		ID:        uuid.New().String(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO Customers (id, email, firstName, lastName, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Email, c.FirstName, c.LastName, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if mysql.IsDuplicateEntry(err) {
			existing, ferr := r.findByEmail(ctx, email)
			if ferr != nil {
				return nil, ferr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("inserting customer: %w", err)
	}

	return c, nil
}

func (r *MySQLCustomerRepository) findByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `
		SELECT id, email, firstName, lastName, createdAt, updatedAt
		FROM Customers
		WHERE email = ?
	`

	var c domain.Customer
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying customer by email: %w", err)
	}

	return &c, nil
}
