package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"palantir/internal/domain"
	apperrors "palantir/internal/errors"
	"palantir/internal/testutil"
)

func newSession() *domain.CheckoutSession {
	now := time.Now().UTC().Truncate(time.Second)
	s := &domain.CheckoutSession{
		ID: uuid.New().String(),
		Items: []domain.CartItem{
			{ProductID: "prod-1", VariantID: "var-1", Quantity: 2, Title: "Widget", SKU: "SKU-1", Price: 49.99},
		},
		Currency:  "usd",
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Subtotal = domain.SubtotalOf(s.Items)
	s.ShippingTotal = 5.99
	s.RecomputeTotal()
	return s
}

func TestCheckoutRepositoryRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLCheckoutRepository(db)
	ctx := context.Background()

	session := newSession()
	if err := repo.Insert(ctx, session); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.FindByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}

	if got.Total != 105.97 {
		t.Errorf("Total = %v, want 105.97", got.Total)
	}
	if len(got.Items) != 1 || got.Items[0].Price != 49.99 || got.Items[0].Quantity != 2 {
		t.Errorf("Items = %+v", got.Items)
	}
	if got.CompletedAt != nil {
		t.Error("a fresh session must not be completed")
	}
}

func TestCheckoutRepositoryFindMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLCheckoutRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New().String())
	if _, ok := apperrors.IsNotFoundError(err); !ok {
		t.Errorf("expected a not-found error, got %v", err)
	}
}

func TestCheckoutRepositoryUpdatesPersist(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLCheckoutRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	session := newSession()
	if err := repo.Insert(ctx, session); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := repo.UpdateCustomer(ctx, session.ID, "john@example.com", "cust-1", now); err != nil {
		t.Fatalf("UpdateCustomer() error = %v", err)
	}
	addr := &domain.Address{Line1: "1 Main St", City: "Springfield", Country: "US"}
	if err := repo.UpdateShippingAddress(ctx, session.ID, addr, now); err != nil {
		t.Fatalf("UpdateShippingAddress() error = %v", err)
	}
	if err := repo.UpdateShippingMethod(ctx, session.ID, "express", "Express Shipping", 12.99, 112.97, now); err != nil {
		t.Fatalf("UpdateShippingMethod() error = %v", err)
	}

	got, err := repo.FindByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}

	if got.Email != "john@example.com" || got.CustomerID != "cust-1" {
		t.Errorf("customer fields = %q/%q", got.Email, got.CustomerID)
	}
	if got.ShippingAddress == nil || got.ShippingAddress.City != "Springfield" {
		t.Errorf("ShippingAddress = %+v", got.ShippingAddress)
	}
	if got.ShippingRateID != "express" || got.Total != 112.97 {
		t.Errorf("shipping method fields = %q/%v", got.ShippingRateID, got.Total)
	}
}

func TestCheckoutRepositoryRepeatedUpdateIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLCheckoutRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	session := newSession()
	if err := repo.Insert(ctx, session); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	// MySQL reports zero affected rows on a value-identical update; the
	// repository must not mistake that for a missing row.
	for i := 0; i < 2; i++ {
		if err := repo.UpdateCustomer(ctx, session.ID, "john@example.com", "cust-1", now); err != nil {
			t.Fatalf("UpdateCustomer() attempt %d error = %v", i+1, err)
		}
	}
}

func TestCheckoutRepositoryMarkCompletedOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLCheckoutRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	session := newSession()
	if err := repo.Insert(ctx, session); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}
	if err := repo.MarkCompleted(ctx, tx, session.ID, domain.ProviderStripe, "pi_1", now); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	// A second completion attempt must fail on the completedAt guard.
	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}
	defer tx.Rollback()

	err = repo.MarkCompleted(ctx, tx, session.ID, domain.ProviderStripe, "pi_2", now)
	tse, ok := apperrors.IsTerminalStateError(err)
	if !ok || tse.Expired {
		t.Errorf("expected a completed terminal-state error, got %v", err)
	}
}
