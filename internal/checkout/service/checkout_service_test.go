package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"palantir/internal/domain"
	"palantir/internal/dto"
	apperrors "palantir/internal/errors"
	"palantir/internal/payments"
)

type mockCheckoutRepository struct {
	InsertFunc               func(ctx context.Context, s *domain.CheckoutSession) error
	FindByIDFunc             func(ctx context.Context, id string) (*domain.CheckoutSession, error)
	UpdateCustomerFunc       func(ctx context.Context, id, email, customerID string, updatedAt time.Time) error
	UpdateShippingAddrFunc   func(ctx context.Context, id string, addr *domain.Address, updatedAt time.Time) error
	UpdateShippingMethodFunc func(ctx context.Context, id, rateID, method string, shippingTotal, total float64, updatedAt time.Time) error
	MarkCompletedFunc        func(ctx context.Context, tx *sql.Tx, id, provider, paymentID string, completedAt time.Time) error
}

func (m *mockCheckoutRepository) Insert(ctx context.Context, s *domain.CheckoutSession) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, s)
	}
	return nil
}

func (m *mockCheckoutRepository) FindByID(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, apperrors.NewNotFoundError("checkout not found")
}

func (m *mockCheckoutRepository) UpdateCustomer(ctx context.Context, id, email, customerID string, updatedAt time.Time) error {
	if m.UpdateCustomerFunc != nil {
		return m.UpdateCustomerFunc(ctx, id, email, customerID, updatedAt)
	}
	return nil
}

func (m *mockCheckoutRepository) UpdateShippingAddress(ctx context.Context, id string, addr *domain.Address, updatedAt time.Time) error {
	if m.UpdateShippingAddrFunc != nil {
		return m.UpdateShippingAddrFunc(ctx, id, addr, updatedAt)
	}
	return nil
}

func (m *mockCheckoutRepository) UpdateShippingMethod(ctx context.Context, id, rateID, method string, shippingTotal, total float64, updatedAt time.Time) error {
	if m.UpdateShippingMethodFunc != nil {
		return m.UpdateShippingMethodFunc(ctx, id, rateID, method, shippingTotal, total, updatedAt)
	}
	return nil
}

func (m *mockCheckoutRepository) MarkCompleted(ctx context.Context, tx *sql.Tx, id, provider, paymentID string, completedAt time.Time) error {
	if m.MarkCompletedFunc != nil {
		return m.MarkCompletedFunc(ctx, tx, id, provider, paymentID, completedAt)
	}
	return nil
}

type mockCustomerRepository struct {
	UpsertByEmailFunc func(ctx context.Context, email, firstName, lastName string) (*domain.Customer, error)
}

func (m *mockCustomerRepository) UpsertByEmail(ctx context.Context, email, firstName, lastName string) (*domain.Customer, error) {
	if m.UpsertByEmailFunc != nil {
		return m.UpsertByEmailFunc(ctx, email, firstName, lastName)
	}
	return &domain.Customer{ID: "cust-1", Email: email}, nil
}

type mockCatalogRepository struct {
	FindProductFunc       func(ctx context.Context, id string) (*domain.Product, error)
	FindVariantFunc       func(ctx context.Context, productID, variantID string) (*domain.ProductVariant, error)
	FindShippingRateFunc  func(ctx context.Context, id string) (*domain.ShippingRate, error)
	ListShippingRatesFunc func(ctx context.Context) ([]domain.ShippingRate, error)
}

func (m *mockCatalogRepository) FindProduct(ctx context.Context, id string) (*domain.Product, error) {
	if m.FindProductFunc != nil {
		return m.FindProductFunc(ctx, id)
	}
	return &domain.Product{ID: id, Title: "Widget", IsActive: true}, nil
}

func (m *mockCatalogRepository) FindVariant(ctx context.Context, productID, variantID string) (*domain.ProductVariant, error) {
	if m.FindVariantFunc != nil {
		return m.FindVariantFunc(ctx, productID, variantID)
	}
	return &domain.ProductVariant{ID: variantID, ProductID: productID, Price: 49.99}, nil
}

func (m *mockCatalogRepository) FindShippingRate(ctx context.Context, id string) (*domain.ShippingRate, error) {
	if m.FindShippingRateFunc != nil {
		return m.FindShippingRateFunc(ctx, id)
	}
	return &domain.ShippingRate{ID: id, Name: "Standard Shipping", Price: 5.99}, nil
}

func (m *mockCatalogRepository) ListShippingRates(ctx context.Context) ([]domain.ShippingRate, error) {
	if m.ListShippingRatesFunc != nil {
		return m.ListShippingRatesFunc(ctx)
	}
	return nil, nil
}

type mockMaterializer struct {
	MaterializeFunc func(ctx context.Context, tx *sql.Tx, s *domain.CheckoutSession, provider, paymentID string, now time.Time) (*domain.Order, error)
}

func (m *mockMaterializer) Materialize(ctx context.Context, tx *sql.Tx, s *domain.CheckoutSession, provider, paymentID string, now time.Time) (*domain.Order, error) {
	if m.MaterializeFunc != nil {
		return m.MaterializeFunc(ctx, tx, s, provider, paymentID, now)
	}
	return &domain.Order{ID: "order-1", OrderNumber: 1001}, nil
}

// mockTxManager fails every BeginTx. Tests that use it assert the guard
// failed before any transaction was opened.
type mockTxManager struct {
	called bool
}

func (m *mockTxManager) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	m.called = true
	return nil, errors.New("unexpected BeginTx")
}

type mockStripeBridge struct {
	CreateIntentFunc func(amount float64, currency, checkoutID string) (*payments.Intent, error)
}

func (m *mockStripeBridge) CreateIntent(amount float64, currency, checkoutID string) (*payments.Intent, error) {
	if m.CreateIntentFunc != nil {
		return m.CreateIntentFunc(amount, currency, checkoutID)
	}
	return &payments.Intent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

type mockPayPalBridge struct {
	CreateOrderFunc func(ctx context.Context, amount float64, currency, checkoutID string) (*payments.PayPalOrder, error)
}

func (m *mockPayPalBridge) CreateOrder(ctx context.Context, amount float64, currency, checkoutID string) (*payments.PayPalOrder, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, amount, currency, checkoutID)
	}
	return &payments.PayPalOrder{ID: "pp-order"}, nil
}

type serviceDeps struct {
	tx       *mockTxManager
	checkout *mockCheckoutRepository
	customer *mockCustomerRepository
	catalog  *mockCatalogRepository
	orders   *mockMaterializer
	stripe   *mockStripeBridge
	paypal   *mockPayPalBridge
}

func newTestService(deps serviceDeps) *CheckoutService {
	if deps.tx == nil {
		deps.tx = &mockTxManager{}
	}
	if deps.checkout == nil {
		deps.checkout = &mockCheckoutRepository{}
	}
	if deps.customer == nil {
		deps.customer = &mockCustomerRepository{}
	}
	if deps.catalog == nil {
		deps.catalog = &mockCatalogRepository{}
	}
	if deps.orders == nil {
		deps.orders = &mockMaterializer{}
	}
	if deps.stripe == nil {
		deps.stripe = &mockStripeBridge{}
	}
	if deps.paypal == nil {
		deps.paypal = &mockPayPalBridge{}
	}

	return NewCheckoutService(
		deps.tx, deps.checkout, deps.customer, deps.catalog, deps.orders,
		deps.stripe, deps.paypal, zap.NewNop(),
		Config{
			SessionTTL:            24 * time.Hour,
			FreeShippingThreshold: 150.00,
			DefaultCurrency:       "usd",
		},
	)
}

func openSession(ttl time.Duration) *domain.CheckoutSession {
	now := time.Now().UTC()
	return &domain.CheckoutSession{
		ID:        "chk-1",
		Items:     []domain.CartItem{{ProductID: "prod-1", VariantID: "var-1", Quantity: 2, Price: 49.99}},
		Subtotal:  99.98,
		Currency:  "usd",
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreate_EmptyCart(t *testing.T) {
	svc := newTestService(serviceDeps{})

	_, err := svc.Create(context.Background(), nil, "usd")

	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	assert.Equal(t, "Cart is empty", ve.Message)
}

func TestCreate_RejectsZeroQuantity(t *testing.T) {
	svc := newTestService(serviceDeps{})

	_, err := svc.Create(context.Background(), []dto.CreateCheckoutItem{
		{ProductID: "prod-1", VariantID: "var-1", Quantity: 0},
	}, "usd")

	_, ok := apperrors.IsValidationError(err)
	require.True(t, ok, "expected a validation error, got %v", err)
}

func TestCreate_SnapshotsCatalogAndDerivesTotals(t *testing.T) {
	var inserted *domain.CheckoutSession
	checkout := &mockCheckoutRepository{
		InsertFunc: func(ctx context.Context, s *domain.CheckoutSession) error {
			inserted = s
			return nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout})

	session, err := svc.Create(context.Background(), []dto.CreateCheckoutItem{
		{ProductID: "prod-1", VariantID: "var-1", Quantity: 2},
	}, "usd")
	require.NoError(t, err)
	require.NotNil(t, inserted)

	// 49.99 x 2 plus the standard rate of 5.99.
	assert.Equal(t, 99.98, session.Subtotal)
	assert.Equal(t, 5.99, session.ShippingTotal)
	assert.Equal(t, 105.97, session.Total)

	require.Len(t, session.Items, 1)
	assert.Equal(t, 49.99, session.Items[0].Price)
	assert.Equal(t, 2, session.Items[0].Quantity)
	assert.Equal(t, "Widget", session.Items[0].Title)

	assert.NotEmpty(t, session.ID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), session.ExpiresAt, time.Minute)
}

func TestCreate_FreeShippingAboveThreshold(t *testing.T) {
	catalog := &mockCatalogRepository{
		FindVariantFunc: func(ctx context.Context, productID, variantID string) (*domain.ProductVariant, error) {
			return &domain.ProductVariant{ID: variantID, ProductID: productID, Price: 75.00}, nil
		},
	}
	svc := newTestService(serviceDeps{catalog: catalog})

	session, err := svc.Create(context.Background(), []dto.CreateCheckoutItem{
		{ProductID: "prod-1", VariantID: "var-1", Quantity: 2},
	}, "usd")
	require.NoError(t, err)

	assert.Equal(t, 150.00, session.Subtotal)
	assert.Equal(t, 0.00, session.ShippingTotal)
	assert.Equal(t, 150.00, session.Total)
}

func TestSaveCustomerInfo_NormalizesEmail(t *testing.T) {
	var upsertedEmail string
	checkout := &mockCheckoutRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
			return openSession(time.Hour), nil
		},
	}
	customer := &mockCustomerRepository{
		UpsertByEmailFunc: func(ctx context.Context, email, firstName, lastName string) (*domain.Customer, error) {
			upsertedEmail = email
			return &domain.Customer{ID: "cust-1", Email: email}, nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout, customer: customer})

	session, err := svc.SaveCustomerInfo(context.Background(), "chk-1", dto.CustomerInfoRequest{
		Email: "  John.Doe@Example.COM ",
	})
	require.NoError(t, err)

	assert.Equal(t, "john.doe@example.com", upsertedEmail)
	assert.Equal(t, "john.doe@example.com", session.Email)
	assert.Equal(t, "cust-1", session.CustomerID)
}

func TestSaveCustomerInfo_RejectsInvalidEmail(t *testing.T) {
	checkout := &mockCheckoutRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
			return openSession(time.Hour), nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout})

	for _, email := range []string{"", "   ", "not-an-email"} {
		_, err := svc.SaveCustomerInfo(context.Background(), "chk-1", dto.CustomerInfoRequest{Email: email})
		_, ok := apperrors.IsValidationError(err)
		assert.True(t, ok, "email %q: expected a validation error, got %v", email, err)
	}
}

func TestSaveCustomerInfo_CompletedSessionRejected(t *testing.T) {
	completedAt := time.Now().UTC().Add(-time.Minute)
	checkout := &mockCheckoutRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
			s := openSession(time.Hour)
			s.CompletedAt = &completedAt
			return s, nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout})

	_, err := svc.SaveCustomerInfo(context.Background(), "chk-1", dto.CustomerInfoRequest{Email: "a@b.com"})

	tse, ok := apperrors.IsTerminalStateError(err)
	require.True(t, ok, "expected a terminal-state error, got %v", err)
	assert.False(t, tse.Expired)
}

func TestSaveCustomerInfo_ExpiredSessionRejected(t *testing.T) {
	checkout := &mockCheckoutRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
			return openSession(-time.Minute), nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout})

	_, err := svc.SaveCustomerInfo(context.Background(), "chk-1", dto.CustomerInfoRequest{Email: "a@b.com"})

	tse, ok := apperrors.IsTerminalStateError(err)
	require.True(t, ok, "expected a terminal-state error, got %v", err)
	assert.True(t, tse.Expired)
}

func TestSaveShippingAddress_RequiresCoreFields(t *testing.T) {
	checkout := &mockCheckoutRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
			return openSession(time.Hour), nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout})

	_, err := svc.SaveShippingAddress(context.Background(), "chk-1", domain.Address{
		Line1: "1 Main St",
		City:  "Springfield",
		// Country missing.
	})

	_, ok := apperrors.IsValidationError(err)
	require.True(t, ok, "expected a validation error, got %v", err)
}

func TestSaveShippingMethod_RecomputesTotal(t *testing.T) {
	var savedTotal float64
	checkout := &mockCheckoutRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
			return openSession(time.Hour), nil
		},
		UpdateShippingMethodFunc: func(ctx context.Context, id, rateID, method string, shippingTotal, total float64, updatedAt time.Time) error {
			savedTotal = total
			return nil
		},
	}
	catalog := &mockCatalogRepository{
		FindShippingRateFunc: func(ctx context.Context, id string) (*domain.ShippingRate, error) {
			return &domain.ShippingRate{ID: "express", Name: "Express Shipping", Price: 12.99}, nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout, catalog: catalog})

	session, err := svc.SaveShippingMethod(context.Background(), "chk-1", "express")
	require.NoError(t, err)

	assert.Equal(t, "express", session.ShippingRateID)
	assert.Equal(t, 12.99, session.ShippingTotal)
	assert.Equal(t, 112.97, session.Total)
	assert.Equal(t, 112.97, savedTotal)
}

func TestSaveShippingMethod_StandardFreeAboveThreshold(t *testing.T) {
	checkout := &mockCheckoutRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
			s := openSession(time.Hour)
			s.Subtotal = 180.00
			return s, nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout})

	session, err := svc.SaveShippingMethod(context.Background(), "chk-1", "standard")
	require.NoError(t, err)

	assert.Equal(t, 0.00, session.ShippingTotal)
	assert.Equal(t, 180.00, session.Total)
}

func TestSaveShippingMethod_PremiumRateAlwaysCharges(t *testing.T) {
	checkout := &mockCheckoutRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
			s := openSession(time.Hour)
			s.Subtotal = 180.00
			return s, nil
		},
	}
	catalog := &mockCatalogRepository{
		FindShippingRateFunc: func(ctx context.Context, id string) (*domain.ShippingRate, error) {
			return &domain.ShippingRate{ID: "express", Name: "Express Shipping", Price: 12.99}, nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout, catalog: catalog})

	session, err := svc.SaveShippingMethod(context.Background(), "chk-1", "express")
	require.NoError(t, err)

	assert.Equal(t, 12.99, session.ShippingTotal)
	assert.Equal(t, 192.99, session.Total)
}

func TestShippingRates_AppliesFreeShippingToStandardOnly(t *testing.T) {
	checkout := &mockCheckoutRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
			s := openSession(time.Hour)
			s.Subtotal = 200.00
			return s, nil
		},
	}
	catalog := &mockCatalogRepository{
		ListShippingRatesFunc: func(ctx context.Context) ([]domain.ShippingRate, error) {
			return []domain.ShippingRate{
				{ID: "standard", Name: "Standard Shipping", Price: 5.99},
				{ID: "express", Name: "Express Shipping", Price: 12.99},
			}, nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout, catalog: catalog})

	rates, err := svc.ShippingRates(context.Background(), "chk-1")
	require.NoError(t, err)
	require.Len(t, rates, 2)

	assert.Equal(t, 0.00, rates[0].Price)
	assert.Equal(t, 12.99, rates[1].Price)
}

func TestCreateStripeIntent_PassesSessionTotal(t *testing.T) {
	var gotAmount float64
	checkout := &mockCheckoutRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
			s := openSession(time.Hour)
			s.ShippingTotal = 5.99
			s.RecomputeTotal()
			return s, nil
		},
	}
	stripe := &mockStripeBridge{
		CreateIntentFunc: func(amount float64, currency, checkoutID string) (*payments.Intent, error) {
			gotAmount = amount
			return &payments.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout, stripe: stripe})

	intent, err := svc.CreateStripeIntent(context.Background(), "chk-1")
	require.NoError(t, err)

	assert.Equal(t, 105.97, gotAmount)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
}

func TestCreatePayPalOrder_UppercasesCurrency(t *testing.T) {
	var gotCurrency string
	checkout := &mockCheckoutRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
			return openSession(time.Hour), nil
		},
	}
	paypal := &mockPayPalBridge{
		CreateOrderFunc: func(ctx context.Context, amount float64, currency, checkoutID string) (*payments.PayPalOrder, error) {
			gotCurrency = currency
			return &payments.PayPalOrder{ID: "pp-1"}, nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout, paypal: paypal})

	_, err := svc.CreatePayPalOrder(context.Background(), "chk-1")
	require.NoError(t, err)
	assert.Equal(t, "USD", gotCurrency)
}

func readySession() *domain.CheckoutSession {
	s := openSession(time.Hour)
	s.Email = "john@example.com"
	s.ShippingAddress = &domain.Address{Line1: "1 Main St", City: "Springfield", Country: "US"}
	s.ShippingRateID = "standard"
	s.ShippingMethod = "Standard Shipping"
	s.ShippingTotal = 5.99
	s.RecomputeTotal()
	return s
}

func TestComplete_PreconditionOrdering(t *testing.T) {
	completedAt := time.Now().UTC().Add(-time.Minute)

	tests := []struct {
		name       string
		session    func() *domain.CheckoutSession
		wantMsg    string
		wantStatus string
	}{
		{
			name: "already completed wins over everything",
			session: func() *domain.CheckoutSession {
				s := &domain.CheckoutSession{ID: "chk-1", CompletedAt: &completedAt}
				return s
			},
			wantMsg:    "Checkout already completed",
			wantStatus: "terminal",
		},
		{
			name: "expired beats missing fields",
			session: func() *domain.CheckoutSession {
				return openSession(-time.Minute)
			},
			wantMsg:    "Checkout expired",
			wantStatus: "terminal",
		},
		{
			name: "missing email",
			session: func() *domain.CheckoutSession {
				s := readySession()
				s.Email = ""
				return s
			},
			wantMsg:    "Customer email required",
			wantStatus: "validation",
		},
		{
			name: "missing shipping address",
			session: func() *domain.CheckoutSession {
				s := readySession()
				s.ShippingAddress = nil
				return s
			},
			wantMsg:    "Shipping address required",
			wantStatus: "validation",
		},
		{
			name: "missing shipping method",
			session: func() *domain.CheckoutSession {
				s := readySession()
				s.ShippingRateID = ""
				return s
			},
			wantMsg:    "Shipping method required",
			wantStatus: "validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &mockTxManager{}
			checkout := &mockCheckoutRepository{
				FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
					return tt.session(), nil
				},
			}
			svc := newTestService(serviceDeps{tx: tx, checkout: checkout})

			_, err := svc.Complete(context.Background(), "chk-1", domain.ProviderStripe, "pi_1")
			require.Error(t, err)

			switch tt.wantStatus {
			case "terminal":
				tse, ok := apperrors.IsTerminalStateError(err)
				require.True(t, ok, "expected a terminal-state error, got %v", err)
				assert.Equal(t, tt.wantMsg, tse.Message)
			case "validation":
				ve, ok := apperrors.IsValidationError(err)
				require.True(t, ok, "expected a validation error, got %v", err)
				assert.Equal(t, tt.wantMsg, ve.Message)
			}

			assert.False(t, tx.called, "no transaction may start before the guards pass")
		})
	}
}

func TestComplete_RejectsUnknownProvider(t *testing.T) {
	checkout := &mockCheckoutRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
			return readySession(), nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout})

	_, err := svc.Complete(context.Background(), "chk-1", "bitcoin", "tx-1")

	_, ok := apperrors.IsValidationError(err)
	require.True(t, ok, "expected a validation error, got %v", err)
}

func TestComplete_RejectsEmptyPaymentID(t *testing.T) {
	checkout := &mockCheckoutRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
			return readySession(), nil
		},
	}
	svc := newTestService(serviceDeps{checkout: checkout})

	_, err := svc.Complete(context.Background(), "chk-1", domain.ProviderPayPal, "")

	_, ok := apperrors.IsValidationError(err)
	require.True(t, ok, "expected a validation error, got %v", err)
}

func TestComplete_UnknownCheckout(t *testing.T) {
	svc := newTestService(serviceDeps{})

	_, err := svc.Complete(context.Background(), "missing", domain.ProviderStripe, "pi_1")

	_, ok := apperrors.IsNotFoundError(err)
	require.True(t, ok, "expected a not-found error, got %v", err)
}
