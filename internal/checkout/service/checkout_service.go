package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"palantir/internal/domain"
	"palantir/internal/dto"
	apperrors "palantir/internal/errors"
	"palantir/internal/payments"
)

// StandardRateID gets the free-shipping treatment once the subtotal clears
// the configured threshold. Premium rates always charge.
const StandardRateID = "standard"

type CheckoutRepository interface {
	Insert(ctx context.Context, s *domain.CheckoutSession) error
	FindByID(ctx context.Context, id string) (*domain.CheckoutSession, error)
	UpdateCustomer(ctx context.Context, id, email, customerID string, updatedAt time.Time) error
	UpdateShippingAddress(ctx context.Context, id string, addr *domain.Address, updatedAt time.Time) error
	UpdateShippingMethod(ctx context.Context, id, rateID, method string, shippingTotal, total float64, updatedAt time.Time) error
	MarkCompleted(ctx context.Context, tx *sql.Tx, id, provider, paymentID string, completedAt time.Time) error
}

type CustomerRepository interface {
	UpsertByEmail(ctx context.Context, email, firstName, lastName string) (*domain.Customer, error)
}

type CatalogRepository interface {
	FindProduct(ctx context.Context, id string) (*domain.Product, error)
	FindVariant(ctx context.Context, productID, variantID string) (*domain.ProductVariant, error)
	FindShippingRate(ctx context.Context, id string) (*domain.ShippingRate, error)
	ListShippingRates(ctx context.Context) ([]domain.ShippingRate, error)
}

type OrderMaterializer interface {
	Materialize(ctx context.Context, tx *sql.Tx, s *domain.CheckoutSession, provider, paymentID string, now time.Time) (*domain.Order, error)
}

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type StripeBridge interface {
	CreateIntent(amount float64, currency, checkoutID string) (*payments.Intent, error)
}

type PayPalBridge interface {
	CreateOrder(ctx context.Context, amount float64, currency, checkoutID string) (*payments.PayPalOrder, error)
}

type Config struct {
	SessionTTL            time.Duration
	FreeShippingThreshold float64
	DefaultCurrency       string
}

// CheckoutService owns the session lifecycle state machine. A session is
// Open until CompletedAt is set or ExpiresAt passes; both terminal states
// reject mutation with distinct errors.
type CheckoutService struct {
	db           TransactionManager
	checkoutRepo CheckoutRepository
	customerRepo CustomerRepository
	catalogRepo  CatalogRepository
	materializer OrderMaterializer
	stripe       StripeBridge
	paypal       PayPalBridge
	logger       *zap.Logger
	cfg          Config
	now          func() time.Time
}

func NewCheckoutService(
	db TransactionManager,
	checkoutRepo CheckoutRepository,
	customerRepo CustomerRepository,
	catalogRepo CatalogRepository,
	materializer OrderMaterializer,
	stripe StripeBridge,
	paypal PayPalBridge,
	logger *zap.Logger,
	cfg Config,
) *CheckoutService {
	return &CheckoutService{
		db:           db,
		checkoutRepo: checkoutRepo,
		customerRepo: customerRepo,
		catalogRepo:  catalogRepo,
		materializer: materializer,
		stripe:       stripe,
		paypal:       paypal,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Create resolves each requested line against the catalog into a frozen
// snapshot. Later catalog edits never touch the snapshot.
func (s *CheckoutService) Create(ctx context.Context, lines []dto.CreateCheckoutItem, currency string) (*domain.CheckoutSession, error) {
	if len(lines) == 0 {
		return nil, apperrors.NewValidationError("Cart is empty")
	}
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	items := make([]domain.CartItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, apperrors.NewValidationError("Quantity must be at least 1")
		}

		product, err := s.catalogRepo.FindProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		variant, err := s.catalogRepo.FindVariant(ctx, line.ProductID, line.VariantID)
		if err != nil {
			return nil, err
		}

		items = append(items, domain.CartItem{
			ProductID:    product.ID,
			VariantID:    variant.ID,
			Quantity:     line.Quantity,
			Title:        product.Title,
			VariantTitle: variant.Title,
			SKU:          variant.SKU,
			Price:        variant.Price,
			ImageURL:     product.ImageURL,
		})
	}

	now := s.now().UTC()
	session := &domain.CheckoutSession{
		ID:        uuid.New().String(),
		Items:     items,
		Subtotal:  domain.SubtotalOf(items),
		TaxTotal:  0,
		Currency:  currency,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	session.ShippingTotal = s.defaultShippingTotal(ctx, session.Subtotal)
	session.RecomputeTotal()

	if err := s.checkoutRepo.Insert(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("checkout created",
		zap.String("checkoutId", session.ID),
		zap.Int("itemCount", len(items)),
		zap.Float64("subtotal", session.Subtotal),
	)

	return session, nil
}

func (s *CheckoutService) Get(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	return s.checkoutRepo.FindByID(ctx, id)
}

func (s *CheckoutService) SaveCustomerInfo(ctx context.Context, id string, req dto.CustomerInfoRequest) (*domain.CheckoutSession, error) {
	session, err := s.loadOpen(ctx, id)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("Valid email required")
	}

	customer, err := s.customerRepo.UpsertByEmail(ctx, email, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.checkoutRepo.UpdateCustomer(ctx, id, email, customer.ID, now); err != nil {
		return nil, err
	}

	session.Email = email
	session.CustomerID = customer.ID
	session.UpdatedAt = now
	return session, nil
}

func (s *CheckoutService) SaveShippingAddress(ctx context.Context, id string, addr domain.Address) (*domain.CheckoutSession, error) {
	session, err := s.loadOpen(ctx, id)
	if err != nil {
		return nil, err
	}

	if addr.Line1 == "" || addr.City == "" || addr.Country == "" {
		return nil, apperrors.NewValidationError("Shipping address is incomplete")
	}

	now := s.now().UTC()
	if err := s.checkoutRepo.UpdateShippingAddress(ctx, id, &addr, now); err != nil {
		return nil, err
	}

	session.ShippingAddress = &addr
	session.UpdatedAt = now
	return session, nil
}

func (s *CheckoutService) SaveShippingMethod(ctx context.Context, id, rateID string) (*domain.CheckoutSession, error) {
	session, err := s.loadOpen(ctx, id)
	if err != nil {
		return nil, err
	}

	rate, err := s.catalogRepo.FindShippingRate(ctx, rateID)
	if err != nil {
		return nil, err
	}

	session.ShippingRateID = rate.ID
	session.ShippingMethod = rate.Name
	session.ShippingTotal = s.effectiveRatePrice(*rate, session.Subtotal)
	session.RecomputeTotal()

	now := s.now().UTC()
	if err := s.checkoutRepo.UpdateShippingMethod(ctx, id, rate.ID, rate.Name,
		session.ShippingTotal, session.Total, now); err != nil {
		return nil, err
	}

	session.UpdatedAt = now
	return session, nil
}

// ShippingRates returns the available rates with the free-shipping rule
// already applied against the session's subtotal.
func (s *CheckoutService) ShippingRates(ctx context.Context, id string) ([]domain.ShippingRate, error) {
	session, err := s.checkoutRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rates, err := s.catalogRepo.ListShippingRates(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ShippingRate, len(rates))
	for i, rate := range rates {
		rate.Price = s.effectiveRatePrice(rate, session.Subtotal)
		out[i] = rate
	}
	return out, nil
}

// CreateStripeIntent bridges to Stripe for the session total. It changes no
// session state; the gateway call is the only side effect.
func (s *CheckoutService) CreateStripeIntent(ctx context.Context, id string) (*payments.Intent, error) {
	session, err := s.loadOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.stripe.CreateIntent(session.Total, session.Currency, session.ID)
}

func (s *CheckoutService) CreatePayPalOrder(ctx context.Context, id string) (*payments.PayPalOrder, error) {
	session, err := s.loadOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.paypal.CreateOrder(ctx, session.Total, strings.ToUpper(session.Currency), session.ID)
}

// Complete is the terminal transition. Preconditions run in this exact
// order, each with a distinct error: exists, not already completed, not
// expired, email present, shipping address present, shipping method present.
// On success the order materializes and the session closes in one
// transaction.
func (s *CheckoutService) Complete(ctx context.Context, id, provider, paymentID string) (*domain.Order, error) {
	session, err := s.checkoutRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if session.IsCompleted() {
		return nil, apperrors.NewCompletedError("Checkout already completed")
	}
	if session.IsExpired(now) {
		return nil, apperrors.NewExpiredError("Checkout expired")
	}
	if session.Email == "" {
		return nil, apperrors.NewValidationError("Customer email required")
	}
	if session.ShippingAddress == nil {
		return nil, apperrors.NewValidationError("Shipping address required")
	}
	if session.ShippingRateID == "" {
		return nil, apperrors.NewValidationError("Shipping method required")
	}
	if provider != domain.ProviderStripe && provider != domain.ProviderPayPal {
		return nil, apperrors.NewValidationError("Unknown payment provider")
	}
	if paymentID == "" {
		return nil, apperrors.NewValidationError("Payment id required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewTransientError("beginning completion transaction", err)
	}
	defer tx.Rollback()

	order, err := s.materializer.Materialize(ctx, tx, session, provider, paymentID, now)
	if err != nil {
		return nil, err
	}

	if err := s.checkoutRepo.MarkCompleted(ctx, tx, id, provider, paymentID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewTransientError("committing completion transaction", err)
	}

	s.logger.Info("checkout completed",
		zap.String("checkoutId", id),
		zap.String("orderId", order.ID),
		zap.Int("orderNumber", order.OrderNumber),
		zap.String("provider", provider),
	)

	return order, nil
}

// loadOpen is the terminal-state guard shared by every mutating operation:
// completed and expired sessions reject mutation with distinct errors.
func (s *CheckoutService) loadOpen(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	session, err := s.checkoutRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsCompleted() {
		return nil, apperrors.NewCompletedError("Checkout already completed")
	}
	if session.IsExpired(s.now()) {
		return nil, apperrors.NewExpiredError("Checkout expired")
	}
	return session, nil
}

func (s *CheckoutService) defaultShippingTotal(ctx context.Context, subtotal float64) float64 {
	if subtotal >= s.cfg.FreeShippingThreshold {
		return 0
	}
	rate, err := s.catalogRepo.FindShippingRate(ctx, StandardRateID)
	if err != nil {
		// No standard rate seeded; the method selection step will set it.
		return 0
	}
	return rate.Price
}

func (s *CheckoutService) effectiveRatePrice(rate domain.ShippingRate, subtotal float64) float64 {
	if rate.ID == StandardRateID && subtotal >= s.cfg.FreeShippingThreshold {
		return 0
	}
	return rate.Price
}
