package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"palantir/internal/domain"
	"palantir/internal/dto"
	apperrors "palantir/internal/errors"
	"palantir/internal/payments"
)

// TokenHeader carries the capability token issued at checkout creation.
// Possession of a token scoped to the checkout id is the access control for
// every subsequent call.
const TokenHeader = "X-Checkout-Token"

type CheckoutService interface {
	Create(ctx context.Context, lines []dto.CreateCheckoutItem, currency string) (*domain.CheckoutSession, error)
	Get(ctx context.Context, id string) (*domain.CheckoutSession, error)
	SaveCustomerInfo(ctx context.Context, id string, req dto.CustomerInfoRequest) (*domain.CheckoutSession, error)
	SaveShippingAddress(ctx context.Context, id string, addr domain.Address) (*domain.CheckoutSession, error)
	SaveShippingMethod(ctx context.Context, id, rateID string) (*domain.CheckoutSession, error)
	ShippingRates(ctx context.Context, id string) ([]domain.ShippingRate, error)
	CreateStripeIntent(ctx context.Context, id string) (*payments.Intent, error)
	CreatePayPalOrder(ctx context.Context, id string) (*payments.PayPalOrder, error)
	Complete(ctx context.Context, id, provider, paymentID string) (*domain.Order, error)
}

type TokenService interface {
	IssueCheckoutToken(checkoutID string, expiresAt time.Time) (string, error)
	ValidateCheckoutToken(tokenStr, checkoutID string) error
}

type CheckoutController struct {
	service        CheckoutService
	tokens         TokenService
	publishableKey string
	logger         *zap.Logger
}

func NewCheckoutController(service CheckoutService, tokens TokenService, publishableKey string, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{
		service:        service,
		tokens:         tokens,
		publishableKey: publishableKey,
		logger:         logger,
	}
}

func (c *CheckoutController) Create(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()

	var req dto.CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeError(w, logger, apperrors.NewValidationError("request body must be valid JSON"))
		return
	}

	session, err := c.service.Create(r.Context(), req.Items, req.Currency)
	if err != nil {
		c.writeError(w, logger, err)
		return
	}

	token, err := c.tokens.IssueCheckoutToken(session.ID, session.ExpiresAt)
	if err != nil {
		c.writeError(w, logger, err)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.CheckoutResponse{
		Checkout: dto.NewCheckoutDTO(session),
		Token:    token,
	})
}

func (c *CheckoutController) Get(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()
	id, ok := c.authorize(w, r, logger)
	if !ok {
		return
	}

	session, err := c.service.Get(r.Context(), id)
	if err != nil {
		c.writeError(w, logger, err)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.CheckoutResponse{Checkout: dto.NewCheckoutDTO(session)})
}

func (c *CheckoutController) SaveCustomerInfo(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()
	id, ok := c.authorize(w, r, logger)
	if !ok {
		return
	}

	var req dto.CustomerInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, logger, apperrors.NewValidationError("request body must be valid JSON"))
		return
	}

	session, err := c.service.SaveCustomerInfo(r.Context(), id, req)
	if err != nil {
		c.writeError(w, logger, err)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.CheckoutResponse{Checkout: dto.NewCheckoutDTO(session)})
}

func (c *CheckoutController) SaveShippingAddress(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()
	id, ok := c.authorize(w, r, logger)
	if !ok {
		return
	}

	var req dto.ShippingAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, logger, apperrors.NewValidationError("request body must be valid JSON"))
		return
	}

	session, err := c.service.SaveShippingAddress(r.Context(), id, req.Address)
	if err != nil {
		c.writeError(w, logger, err)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.CheckoutResponse{Checkout: dto.NewCheckoutDTO(session)})
}

func (c *CheckoutController) ShippingRates(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()
	id, ok := c.authorize(w, r, logger)
	if !ok {
		return
	}

	rates, err := c.service.ShippingRates(r.Context(), id)
	if err != nil {
		c.writeError(w, logger, err)
		return
	}

	out := make([]dto.ShippingRateDTO, len(rates))
	for i, rate := range rates {
		out[i] = dto.ShippingRateDTO{
			ID:            rate.ID,
			Name:          rate.Name,
			Price:         rate.Price,
			EstimatedDays: rate.EstimatedDays,
		}
	}
	c.writeJSON(w, http.StatusOK, dto.ShippingRatesResponse{ShippingRates: out})
}

func (c *CheckoutController) SaveShippingMethod(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()
	id, ok := c.authorize(w, r, logger)
	if !ok {
		return
	}

	var req dto.ShippingMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, logger, apperrors.NewValidationError("request body must be valid JSON"))
		return
	}
	if req.ShippingRateID == "" {
		c.writeError(w, logger, apperrors.NewValidationError("shippingRateId is required"))
		return
	}

	session, err := c.service.SaveShippingMethod(r.Context(), id, req.ShippingRateID)
	if err != nil {
		c.writeError(w, logger, err)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.CheckoutResponse{Checkout: dto.NewCheckoutDTO(session)})
}

func (c *CheckoutController) CreateStripeIntent(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()
	id, ok := c.authorize(w, r, logger)
	if !ok {
		return
	}

	intent, err := c.service.CreateStripeIntent(r.Context(), id)
	if err != nil {
		c.writeError(w, logger, err)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.PaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PublishableKey:  c.publishableKey,
		PaymentIntentID: intent.ID,
	})
}

func (c *CheckoutController) CreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()
	id, ok := c.authorize(w, r, logger)
	if !ok {
		return
	}

	order, err := c.service.CreatePayPalOrder(r.Context(), id)
	if err != nil {
		c.writeError(w, logger, err)
		return
	}

	c.writeJSON(w, http.StatusOK, map[string]string{
		"orderId":    order.ID,
		"approveUrl": order.ApproveURL,
	})
}

func (c *CheckoutController) Complete(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()
	id, ok := c.authorize(w, r, logger)
	if !ok {
		return
	}

	var req dto.CompleteCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, logger, apperrors.NewValidationError("request body must be valid JSON"))
		return
	}

	order, err := c.service.Complete(r.Context(), id, req.PaymentProvider, req.PaymentID)
	if err != nil {
		c.writeError(w, logger, err)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.OrderResponse{Order: dto.NewOrderDTO(order)})
}

// authorize checks the capability token against the checkout id in the
// path. Access failures are first-class guards ahead of any state check.
func (c *CheckoutController) authorize(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		c.writeError(w, logger, apperrors.NewNotFoundError("checkout not found"))
		return "", false
	}

	if err := c.tokens.ValidateCheckoutToken(r.Header.Get(TokenHeader), id); err != nil {
		logger.Warn("checkout access denied", zap.String("checkoutId", id), zap.Error(err))
		c.writeError(w, logger, err)
		return "", false
	}

	return id, true
}

func (c *CheckoutController) requestLogger() *zap.Logger {
	return c.logger.With(zap.String("traceId", uuid.New().String()))
}

func (c *CheckoutController) writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, body := MapError(err)
	if status == http.StatusInternalServerError {
		logger.Error("unexpected error", zap.Error(err))
	}
	c.writeJSON(w, status, body)
}

func (c *CheckoutController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}

// MapError translates the error taxonomy into the response envelope:
// Validation/Signature 400, Authorization 403, NotFound 404, TerminalState
// 410, Transient and anything unclassified 500.
func MapError(err error) (int, dto.ErrorResponse) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		resp := dto.ErrorResponse{Error: ve.Message, Status: http.StatusBadRequest}
		if len(ve.Details) > 0 {
			resp.Details = ve.Details
		}
		return http.StatusBadRequest, resp
	}
	if se, ok := apperrors.IsSignatureError(err); ok {
		return http.StatusBadRequest, dto.ErrorResponse{Error: se.Message, Status: http.StatusBadRequest}
	}
	if ae, ok := apperrors.IsAuthorizationError(err); ok {
		return http.StatusForbidden, dto.ErrorResponse{Error: ae.Message, Status: http.StatusForbidden}
	}
	if nfe, ok := apperrors.IsNotFoundError(err); ok {
		return http.StatusNotFound, dto.ErrorResponse{Error: nfe.Message, Status: http.StatusNotFound}
	}
	if tse, ok := apperrors.IsTerminalStateError(err); ok {
		return http.StatusGone, dto.ErrorResponse{Error: tse.Message, Status: http.StatusGone}
	}
	return http.StatusInternalServerError, dto.ErrorResponse{
		Error:  "Internal server error",
		Status: http.StatusInternalServerError,
	}
}
