package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"palantir/internal/dto"
	apperrors "palantir/internal/errors"
	"palantir/internal/payments"
)

const stripeSignatureHeader = "Stripe-Signature"
const paypalSignatureHeader = "Paypal-Transmission-Sig"

type Reconciler interface {
	Process(ctx context.Context, evt payments.ProviderEvent) (bool, error)
}

// WebhookController is one entry point per provider. Response policy: 200
// for any application-level outcome (stops provider retries), 400 for
// malformed or unverifiable input (never retried), 500 only for transient
// infrastructure failures (retried, safe because processing is idempotent).
type WebhookController struct {
	stripe     payments.Verifier
	paypal     payments.Verifier
	reconciler Reconciler
	logger     *zap.Logger
}

func NewWebhookController(stripe, paypal payments.Verifier, reconciler Reconciler, logger *zap.Logger) *WebhookController {
	return &WebhookController{
		stripe:     stripe,
		paypal:     paypal,
		reconciler: reconciler,
		logger:     logger,
	}
}

func (c *WebhookController) HandleStripe(w http.ResponseWriter, r *http.Request) {
	c.handle(w, r, c.stripe, r.Header.Get(stripeSignatureHeader))
}

func (c *WebhookController) HandlePayPal(w http.ResponseWriter, r *http.Request) {
	c.handle(w, r, c.paypal, r.Header.Get(paypalSignatureHeader))
}

func (c *WebhookController) handle(w http.ResponseWriter, r *http.Request, verifier payments.Verifier, signature string) {
	logger := c.logger.With(zap.String("traceId", uuid.New().String()))

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Warn("reading webhook body", zap.Error(err))
		c.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "unreadable body", Status: http.StatusBadRequest})
		return
	}

	evt, err := verifier.VerifyAndParse(payload, signature)
	if err != nil {
		c.writeVerifyError(w, logger, err)
		return
	}

	deduplicated, err := c.reconciler.Process(r.Context(), evt)
	if err != nil {
		// Only transient failures surface from Process; everything
		// application-level resolved to a 200 inside.
		logger.Error("webhook processing failed",
			zap.String("eventId", evt.ID),
			zap.String("provider", evt.Provider),
			zap.Error(err),
		)
		c.writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error:  "temporary failure, retry",
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.writeJSON(w, http.StatusOK, dto.WebhookResponse{Received: true, Deduplicated: deduplicated})
}

func (c *WebhookController) writeVerifyError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if se, ok := apperrors.IsSignatureError(err); ok {
		logger.Warn("webhook signature verification failed", zap.Error(se))
		c.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid signature", Status: http.StatusBadRequest})
		return
	}
	if ve, ok := apperrors.IsValidationError(err); ok {
		logger.Warn("malformed webhook payload", zap.Error(ve))
		c.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: ve.Message, Status: http.StatusBadRequest})
		return
	}

	logger.Error("unexpected webhook verification error", zap.Error(err))
	c.writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
		Error:  "temporary failure, retry",
		Status: http.StatusInternalServerError,
	})
}

func (c *WebhookController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
