package dto

import apperrors "palantir/internal/errors"

type WebhookResponse struct {
	Received     bool `json:"received"`
	Deduplicated bool `json:"deduplicated,omitempty"`
}

type ErrorResponse struct {
	Error   string                       `json:"error"`
	Status  int                          `json:"status"`
	Details []apperrors.ValidationDetail `json:"details,omitempty"`
}
