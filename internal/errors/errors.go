package errors

import "fmt"

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError marks caller-fixable input problems (HTTP 400).
type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	if ve, ok := err.(*ValidationError); ok {
		return ve, true
	}
	return nil, false
}

// NotFoundError marks a missing resource (HTTP 404).
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	if nfe, ok := err.(*NotFoundError); ok {
		return nfe, true
	}
	return nil, false
}

// TerminalStateError marks an operation against a checkout that can no
// longer change: either completed or expired (HTTP 410). The two cases
// are distinguishable so callers can tell "already done" from "too late".
type TerminalStateError struct {
	Message string
	Expired bool
}

func (e *TerminalStateError) Error() string {
	return e.Message
}

func NewCompletedError(message string) *TerminalStateError {
	return &TerminalStateError{Message: message}
}

func NewExpiredError(message string) *TerminalStateError {
	return &TerminalStateError{Message: message, Expired: true}
}

func IsTerminalStateError(err error) (*TerminalStateError, bool) {
	if tse, ok := err.(*TerminalStateError); ok {
		return tse, true
	}
	return nil, false
}

// AuthorizationError marks a caller acting outside its capability (HTTP 403).
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

func NewAuthorizationError(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

func IsAuthorizationError(err error) (*AuthorizationError, bool) {
	if ae, ok := err.(*AuthorizationError); ok {
		return ae, true
	}
	return nil, false
}

// SignatureError marks a webhook whose signature did not verify (HTTP 400,
// never retried by the provider).
type SignatureError struct {
	Message string
	Cause   error
}

func (e *SignatureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SignatureError) Unwrap() error {
	return e.Cause
}

func NewSignatureError(message string, cause error) *SignatureError {
	return &SignatureError{Message: message, Cause: cause}
}

func IsSignatureError(err error) (*SignatureError, bool) {
	if se, ok := err.(*SignatureError); ok {
		return se, true
	}
	return nil, false
}

// TransientError marks infrastructure failures that are safe to retry
// (HTTP 500); idempotency makes the retry harmless.
type TransientError struct {
	Message string
	Cause   error
}

func (e *TransientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

func NewTransientError(message string, cause error) *TransientError {
	return &TransientError{Message: message, Cause: cause}
}

func IsTransientError(err error) (*TransientError, bool) {
	if te, ok := err.(*TransientError); ok {
		return te, true
	}
	return nil, false
}
