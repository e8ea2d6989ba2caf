package errors

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingAPIKey = errors.New("api key is required")

	// Validation errors
	ErrValidationFailed  = errors.New("validation failed")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidExpMonth   = errors.New("invalid expiration month")
	ErrMissingCardNumber = errors.New("card number is required")
	ErrMissingChargeID   = errors.New("charge transaction id is required")

	// Transport errors
	ErrTransport   = errors.New("transport failure")
	ErrCircuitOpen = errors.New("provider circuit open")

	// Response errors
	ErrMalformedBody      = errors.New("malformed response body")
	ErrProtocolViolation  = errors.New("response missing required field")
	ErrRejected           = errors.New("request rejected by provider")
	ErrRefundNotSucceeded = errors.New("refund did not succeed")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError reports a precondition violation detected before any
// request is sent. It matches ErrValidationFailed and, when set, Cause.
type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrValidationFailed}
	}
	return []error{ErrValidationFailed, e.Cause}
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, cause error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// IsValidation reports whether err is a precondition violation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}
