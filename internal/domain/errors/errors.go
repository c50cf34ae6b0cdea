// Package errors provides domain-specific error types.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for domain errors.
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// DomainError is an error that maps onto an API response.
type DomainError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

func newError(code string, status int, message, details string, cause error) *DomainError {
	return &DomainError{
		Code:       code,
		Message:    message,
		Details:    details,
		HTTPStatus: status,
		Err:        cause,
	}
}

// NewNotFoundError reports a missing session, thread, message or wait.
func NewNotFoundError(resource, identifier string) *DomainError {
	return newError(ErrCodeNotFound, http.StatusNotFound, resource+" not found", identifier, nil)
}

// NewValidationError reports unusable caller input.
func NewValidationError(message, details string) *DomainError {
	return newError(ErrCodeValidation, http.StatusBadRequest, message, details, nil)
}

// NewUnauthorizedError reports a missing or malformed bearer token.
func NewUnauthorizedError(message string) *DomainError {
	return newError(ErrCodeUnauthorized, http.StatusUnauthorized, message, "", nil)
}

// NewConflictError reports an operation the current state does not allow,
// such as a second message while one is in flight.
func NewConflictError(message, details string) *DomainError {
	return newError(ErrCodeConflict, http.StatusConflict, message, details, nil)
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, err error) *DomainError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return newError(ErrCodeInternal, http.StatusInternalServerError, message, details, err)
}

// NewServiceUnavailableError reports a dependency that is down or disabled.
func NewServiceUnavailableError(service string, err error) *DomainError {
	return newError(ErrCodeServiceUnavailable, http.StatusServiceUnavailable, service+" is unavailable", "", err)
}

// GetDomainError extracts the domain error from an error chain.
func GetDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

func hasCode(err error, code string) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == code
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsConflict checks if the error is a conflict error.
func IsConflict(err error) bool { return hasCode(err, ErrCodeConflict) }

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool { return hasCode(err, ErrCodeValidation) }
