package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Problem codes exposed in RFC 7807 responses.
const (
	CodeUnauthorized       = "AUTH-001"
	CodeInvalidToken       = "AUTH-002"
	CodeInvalidAPIKey      = "AUTH-003"
	CodeAPIKeyExpired      = "AUTH-004"
	CodeInsufficientScope  = "AUTH-005"
	CodeInvalidSignature   = "AUTH-006"
	CodeValidationFailed   = "VAL-001"
	CodeMalformedBody      = "VAL-002"
	CodeInvalidWorkflow    = "VAL-003"
	CodeSchemaViolation    = "VAL-004"
	CodeNotFound           = "RES-001"
	CodeConflict           = "RES-002"
	CodeInvalidTransition  = "BIZ-001"
	CodeWorkflowDisabled   = "BIZ-002"
	CodeBatchTooLarge      = "BIZ-003"
	CodeExternalService    = "EXT-001"
	CodeExternalTimeout    = "EXT-002"
	CodeCircuitOpen        = "EXT-003"
	CodeInternal           = "SYS-001"
	CodeRateLimitExceeded  = "SYS-002"
	CodeServiceUnavailable = "SYS-003"
)

var (
	ErrNotFound               = errors.New("resource not found")
	ErrConflict               = errors.New("resource already exists")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInternalServerError    = errors.New("internal server error")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrRateLimitExceeded      = errors.New("rate limit exceeded")
	ErrCircuitBreakerOpen     = errors.New("circuit breaker open")
	ErrCacheUnavailable       = errors.New("cache service unavailable")
	ErrCacheMiss              = errors.New("cache miss")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

type (
	DomainError struct {
		Code       string
		Message    string
		StatusCode int
		Cause      error
		Details    map[string]any
	}

	// FieldError describes a single invalid input field.
	FieldError struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}

	InvalidStateTransitionError struct {
		From string
		To   string
	}

	MaxRetriesExceededError struct {
		EventID    string
		RetryCount int
		MaxRetries int
	}
)

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

func NewDomainError(code, message string, statusCode int, cause error) *DomainError {
	return &DomainError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
		Details:    make(map[string]any),
	}
}

func (e *DomainError) WithDetails(key string, value any) *DomainError {
	e.Details[key] = value
	return e
}

// FieldErrors returns the field level errors attached to the error, if any.
func (e *DomainError) FieldErrors() []FieldError {
	fields, _ := e.Details["errors"].([]FieldError)

	return fields
}

func NewNotFoundError(resource, id string) *DomainError {
	return NewDomainError(
		CodeNotFound,
		fmt.Sprintf("%s %s not found", resource, id),
		http.StatusNotFound,
		ErrNotFound,
	).WithDetails("resource", resource).WithDetails("id", id)
}

func NewConflictError(resource, field, value string) *DomainError {
	return NewDomainError(
		CodeConflict,
		fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		http.StatusConflict,
		ErrConflict,
	).WithDetails("resource", resource).WithDetails("field", field)
}

func NewValidationError(message string, fields ...FieldError) *DomainError {
	err := NewDomainError(CodeValidationFailed, message, http.StatusUnprocessableEntity, ErrInvalidRequest)
	if len(fields) > 0 {
		err.WithDetails("errors", fields)
	}

	return err
}

func NewMalformedBodyError(cause error) *DomainError {
	return NewDomainError(CodeMalformedBody, "request body could not be parsed", http.StatusBadRequest, cause)
}

func NewSchemaViolationError(source string, fields ...FieldError) *DomainError {
	err := NewDomainError(
		CodeSchemaViolation,
		fmt.Sprintf("%s payload does not match its schema", source),
		http.StatusUnprocessableEntity,
		ErrInvalidRequest,
	)
	if len(fields) > 0 {
		err.WithDetails("errors", fields)
	}

	return err
}

func NewInvalidWorkflowError(message string, cause error) *DomainError {
	return NewDomainError(CodeInvalidWorkflow, message, http.StatusUnprocessableEntity, cause)
}

func NewUnauthorizedError(message string) *DomainError {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, ErrUnauthorized)
}

func NewInvalidTokenError(cause error) *DomainError {
	return NewDomainError(CodeInvalidToken, "invalid or expired access token", http.StatusUnauthorized, cause)
}

func NewInvalidAPIKeyError() *DomainError {
	return NewDomainError(CodeInvalidAPIKey, "invalid API key", http.StatusUnauthorized, ErrUnauthorized)
}

func NewAPIKeyExpiredError() *DomainError {
	return NewDomainError(CodeAPIKeyExpired, "API key expired or revoked", http.StatusUnauthorized, ErrUnauthorized)
}

func NewInsufficientScopeError(scope string) *DomainError {
	return NewDomainError(
		CodeInsufficientScope,
		fmt.Sprintf("API key lacks the %s scope", scope),
		http.StatusForbidden,
		ErrForbidden,
	).WithDetails("required_scope", scope)
}

func NewInvalidSignatureError(cause error) *DomainError {
	return NewDomainError(CodeInvalidSignature, "webhook signature verification failed", http.StatusUnauthorized, cause)
}

func NewInvalidTransitionError(from, to string) *DomainError {
	return NewDomainError(
		CodeInvalidTransition,
		fmt.Sprintf("order cannot move from %s to %s", from, to),
		http.StatusConflict,
		&InvalidStateTransitionError{From: from, To: to},
	)
}

func NewBatchTooLargeError(size, limit int) *DomainError {
	return NewDomainError(
		CodeBatchTooLarge,
		fmt.Sprintf("batch of %d items exceeds the limit of %d", size, limit),
		http.StatusUnprocessableEntity,
		ErrInvalidRequest,
	).WithDetails("limit", limit)
}

func NewExternalServiceError(service string, cause error) *DomainError {
	code := CodeExternalService
	if errors.Is(cause, ErrCircuitBreakerOpen) {
		code = CodeCircuitOpen
	}

	return NewDomainError(
		code,
		fmt.Sprintf("%s request failed", service),
		http.StatusBadGateway,
		cause,
	).WithDetails("service", service)
}

func NewRateLimitError(message string) *DomainError {
	return NewDomainError(CodeRateLimitExceeded, message, http.StatusTooManyRequests, ErrRateLimitExceeded)
}

func NewInternalServerError(message string, cause error) *DomainError {
	return NewDomainError(CodeInternal, message, http.StatusInternalServerError, cause)
}

func NewServiceUnavailableError(message string, cause error) *DomainError {
	return NewDomainError(CodeServiceUnavailable, message, http.StatusServiceUnavailable, cause)
}

// AsDomainError maps any error onto a DomainError, unknown errors become SYS-001.
func AsDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NewDomainError(CodeNotFound, "resource not found", http.StatusNotFound, err)
	case errors.Is(err, ErrConflict):
		return NewDomainError(CodeConflict, "resource already exists", http.StatusConflict, err)
	case errors.Is(err, ErrUnauthorized):
		return NewUnauthorizedError("authentication required")
	case errors.Is(err, ErrCircuitBreakerOpen):
		return NewExternalServiceError("upstream", err)
	case errors.Is(err, ErrRateLimitExceeded):
		return NewRateLimitError("rate limit exceeded")
	}

	return NewInternalServerError("an unexpected error occurred", err)
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

func (e *MaxRetriesExceededError) Error() string {
	return fmt.Sprintf("max retries exceeded for event %s: %d/%d", e.EventID, e.RetryCount, e.MaxRetries)
}
