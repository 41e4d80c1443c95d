// Package errors defines the single error currency of the edge runtime.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is the stable, machine-readable tag surfaced as ErrorDetail.code.
type ErrorCode string

const (
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeEnvVarMissing     ErrorCode = "ENV_VAR_MISSING"
	ErrCodeInvalidJSON       ErrorCode = "INVALID_JSON"
	ErrCodeOpenAIAPI         ErrorCode = "OPENAI_API_ERROR"
	ErrCodeTerrastarAPI      ErrorCode = "TERRASTAR_API_ERROR"
	ErrCodeStarfixAPI        ErrorCode = "STARFIX_API_ERROR"
	ErrCodeInvalidResponse   ErrorCode = "INVALID_RESPONSE"
	ErrCodeDatabase          ErrorCode = "DATABASE_ERROR"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeMethodNotAllowed  ErrorCode = "METHOD_NOT_ALLOWED"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeTimeout           ErrorCode = "TIMEOUT"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// EdgeFunctionError is the only error type that crosses the HTTP boundary.
// StatusCode defaults to 400 when left at zero.
type EdgeFunctionError struct {
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Details    interface{} `json:"details,omitempty"`
	cause      error
}

func (e *EdgeFunctionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EdgeFunctionError) Unwrap() error {
	return e.cause
}

// Status returns the HTTP status for the error.
func (e *EdgeFunctionError) Status() int {
	if e.StatusCode == 0 {
		return http.StatusBadRequest
	}
	return e.StatusCode
}

// New builds an EdgeFunctionError with an explicit status.
func New(code ErrorCode, message string, statusCode int, details interface{}) *EdgeFunctionError {
	return &EdgeFunctionError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// WithCause attaches an underlying error for logging; it is never serialized.
func (e *EdgeFunctionError) WithCause(err error) *EdgeFunctionError {
	e.cause = err
	return e
}

func NewValidationError(missing []string) *EdgeFunctionError {
	return New(ErrCodeValidation,
		fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", ")),
		http.StatusBadRequest,
		map[string]interface{}{"missing_fields": missing},
	)
}

// NewInvalidFieldError reports a present but unusable field value.
func NewInvalidFieldError(field, reason string) *EdgeFunctionError {
	return New(ErrCodeValidation,
		fmt.Sprintf("Invalid value for %s: %s", field, reason),
		http.StatusBadRequest,
		map[string]interface{}{"field": field},
	)
}

func NewEnvVarMissingError(key string) *EdgeFunctionError {
	return New(ErrCodeEnvVarMissing,
		fmt.Sprintf("Environment variable %s is not set", key),
		http.StatusInternalServerError,
		map[string]interface{}{"key": key},
	)
}

func NewInvalidJSONError(err error) *EdgeFunctionError {
	return New(ErrCodeInvalidJSON, "Invalid JSON payload", http.StatusBadRequest, err.Error()).WithCause(err)
}

// NewUpstreamError maps a failed external call; raw carries the upstream body verbatim.
func NewUpstreamError(code ErrorCode, service string, status int, raw string) *EdgeFunctionError {
	msg := fmt.Sprintf("%s API request failed", service)
	if status > 0 {
		msg = fmt.Sprintf("%s API request failed with status %d", service, status)
	}
	return New(code, msg, http.StatusBadGateway, raw)
}

func NewInvalidResponseError(service, details string) *EdgeFunctionError {
	return New(ErrCodeInvalidResponse,
		fmt.Sprintf("Invalid response from %s", service),
		http.StatusBadGateway,
		details,
	)
}

func NewDatabaseError(operation string, err error) *EdgeFunctionError {
	return New(ErrCodeDatabase,
		fmt.Sprintf("Database %s failed", operation),
		http.StatusInternalServerError,
		err.Error(),
	).WithCause(err)
}

func NewRateLimitError(limit int, resetAt string) *EdgeFunctionError {
	return New(ErrCodeRateLimitExceeded,
		"Rate limit exceeded",
		http.StatusTooManyRequests,
		map[string]interface{}{"limit": limit, "reset_at": resetAt},
	)
}

func NewMethodNotAllowedError(method string) *EdgeFunctionError {
	return New(ErrCodeMethodNotAllowed,
		fmt.Sprintf("Method %s not allowed", method),
		http.StatusMethodNotAllowed,
		nil,
	)
}

func NewNotFoundError(path string) *EdgeFunctionError {
	return New(ErrCodeNotFound,
		fmt.Sprintf("No function at %s", path),
		http.StatusNotFound,
		nil,
	)
}

func NewTimeoutError(err error) *EdgeFunctionError {
	return New(ErrCodeTimeout, "Function execution timed out", http.StatusGatewayTimeout, nil).WithCause(err)
}

// NewInternalError keeps err for logging only. Callers never see its text.
func NewInternalError(err error) *EdgeFunctionError {
	return New(ErrCodeInternal, "Internal server error", http.StatusInternalServerError, nil).WithCause(err)
}

// Normalize returns err as an EdgeFunctionError. Known errors pass through unchanged,
// a deadline becomes TIMEOUT and everything else becomes INTERNAL_ERROR.
func Normalize(err error) *EdgeFunctionError {
	if err == nil {
		return nil
	}
	var efe *EdgeFunctionError
	if stderrors.As(err, &efe) {
		return efe
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	return NewInternalError(err)
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var efe *EdgeFunctionError
	return stderrors.As(err, &efe) && efe.Code == code
}

// GetErrorCategory groups codes for logs and metrics.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidJSON, ErrCodeMethodNotAllowed, ErrCodeNotFound:
		return "CLIENT"
	case ErrCodeOpenAIAPI, ErrCodeTerrastarAPI, ErrCodeStarfixAPI, ErrCodeInvalidResponse:
		return "UPSTREAM"
	case ErrCodeDatabase:
		return "DATABASE"
	case ErrCodeRateLimitExceeded:
		return "RATE_LIMIT"
	case ErrCodeEnvVarMissing:
		return "CONFIGURATION"
	case ErrCodeTimeout:
		return "TIMEOUT"
	default:
		return "OTHER"
	}
}

// IsKnownCode reports whether code is one of the codes above.
func IsKnownCode(code string) bool {
	return code == string(ErrCodeInternal) || GetErrorCategory(ErrorCode(code)) != "OTHER"
}
