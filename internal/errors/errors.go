package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeConversion    ErrorType = "conversion"
	ErrorTypeCompression   ErrorType = "compression"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeTransport     ErrorType = "transport"
	ErrorTypeParse         ErrorType = "parse"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeThrottled     ErrorType = "throttled"
	ErrorTypeInternal      ErrorType = "internal"
)

// TransportKind subdivides transport errors by upstream status.
type TransportKind string

const (
	KindInvalidRequest TransportKind = "invalid_request"
	KindUnauthorized   TransportKind = "unauthorized"
	KindRateLimited    TransportKind = "rate_limited"
	KindServerError    TransportKind = "server_error"
	KindRequestFailed  TransportKind = "request_failed"
	KindNetwork        TransportKind = "network"
)

// AppError represents a structured application error.
// Message is safe to show to an end user; Error() adds the cause for logs.
type AppError struct {
	Type           ErrorType     `json:"type"`
	Kind           TransportKind `json:"kind,omitempty"`
	Message        string        `json:"message"`
	Details        string        `json:"details,omitempty"`
	StatusCode     int           `json:"status_code"`
	UpstreamStatus int           `json:"upstream_status,omitempty"`
	Cause          error         `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewConversionError reports a proprietary-format decode failure
func NewConversionError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeConversion,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewCompressionError reports a re-encode failure during downsizing
func NewCompressionError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeCompression,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewConfigurationError reports missing or invalid credentials
func NewConfigurationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeConfiguration,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// NewNetworkError creates a transport error for failures below HTTP
// (DNS, connection reset, TLS).
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTransport,
		Kind:       KindNetwork,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewStatusError classifies a non-2xx upstream status.
func NewStatusError(status int, cause error) *AppError {
	e := &AppError{
		Type:           ErrorTypeTransport,
		UpstreamStatus: status,
		StatusCode:     http.StatusBadGateway,
		Cause:          cause,
	}
	switch {
	case status == http.StatusBadRequest:
		e.Kind = KindInvalidRequest
		e.Message = "Invalid request. Please check your image and try again."
		e.StatusCode = http.StatusBadRequest
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
		e.Message = "Invalid API key. Please check your configuration."
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.Message = "Too many requests. Please wait a moment and try again."
		e.StatusCode = http.StatusTooManyRequests
	case status >= 500:
		e.Kind = KindServerError
		e.Message = "Server error. Please try again later."
	default:
		e.Kind = KindRequestFailed
		e.Message = fmt.Sprintf("Request failed with status %d.", status)
	}
	return e
}

// NewParseError reports a model response that does not honor the JSON contract
func NewParseError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeParse,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// NewThrottledError reports that this service, not the model, is limiting
// the caller.
func NewThrottledError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeThrottled,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

// As extracts the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := As(err); ok {
		return appErr.Type == errorType
	}
	return false
}

// KindOf returns the transport kind of err, or "" when err is not a transport error.
func KindOf(err error) TransportKind {
	if appErr, ok := As(err); ok && appErr.Type == ErrorTypeTransport {
		return appErr.Kind
	}
	return ""
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// UserMessage returns the displayable message for err.
func UserMessage(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Message
	}
	return "Something went wrong. Please try again."
}
