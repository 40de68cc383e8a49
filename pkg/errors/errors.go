package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork   ErrorType = "upstream_network"
	ErrorTypeTimeout   ErrorType = "upstream_timeout"
	ErrorTypeStatus    ErrorType = "upstream_status"
	ErrorTypeParsing   ErrorType = "upstream_parsing"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeInvalid   ErrorType = "invalid_input"
	ErrorTypeStorage   ErrorType = "storage"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error is a classified failure. Code carries the upstream HTTP status when
// one was received, 0 otherwise.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Network wraps a transport failure talking to the upstream API.
func Network(err error) *Error {
	return &Error{Type: ErrorTypeNetwork, Message: fmt.Sprintf("upstream unavailable: %v", err), Err: err}
}

// Timeout wraps a deadline hit while talking to the upstream API.
func Timeout(err error) *Error {
	return &Error{Type: ErrorTypeTimeout, Message: fmt.Sprintf("upstream timed out: %v", err), Err: err}
}

// Status reports a non-2xx upstream response.
func Status(code int) *Error {
	return &Error{Type: ErrorTypeStatus, Message: fmt.Sprintf("upstream returned status %d", code), Code: code}
}

// Parsing wraps an upstream body that could not be decoded.
func Parsing(code int, err error) *Error {
	return &Error{Type: ErrorTypeParsing, Message: fmt.Sprintf("malformed upstream response: %v", err), Code: code, Err: err}
}

// Invalid reports bad caller input.
func Invalid(msg string) *Error {
	return &Error{Type: ErrorTypeInvalid, Message: msg}
}

// Storage wraps a local cache failure.
func Storage(err error) *Error {
	return &Error{Type: ErrorTypeStorage, Message: err.Error(), Err: err}
}

// TypeOf returns the classification of err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsUpstream reports whether err came from the remote profile API.
func IsUpstream(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeStatus, ErrorTypeParsing, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}

// HTTPStatus maps err to the status code returned to the browser.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeNetwork, ErrorTypeStatus, ErrorTypeParsing, ErrorTypeRateLimit:
		return http.StatusBadGateway
	case ErrorTypeInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
