package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the failure classes a crawl can run into
type ErrorType string

const (
	ErrorTypeNetwork          ErrorType = "network"
	ErrorTypeAuthExpired      ErrorType = "auth_expired"
	ErrorTypeRateLimit        ErrorType = "rate_limit"
	ErrorTypeServerError      ErrorType = "server_error"
	ErrorTypeClientError      ErrorType = "client_error"
	ErrorTypeCredential       ErrorType = "credential"
	ErrorTypeRetriesExhausted ErrorType = "retries_exhausted"
	ErrorTypeParsing          ErrorType = "parsing"
	ErrorTypeUnknown          ErrorType = "unknown"
)

// MaxBodySnippet is how much of a response body is kept for diagnostics
const MaxBodySnippet = 300

// Error represents a vendor API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Body    string
	URL     string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	if e.URL != "" {
		msg += " url=" + e.URL
	}
	if e.Body != "" {
		msg += " body~" + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeAuthExpired:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error.
// 401 counts as retryable because it is recovered by refreshing the credential.
func IsRetryableStatusCode(statusCode int) bool {
	switch {
	case statusCode == 0:
		return true
	case statusCode == 401, statusCode == 429:
		return true
	case statusCode >= 500:
		return true
	default:
		return false
	}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given type anywhere in its chain
func Is(err error, errorType ErrorType) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type == errorType
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// Truncate shortens a response body for log lines and error messages
func Truncate(body []byte, max int) string {
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
