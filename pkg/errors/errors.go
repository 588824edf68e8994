package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeAuth           ErrorType = "auth"
	ErrorTypeParsing        ErrorType = "parsing"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeServerError    ErrorType = "server_error"
	ErrorTypeInvalidHashtag ErrorType = "invalid_hashtag"
	ErrorTypeUnknown        ErrorType = "unknown"
)

var (
	// ErrMissingField is wrapped by DecodeError when a JSON path is absent or null
	ErrMissingField = stderrors.New("field missing from response")
	// ErrInvalidJSON is wrapped by DecodeError when a body is not valid JSON
	ErrInvalidJSON = stderrors.New("response is not valid JSON")
)

// Typed is implemented by every error in this package
type Typed interface {
	error
	Type() ErrorType
}

// AuthenticationError is returned when login fails or when an operation
// that needs a logged in session is attempted without one.
type AuthenticationError struct {
	Op     string
	Reason string
}

func (e *AuthenticationError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("auth error: %s", e.Reason)
	}
	return fmt.Sprintf("auth error: %s: %s", e.Op, e.Reason)
}

// Type implements Typed
func (e *AuthenticationError) Type() ErrorType {
	return ErrorTypeAuth
}

// TransportError carries a non-2xx response, or a request that never got
// one (StatusCode 0, Err set).
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport error: %s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("transport error (code %d): %s %s: %s", e.StatusCode, e.Method, e.URL, preview(e.Body))
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Type classifies the error by its status code
func (e *TransportError) Type() ErrorType {
	return TypeForStatus(e.StatusCode)
}

// InvalidHashtagError is returned when the server answers a hashtag query
// with a well-formed but empty result.
type InvalidHashtagError struct {
	Hashtag string
}

func (e *InvalidHashtagError) Error() string {
	return fmt.Sprintf("received no data for hashtag %q, make sure it was entered properly", e.Hashtag)
}

// Type implements Typed
func (e *InvalidHashtagError) Type() ErrorType {
	return ErrorTypeInvalidHashtag
}

// DecodeError is returned when a response body is not valid JSON or lacks
// an expected field.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parsing error: %v", e.Err)
	}
	return fmt.Sprintf("parsing error at %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Type implements Typed
func (e *DecodeError) Type() ErrorType {
	return ErrorTypeParsing
}

// TypeOf returns the ErrorType of the first Typed error in err's chain
func TypeOf(err error) ErrorType {
	var typed Typed
	if stderrors.As(err, &typed) {
		return typed.Type()
	}
	return ErrorTypeUnknown
}

// TypeForStatus maps an HTTP status code to an ErrorType
func TypeForStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return ErrorTypeAuth
	case statusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	return IsRetryable(TypeForStatus(statusCode))
}

// IsAuthentication reports whether err is an AuthenticationError
func IsAuthentication(err error) bool {
	var authErr *AuthenticationError
	return stderrors.As(err, &authErr)
}

// StatusCode returns the HTTP status carried by a TransportError in err's
// chain, or 0.
func StatusCode(err error) int {
	var transportErr *TransportError
	if stderrors.As(err, &transportErr) {
		return transportErr.StatusCode
	}
	return 0
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
