package apify

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error types for common failure scenarios.
var (
	// ErrNotAuthenticated indicates no API token is configured.
	ErrNotAuthenticated = errors.New("not authenticated: no API token configured")

	// ErrRunNotFinished indicates the run did not reach a terminal status
	// within the configured wait.
	ErrRunNotFinished = errors.New("run did not finish in time")
)

// HTTPError represents a non-2xx response whose body did not carry an
// Apify error document.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// IsRetryable returns true if the HTTP error is retryable.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Error wraps an Apify API error with operation context.
type Error struct {
	// Op is the operation that failed.
	Op string

	// StatusCode is the HTTP status, 0 for transport-level failures.
	StatusCode int

	// Type is the platform error type, e.g. "record-not-found".
	Type string

	// Message is the error message.
	Message string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: [%d] %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with operation context.
func WrapError(op string, err error) *Error {
	e := &Error{Op: op, Err: err, Message: "request failed"}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		e.StatusCode = httpErr.StatusCode
	}
	return e
}

// errorBody is the platform's error document: {"error":{"type":..,"message":..}}.
type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// errorFromResponse builds the error for a non-2xx response.
func errorFromResponse(op string, status int, body []byte) error {
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error.Message != "" {
		return &Error{Op: op, StatusCode: status, Type: eb.Error.Type, Message: eb.Error.Message}
	}
	return &HTTPError{StatusCode: status, Body: string(body)}
}

func statusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.StatusCode != 0 {
		return e.StatusCode
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsAuthError returns true if the platform rejected the token.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrNotAuthenticated) {
		return true
	}
	return statusOf(err) == http.StatusUnauthorized
}

// IsNotFound returns true if the requested actor, run, or dataset does not exist.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsValidationError returns true if the platform rejected the submitted input.
func IsValidationError(err error) bool {
	switch statusOf(err) {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// IsRetryable returns true if the error is likely transient and the request
// should be retried.
func IsRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}
	var e *Error
	if errors.As(err, &e) && e.StatusCode != 0 {
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	}
	var te *transportError
	return errors.As(err, &te)
}

// transportError marks failures below HTTP (dial, reset, timeout).
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// Message returns the human-readable part of err suitable for a notice:
// the platform's own message when there is one.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Err == nil && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
