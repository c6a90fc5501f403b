// Package apierrors provides shared error types for the tempmail client.
package apierrors

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("invalid request")

	// ErrAuthRequired is returned when a provider needs a token that is missing or rejected.
	ErrAuthRequired = errors.New("provider authentication required")

	// ErrNetwork is matched by connection, DNS and transport failures.
	ErrNetwork = errors.New("network error")

	// ErrTimeout is matched when a single attempt exceeds its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrProtocol is matched when a provider answers with a bad status or body.
	ErrProtocol = errors.New("provider protocol error")

	// ErrNotInitialized is returned when a session is polled before a mailbox exists.
	ErrNotInitialized = errors.New("no mailbox has been generated")
)

// Error is implemented by all client errors.
type Error interface {
	error
	TempmailError() // marker method
}

// ValidationError is raised before any network call when a request is malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is for sentinel error matching.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TempmailError implements the Error interface.
func (e *ValidationError) TempmailError() {}

// AuthRequiredError indicates the provider needs a token and none was usable.
type AuthRequiredError struct {
	Provider string
	Message  string
	Err      error
}

func (e *AuthRequiredError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "token required"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

// Unwrap returns the underlying error.
func (e *AuthRequiredError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *AuthRequiredError) Is(target error) bool {
	return target == ErrAuthRequired
}

// TempmailError implements the Error interface.
func (e *AuthRequiredError) TempmailError() {}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err error
	URL string
}

func (e *NetworkError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("network error: %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// TempmailError implements the Error interface.
func (e *NetworkError) TempmailError() {}

// TimeoutError represents an operation that exceeded its deadline.
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
	Err       error
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("%s timed out after %v", e.Operation, e.Timeout)
	}
	return fmt.Sprintf("%s timed out", e.Operation)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// TempmailError implements the Error interface.
func (e *TimeoutError) TempmailError() {}

// ProtocolError represents an unexpected status code or response body.
// StatusCode is zero when the status was fine but the body was not.
type ProtocolError struct {
	StatusCode int
	Message    string
	URL        string
	Err        error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("protocol error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("protocol error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// TempmailError implements the Error interface.
func (e *ProtocolError) TempmailError() {}

// Validation returns a ValidationError for field.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Shape returns a ProtocolError describing an unexpected response body.
func Shape(format string, args ...any) error {
	return &ProtocolError{Message: fmt.Sprintf(format, args...)}
}
