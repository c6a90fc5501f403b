package apierrors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"validation with field", &ValidationError{Field: "provider", Message: "is required"}, "validation failed: provider: is required"},
		{"validation without field", &ValidationError{Message: "bad"}, "validation failed: bad"},
		{"auth default message", &AuthRequiredError{Provider: "mail-tm"}, "mail-tm: token required"},
		{"auth wrapped", &AuthRequiredError{Provider: "awamail", Message: "rejected", Err: errors.New("401")}, "awamail: rejected: 401"},
		{"network with url", &NetworkError{Err: errors.New("refused"), URL: "https://x"}, "network error: https://x: refused"},
		{"timeout", &TimeoutError{Operation: "create", Timeout: 15 * time.Second}, "create timed out after 15s"},
		{"protocol status", &ProtocolError{StatusCode: 502}, "HTTP 502"},
		{"protocol status message", &ProtocolError{StatusCode: 500, Message: "boom"}, "HTTP 500: boom"},
		{"protocol shape", Shape("missing %s", "email"), "protocol error: missing email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"validation", Validation("email", "is required"), ErrValidation},
		{"auth", &AuthRequiredError{Provider: "dropmail"}, ErrAuthRequired},
		{"network", &NetworkError{Err: errors.New("eof")}, ErrNetwork},
		{"timeout", &TimeoutError{Operation: "list"}, ErrTimeout},
		{"protocol", &ProtocolError{StatusCode: 404}, ErrProtocol},
		{"wrapped protocol", fmt.Errorf("ctx: %w", &ProtocolError{StatusCode: 500}), ErrProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.target)
			}
			var marker Error
			if !errors.As(tt.err, &marker) {
				t.Errorf("%T does not implement Error", tt.err)
			}
		})
	}
}

func TestSentinelMismatch(t *testing.T) {
	if errors.Is(&NetworkError{Err: errors.New("x")}, ErrProtocol) {
		t.Error("NetworkError should not match ErrProtocol")
	}
	if errors.Is(&ValidationError{}, ErrAuthRequired) {
		t.Error("ValidationError should not match ErrAuthRequired")
	}
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("inner")
	wrapped := []error{
		&NetworkError{Err: inner},
		&TimeoutError{Err: inner},
		&ProtocolError{Err: inner},
		&AuthRequiredError{Err: inner},
	}
	for _, err := range wrapped {
		if !errors.Is(err, inner) {
			t.Errorf("%T does not unwrap to inner error", err)
		}
	}
}
