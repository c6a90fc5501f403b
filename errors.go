package tempmail

import "github.com/tempmail-sdk/client-go/internal/apierrors"

// Sentinel errors for errors.Is() checks
var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = apierrors.ErrValidation

	// ErrAuthRequired is matched when a provider needs a token that is missing or rejected.
	ErrAuthRequired = apierrors.ErrAuthRequired

	// ErrNetwork is matched by connection, DNS and transport failures.
	ErrNetwork = apierrors.ErrNetwork

	// ErrTimeout is matched when a single attempt exceeds its deadline.
	ErrTimeout = apierrors.ErrTimeout

	// ErrProtocol is matched when a provider answers with a bad status or body.
	ErrProtocol = apierrors.ErrProtocol

	// ErrNotInitialized is returned by Session.CheckMessages before Generate succeeds.
	ErrNotInitialized = apierrors.ErrNotInitialized
)

// Error is implemented by all client errors.
type Error = apierrors.Error

// ValidationError is returned before any network call when a request is malformed.
type ValidationError = apierrors.ValidationError

// AuthRequiredError indicates a provider needs a token and none was usable.
type AuthRequiredError = apierrors.AuthRequiredError

// NetworkError represents a connection-level failure.
type NetworkError = apierrors.NetworkError

// TimeoutError represents an attempt that exceeded its per-call timeout.
type TimeoutError = apierrors.TimeoutError

// ProtocolError represents an unexpected status or response shape.
type ProtocolError = apierrors.ProtocolError
