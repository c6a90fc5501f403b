// Package api provides the HTTP transport and retry executor shared by all
// provider adapters.
//
// # Transport
//
// [Client] wraps an *http.Client configured for the disposable-mail
// backends: optional proxy, optional insecure TLS, an overall timeout and an
// optional token-bucket rate limit. [Client.Do] reads the whole body and maps
// failures onto the error taxonomy in internal/apierrors:
//
//   - 401 and 403 become AuthRequiredError.
//   - Any other non-2xx status becomes ProtocolError.
//   - Deadline and net timeouts become TimeoutError.
//   - Dial, DNS and read failures become NetworkError.
//
// The transport never retries.
//
// [Client.GraphQL] posts a query either as JSON or as form fields and
// surfaces the first GraphQL error as a ProtocolError.
//
// # Retry Behavior
//
// [Execute] runs an operation under a [RetryPolicy]. Each attempt gets its own
// timeout. Between attempts it sleeps min(InitialDelay*2^attempt, MaxDelay)
// with no jitter. With the default policy a failing call is attempted three
// times with 1s and 2s pauses.
//
// [IsRetryable] is the default predicate. Validation, auth and cancellation
// errors stop immediately.
//
// # Thread Safety
//
// The [Client] type is safe for concurrent use.
package api
