package api

import (
	"context"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// RetryPolicy configures retry behavior for one provider call.
type RetryPolicy struct {
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the exponential delay.
	MaxDelay time.Duration
	// Timeout bounds each individual attempt.
	Timeout time.Duration
	// RetryIf reports whether an error is transient. Nil means IsRetryable.
	RetryIf func(error) bool
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   2,
		InitialDelay: time.Second,
		MaxDelay:     5 * time.Second,
		Timeout:      15 * time.Second,
		RetryIf:      IsRetryable,
	}
}

// Validate checks the policy invariants.
func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxRetries < 0:
		return apierrors.Validation("max_retries", "must not be negative")
	case p.InitialDelay <= 0:
		return apierrors.Validation("initial_delay", "must be positive")
	case p.MaxDelay < p.InitialDelay:
		return apierrors.Validation("max_delay", "must be at least initial_delay")
	case p.Timeout <= 0:
		return apierrors.Validation("timeout", "must be positive")
	}
	return nil
}

// Delay returns min(InitialDelay * 2^attempt, MaxDelay).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.InitialDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p RetryPolicy) shouldRetry(err error) bool {
	if p.RetryIf != nil {
		return p.RetryIf(err)
	}
	return IsRetryable(err)
}

// Retrier carries the side effects of Execute.
type Retrier struct {
	Logger *zap.Logger
	// Sleep waits between attempts. Nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each sleep.
	OnRetry func(operation string, attempt int, delay time.Duration)
}

func (r *Retrier) logger() *zap.Logger {
	if r == nil || r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) error {
	if r != nil && r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return Wait(ctx, d)
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute runs fn until it succeeds, returns a non-retryable error, or
// MaxRetries retries have been spent. Each attempt gets its own Timeout.
func Execute[T any](ctx context.Context, r *Retrier, p RetryPolicy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	log := r.logger().With(zap.String("operation", operation))

	for attempt := 0; ; attempt++ {
		v, err := runAttempt(ctx, p.Timeout, operation, fn)
		if err == nil {
			if attempt > 0 {
				log.Info("retry succeeded", zap.Int("attempt", attempt+1))
			}
			return v, nil
		}

		if ctx.Err() != nil {
			return zero, err
		}
		if !p.shouldRetry(err) {
			log.Debug("error is not retryable", zap.Error(err))
			return zero, err
		}
		if attempt >= p.MaxRetries {
			log.Error("retries exhausted", zap.Int("attempts", attempt+1), zap.Error(err))
			return zero, err
		}

		delay := p.Delay(attempt)
		log.Warn("attempt failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if r != nil && r.OnRetry != nil {
			r.OnRetry(operation, attempt, delay)
		}
		if serr := r.sleep(ctx, delay); serr != nil {
			return zero, err
		}
	}
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		var te *apierrors.TimeoutError
		if !errors.As(err, &te) || te.Timeout == 0 {
			err = &apierrors.TimeoutError{Operation: operation, Timeout: timeout, Err: err}
		}
	}
	return v, err
}

var (
	statusPattern = regexp.MustCompile(`:\s*(\d{3})\b`)

	networkKeywords = []string{
		"connection refused",
		"connection reset",
		"timeout",
		"timed out",
		"no such host",
		"dns",
		"eof",
		"broken pipe",
		"network is unreachable",
		"i/o timeout",
	}
)

// IsRetryable is the default transient-error predicate.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var (
		valErr  *apierrors.ValidationError
		authErr *apierrors.AuthRequiredError
	)
	switch {
	case errors.As(err, &valErr), errors.As(err, &authErr):
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, apierrors.ErrNetwork),
		errors.Is(err, apierrors.ErrTimeout),
		errors.Is(err, apierrors.ErrProtocol),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, kw := range networkKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	for _, m := range statusPattern.FindAllStringSubmatch(msg, -1) {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil && code >= 400 && code < 600 {
			return true
		}
	}
	return false
}
