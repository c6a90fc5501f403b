package tempmail

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/config"
	"github.com/tempmail-sdk/client-go/internal/logging"
)

const defaultWaitTimeout = 60 * time.Second

// RetryPolicy configures how one provider call is retried.
type RetryPolicy = api.RetryPolicy

// DefaultRetryPolicy returns 2 retries with 1s..5s exponential backoff and a
// 15s per-attempt timeout.
func DefaultRetryPolicy() RetryPolicy {
	return api.DefaultRetryPolicy()
}

// IsRetryable is the default transient-error predicate of RetryPolicy.
func IsRetryable(err error) bool {
	return api.IsRetryable(err)
}

// clientConfig holds configuration for the client.
type clientConfig struct {
	adapters   []Provider
	logger     *zap.Logger
	registerer prometheus.Registerer
	policy     RetryPolicy

	proxy      string
	timeout    time.Duration
	insecure   bool
	rateLimit  float64
	httpClient *http.Client

	// sleep replaces the backoff timer.
	sleep func(ctx context.Context, d time.Duration) error
	err   error
}

// requestConfig holds per-call options.
type requestConfig struct {
	provider ProviderID
	domain   string
	duration time.Duration
	policy   RetryPolicy
}

// waitConfig holds configuration for waiting on messages.
type waitConfig struct {
	subject      string
	subjectRegex *regexp.Regexp
	from         string
	fromRegex    *regexp.Regexp
	predicate    func(*Message) bool
	timeout      time.Duration
	pollInterval time.Duration
	maxBackoff   time.Duration
}

// Option configures the client.
type Option func(*clientConfig)

// RequestOption configures a single create or list call.
type RequestOption func(*requestConfig)

// WaitOption configures message waiting.
type WaitOption func(*waitConfig)

// WithAdapters replaces the built-in provider set.
func WithAdapters(adapters ...Provider) Option {
	return func(c *clientConfig) {
		c.adapters = adapters
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithMetricsRegisterer registers the dispatch metrics on reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(c *clientConfig) {
		c.registerer = reg
	}
}

// WithRetryPolicy sets the default retry policy for every call.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *clientConfig) {
		c.policy = p
	}
}

// WithProxy routes all provider traffic through an http, https or socks5 proxy.
func WithProxy(proxyURL string) Option {
	return func(c *clientConfig) {
		c.proxy = proxyURL
	}
}

// WithTimeout sets the overall HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithInsecure disables TLS certificate verification.
func WithInsecure(insecure bool) Option {
	return func(c *clientConfig) {
		c.insecure = insecure
	}
}

// WithRateLimit caps outgoing requests per second across all providers.
// Zero disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *clientConfig) {
		c.rateLimit = rps
	}
}

// WithHTTPClient sets a custom HTTP client. Proxy and TLS options are ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithConfig applies loaded settings: transport, default retry policy and logger.
func WithConfig(cfg *config.Config) Option {
	return func(c *clientConfig) {
		if cfg == nil {
			return
		}
		if err := cfg.Validate(); err != nil {
			c.err = err
			return
		}
		c.proxy = cfg.Proxy
		c.timeout = cfg.Timeout
		c.insecure = cfg.Insecure
		c.rateLimit = cfg.RateLimit
		c.policy.MaxRetries = cfg.Retry.MaxRetries
		c.policy.InitialDelay = cfg.Retry.InitialDelay
		c.policy.MaxDelay = cfg.Retry.MaxDelay
		c.policy.Timeout = cfg.Timeout

		logger, err := logging.New(cfg.Log)
		if err != nil {
			c.err = err
			return
		}
		c.logger = logger
	}
}

// FromEnv loads settings from .env and TEMPMAIL_* variables and applies them.
func FromEnv() Option {
	return func(c *clientConfig) {
		cfg, err := config.Load()
		if err != nil {
			c.err = err
			return
		}
		WithConfig(cfg)(c)
	}
}

// WithProvider sets the preferred provider. For CreateMailbox it is tried
// first; list calls always use the mailbox's own provider.
func WithProvider(id ProviderID) RequestOption {
	return func(c *requestConfig) {
		c.provider = id
	}
}

// WithDomain asks for an address on a specific domain, where supported.
func WithDomain(domain string) RequestOption {
	return func(c *requestConfig) {
		c.domain = domain
	}
}

// WithDuration asks for a mailbox lifetime, where supported.
func WithDuration(d time.Duration) RequestOption {
	return func(c *requestConfig) {
		c.duration = d
	}
}

// WithCallRetryPolicy overrides the client's retry policy for one call.
func WithCallRetryPolicy(p RetryPolicy) RequestOption {
	return func(c *requestConfig) {
		c.policy = p
	}
}

// WithSubject filters messages by exact subject match.
func WithSubject(subject string) WaitOption {
	return func(c *waitConfig) {
		c.subject = subject
	}
}

// WithSubjectRegex filters messages by subject regex.
func WithSubjectRegex(pattern *regexp.Regexp) WaitOption {
	return func(c *waitConfig) {
		c.subjectRegex = pattern
	}
}

// WithFrom filters messages by exact sender match.
func WithFrom(from string) WaitOption {
	return func(c *waitConfig) {
		c.from = from
	}
}

// WithFromRegex filters messages by sender regex.
func WithFromRegex(pattern *regexp.Regexp) WaitOption {
	return func(c *waitConfig) {
		c.fromRegex = pattern
	}
}

// WithPredicate filters messages by custom predicate.
func WithPredicate(fn func(*Message) bool) WaitOption {
	return func(c *waitConfig) {
		c.predicate = fn
	}
}

// WithWaitTimeout sets the timeout for waiting.
// Default: 60 seconds
func WithWaitTimeout(timeout time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = timeout
	}
}

// WithPollInterval sets the initial polling interval.
// Default: 2 seconds
func WithPollInterval(interval time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.pollInterval = interval
	}
}

// WithMaxPollInterval caps the polling backoff.
// Default: 30 seconds
func WithMaxPollInterval(interval time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.maxBackoff = interval
	}
}

// Matches checks if a message matches the wait criteria.
func (w *waitConfig) Matches(m *Message) bool {
	if w.subject != "" && m.Subject != w.subject {
		return false
	}
	if w.subjectRegex != nil && !w.subjectRegex.MatchString(m.Subject) {
		return false
	}
	if w.from != "" && m.From != w.from {
		return false
	}
	if w.fromRegex != nil && !w.fromRegex.MatchString(m.From) {
		return false
	}
	if w.predicate != nil && !w.predicate(m) {
		return false
	}
	return true
}
