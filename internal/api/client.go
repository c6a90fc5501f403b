package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bitly/go-simplejson"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// DefaultUserAgent is sent when a request does not set its own User-Agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

const (
	defaultTimeout = 15 * time.Second
	maxBodySize    = 10 << 20
)

// Client is the shared HTTP transport used by every provider adapter.
// It never retries; retry policy belongs to the caller.
type Client struct {
	httpClient *http.Client
	noRedirect *http.Client
	userAgent  string
	limiter    *rate.Limiter
	logger     *zap.Logger

	proxy    string
	insecure bool
	timeout  time.Duration
	custom   bool
}

// Option configures the API client.
type Option func(*Client)

// WithProxy routes every request through the given proxy URL (http, https or socks5).
func WithProxy(proxy string) Option {
	return func(c *Client) {
		c.proxy = proxy
	}
}

// WithInsecure disables TLS certificate verification.
func WithInsecure(insecure bool) Option {
	return func(c *Client) {
		c.insecure = insecure
	}
}

// WithTimeout sets the overall HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRateLimit caps outgoing requests to rps per second. Zero disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the underlying HTTP client. Proxy and TLS options
// are ignored when a custom client is supplied.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
			c.custom = true
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a new API client.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		userAgent: DefaultUserAgent,
		logger:    zap.NewNop(),
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if !c.custom {
		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
		if c.proxy != "" {
			proxyURL, err := url.Parse(c.proxy)
			if err != nil {
				return nil, &apierrors.ValidationError{Field: "proxy", Message: err.Error()}
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
		if c.insecure {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		}
		c.httpClient = &http.Client{Transport: transport, Timeout: c.timeout}
	}

	c.noRedirect = &http.Client{
		Transport: c.httpClient.Transport,
		Timeout:   c.httpClient.Timeout,
		Jar:       c.httpClient.Jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return c, nil
}

// Request describes one outgoing call.
type Request struct {
	Method string
	URL    string
	Header http.Header

	// At most one of JSON, Form and Body is used, in that order.
	JSON any
	Form url.Values
	Body []byte

	// NoRedirect returns 3xx responses as-is instead of following them.
	NoRedirect bool

	// Authenticated marks a request that carries a mailbox credential.
	// Only then is a 401 or 403 reported as AuthRequiredError.
	Authenticated bool

	// Provider labels auth errors raised for this request.
	Provider string
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Cookies    []*http.Cookie
	Body       []byte
}

// JSON decodes the body loosely. Numbers are kept as json.Number.
func (r *Response) JSON() (*simplejson.Json, error) {
	js, err := simplejson.NewJson(r.Body)
	if err != nil {
		return nil, &apierrors.ProtocolError{Message: "invalid JSON body", Err: err}
	}
	return js, nil
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &apierrors.ProtocolError{Message: "invalid JSON body", Err: err}
	}
	return nil
}

// Cookie returns the named cookie set by the response, or nil.
func (r *Response) Cookie(name string) *http.Cookie {
	for _, ck := range r.Cookies {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

// Do sends req and reads the whole response. Non-2xx statuses become
// ProtocolError, except 401 and 403 on an authenticated request which
// become AuthRequiredError. Anti-bot walls answer tokenless calls with 403
// too, and those stay retryable.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, classifyTransportError(err, req)
		}
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.Body != nil:
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	hc := c.httpClient
	if req.NoRedirect {
		hc = c.noRedirect
	}

	start := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err, req)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classifyTransportError(err, req)
	}

	c.logger.Debug("provider request",
		zap.String("method", method),
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Cookies:    resp.Cookies(),
		Body:       data,
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return out, nil
	case req.NoRedirect && resp.StatusCode >= 300 && resp.StatusCode < 400:
		return out, nil
	case req.Authenticated && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden):
		return nil, &apierrors.AuthRequiredError{
			Provider: req.Provider,
			Message:  "rejected credentials",
			Err:      &apierrors.ProtocolError{StatusCode: resp.StatusCode, Message: snippet(data), URL: req.URL},
		}
	}
	return nil, &apierrors.ProtocolError{
		StatusCode: resp.StatusCode,
		Message:    snippet(data),
		URL:        req.URL,
	}
}

func classifyTransportError(err error, req *Request) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &apierrors.TimeoutError{Operation: req.Method + " " + req.URL, Err: err}
	}
	return &apierrors.NetworkError{Err: err, URL: req.URL}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
