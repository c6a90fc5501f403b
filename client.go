package tempmail

import (
	"context"
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/apierrors"
	"github.com/tempmail-sdk/client-go/internal/metrics"
	"github.com/tempmail-sdk/client-go/internal/provider"
)

// Operation names used in logs and metrics.
const (
	opCreate = "create"
	opList   = "list"
)

// DispatchResult is the outcome of one ListMessages call.
type DispatchResult struct {
	Provider ProviderID `json:"channel"`
	Address  string     `json:"email"`
	Messages []Message  `json:"messages"`

	// Succeeded is false when the provider kept failing after all retries.
	// Messages is then empty.
	Succeeded bool `json:"success"`
}

// Client dispatches mailbox and message requests across providers. It holds
// no mutable state and is safe for concurrent use.
type Client struct {
	adapters map[ProviderID]Provider
	order    []ProviderID
	policy   RetryPolicy
	retrier  *api.Retrier
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// buildAPIClient creates the shared HTTP transport from the config.
func buildAPIClient(cfg *clientConfig) (*api.Client, error) {
	apiOpts := []api.Option{
		api.WithLogger(cfg.logger),
	}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	}
	if cfg.proxy != "" {
		apiOpts = append(apiOpts, api.WithProxy(cfg.proxy))
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}
	if cfg.insecure {
		apiOpts = append(apiOpts, api.WithInsecure(true))
	}
	if cfg.rateLimit > 0 {
		burst := int(cfg.rateLimit)
		if burst < 1 {
			burst = 1
		}
		apiOpts = append(apiOpts, api.WithRateLimit(cfg.rateLimit, burst))
	}
	return api.New(apiOpts...)
}

// New creates a client over every supported provider.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		policy: api.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if err := cfg.policy.Validate(); err != nil {
		return nil, err
	}

	apiClient, err := buildAPIClient(cfg)
	if err != nil {
		return nil, err
	}

	adapters := cfg.adapters
	if adapters == nil {
		adapters = provider.All(apiClient)
	}

	m := metrics.New(cfg.registerer)
	c := &Client{
		adapters: make(map[ProviderID]Provider, len(adapters)),
		policy:   cfg.policy,
		logger:   cfg.logger,
		metrics:  m,
		retrier: &api.Retrier{
			Logger: cfg.logger,
			Sleep:  cfg.sleep,
			OnRetry: func(operation string, _ int, _ time.Duration) {
				m.RecordRetry(operation)
			},
		},
	}
	for _, p := range adapters {
		if _, dup := c.adapters[p.ID()]; dup {
			continue
		}
		c.adapters[p.ID()] = p
		c.order = append(c.order, p.ID())
	}
	return c, nil
}

// Providers returns the IDs this client dispatches to.
func (c *Client) Providers() []ProviderID {
	return append([]ProviderID(nil), c.order...)
}

// Adapter returns the adapter registered for id.
func (c *Client) Adapter(id ProviderID) (Provider, bool) {
	p, ok := c.adapters[id]
	return p, ok
}

func (c *Client) requestConfig(opts []RequestOption) *requestConfig {
	rc := &requestConfig{policy: c.policy}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// trialOrder puts preferred first and shuffles the rest.
func (c *Client) trialOrder(preferred ProviderID) []ProviderID {
	rest := make([]ProviderID, 0, len(c.order))
	for _, id := range c.order {
		if id != preferred {
			rest = append(rest, id)
		}
	}
	rand.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	if preferred == "" {
		return rest
	}
	return append([]ProviderID{preferred}, rest...)
}

// CreateMailbox creates a mailbox on the preferred provider, falling back to
// the others in random order. It returns nil and no error when every
// provider failed.
func (c *Client) CreateMailbox(ctx context.Context, opts ...RequestOption) (*Mailbox, error) {
	rc := c.requestConfig(opts)
	if rc.provider != "" {
		if _, ok := c.adapters[rc.provider]; !ok {
			return nil, apierrors.Validation("provider", "unknown provider %q", rc.provider)
		}
	}
	if err := rc.policy.Validate(); err != nil {
		return nil, err
	}

	log := c.logger.With(
		zap.String("dispatch_id", uuid.NewString()),
		zap.String("operation", opCreate),
	)
	start := time.Now()
	createOpts := CreateOptions{Domain: rc.domain, Duration: rc.duration}
	order := c.trialOrder(rc.provider)

	for _, id := range order {
		p := c.adapters[id]
		log.Info("trying provider", zap.String("provider", string(id)))

		mb, err := api.Execute(ctx, c.retrier, rc.policy, opCreate+":"+string(id),
			func(ctx context.Context) (*Mailbox, error) {
				mb, err := p.CreateMailbox(ctx, createOpts)
				if err == nil && (mb == nil || mb.Address == "") {
					err = apierrors.Shape("%s returned no mailbox", id)
				}
				return mb, err
			})
		c.metrics.RecordAttempt(string(id), opCreate, err)

		if err == nil {
			out := *mb
			out.Provider = id
			c.metrics.ObserveDispatch(opCreate, string(id), start)
			log.Info("mailbox created",
				zap.String("provider", string(id)),
				zap.String("address", out.Address),
			)
			return &out, nil
		}
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "create mailbox")
		}
		log.Warn("provider failed, trying next",
			zap.String("provider", string(id)),
			zap.Error(err),
		)
	}

	// Exhaustion is a soft failure on purpose: callers check for a nil mailbox.
	c.metrics.ProvidersExhausted.Inc()
	c.metrics.ObserveDispatch(opCreate, "", start)
	log.Error("all providers failed", zap.Int("tried", len(order)))
	return nil, nil
}

// ListMessages polls the mailbox's own provider and normalizes the result.
//
// Validation and authentication failures are returned as errors. Any other
// failure that survives the retries yields Succeeded=false and no error.
func (c *Client) ListMessages(ctx context.Context, mb Mailbox, opts ...RequestOption) (*DispatchResult, error) {
	if mb.Provider == "" {
		return nil, apierrors.Validation("provider", "mailbox has no provider")
	}
	p, ok := c.adapters[mb.Provider]
	if !ok {
		return nil, apierrors.Validation("provider", "unknown provider %q", mb.Provider)
	}
	if mb.Address == "" && p.Capabilities().RequiresAddress {
		return nil, apierrors.Validation("email", "address is required for %s", mb.Provider)
	}
	rc := c.requestConfig(opts)
	if err := rc.policy.Validate(); err != nil {
		return nil, err
	}

	id := mb.Provider
	log := c.logger.With(
		zap.String("dispatch_id", uuid.NewString()),
		zap.String("operation", opList),
		zap.String("provider", string(id)),
	)
	start := time.Now()

	raws, err := api.Execute(ctx, c.retrier, rc.policy, opList+":"+string(id),
		func(ctx context.Context) ([]RawMessage, error) {
			return p.ListMessages(ctx, mb)
		})
	c.metrics.RecordAttempt(string(id), opList, err)
	c.metrics.ObserveDispatch(opList, string(id), start)

	if err != nil {
		if errors.Is(err, ErrValidation) || errors.Is(err, ErrAuthRequired) {
			log.Warn("message poll rejected", zap.Error(err))
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "list messages")
		}
		// Soft failure on purpose: a flaky provider must not break a poll loop.
		log.Warn("message poll failed", zap.Error(err))
		return &DispatchResult{
			Provider: id,
			Address:  mb.Address,
			Messages: []Message{},
		}, nil
	}

	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		msgs = append(msgs, Normalize(raw, mb.Address))
	}
	log.Info("messages fetched", zap.Int("count", len(msgs)))

	return &DispatchResult{
		Provider:  id,
		Address:   mb.Address,
		Messages:  msgs,
		Succeeded: true,
	}, nil
}

// NewSession returns a session bound to this client.
func (c *Client) NewSession() *Session {
	return &Session{client: c}
}
