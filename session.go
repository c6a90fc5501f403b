package tempmail

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/tempmail-sdk/client-go/internal/apierrors"
	"github.com/tempmail-sdk/client-go/internal/delivery"
)

// Session remembers the most recently generated mailbox so callers can poll
// it without passing it around.
type Session struct {
	client *Client

	mu      sync.RWMutex
	mailbox *Mailbox
}

// Generate creates a mailbox and makes it current. When every provider
// fails it returns nil and keeps the previous mailbox.
func (s *Session) Generate(ctx context.Context, opts ...RequestOption) (*Mailbox, error) {
	mb, err := s.client.CreateMailbox(ctx, opts...)
	if err != nil || mb == nil {
		return nil, err
	}

	s.mu.Lock()
	s.mailbox = mb
	s.mu.Unlock()

	out := *mb
	return &out, nil
}

// Mailbox returns a copy of the current mailbox, or nil before Generate
// has succeeded.
func (s *Session) Mailbox() *Mailbox {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mailbox == nil {
		return nil
	}
	out := *s.mailbox
	return &out
}

// CheckMessages lists messages for the current mailbox.
func (s *Session) CheckMessages(ctx context.Context, opts ...RequestOption) (*DispatchResult, error) {
	mb := s.Mailbox()
	if mb == nil {
		return nil, apierrors.ErrNotInitialized
	}
	return s.client.ListMessages(ctx, *mb, opts...)
}

// WaitForMessage polls the current mailbox until a message matching the
// options arrives. Messages already present count.
//
// Example:
//
//	msg, err := session.WaitForMessage(ctx,
//	    tempmail.WithSubjectRegex(regexp.MustCompile(`(?i)verify`)),
//	    tempmail.WithWaitTimeout(2*time.Minute),
//	)
func (s *Session) WaitForMessage(ctx context.Context, opts ...WaitOption) (*Message, error) {
	msgs, err := s.WaitForMessageCount(ctx, 1, opts...)
	if err != nil {
		return nil, err
	}
	return &msgs[0], nil
}

// WaitForMessageCount waits until at least count matching messages are found
// and returns the first count of them. Failed polls are retried on the next
// tick.
func (s *Session) WaitForMessageCount(ctx context.Context, count int, opts ...WaitOption) ([]Message, error) {
	if count < 0 {
		return nil, apierrors.Validation("count", "must be non-negative, got %d", count)
	}
	if count == 0 {
		return []Message{}, nil
	}
	mb := s.Mailbox()
	if mb == nil {
		return nil, apierrors.ErrNotInitialized
	}

	cfg := &waitConfig{
		timeout: defaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var fatal error
	fetch := func(ctx context.Context) ([]Message, error) {
		res, err := s.client.ListMessages(ctx, *mb)
		if err != nil {
			if errors.Is(err, ErrValidation) || errors.Is(err, ErrAuthRequired) {
				fatal = err
				cancel()
			}
			return nil, err
		}
		if !res.Succeeded {
			return nil, errors.Newf("poll of %s failed", mb.Provider)
		}
		return res.Messages, nil
	}

	poller := delivery.NewPollingStrategy(delivery.Config{
		InitialInterval: cfg.pollInterval,
		MaxBackoff:      cfg.maxBackoff,
	}, fetch, func(m Message) string { return messageKey(&m) })

	msgs, err := poller.WaitFor(ctx, func(m Message) bool { return cfg.Matches(&m) }, count)
	if fatal != nil {
		return nil, fatal
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &apierrors.TimeoutError{Operation: "wait for message", Timeout: cfg.timeout, Err: err}
		}
		return nil, err
	}
	return msgs, nil
}

// messageKey identifies a message across polls. Providers that omit IDs
// fall back to the visible fields.
func messageKey(m *Message) string {
	if m.ID != "" {
		return m.ID
	}
	return m.ReceivedAt + "\x00" + m.From + "\x00" + m.Subject
}
