package delivery

import (
	"context"
	"time"
)

// Default polling configuration values.
const (
	DefaultPollingInitialInterval   = 2 * time.Second
	DefaultPollingMaxBackoff        = 30 * time.Second
	DefaultPollingBackoffMultiplier = 1.5
	DefaultPollingJitterFactor      = 0.3
)

// Config holds polling configuration.
type Config struct {
	// InitialInterval is the starting interval between polls.
	// If zero, defaults to DefaultPollingInitialInterval.
	InitialInterval time.Duration

	// MaxBackoff is the maximum interval between polls.
	// If zero, defaults to DefaultPollingMaxBackoff.
	MaxBackoff time.Duration

	// BackoffMultiplier is the factor by which the interval
	// increases after each poll with nothing new.
	// If zero, defaults to DefaultPollingBackoffMultiplier.
	BackoffMultiplier float64

	// JitterFactor is the maximum random jitter added to
	// poll intervals (as a fraction of the interval).
	// If zero, defaults to DefaultPollingJitterFactor. Negative disables jitter.
	JitterFactor float64
}

func (c Config) withDefaults() Config {
	if c.InitialInterval <= 0 {
		c.InitialInterval = DefaultPollingInitialInterval
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultPollingMaxBackoff
	}
	if c.MaxBackoff < c.InitialInterval {
		c.MaxBackoff = c.InitialInterval
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = DefaultPollingBackoffMultiplier
	}
	switch {
	case c.JitterFactor == 0:
		c.JitterFactor = DefaultPollingJitterFactor
	case c.JitterFactor < 0:
		c.JitterFactor = 0
	}
	return c
}

// Fetcher returns the current contents of a mailbox. An error means this
// round failed; polling continues.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// KeyFunc returns the identity used to deduplicate items across polls.
type KeyFunc[T any] func(T) string
