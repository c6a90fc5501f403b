package delivery

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// PollingStrategy polls one mailbox with adaptive backoff: the interval grows
// while nothing new arrives and resets when something does.
type PollingStrategy[T any] struct {
	cfg   Config
	fetch Fetcher[T]
	key   KeyFunc[T]

	mu       sync.Mutex
	seen     map[string]struct{}
	interval time.Duration
}

// NewPollingStrategy creates a new polling strategy.
func NewPollingStrategy[T any](cfg Config, fetch Fetcher[T], key KeyFunc[T]) *PollingStrategy[T] {
	cfg = cfg.withDefaults()
	return &PollingStrategy[T]{
		cfg:      cfg,
		fetch:    fetch,
		key:      key,
		seen:     make(map[string]struct{}),
		interval: cfg.InitialInterval,
	}
}

// Name returns the strategy name.
func (p *PollingStrategy[T]) Name() string {
	return "polling"
}

// Poll fetches once and returns the items not seen in earlier polls.
func (p *PollingStrategy[T]) Poll(ctx context.Context) ([]T, error) {
	items, err := p.fetch(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.backoff()
		return nil, err
	}

	var fresh []T
	for _, item := range items {
		k := p.key(item)
		if _, ok := p.seen[k]; ok {
			continue
		}
		p.seen[k] = struct{}{}
		fresh = append(fresh, item)
	}

	if len(fresh) == 0 {
		p.backoff()
	} else {
		p.interval = p.cfg.InitialInterval
	}
	return fresh, nil
}

func (p *PollingStrategy[T]) backoff() {
	next := time.Duration(float64(p.interval) * p.cfg.BackoffMultiplier)
	if next > p.cfg.MaxBackoff {
		next = p.cfg.MaxBackoff
	}
	p.interval = next
}

// Interval returns the current base interval without jitter.
func (p *PollingStrategy[T]) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

func (p *PollingStrategy[T]) getWaitDuration() time.Duration {
	interval := p.Interval()
	// Add jitter to prevent thundering herd
	jitter := time.Duration(rand.Float64() * p.cfg.JitterFactor * float64(interval))
	return interval + jitter
}

func (p *PollingStrategy[T]) sleep(ctx context.Context) error {
	timer := time.NewTimer(p.getWaitDuration())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Watch calls handler for every new item until ctx is done. It polls
// immediately and returns ctx.Err().
func (p *PollingStrategy[T]) Watch(ctx context.Context, handler func(T)) error {
	for {
		fresh, err := p.Poll(ctx)
		if err == nil {
			for _, item := range fresh {
				handler(item)
			}
		}
		if err := p.sleep(ctx); err != nil {
			return err
		}
	}
}

// WaitFor polls until count new items satisfy match and returns the first
// count of them in arrival order.
func (p *PollingStrategy[T]) WaitFor(ctx context.Context, match func(T) bool, count int) ([]T, error) {
	if count < 1 {
		count = 1
	}
	var matching []T
	for {
		fresh, err := p.Poll(ctx)
		if err == nil {
			for _, item := range fresh {
				if match == nil || match(item) {
					matching = append(matching, item)
				}
			}
			if len(matching) >= count {
				return matching[:count], nil
			}
		}
		if err := p.sleep(ctx); err != nil {
			return nil, err
		}
	}
}
