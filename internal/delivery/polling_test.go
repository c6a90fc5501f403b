package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeInbox struct {
	mu    sync.Mutex
	items []string
	err   error
	calls int
}

func (f *fakeInbox) fetch(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.items...), nil
}

func (f *fakeInbox) add(items ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, items...)
}

func identity(s string) string { return s }

func fastConfig() Config {
	return Config{
		InitialInterval:   time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
		JitterFactor:      -1,
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.InitialInterval != 2*time.Second {
		t.Errorf("InitialInterval = %v, want 2s", cfg.InitialInterval)
	}
	if cfg.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", cfg.MaxBackoff)
	}
	if cfg.BackoffMultiplier != 1.5 {
		t.Errorf("BackoffMultiplier = %v, want 1.5", cfg.BackoffMultiplier)
	}
	if cfg.JitterFactor != 0.3 {
		t.Errorf("JitterFactor = %v, want 0.3", cfg.JitterFactor)
	}
}

func TestPollingStrategy_Name(t *testing.T) {
	p := NewPollingStrategy(Config{}, (&fakeInbox{}).fetch, identity)
	if p.Name() != "polling" {
		t.Errorf("Name() = %s, want polling", p.Name())
	}
}

func TestPollingStrategy_PollDeduplicates(t *testing.T) {
	inbox := &fakeInbox{items: []string{"a", "b"}}
	p := NewPollingStrategy(fastConfig(), inbox.fetch, identity)

	fresh, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if len(fresh) != 2 {
		t.Fatalf("first Poll() = %v, want 2 items", fresh)
	}

	inbox.add("c")
	fresh, err = p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if len(fresh) != 1 || fresh[0] != "c" {
		t.Errorf("second Poll() = %v, want [c]", fresh)
	}
}

func TestPollingStrategy_Backoff(t *testing.T) {
	inbox := &fakeInbox{}
	cfg := Config{
		InitialInterval:   time.Second,
		MaxBackoff:        3 * time.Second,
		BackoffMultiplier: 2,
	}
	p := NewPollingStrategy(cfg, inbox.fetch, identity)

	want := []time.Duration{2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		if _, err := p.Poll(context.Background()); err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
		if got := p.Interval(); got != w {
			t.Errorf("after empty poll %d: Interval() = %v, want %v", i+1, got, w)
		}
	}

	inbox.add("x")
	if _, err := p.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if got := p.Interval(); got != time.Second {
		t.Errorf("after new item: Interval() = %v, want reset to 1s", got)
	}
}

func TestPollingStrategy_ErrorBacksOff(t *testing.T) {
	inbox := &fakeInbox{err: errors.New("poll failed")}
	p := NewPollingStrategy(Config{InitialInterval: time.Second, BackoffMultiplier: 2}, inbox.fetch, identity)

	if _, err := p.Poll(context.Background()); err == nil {
		t.Fatal("Poll() error = nil, want error")
	}
	if got := p.Interval(); got != 2*time.Second {
		t.Errorf("Interval() = %v, want 2s", got)
	}
}

func TestPollingStrategy_getWaitDuration(t *testing.T) {
	p := NewPollingStrategy(Config{InitialInterval: 2 * time.Second}, (&fakeInbox{}).fetch, identity)

	max := 2*time.Second + time.Duration(0.3*float64(2*time.Second))
	for i := 0; i < 10; i++ {
		d := p.getWaitDuration()
		if d < 2*time.Second || d > max {
			t.Errorf("getWaitDuration() = %v, want within [2s, %v]", d, max)
		}
	}
}

func TestPollingStrategy_WaitFor(t *testing.T) {
	inbox := &fakeInbox{items: []string{"skip-1"}}
	p := NewPollingStrategy(fastConfig(), inbox.fetch, identity)

	go func() {
		time.Sleep(5 * time.Millisecond)
		inbox.add("want-1", "skip-2")
		time.Sleep(5 * time.Millisecond)
		inbox.add("want-2", "want-3")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := p.WaitFor(ctx, func(s string) bool { return s[:4] == "want" }, 2)
	if err != nil {
		t.Fatalf("WaitFor() error = %v", err)
	}
	if len(got) != 2 || got[0] != "want-1" || got[1] != "want-2" {
		t.Errorf("WaitFor() = %v, want [want-1 want-2]", got)
	}
}

func TestPollingStrategy_WaitForSurvivesErrors(t *testing.T) {
	inbox := &fakeInbox{err: errors.New("down")}
	p := NewPollingStrategy(fastConfig(), inbox.fetch, identity)

	go func() {
		time.Sleep(5 * time.Millisecond)
		inbox.mu.Lock()
		inbox.err = nil
		inbox.items = []string{"late"}
		inbox.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := p.WaitFor(ctx, nil, 1)
	if err != nil {
		t.Fatalf("WaitFor() error = %v", err)
	}
	if len(got) != 1 || got[0] != "late" {
		t.Errorf("WaitFor() = %v, want [late]", got)
	}
}

func TestPollingStrategy_WaitForTimeout(t *testing.T) {
	p := NewPollingStrategy(fastConfig(), (&fakeInbox{}).fetch, identity)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.WaitFor(ctx, nil, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitFor() error = %v, want deadline exceeded", err)
	}
}

func TestPollingStrategy_Watch(t *testing.T) {
	inbox := &fakeInbox{items: []string{"a"}}
	p := NewPollingStrategy(fastConfig(), inbox.fetch, identity)

	ctx, cancel := context.WithCancel(context.Background())
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx, func(s string) {
			got = append(got, s)
			if s == "a" {
				inbox.add("b")
			}
			if s == "b" {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("Watch() did not return")
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("handled = %v, want [a b]", got)
	}
}
