// Package delivery provides the polling strategy used to wait for new
// messages in a disposable mailbox.
//
// # Polling
//
// [PollingStrategy] repeatedly calls a [Fetcher] and reports only items it
// has not seen before, keyed by a [KeyFunc]. The interval adapts to traffic:
//
//   - It starts at 2s.
//   - After a poll with nothing new (or a failed poll) it grows by 1.5x, up to 30s.
//   - When something new arrives it resets to the initial interval.
//   - Up to 30% random jitter is added to every wait.
//
// # Usage
//
//	p := delivery.NewPollingStrategy(delivery.Config{}, fetch, func(m Message) string { return m.ID })
//	msgs, err := p.WaitFor(ctx, func(m Message) bool { return m.Subject == "Welcome" }, 1)
//
// [PollingStrategy.Watch] streams every new item to a callback until the
// context is cancelled.
//
// # Thread Safety
//
// A strategy may be polled from several goroutines, but WaitFor and Watch
// are meant to own it for their lifetime.
package delivery
