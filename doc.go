// Package tempmail creates disposable mailboxes on public temporary-email
// services and reads the messages they receive, with one data shape no
// matter which service answered.
//
// # Quick Start
//
//	client, err := tempmail.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mb, err := client.CreateMailbox(ctx, tempmail.WithProvider(tempmail.ProviderMailTM))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if mb == nil {
//	    log.Fatal("no provider is available right now")
//	}
//
//	res, err := client.ListMessages(ctx, *mb)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, m := range res.Messages {
//	    fmt.Println(m.From, m.Subject)
//	}
//
// # Providers
//
// Eleven services are supported; see [ListProviders]. CreateMailbox tries
// the preferred provider first and then the others in random order, so a
// single outage does not stop mailbox creation. A mailbox always belongs to
// the provider that issued it and ListMessages only ever talks to that one.
//
// # Soft Failures
//
// Two outcomes are reported as values rather than errors:
//
//   - CreateMailbox returns a nil mailbox when every provider failed.
//   - ListMessages returns a result with Succeeded=false when the provider
//     kept failing after all retries.
//
// Malformed requests return a [ValidationError] before any network call, and
// a missing or rejected token returns an [AuthRequiredError].
//
// # Retries
//
// Every provider call runs under a [RetryPolicy]: by default 2 retries with
// exponential backoff from 1s to 5s and a 15s timeout per attempt. Override
// it per client with [WithRetryPolicy] or per call with [WithCallRetryPolicy].
//
// # Sessions
//
// A [Session] keeps the last generated mailbox and can wait for mail:
//
//	s := client.NewSession()
//	if _, err := s.Generate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	msg, err := s.WaitForMessage(ctx, tempmail.WithSubject("Welcome"))
//
// # Configuration
//
// [FromEnv] reads TEMPMAIL_* variables (and a .env file) for proxy, timeout,
// retry and logging settings. Logging uses zap and is silent by default.
package tempmail
