package tempmail

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/provider"
)

// fakeProvider is a scripted adapter that records how often it was called.
type fakeProvider struct {
	id   ProviderID
	caps Capabilities

	mu          sync.Mutex
	createCalls int
	listCalls   int
	createErr   error
	createFails int // fail this many creates before succeeding
	listErr     error
	listFails   int
	raws        []RawMessage
}

func newFake(id ProviderID) *fakeProvider {
	return &fakeProvider{id: id, caps: Capabilities{RequiresAddress: true}}
}

func (f *fakeProvider) ID() ProviderID             { return f.id }
func (f *fakeProvider) Capabilities() Capabilities { return f.caps }

func (f *fakeProvider) CreateMailbox(_ context.Context, _ CreateOptions) (*Mailbox, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createCalls <= f.createFails {
		return nil, &NetworkError{Err: errors.New("connection reset")}
	}
	return &Mailbox{Provider: f.id, Address: "box@" + string(f.id) + ".test", Token: "tok"}, nil
}

func (f *fakeProvider) ListMessages(_ context.Context, _ Mailbox) ([]RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.listCalls <= f.listFails {
		return nil, &NetworkError{Err: errors.New("connection reset")}
	}
	return f.raws, nil
}

func (f *fakeProvider) calls() (create, list int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.listCalls
}

func noSleep() Option {
	return func(c *clientConfig) {
		c.sleep = func(context.Context, time.Duration) error { return nil }
	}
}

func newFakeClient(t *testing.T, fakes ...*fakeProvider) *Client {
	t.Helper()
	adapters := make([]Provider, len(fakes))
	for i, f := range fakes {
		adapters[i] = f
	}
	c, err := New(WithAdapters(adapters...), noSleep())
	require.NoError(t, err)
	return c
}

var transient = &NetworkError{Err: errors.New("dial tcp: connection refused")}

func TestNew_DefaultProviders(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, provider.IDs(), c.Providers())
}

func TestNew_InvalidRetryPolicy(t *testing.T) {
	_, err := New(WithRetryPolicy(RetryPolicy{MaxRetries: 1, InitialDelay: time.Second, MaxDelay: time.Millisecond, Timeout: time.Second}))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNew_InvalidProxy(t *testing.T) {
	_, err := New(WithProxy("://bad"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNew_MetricsRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newFake("a")
	a.createErr = transient

	c, err := New(WithAdapters(a), WithMetricsRegisterer(reg), noSleep())
	require.NoError(t, err)

	mb, err := c.CreateMailbox(context.Background())
	require.NoError(t, err)
	assert.Nil(t, mb)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "tempmail_providers_exhausted_total")
	assert.Contains(t, names, "tempmail_retry_sleeps_total")
}

func TestCreateMailbox_PreferredFirst(t *testing.T) {
	a, b, c := newFake("a"), newFake("b"), newFake("c")
	client := newFakeClient(t, a, b, c)

	mb, err := client.CreateMailbox(context.Background(), WithProvider("b"))
	require.NoError(t, err)
	require.NotNil(t, mb)

	assert.Equal(t, ProviderID("b"), mb.Provider)
	aCreate, _ := a.calls()
	cCreate, _ := c.calls()
	assert.Zero(t, aCreate)
	assert.Zero(t, cCreate)
}

func TestCreateMailbox_FallsBackAfterRetries(t *testing.T) {
	pref, other := newFake("pref"), newFake("other")
	pref.createErr = transient
	client := newFakeClient(t, pref, other)

	mb, err := client.CreateMailbox(context.Background(), WithProvider("pref"))
	require.NoError(t, err)
	require.NotNil(t, mb)

	assert.Equal(t, ProviderID("other"), mb.Provider)
	prefCreate, _ := pref.calls()
	assert.Equal(t, 3, prefCreate, "default policy allows 2 retries")
}

func TestCreateMailbox_RetrySucceeds(t *testing.T) {
	a := newFake("a")
	a.createFails = 2
	client := newFakeClient(t, a)

	mb, err := client.CreateMailbox(context.Background())
	require.NoError(t, err)
	require.NotNil(t, mb)

	create, _ := a.calls()
	assert.Equal(t, 3, create)
	assert.Equal(t, float64(2), testutil.ToFloat64(client.metrics.RetrySleeps.WithLabelValues("create:a")))
}

func TestCreateMailbox_NonRetryableSkipsToNext(t *testing.T) {
	a, b := newFake("a"), newFake("b")
	a.createErr = &AuthRequiredError{Provider: "a", Message: "expired"}
	client := newFakeClient(t, a, b)

	mb, err := client.CreateMailbox(context.Background(), WithProvider("a"))
	require.NoError(t, err)
	require.NotNil(t, mb)

	aCreate, _ := a.calls()
	assert.Equal(t, 1, aCreate)
	assert.Equal(t, ProviderID("b"), mb.Provider)
}

func TestCreateMailbox_AllFailReturnsNil(t *testing.T) {
	fakes := []*fakeProvider{newFake("a"), newFake("b"), newFake("c")}
	for _, f := range fakes {
		f.createErr = transient
	}
	client := newFakeClient(t, fakes...)

	mb, err := client.CreateMailbox(context.Background())
	require.NoError(t, err)
	assert.Nil(t, mb)

	for _, f := range fakes {
		create, _ := f.calls()
		assert.Equal(t, 3, create, "provider %s", f.id)
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(client.metrics.ProvidersExhausted))
}

func TestCreateMailbox_UnknownPreferred(t *testing.T) {
	a := newFake("a")
	client := newFakeClient(t, a)

	mb, err := client.CreateMailbox(context.Background(), WithProvider("nope"))
	assert.Nil(t, mb)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "provider", valErr.Field)

	create, _ := a.calls()
	assert.Zero(t, create)
}

func TestCreateMailbox_EmptyResultFallsThrough(t *testing.T) {
	empty := &emptyProvider{fakeProvider: newFake("empty")}
	ok := newFake("ok")
	client, err := New(WithAdapters(empty, ok), noSleep(),
		WithRetryPolicy(RetryPolicy{MaxRetries: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Timeout: time.Second}))
	require.NoError(t, err)

	mb, err := client.CreateMailbox(context.Background(), WithProvider("empty"))
	require.NoError(t, err)
	require.NotNil(t, mb)
	assert.Equal(t, ProviderID("ok"), mb.Provider)
}

type emptyProvider struct{ *fakeProvider }

func (e *emptyProvider) CreateMailbox(context.Context, CreateOptions) (*Mailbox, error) {
	return &Mailbox{Provider: e.id}, nil
}

func TestCreateMailbox_ParentCancel(t *testing.T) {
	a, b := newFake("a"), newFake("b")
	client := newFakeClient(t, a, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a.createErr = context.Canceled
	b.createErr = context.Canceled
	mb, err := client.CreateMailbox(ctx)
	assert.Nil(t, mb)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateMailbox_ShufflesWithoutPreference(t *testing.T) {
	fakes := make([]*fakeProvider, 0, 4)
	for _, id := range []ProviderID{"a", "b", "c", "d"} {
		fakes = append(fakes, newFake(id))
	}
	client := newFakeClient(t, fakes...)

	seen := map[ProviderID]bool{}
	for i := 0; i < 200 && len(seen) < len(fakes); i++ {
		mb, err := client.CreateMailbox(context.Background())
		require.NoError(t, err)
		seen[mb.Provider] = true
	}
	assert.Len(t, seen, len(fakes))
}

func TestTrialOrder(t *testing.T) {
	client := newFakeClient(t, newFake("a"), newFake("b"), newFake("c"))

	order := client.trialOrder("b")
	require.Len(t, order, 3)
	assert.Equal(t, ProviderID("b"), order[0])
	assert.ElementsMatch(t, []ProviderID{"a", "c"}, order[1:])

	assert.ElementsMatch(t, []ProviderID{"a", "b", "c"}, client.trialOrder(""))
}

func TestListMessages_Validation(t *testing.T) {
	lol := newFake("lol")
	lol.caps = Capabilities{RequiresToken: true}
	strict := newFake("strict")
	client := newFakeClient(t, lol, strict)

	tests := []struct {
		name  string
		mb    Mailbox
		field string
	}{
		{"missing provider", Mailbox{Address: "x@y"}, "provider"},
		{"unknown provider", Mailbox{Provider: "nope", Address: "x@y"}, "provider"},
		{"missing address", Mailbox{Provider: "strict"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := client.ListMessages(context.Background(), tt.mb)
			assert.Nil(t, res)
			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tt.field, valErr.Field)
		})
	}

	_, strictList := strict.calls()
	assert.Zero(t, strictList)

	res, err := client.ListMessages(context.Background(), Mailbox{Provider: "lol", Token: "t"})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
}

func TestListMessages_Normalizes(t *testing.T) {
	a := newFake("a")
	a.raws = []RawMessage{
		{"id": "1", "from": "alice@example.com", "subject": "Hi", "text": "hello", "date": int64(1700000000000)},
		{"mail_id": "2", "sender": "bob@example.com", "to": "other@a.test", "seen": true},
	}
	other := newFake("other")
	client := newFakeClient(t, a, other)

	mb := Mailbox{Provider: "a", Address: "me@a.test", Token: "tok"}
	res, err := client.ListMessages(context.Background(), mb)
	require.NoError(t, err)

	assert.True(t, res.Succeeded)
	assert.Equal(t, ProviderID("a"), res.Provider)
	assert.Equal(t, "me@a.test", res.Address)
	require.Len(t, res.Messages, 2)

	assert.Equal(t, Message{
		ID:          "1",
		From:        "alice@example.com",
		To:          "me@a.test",
		Subject:     "Hi",
		Text:        "hello",
		ReceivedAt:  "2023-11-14T22:13:20.000Z",
		Attachments: []Attachment{},
	}, res.Messages[0])
	assert.Equal(t, "other@a.test", res.Messages[1].To)
	assert.True(t, res.Messages[1].IsRead)

	_, otherList := other.calls()
	assert.Zero(t, otherList, "list must only call the mailbox's provider")
}

func TestListMessages_EmptyInbox(t *testing.T) {
	a := newFake("a")
	client := newFakeClient(t, a)

	res, err := client.ListMessages(context.Background(), Mailbox{Provider: "a", Address: "me@a.test"})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.NotNil(t, res.Messages)
	assert.Empty(t, res.Messages)
}

func TestListMessages_ExhaustionIsSoft(t *testing.T) {
	a := newFake("a")
	a.listErr = transient
	client := newFakeClient(t, a)

	res, err := client.ListMessages(context.Background(), Mailbox{Provider: "a", Address: "me@a.test"})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.False(t, res.Succeeded)
	assert.NotNil(t, res.Messages)
	assert.Empty(t, res.Messages)
	_, list := a.calls()
	assert.Equal(t, 3, list)
}

func TestListMessages_RecoversWithinRetries(t *testing.T) {
	a := newFake("a")
	a.listFails = 1
	a.raws = []RawMessage{{"id": "1"}}
	client := newFakeClient(t, a)

	res, err := client.ListMessages(context.Background(), Mailbox{Provider: "a", Address: "me@a.test"})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Len(t, res.Messages, 1)
}

func TestListMessages_AuthRequiredPropagates(t *testing.T) {
	a := newFake("a")
	a.listErr = &AuthRequiredError{Provider: "a", Message: "token required"}
	client := newFakeClient(t, a)

	res, err := client.ListMessages(context.Background(), Mailbox{Provider: "a", Address: "me@a.test"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrAuthRequired)
	_, list := a.calls()
	assert.Equal(t, 1, list)
}

func TestListMessages_CallRetryPolicy(t *testing.T) {
	a := newFake("a")
	a.listErr = transient
	client := newFakeClient(t, a)

	policy := RetryPolicy{MaxRetries: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Timeout: time.Second}
	res, err := client.ListMessages(context.Background(), Mailbox{Provider: "a", Address: "me@a.test"}, WithCallRetryPolicy(policy))
	require.NoError(t, err)
	assert.False(t, res.Succeeded)

	_, list := a.calls()
	assert.Equal(t, 1, list)
}

func TestListMessages_InvalidCallPolicy(t *testing.T) {
	a := newFake("a")
	client := newFakeClient(t, a)

	_, err := client.ListMessages(context.Background(), Mailbox{Provider: "a", Address: "me@a.test"},
		WithCallRetryPolicy(RetryPolicy{MaxRetries: -1}))
	assert.ErrorIs(t, err, ErrValidation)
	_, list := a.calls()
	assert.Zero(t, list)
}

// statusServer answers every request with status and counts the hits.
func statusServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte("<html>blocked</html>"))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func newHTTPClient(t *testing.T, p func(*api.Client) Provider) *Client {
	t.Helper()
	apiClient, err := api.New()
	require.NoError(t, err)
	c, err := New(WithAdapters(p(apiClient)), noSleep())
	require.NoError(t, err)
	return c
}

func TestListMessages_HTTPStatusIsSoft(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusInternalServerError},
		{"forbidden without token", http.StatusForbidden},
		{"unauthorized without token", http.StatusUnauthorized},
		{"rate limited", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, hits := statusServer(t, tt.status)
			client := newHTTPClient(t, func(c *api.Client) Provider {
				return provider.NewChatGPTOrgUK(c, server.URL)
			})

			res, err := client.ListMessages(context.Background(),
				Mailbox{Provider: ProviderChatGPTOrgUK, Address: "me@chatgpt.org.uk"})
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.False(t, res.Succeeded)
			assert.NotNil(t, res.Messages)
			assert.Empty(t, res.Messages)
			assert.Equal(t, int32(3), hits.Load())
		})
	}
}

func TestListMessages_RejectedTokenPropagates(t *testing.T) {
	server, hits := statusServer(t, http.StatusUnauthorized)
	client := newHTTPClient(t, func(c *api.Client) Provider {
		return provider.NewMailTM(c, server.URL)
	})

	res, err := client.ListMessages(context.Background(),
		Mailbox{Provider: ProviderMailTM, Address: "me@mail.tm", Token: "expired"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCreateMailbox_ForbiddenFallsThrough(t *testing.T) {
	server, hits := statusServer(t, http.StatusForbidden)
	apiClient, err := api.New()
	require.NoError(t, err)

	b := newFake("b")
	client, err := New(WithAdapters(provider.NewChatGPTOrgUK(apiClient, server.URL), b), noSleep())
	require.NoError(t, err)

	mb, err := client.CreateMailbox(context.Background(), WithProvider(ProviderChatGPTOrgUK))
	require.NoError(t, err)
	require.NotNil(t, mb)
	assert.Equal(t, ProviderID("b"), mb.Provider)
	assert.Equal(t, int32(3), hits.Load())
}
