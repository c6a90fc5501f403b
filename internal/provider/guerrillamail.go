package provider

import (
	"context"
	"net/url"
	"time"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// GuerrillaMailBaseURL is the guerrillamail.com ajax endpoint.
const GuerrillaMailBaseURL = "https://api.guerrillamail.com/ajax.php"

const guerrillaLifetime = time.Hour

// GuerrillaMailAdapter talks to guerrillamail.com. The mailbox token is the
// sid_token of the session that owns the address.
type GuerrillaMailAdapter struct {
	http    *api.Client
	baseURL string
}

// NewGuerrillaMail returns a guerrillamail.com adapter for baseURL.
func NewGuerrillaMail(c *api.Client, baseURL string) *GuerrillaMailAdapter {
	return &GuerrillaMailAdapter{http: c, baseURL: baseURL}
}

func (a *GuerrillaMailAdapter) ID() ID { return GuerrillaMail }

func (a *GuerrillaMailAdapter) Capabilities() Capabilities {
	return Capabilities{RequiresAddress: true, RequiresToken: true}
}

func (a *GuerrillaMailAdapter) CreateMailbox(ctx context.Context, _ CreateOptions) (*Mailbox, error) {
	q := url.Values{"f": {"get_email_address"}, "lang": {"en"}}
	resp, err := a.http.Do(ctx, &api.Request{
		URL:      a.baseURL + "?" + q.Encode(),
		Provider: string(GuerrillaMail),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	address := js.Get("email_addr").MustString()
	sid := js.Get("sid_token").MustString()
	if address == "" || sid == "" {
		return nil, apierrors.Shape("guerrillamail: no address or sid_token")
	}
	mb := &Mailbox{Provider: GuerrillaMail, Address: address, Token: sid}
	if created := timeValue(js.Get("email_timestamp")); !created.IsZero() {
		mb.CreatedAt = created
		mb.ExpiresAt = created.Add(guerrillaLifetime)
	}
	return mb, nil
}

func (a *GuerrillaMailAdapter) ListMessages(ctx context.Context, mb Mailbox) ([]RawMessage, error) {
	if err := requireToken(GuerrillaMail, mb); err != nil {
		return nil, err
	}
	q := url.Values{"f": {"check_email"}, "seq": {"0"}, "sid_token": {mb.Token}}
	resp, err := a.http.Do(ctx, &api.Request{
		URL:           a.baseURL + "?" + q.Encode(),
		Authenticated: true,
		Provider:      string(GuerrillaMail),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	list, err := rawList(js.Get("list"))
	if err != nil {
		return nil, err
	}

	out := make([]RawMessage, len(list))
	for i, m := range list {
		out[i] = RawMessage{
			"mail_id":   m["mail_id"],
			"from":      m["mail_from"],
			"to":        mb.Address,
			"subject":   m["mail_subject"],
			"text":      m["mail_excerpt"],
			"timestamp": m["mail_timestamp"],
			"is_read":   m["mail_read"],
		}
	}
	return out, nil
}
