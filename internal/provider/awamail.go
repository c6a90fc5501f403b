package provider

import (
	"context"
	"net/http"

	"github.com/tempmail-sdk/client-go/internal/api"
	"github.com/tempmail-sdk/client-go/internal/apierrors"
)

// AwaMailBaseURL is the awamail.com endpoint root.
const AwaMailBaseURL = "https://awamail.com/welcome"

const awaMailSessionCookie = "awamail_session"

// AwaMailAdapter talks to awamail.com. The mailbox token is the session
// cookie in "name=value" form.
type AwaMailAdapter struct {
	http    *api.Client
	baseURL string
}

// NewAwaMail returns an awamail.com adapter rooted at baseURL.
func NewAwaMail(c *api.Client, baseURL string) *AwaMailAdapter {
	return &AwaMailAdapter{http: c, baseURL: baseURL}
}

func (a *AwaMailAdapter) ID() ID { return AwaMail }

func (a *AwaMailAdapter) Capabilities() Capabilities {
	return Capabilities{RequiresAddress: true, RequiresToken: true}
}

func (a *AwaMailAdapter) CreateMailbox(ctx context.Context, _ CreateOptions) (*Mailbox, error) {
	resp, err := a.http.Do(ctx, &api.Request{
		Method: http.MethodPost,
		URL:    a.baseURL + "/change_mailbox",
		Header: headers(
			"Origin", "https://awamail.com",
			"Referer", "https://awamail.com/",
			"X-Requested-With", "XMLHttpRequest",
		),
		Body:       []byte{},
		NoRedirect: true,
		Provider:   string(AwaMail),
	})
	if err != nil {
		return nil, err
	}

	session := resp.Cookie(awaMailSessionCookie)
	if session == nil || session.Value == "" {
		return nil, apierrors.Shape("awamail: no session cookie in response")
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	address := js.GetPath("data", "email_address").MustString()
	if !js.Get("success").MustBool() || address == "" {
		return nil, apierrors.Shape("awamail: change_mailbox returned no address")
	}
	return &Mailbox{
		Provider:  AwaMail,
		Address:   address,
		Token:     awaMailSessionCookie + "=" + session.Value,
		CreatedAt: timeValue(js.GetPath("data", "created_at")),
		ExpiresAt: timeValue(js.GetPath("data", "expired_at")),
	}, nil
}

func (a *AwaMailAdapter) ListMessages(ctx context.Context, mb Mailbox) ([]RawMessage, error) {
	if err := requireToken(AwaMail, mb); err != nil {
		return nil, err
	}
	resp, err := a.http.Do(ctx, &api.Request{
		URL: a.baseURL + "/get_emails",
		Header: headers(
			"Cookie", mb.Token,
			"Referer", "https://awamail.com/",
			"X-Requested-With", "XMLHttpRequest",
		),
		Authenticated: true,
		Provider:      string(AwaMail),
	})
	if err != nil {
		return nil, err
	}
	js, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	if !js.Get("success").MustBool() {
		return nil, apierrors.Shape("awamail: get_emails reported failure")
	}
	return rawList(js.GetPath("data", "emails"))
}
